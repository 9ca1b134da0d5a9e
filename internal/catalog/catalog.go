// Package catalog provides the static stage registry for AceFlow.
//
// A Catalog maps each flow mode to its ordered stage definitions and carries
// the explicit mapping tables used when switching modes. Catalogs are built
// once at process start, either from the built-in definitions or from an
// optional flow_modes.yaml override, and are never mutated afterwards.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/engine, internal/state, internal/cli
package catalog

import (
	"fmt"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// Catalog is the read-only stage registry.
type Catalog struct {
	modes    map[constants.FlowMode][]domain.StageDefinition
	mappings map[string]map[string]string
}

// Builtin returns a catalog populated with the built-in mode definitions and
// mapping tables.
func Builtin() *Catalog {
	return &Catalog{
		modes:    builtinModes(),
		mappings: builtinMappings(),
	}
}

// Modes returns the modes the catalog defines, in documentation order for
// built-in modes followed by any custom modes.
func (c *Catalog) Modes() []constants.FlowMode {
	out := make([]constants.FlowMode, 0, len(c.modes))
	for _, m := range constants.KnownFlowModes() {
		if _, ok := c.modes[m]; ok {
			out = append(out, m)
		}
	}
	for m := range c.modes {
		if !isKnownMode(m) {
			out = append(out, m)
		}
	}
	return out
}

func isKnownMode(mode constants.FlowMode) bool {
	for _, m := range constants.KnownFlowModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// StagesForMode returns the ordered stage definitions for the mode.
// Returns ErrUnknownMode if the mode has no definitions.
func (c *Catalog) StagesForMode(mode constants.FlowMode) ([]domain.StageDefinition, error) {
	stages, ok := c.modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", aceerrors.ErrUnknownMode, mode)
	}
	// Return a copy to keep the catalog immutable.
	out := make([]domain.StageDefinition, len(stages))
	copy(out, stages)
	return out, nil
}

// StageByID returns the definition of one stage within a mode.
// Returns ErrUnknownMode / ErrUnknownStage rather than a default value;
// callers must handle absence explicitly.
func (c *Catalog) StageByID(mode constants.FlowMode, stageID string) (domain.StageDefinition, error) {
	stages, ok := c.modes[mode]
	if !ok {
		return domain.StageDefinition{}, fmt.Errorf("%w: %q", aceerrors.ErrUnknownMode, mode)
	}
	for _, s := range stages {
		if s.ID == stageID {
			return s, nil
		}
	}
	return domain.StageDefinition{}, fmt.Errorf("%w: %q in mode %q", aceerrors.ErrUnknownStage, stageID, mode)
}

// StageIndex returns the position of a stage within its mode's order.
func (c *Catalog) StageIndex(mode constants.FlowMode, stageID string) (int, error) {
	stages, ok := c.modes[mode]
	if !ok {
		return 0, fmt.Errorf("%w: %q", aceerrors.ErrUnknownMode, mode)
	}
	for i, s := range stages {
		if s.ID == stageID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q in mode %q", aceerrors.ErrUnknownStage, stageID, mode)
}

// NextStageID returns the successor of a stage in mode order, or empty for
// the last stage. The explicit NextStageID link on the definition wins when
// present; otherwise list order decides.
func (c *Catalog) NextStageID(mode constants.FlowMode, stageID string) (string, error) {
	def, err := c.StageByID(mode, stageID)
	if err != nil {
		return "", err
	}
	if def.NextStageID != "" {
		return def.NextStageID, nil
	}
	idx, err := c.StageIndex(mode, stageID)
	if err != nil {
		return "", err
	}
	stages := c.modes[mode]
	if idx+1 < len(stages) {
		return stages[idx+1].ID, nil
	}
	return "", nil
}

// PrevStageID returns the predecessor of a stage in mode order, or empty for
// the first stage.
func (c *Catalog) PrevStageID(mode constants.FlowMode, stageID string) (string, error) {
	idx, err := c.StageIndex(mode, stageID)
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return "", nil
	}
	return c.modes[mode][idx-1].ID, nil
}

// MappingRules returns the explicit mapping table for migrating from one mode
// to another, keyed by target stage id with a source stage spec (single id or
// comma-separated list). The second return is false when no table exists and
// the caller should fall back to the similarity heuristic.
func (c *Catalog) MappingRules(from, to constants.FlowMode) (map[string]string, bool) {
	rules, ok := c.mappings[mappingKey(from, to)]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out, true
}

// mappingKey builds the "{from}_to_{to}" lookup key used by mapping tables.
func mappingKey(from, to constants.FlowMode) string {
	return fmt.Sprintf("%s_to_%s", from, to)
}

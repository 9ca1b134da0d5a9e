package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// catalogFile mirrors the flow_modes.yaml override document.
//
// Example:
//
//	flow_modes:
//	  minimal:
//	    stages:
//	      - id: analysis
//	        display_name: Requirements Analysis
//	        ...
//	mode_switching:
//	  mapping_rules:
//	    minimal_to_standard:
//	      user_stories: analysis
type catalogFile struct {
	FlowModes     map[string]modeFile `yaml:"flow_modes"`
	ModeSwitching struct {
		MappingRules map[string]map[string]string `yaml:"mapping_rules"`
	} `yaml:"mode_switching"`
}

type modeFile struct {
	Stages []domain.StageDefinition `yaml:"stages"`
}

// Load builds a catalog from the built-in definitions merged with the YAML
// override at path, if it exists. A mode present in the file replaces the
// built-in stage list for that mode wholesale; mapping tables merge per key.
// A missing file is not an error and yields the built-in catalog unchanged.
func Load(path string) (*Catalog, error) {
	cat := Builtin()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from project config
	if err != nil {
		if os.IsNotExist(err) {
			return cat, nil
		}
		return nil, aceerrors.Wrapf(err, "read catalog override %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, aceerrors.Wrapf(err, "parse catalog override %s", path)
	}

	for name, mode := range file.FlowModes {
		if len(mode.Stages) == 0 {
			return nil, fmt.Errorf("%w: mode %q in %s defines no stages", aceerrors.ErrConfigInvalid, name, path)
		}
		if err := validateStages(name, mode.Stages); err != nil {
			return nil, err
		}
		cat.modes[constants.FlowMode(name)] = mode.Stages
	}
	for key, rules := range file.ModeSwitching.MappingRules {
		cat.mappings[key] = rules
	}
	return cat, nil
}

// validateStages rejects stage lists with duplicate ids or dependencies on
// stages outside the list.
func validateStages(mode string, stages []domain.StageDefinition) error {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if s.ID == "" {
			return fmt.Errorf("%w: mode %q has a stage with an empty id", aceerrors.ErrConfigInvalid, mode)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: mode %q defines stage %q twice", aceerrors.ErrConfigInvalid, mode, s.ID)
		}
		seen[s.ID] = true
	}
	for _, s := range stages {
		for _, dep := range s.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("%w: stage %q in mode %q depends on unknown stage %q", aceerrors.ErrConfigInvalid, s.ID, mode, dep)
			}
		}
		if s.NextStageID != "" && !seen[s.NextStageID] {
			return fmt.Errorf("%w: stage %q in mode %q links to unknown stage %q", aceerrors.ErrConfigInvalid, s.ID, mode, s.NextStageID)
		}
	}
	return nil
}

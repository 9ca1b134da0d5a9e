// Package migrate implements flow mode switching for an existing project.
//
// A migration rewrites the state document from the source mode's stage set
// to the target mode's. Explicit per-pair mapping tables from the catalog
// decide which source stages feed each target stage; pairs without a table
// fall back to a text similarity heuristic. The migrator is pure state
// transformation; loading and saving stay with the caller.
package migrate

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/clock"
	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// Migrator rewrites project state between flow modes.
type Migrator struct {
	catalog *catalog.Catalog
	clock   clock.Clock
	logger  zerolog.Logger

	// Scorer rates stage pairs for the similarity fallback. Defaults to
	// JaccardScorer when nil.
	Scorer Scorer
}

// New creates a migrator.
func New(cat *catalog.Catalog, clk clock.Clock, logger zerolog.Logger) *Migrator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Migrator{
		catalog: cat,
		clock:   clk,
		logger:  logger,
		Scorer:  JaccardScorer{},
	}
}

// Migrate returns a new state document in the target mode. With
// preserveProgress set, source stage records are carried into the target
// stages they map to; otherwise the target mode starts fresh. Migrating to
// the current mode returns the document unchanged. The abnormality log
// always survives.
func (m *Migrator) Migrate(st *domain.ProjectState, to constants.FlowMode, preserveProgress bool) (*domain.ProjectState, error) {
	from := st.Project.Mode
	if from == to {
		return st, nil
	}

	targetStages, err := m.catalog.StagesForMode(to)
	if err != nil {
		return nil, err
	}
	sourceStages, err := m.catalog.StagesForMode(from)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()
	out := &domain.ProjectState{
		Project: domain.ProjectInfo{
			Name:        st.Project.Name,
			Mode:        to,
			CreatedAt:   st.Project.CreatedAt,
			LastUpdated: now,
		},
		StageStates:   make(map[string]*domain.StageRuntimeState, len(targetStages)),
		Abnormalities: append([]domain.Abnormality(nil), st.Abnormalities...),
		SchemaVersion: constants.StateSchemaVersion,
	}

	if preserveProgress {
		rules, explicit := m.catalog.MappingRules(from, to)
		for _, def := range targetStages {
			var sources []string
			if explicit {
				sources = splitSources(rules[def.ID])
			} else {
				sources = m.similarSources(def, sourceStages)
			}
			out.StageStates[def.ID] = mergeStates(st, sources)
		}
		if !explicit {
			m.logger.Warn().
				Err(aceerrors.ErrMigrationMappingAbsent).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("falling back to similarity heuristic")
		}
	} else {
		for _, def := range targetStages {
			out.StageStates[def.ID] = &domain.StageRuntimeState{
				Status:   constants.StageStatusPending,
				Progress: constants.ProgressMin,
			}
		}
	}

	m.focusFlow(out, targetStages, now)

	m.logger.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Bool("preserve", preserveProgress).
		Str("stage", out.Flow.CurrentStage).
		Msg("mode migrated")
	return out, nil
}

// focusFlow derives the flow summary after migration: the current stage is
// the first non-completed target stage, or the last stage when everything
// carried over as completed.
func (m *Migrator) focusFlow(st *domain.ProjectState, stages []domain.StageDefinition, now time.Time) {
	st.Flow.CompletedStages = []string{}
	for _, def := range stages {
		if st.StageStates[def.ID].Status == constants.StageStatusCompleted {
			st.Flow.CompletedStages = append(st.Flow.CompletedStages, def.ID)
		}
	}

	current := stages[len(stages)-1].ID
	for _, def := range stages {
		if st.StageStates[def.ID].Status != constants.StageStatusCompleted {
			current = def.ID
			break
		}
	}
	st.Flow.CurrentStage = current

	rt := st.StageStates[current]
	if rt.Status == constants.StageStatusPending {
		rt.Status = constants.StageStatusInProgress
		if rt.StartTime == nil {
			start := now
			rt.StartTime = &start
		}
	}

	st.Flow.ProgressPercentage = constants.ProgressMax * len(st.Flow.CompletedStages) / len(stages)
	st.Flow.NextStage, _ = m.catalog.NextStageID(st.Project.Mode, current)
}

// similarSources picks the best-matching source stage for a target stage,
// or none when no pair clears the threshold.
func (m *Migrator) similarSources(target domain.StageDefinition, sourceStages []domain.StageDefinition) []string {
	scorer := m.Scorer
	if scorer == nil {
		scorer = JaccardScorer{}
	}

	best := ""
	bestScore := 0.0
	for _, src := range sourceStages {
		score := scorer.Score(target, src)
		if score > bestScore {
			best = src.ID
			bestScore = score
		}
	}
	if bestScore < SimilarityThreshold {
		return nil
	}
	return []string{best}
}

// splitSources parses a mapping rule value: one source stage id or a
// comma-separated list.
func splitSources(spec string) []string {
	if spec == "" {
		return nil
	}
	parts := strings.Split(spec, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeStates folds the mapped source stage records into one target record.
// All sources completed yields a completed target; any started source yields
// in_progress with the average progress; otherwise the target is pending.
// Notes concatenate in source order, deliverable checkmarks union, and the
// earliest start / latest end survive.
func mergeStates(st *domain.ProjectState, sources []string) *domain.StageRuntimeState {
	var records []*domain.StageRuntimeState
	for _, id := range sources {
		if rt, ok := st.StageStates[id]; ok && rt != nil {
			records = append(records, rt.Clone())
		}
	}
	if len(records) == 0 {
		return &domain.StageRuntimeState{Status: constants.StageStatusPending, Progress: constants.ProgressMin}
	}

	out := &domain.StageRuntimeState{}

	allCompleted := true
	anyStarted := false
	progressSum := 0
	for _, rt := range records {
		if rt.Status != constants.StageStatusCompleted {
			allCompleted = false
		}
		if rt.Status == constants.StageStatusInProgress || rt.Progress > 0 {
			anyStarted = true
		}
		progressSum += rt.Progress

		out.Notes = append(out.Notes, rt.Notes...)
		for d, done := range rt.DeliverablesStatus {
			if out.DeliverablesStatus == nil {
				out.DeliverablesStatus = make(map[string]bool)
			}
			out.DeliverablesStatus[d] = out.DeliverablesStatus[d] || done
		}
		if rt.Assignee != "" && out.Assignee == "" {
			out.Assignee = rt.Assignee
		}
		if rt.StartTime != nil && (out.StartTime == nil || rt.StartTime.Before(*out.StartTime)) {
			out.StartTime = rt.StartTime
		}
		if rt.EndTime != nil && (out.EndTime == nil || rt.EndTime.After(*out.EndTime)) {
			out.EndTime = rt.EndTime
		}
	}

	switch {
	case allCompleted:
		out.Status = constants.StageStatusCompleted
		out.Progress = constants.ProgressMax
	case anyStarted:
		out.Status = constants.StageStatusInProgress
		out.Progress = progressSum / len(records)
		out.EndTime = nil
	default:
		out.Status = constants.StageStatusPending
		out.Progress = constants.ProgressMin
		out.EndTime = nil
	}
	return out
}

// Preview describes how one target stage would be populated by a migration.
type Preview struct {
	TargetStage string   `json:"target_stage"`
	Sources     []string `json:"sources"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
}

// Plan reports the per-stage outcome of a preserve-progress migration
// without mutating anything, for confirmation prompts.
func (m *Migrator) Plan(st *domain.ProjectState, to constants.FlowMode) ([]Preview, error) {
	targetStages, err := m.catalog.StagesForMode(to)
	if err != nil {
		return nil, err
	}
	sourceStages, err := m.catalog.StagesForMode(st.Project.Mode)
	if err != nil {
		return nil, err
	}

	rules, explicit := m.catalog.MappingRules(st.Project.Mode, to)
	previews := make([]Preview, 0, len(targetStages))
	for _, def := range targetStages {
		var sources []string
		if explicit {
			sources = splitSources(rules[def.ID])
		} else {
			sources = m.similarSources(def, sourceStages)
		}
		merged := mergeStates(st, sources)
		sort.Strings(sources)
		previews = append(previews, Preview{
			TargetStage: def.ID,
			Sources:     sources,
			Status:      merged.Status.String(),
			Progress:    merged.Progress,
		})
	}
	return previews, nil
}

// Package engine implements the AceFlow stage transition engine.
//
// The engine is the only writer of the project state document. Every
// operation is a full load-mutate-validate-save cycle against the state
// store; concurrency control lives in the store's file lock, not here.
//
// Import rules:
//   - CAN import: internal/catalog, internal/clock, internal/constants,
//     internal/domain, internal/errors, internal/state
//   - MUST NOT import: internal/cli, internal/config
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/clock"
	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
	"github.com/aceflow-ai/aceflow/internal/state"
)

// Options tunes the engine's gate behavior.
type Options struct {
	// RequireOutputs enables the output-validation gate: a stage with a
	// RequiredOutput artifact cannot complete until the artifact exists.
	RequireOutputs bool

	// SkipDependencyGate disables the dependency gate on Start. Used for
	// exploratory projects where stages are worked out of order.
	SkipDependencyGate bool
}

// Engine executes stage transitions against the persisted project state.
type Engine struct {
	store   state.Store
	catalog *catalog.Catalog
	checker OutputChecker
	clock   clock.Clock
	logger  zerolog.Logger
	opts    Options
}

// New creates an engine. A nil checker disables the output gate regardless
// of Options.RequireOutputs.
func New(store state.Store, cat *catalog.Catalog, checker OutputChecker, clk clock.Clock, logger zerolog.Logger, opts Options) *Engine {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Engine{
		store:   store,
		catalog: cat,
		checker: checker,
		clock:   clk,
		logger:  logger,
		opts:    opts,
	}
}

// InitProject creates the initial state document for a new project.
// Returns ErrStateExists if the project is already initialized and
// ErrUnknownMode if the mode has no stage definitions.
func (e *Engine) InitProject(ctx context.Context, name string, mode constants.FlowMode) (*domain.ProjectState, error) {
	if name == "" {
		return nil, fmt.Errorf("failed to initialize project: name %w", aceerrors.ErrEmptyValue)
	}

	stages, err := e.catalog.StagesForMode(mode)
	if err != nil {
		return nil, err
	}

	st := state.NewProjectState(name, mode, stages, e.clock.Now().UTC())
	if err := e.store.Init(ctx, st); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("project", name).
		Str("mode", mode.String()).
		Str("stage", st.Flow.CurrentStage).
		Msg("project initialized")

	return st, nil
}

// Status returns the current state document.
func (e *Engine) Status(ctx context.Context) (*domain.ProjectState, error) {
	return e.store.Load(ctx)
}

// Start begins work on a stage. The dependency gate requires every declared
// dependency stage to be completed first unless Options.SkipDependencyGate
// is set. A non-empty assignee is recorded on the stage; an empty one leaves
// the existing value alone. Starting the current stage again is a no-op.
func (e *Engine) Start(ctx context.Context, stageID, assignee string) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		if err := e.startStage(st, stageID); err != nil {
			return err
		}
		if assignee != "" {
			st.StageState(stageID).Assignee = assignee
		}
		e.logger.Info().Str("stage", stageID).Str("assignee", assignee).Msg("stage started")
		return nil
	})
}

// UpdateProgress sets a stage's progress percentage. Reaching 100 completes
// the stage, subject to the output-validation gate, and advances the flow to
// the successor stage. Setting 100 on an already completed stage is a no-op;
// any lower value on a completed stage returns ErrAlreadyCompleted.
func (e *Engine) UpdateProgress(ctx context.Context, stageID string, progress int) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		if progress < constants.ProgressMin || progress > constants.ProgressMax {
			return fmt.Errorf("%w: %d", aceerrors.ErrInvalidProgress, progress)
		}

		def, err := e.catalog.StageByID(st.Project.Mode, stageID)
		if err != nil {
			return err
		}

		rt := st.StageState(stageID)
		if rt.Status == constants.StageStatusCompleted {
			if progress == constants.ProgressMax {
				return nil
			}
			return fmt.Errorf("stage '%s': %w", stageID, aceerrors.ErrAlreadyCompleted)
		}

		// A progress update on an untouched stage implicitly starts it, so
		// the dependency gate applies here too.
		if rt.Status == constants.StageStatusPending {
			if err := e.checkDependencies(st, def); err != nil {
				return err
			}
		}

		if progress == constants.ProgressMax {
			if err := e.completeStage(st, def, false); err != nil {
				return err
			}
			e.logger.Info().Str("stage", stageID).Msg("stage completed via progress")
			return nil
		}

		now := e.clock.Now().UTC()
		rt.Progress = progress
		rt.Status = constants.StageStatusInProgress
		if rt.StartTime == nil {
			rt.StartTime = &now
		}
		e.logger.Info().Str("stage", stageID).Int("progress", progress).Msg("progress updated")
		return nil
	})
}

// Complete marks a stage completed, subject to the dependency gate for
// stages that never started and the output-validation gate, and advances
// the flow. With force set both gates are bypassed. Unchecked
// deliverables do not block completion but are returned as warnings. A
// non-empty note is appended to the stage notes.
func (e *Engine) Complete(ctx context.Context, stageID, note string, force bool) (*domain.ProjectState, []string, error) {
	var warnings []string
	st, err := e.mutate(ctx, func(st *domain.ProjectState) error {
		def, err := e.catalog.StageByID(st.Project.Mode, stageID)
		if err != nil {
			return err
		}

		rt := st.StageState(stageID)
		for _, d := range def.Deliverables {
			if !rt.DeliverablesStatus[d] {
				warnings = append(warnings, fmt.Sprintf("deliverable not checked off: %s", d))
			}
		}
		if note != "" {
			rt.Notes = append(rt.Notes, note)
		}

		if err := e.completeStage(st, def, force); err != nil {
			return err
		}
		e.logger.Info().Str("stage", stageID).Int("warnings", len(warnings)).Msg("stage completed")
		return nil
	})
	return st, warnings, err
}

// Advance completes the current stage and moves the flow to its successor.
// With force set, the output-validation gate is bypassed. If the current
// stage is already completed, Advance only moves the flow forward.
// Returns ErrNoNextStage from the last stage of the mode.
func (e *Engine) Advance(ctx context.Context, force bool) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		current := st.Flow.CurrentStage
		def, err := e.catalog.StageByID(st.Project.Mode, current)
		if err != nil {
			return err
		}

		next, err := e.catalog.NextStageID(st.Project.Mode, current)
		if err != nil {
			return err
		}

		rt := st.StageState(current)
		if rt.Status == constants.StageStatusCompleted {
			if next == "" {
				return fmt.Errorf("stage '%s': %w", current, aceerrors.ErrNoNextStage)
			}
			if err := e.startStage(st, next); err != nil {
				return err
			}
			e.logger.Info().Str("from", current).Str("to", next).Msg("advanced to next stage")
			return nil
		}

		if next == "" && st.IsCompleted(current) {
			return fmt.Errorf("stage '%s': %w", current, aceerrors.ErrNoNextStage)
		}

		if err := e.completeStage(st, def, force); err != nil {
			return err
		}
		e.logger.Info().Str("from", current).Str("to", st.Flow.CurrentStage).Bool("force", force).Msg("advanced")
		return nil
	})
}

// Goto moves the flow focus to an arbitrary stage of the mode without
// completing anything. The dependency gate is not consulted, an explicit
// jump overrides it. Without force, jumping to the current stage is a
// no-op; with force the target restarts from zero progress. A target on
// the completed list keeps its completed record either way; Revert and
// Reset are the operations that reopen completed work.
func (e *Engine) Goto(ctx context.Context, stageID string, force bool) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		if _, err := e.catalog.StageByID(st.Project.Mode, stageID); err != nil {
			return err
		}
		if st.Flow.CurrentStage == stageID && !force {
			return nil
		}

		st.Flow.CurrentStage = stageID
		rt := st.StageState(stageID)
		now := e.clock.Now().UTC()
		switch {
		case rt.Status == constants.StageStatusCompleted:
		case force:
			rt.Status = constants.StageStatusInProgress
			rt.Progress = constants.ProgressMin
			rt.StartTime = &now
			rt.EndTime = nil
		default:
			rt.Status = constants.StageStatusInProgress
			if rt.StartTime == nil {
				rt.StartTime = &now
			}
		}
		e.logger.Info().Str("stage", stageID).Bool("force", force).Msg("jumped to stage")
		return nil
	})
}

// Revert moves the flow back to the predecessor of the current stage. The
// current stage resets to pending with zero progress; the predecessor is
// reopened in_progress and removed from the completed list.
// Returns ErrNoPrevStage from the first stage of the mode.
func (e *Engine) Revert(ctx context.Context) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		current := st.Flow.CurrentStage
		prev, err := e.catalog.PrevStageID(st.Project.Mode, current)
		if err != nil {
			return err
		}
		if prev == "" {
			return fmt.Errorf("stage '%s': %w", current, aceerrors.ErrNoPrevStage)
		}

		rt := st.StageState(current)
		rt.Status = constants.StageStatusPending
		rt.Progress = constants.ProgressMin
		rt.EndTime = nil

		prt := st.StageState(prev)
		prt.Status = constants.StageStatusInProgress
		prt.EndTime = nil
		removeCompleted(st, prev)

		st.Flow.CurrentStage = prev
		e.logger.Info().Str("from", current).Str("to", prev).Msg("reverted to previous stage")
		return nil
	})
}

// Reset rewinds the flow to a stage: the target and every later stage return
// to pending with zero progress, cleared timestamps, and an unchecked
// deliverable list; notes survive. The target then restarts in_progress.
func (e *Engine) Reset(ctx context.Context, stageID string) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		stages, err := e.catalog.StagesForMode(st.Project.Mode)
		if err != nil {
			return err
		}
		idx, err := e.catalog.StageIndex(st.Project.Mode, stageID)
		if err != nil {
			return err
		}

		reset := make(map[string]bool, len(stages)-idx)
		for _, def := range stages[idx:] {
			reset[def.ID] = true
			rt := st.StageState(def.ID)
			rt.Status = constants.StageStatusPending
			rt.Progress = constants.ProgressMin
			rt.StartTime = nil
			rt.EndTime = nil
			for d := range rt.DeliverablesStatus {
				rt.DeliverablesStatus[d] = false
			}
		}

		kept := st.Flow.CompletedStages[:0]
		for _, id := range st.Flow.CompletedStages {
			if !reset[id] {
				kept = append(kept, id)
			}
		}
		st.Flow.CompletedStages = kept

		now := e.clock.Now().UTC()
		target := st.StageState(stageID)
		target.Status = constants.StageStatusInProgress
		target.StartTime = &now
		st.Flow.CurrentStage = stageID

		e.logger.Info().Str("stage", stageID).Msg("flow reset")
		return nil
	})
}

// UpdateDeliverable checks or unchecks one deliverable of a stage and
// recomputes the stage's progress as the checked fraction of the checklist.
// Reaching a full checklist does not complete the stage; completion always
// goes through Complete or UpdateProgress.
func (e *Engine) UpdateDeliverable(ctx context.Context, stageID, deliverable string, done bool) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		def, err := e.catalog.StageByID(st.Project.Mode, stageID)
		if err != nil {
			return err
		}

		known := false
		for _, d := range def.Deliverables {
			if d == deliverable {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %q for stage '%s'", aceerrors.ErrUnknownDeliverable, deliverable, stageID)
		}

		rt := st.StageState(stageID)
		if rt.Status == constants.StageStatusCompleted {
			return fmt.Errorf("stage '%s': %w", stageID, aceerrors.ErrAlreadyCompleted)
		}

		if rt.DeliverablesStatus == nil {
			rt.DeliverablesStatus = make(map[string]bool, len(def.Deliverables))
		}
		rt.DeliverablesStatus[deliverable] = done

		checked := 0
		for _, d := range def.Deliverables {
			if rt.DeliverablesStatus[d] {
				checked++
			}
		}
		rt.Progress = constants.ProgressMax * checked / len(def.Deliverables)

		if rt.Status == constants.StageStatusPending {
			now := e.clock.Now().UTC()
			rt.Status = constants.StageStatusInProgress
			if rt.StartTime == nil {
				rt.StartTime = &now
			}
		}

		e.logger.Info().
			Str("stage", stageID).
			Str("deliverable", deliverable).
			Bool("done", done).
			Int("progress", rt.Progress).
			Msg("deliverable updated")
		return nil
	})
}

// RecordAbnormality appends an issue to the project log. A high severity
// issue blocks the affected stage until it is resolved.
func (e *Engine) RecordAbnormality(ctx context.Context, stageID, description string, severity constants.Severity) (*domain.ProjectState, *domain.Abnormality, error) {
	if description == "" {
		return nil, nil, fmt.Errorf("failed to record abnormality: description %w", aceerrors.ErrEmptyValue)
	}

	var recorded *domain.Abnormality
	st, err := e.mutate(ctx, func(st *domain.ProjectState) error {
		if _, err := e.catalog.StageByID(st.Project.Mode, stageID); err != nil {
			return err
		}

		abn := domain.Abnormality{
			ID:          uuid.NewString(),
			StageID:     stageID,
			Description: description,
			Severity:    severity,
			Status:      constants.AbnormalityUnresolved,
			DetectedAt:  e.clock.Now().UTC(),
		}
		st.Abnormalities = append(st.Abnormalities, abn)

		rt := st.StageState(stageID)
		if severity == constants.SeverityHigh && rt.Status != constants.StageStatusCompleted {
			rt.Status = constants.StageStatusBlocked
		}

		recorded = &st.Abnormalities[len(st.Abnormalities)-1]
		e.logger.Warn().
			Str("stage", stageID).
			Str("severity", severity.String()).
			Str("id", abn.ID).
			Msg("abnormality recorded")
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return st, recorded, nil
}

// ResolveAbnormality marks an issue resolved. A stage blocked by high
// severity issues is unblocked once the last of them resolves.
// Returns ErrAbnormalityNotFound for an unknown id.
func (e *Engine) ResolveAbnormality(ctx context.Context, id string) (*domain.ProjectState, error) {
	return e.mutate(ctx, func(st *domain.ProjectState) error {
		idx := -1
		for i := range st.Abnormalities {
			if st.Abnormalities[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("'%s': %w", id, aceerrors.ErrAbnormalityNotFound)
		}

		abn := &st.Abnormalities[idx]
		if abn.Status == constants.AbnormalityResolved {
			return nil
		}
		now := e.clock.Now().UTC()
		abn.Status = constants.AbnormalityResolved
		abn.ResolvedAt = &now

		// Unblock the stage once no unresolved high severity issues remain.
		rt := st.StageState(abn.StageID)
		if rt.Status == constants.StageStatusBlocked {
			blocked := false
			for _, a := range st.UnresolvedAbnormalities(abn.StageID) {
				if a.Severity == constants.SeverityHigh {
					blocked = true
					break
				}
			}
			if !blocked {
				rt.Status = constants.StageStatusInProgress
			}
		}

		e.logger.Info().Str("id", id).Str("stage", abn.StageID).Msg("abnormality resolved")
		return nil
	})
}

// mutate runs one read-modify-write cycle under the store's exclusive lock.
// The flow summary fields and the last-updated timestamp are recomputed
// after every mutation.
func (e *Engine) mutate(ctx context.Context, fn func(*domain.ProjectState) error) (*domain.ProjectState, error) {
	return e.store.Update(ctx, func(st *domain.ProjectState) error {
		if err := fn(st); err != nil {
			return err
		}
		if err := e.recomputeFlow(st); err != nil {
			return err
		}
		st.Project.LastUpdated = e.clock.Now().UTC()
		return nil
	})
}

// startStage transitions a stage to in_progress and focuses the flow on it,
// enforcing the dependency gate.
func (e *Engine) startStage(st *domain.ProjectState, stageID string) error {
	def, err := e.catalog.StageByID(st.Project.Mode, stageID)
	if err != nil {
		return err
	}

	rt := st.StageState(stageID)
	if rt.Status == constants.StageStatusCompleted {
		return fmt.Errorf("stage '%s': %w", stageID, aceerrors.ErrAlreadyCompleted)
	}

	if err := e.checkDependencies(st, def); err != nil {
		return err
	}

	now := e.clock.Now().UTC()
	rt.Status = constants.StageStatusInProgress
	if rt.StartTime == nil {
		rt.StartTime = &now
	}
	st.Flow.CurrentStage = stageID
	return nil
}

// completeStage marks a stage completed, applying the dependency gate for
// untouched stages and the output-validation gate unless force is set, and
// moves the flow to the successor when the stage is the current one.
// Completing an already completed stage is a no-op.
func (e *Engine) completeStage(st *domain.ProjectState, def domain.StageDefinition, force bool) error {
	rt := st.StageState(def.ID)
	if rt.Status == constants.StageStatusCompleted {
		return nil
	}

	// Completing a stage that never started implicitly starts it, so the
	// dependency gate applies, matching UpdateProgress.
	if !force && rt.Status == constants.StageStatusPending {
		if err := e.checkDependencies(st, def); err != nil {
			return err
		}
	}

	if !force && e.opts.RequireOutputs && e.checker != nil && def.RequiredOutput != "" {
		ready, err := e.checker.OutputReady(def.RequiredOutput)
		if err != nil {
			return fmt.Errorf("failed to check output for stage '%s': %w", def.ID, err)
		}
		if !ready {
			return fmt.Errorf("stage '%s' requires artifact '%s': %w", def.ID, def.RequiredOutput, aceerrors.ErrOutputNotReady)
		}
	}

	now := e.clock.Now().UTC()
	rt.Status = constants.StageStatusCompleted
	rt.Progress = constants.ProgressMax
	if rt.StartTime == nil {
		rt.StartTime = &now
	}
	rt.EndTime = &now

	if !st.IsCompleted(def.ID) {
		st.Flow.CompletedStages = append(st.Flow.CompletedStages, def.ID)
	}

	// Auto-advance the flow focus to the successor. The successor starts
	// in_progress when its dependencies allow; otherwise it stays pending
	// with the focus moved, so status output points at the right place.
	if st.Flow.CurrentStage == def.ID {
		next, err := e.catalog.NextStageID(st.Project.Mode, def.ID)
		if err != nil {
			return err
		}
		if next != "" {
			if err := e.startStage(st, next); err != nil {
				st.Flow.CurrentStage = next
			}
		}
	}
	return nil
}

// checkDependencies enforces the dependency gate for a stage.
func (e *Engine) checkDependencies(st *domain.ProjectState, def domain.StageDefinition) error {
	if e.opts.SkipDependencyGate {
		return nil
	}
	var missing []string
	for _, dep := range def.Dependencies {
		if !st.IsCompleted(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("stage '%s' requires completion of: %s: %w", def.ID, strings.Join(missing, ", "), aceerrors.ErrDependencyNotMet)
	}
	return nil
}

// recomputeFlow refreshes the derived flow fields from the stage records.
func (e *Engine) recomputeFlow(st *domain.ProjectState) error {
	stages, err := e.catalog.StagesForMode(st.Project.Mode)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		st.Flow.ProgressPercentage = 0
		st.Flow.NextStage = ""
		return nil
	}

	st.Flow.ProgressPercentage = constants.ProgressMax * len(st.Flow.CompletedStages) / len(stages)

	if st.Flow.CurrentStage == "" {
		st.Flow.NextStage = stages[0].ID
		return nil
	}
	next, err := e.catalog.NextStageID(st.Project.Mode, st.Flow.CurrentStage)
	if err != nil {
		return err
	}
	st.Flow.NextStage = next
	return nil
}

// removeCompleted drops one stage id from the completed list.
func removeCompleted(st *domain.ProjectState, stageID string) {
	kept := st.Flow.CompletedStages[:0]
	for _, id := range st.Flow.CompletedStages {
		if id != stageID {
			kept = append(kept, id)
		}
	}
	st.Flow.CompletedStages = kept
}

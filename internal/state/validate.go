package state

import (
	"fmt"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// Validate checks the structural invariants of a state document. Every
// violation wraps ErrStateCorrupt so callers can treat all of them as one
// failure class.
func Validate(st *domain.ProjectState) error {
	if st == nil {
		return fmt.Errorf("%w: nil document", aceerrors.ErrStateCorrupt)
	}
	if st.Project.Name == "" {
		return fmt.Errorf("%w: project name is empty", aceerrors.ErrStateCorrupt)
	}
	if st.Project.Mode == "" {
		return fmt.Errorf("%w: project mode is empty", aceerrors.ErrStateCorrupt)
	}
	if st.SchemaVersion == "" {
		return fmt.Errorf("%w: schema_version is empty", aceerrors.ErrStateCorrupt)
	}

	seen := make(map[string]bool, len(st.Flow.CompletedStages))
	for _, id := range st.Flow.CompletedStages {
		if seen[id] {
			return fmt.Errorf("%w: stage %q listed as completed twice", aceerrors.ErrStateCorrupt, id)
		}
		seen[id] = true

		rt, ok := st.StageStates[id]
		if !ok || rt == nil {
			return fmt.Errorf("%w: completed stage %q has no runtime record", aceerrors.ErrStateCorrupt, id)
		}
		if rt.Status != constants.StageStatusCompleted && rt.Status != constants.StageStatusSkipped {
			return fmt.Errorf("%w: completed stage %q has status %q", aceerrors.ErrStateCorrupt, id, rt.Status)
		}
	}

	for id, rt := range st.StageStates {
		if rt == nil {
			return fmt.Errorf("%w: stage %q has a null runtime record", aceerrors.ErrStateCorrupt, id)
		}
		if rt.Progress < constants.ProgressMin || rt.Progress > constants.ProgressMax {
			return fmt.Errorf("%w: stage %q progress %d out of range", aceerrors.ErrStateCorrupt, id, rt.Progress)
		}
		if rt.Status == constants.StageStatusCompleted && rt.Progress != constants.ProgressMax {
			return fmt.Errorf("%w: completed stage %q has progress %d", aceerrors.ErrStateCorrupt, id, rt.Progress)
		}
	}

	if st.Flow.ProgressPercentage < constants.ProgressMin || st.Flow.ProgressPercentage > constants.ProgressMax {
		return fmt.Errorf("%w: flow progress %d out of range", aceerrors.ErrStateCorrupt, st.Flow.ProgressPercentage)
	}

	for _, a := range st.Abnormalities {
		if a.ID == "" {
			return fmt.Errorf("%w: abnormality with empty id", aceerrors.ErrStateCorrupt)
		}
		if a.Status == constants.AbnormalityResolved && a.ResolvedAt == nil {
			return fmt.Errorf("%w: resolved abnormality %q has no resolution time", aceerrors.ErrStateCorrupt, a.ID)
		}
	}

	return nil
}

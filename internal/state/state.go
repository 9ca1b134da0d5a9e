package state

import (
	"time"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
)

// NewProjectState builds the initial state document for a project. The first
// stage of the mode starts in_progress immediately; every other stage begins
// pending with zero progress.
func NewProjectState(name string, mode constants.FlowMode, stages []domain.StageDefinition, now time.Time) *domain.ProjectState {
	st := &domain.ProjectState{
		Project: domain.ProjectInfo{
			Name:        name,
			Mode:        mode,
			CreatedAt:   now,
			LastUpdated: now,
		},
		Flow: domain.FlowState{
			CompletedStages:    []string{},
			ProgressPercentage: 0,
		},
		StageStates:   make(map[string]*domain.StageRuntimeState, len(stages)),
		SchemaVersion: constants.StateSchemaVersion,
	}

	for _, def := range stages {
		st.StageStates[def.ID] = &domain.StageRuntimeState{
			Status:   constants.StageStatusPending,
			Progress: constants.ProgressMin,
		}
	}

	if len(stages) > 0 {
		first := stages[0]
		start := now
		st.Flow.CurrentStage = first.ID
		st.StageStates[first.ID].Status = constants.StageStatusInProgress
		st.StageStates[first.ID].StartTime = &start
		if len(stages) > 1 {
			st.Flow.NextStage = stages[1].ID
		}
	}

	return st
}

// Package navigator derives next-step suggestions from project state.
//
// Suggestions follow a strict precedence ladder: an unresolved abnormality
// on the current stage suppresses everything else, then progress advice,
// then the stage transition hint. The navigator never mutates state.
package navigator

import (
	"fmt"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
)

// Navigator computes suggestions against a stage catalog.
type Navigator struct {
	catalog *catalog.Catalog
}

// New creates a navigator.
func New(cat *catalog.Catalog) *Navigator {
	return &Navigator{catalog: cat}
}

// Suggest returns the recommendations for the project's current position,
// highest priority first. The list is empty when the flow is finished.
func (n *Navigator) Suggest(st *domain.ProjectState) ([]domain.Suggestion, error) {
	current := st.Flow.CurrentStage
	if current == "" {
		return nil, nil
	}

	def, err := n.catalog.StageByID(st.Project.Mode, current)
	if err != nil {
		return nil, err
	}

	// Unresolved issues on the current stage outrank everything. One
	// suggestion per position: the most severe issue, earliest recorded
	// on a tie.
	if issues := st.UnresolvedAbnormalities(current); len(issues) > 0 {
		top := issues[0]
		for _, issue := range issues[1:] {
			if severityRank(issue.Severity) > severityRank(top.Severity) {
				top = issue
			}
		}
		msg := fmt.Sprintf("unresolved issue on stage '%s': %s", current, top.Description)
		if len(issues) > 1 {
			msg = fmt.Sprintf("%d unresolved issues on stage '%s', most severe: %s", len(issues), current, top.Description)
		}
		return []domain.Suggestion{{
			Type:            constants.SuggestionAbnormality,
			Priority:        priorityForSeverity(top.Severity),
			Message:         msg,
			SuggestedAction: fmt.Sprintf("aceflow issue resolve %s", top.ID),
			Rationale:       "open issues block reliable progress tracking",
		}}, nil
	}

	rt := st.StageState(current)

	if rt.Status != constants.StageStatusCompleted && rt.Progress < constants.ProgressMax {
		target := rt.Progress + constants.SuggestedProgressStep
		if target > constants.ProgressMax {
			target = constants.ProgressMax
		}
		return []domain.Suggestion{{
			Type:            constants.SuggestionProgress,
			Priority:        constants.PriorityMedium,
			Message:         fmt.Sprintf("stage '%s' (%s) is at %d%%", current, def.DisplayName, rt.Progress),
			SuggestedAction: fmt.Sprintf("aceflow progress %s %d", current, target),
			Rationale:       "small progress increments keep the state document honest",
		}}, nil
	}

	next, err := n.catalog.NextStageID(st.Project.Mode, current)
	if err != nil {
		return nil, err
	}
	if next != "" {
		nextDef, err := n.catalog.StageByID(st.Project.Mode, next)
		if err != nil {
			return nil, err
		}
		return []domain.Suggestion{{
			Type:            constants.SuggestionTransition,
			Priority:        constants.PriorityHigh,
			Message:         fmt.Sprintf("stage '%s' is done, '%s' (%s) is next", current, next, nextDef.DisplayName),
			SuggestedAction: "aceflow next",
		}}, nil
	}

	// Last stage completed: nothing left to suggest.
	return nil, nil
}

// priorityForSeverity maps issue severity onto suggestion priority.
func priorityForSeverity(sev constants.Severity) constants.SuggestionPriority {
	switch sev {
	case constants.SeverityHigh:
		return constants.PriorityHigh
	case constants.SeverityMedium:
		return constants.PriorityMedium
	default:
		return constants.PriorityLow
	}
}

// severityRank orders severities for picking the most severe issue.
func severityRank(sev constants.Severity) int {
	switch sev {
	case constants.SeverityHigh:
		return 2
	case constants.SeverityMedium:
		return 1
	default:
		return 0
	}
}

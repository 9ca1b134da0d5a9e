package domain

import "github.com/aceflow-ai/aceflow/internal/constants"

// Suggestion is one navigator recommendation. Suggestions are derived from
// state and never mutate it.
type Suggestion struct {
	// Type classifies the suggestion.
	Type constants.SuggestionType `json:"type"`

	// Priority ranks the suggestion.
	Priority constants.SuggestionPriority `json:"priority"`

	// Message is the human-readable status line.
	Message string `json:"message"`

	// SuggestedAction is the concrete operation the caller could take next.
	SuggestedAction string `json:"suggested_action"`

	// Rationale explains why the action is suggested, when there is more to
	// say than the message itself.
	Rationale string `json:"rationale,omitempty"`
}

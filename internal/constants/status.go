package constants

// StageStatus represents the state of a workflow stage.
// Status values use snake_case for JSON serialization compatibility.
type StageStatus string

// Stage status constants define the valid states a stage can be in.
const (
	// StageStatusPending indicates a stage has not been started.
	StageStatusPending StageStatus = "pending"

	// StageStatusInProgress indicates work on the stage is underway.
	StageStatusInProgress StageStatus = "in_progress"

	// StageStatusCompleted indicates the stage finished. Completion is
	// monotonic: a completed stage never regresses through the progress path.
	StageStatusCompleted StageStatus = "completed"

	// StageStatusBlocked indicates the stage cannot proceed until an
	// external issue is resolved.
	StageStatusBlocked StageStatus = "blocked"

	// StageStatusSkipped indicates the stage was deliberately bypassed.
	StageStatusSkipped StageStatus = "skipped"
)

// String returns the string representation of the StageStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s StageStatus) String() string {
	return string(s)
}

// FlowMode selects one of the fixed stage orderings.
type FlowMode string

// Flow mode constants. Each mode names an ordered stage list in the catalog.
const (
	// FlowModeMinimal is the four-stage lightweight flow.
	FlowModeMinimal FlowMode = "minimal"

	// FlowModeStandard is the six-stage flow for typical team projects.
	FlowModeStandard FlowMode = "standard"

	// FlowModeComplete is the full eight-stage S1-S8 flow.
	FlowModeComplete FlowMode = "complete"

	// FlowModeSmart uses the minimal stage set with adaptive pacing.
	FlowModeSmart FlowMode = "smart"
)

// String returns the string representation of the FlowMode.
func (m FlowMode) String() string {
	return string(m)
}

// KnownFlowModes returns all modes with built-in stage definitions, in
// documentation order.
func KnownFlowModes() []FlowMode {
	return []FlowMode{FlowModeMinimal, FlowModeStandard, FlowModeComplete, FlowModeSmart}
}

// Severity classifies a recorded abnormality.
type Severity string

// Abnormality severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	return string(s)
}

// AbnormalityStatus tracks whether a recorded issue has been addressed.
type AbnormalityStatus string

// Abnormality status values.
const (
	// AbnormalityUnresolved marks an issue that still needs attention.
	AbnormalityUnresolved AbnormalityStatus = "unresolved"

	// AbnormalityResolved marks an issue that has been addressed.
	AbnormalityResolved AbnormalityStatus = "resolved"
)

// SuggestionType classifies a navigator suggestion.
type SuggestionType string

// Suggestion type constants, in descending precedence order.
const (
	// SuggestionAbnormality asks the caller to resolve a recorded issue.
	SuggestionAbnormality SuggestionType = "abnormality"

	// SuggestionProgress asks the caller to advance stage progress.
	SuggestionProgress SuggestionType = "progress"

	// SuggestionTransition asks the caller to begin the successor stage.
	SuggestionTransition SuggestionType = "transition"
)

// SuggestionPriority ranks navigator suggestions.
type SuggestionPriority string

// Suggestion priorities.
const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

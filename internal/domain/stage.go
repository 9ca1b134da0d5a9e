package domain

// StageDefinition is the immutable catalog record for one stage of one mode.
type StageDefinition struct {
	// ID is the stage identifier, unique within a mode.
	ID string `json:"id" yaml:"id"`

	// DisplayName is the human-readable stage name.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Description summarizes the work the stage represents.
	Description string `json:"description" yaml:"description"`

	// DurationEstimate is a free-form expected duration (e.g. "2-4h").
	DurationEstimate string `json:"duration_estimate,omitempty" yaml:"duration_estimate,omitempty"`

	// Deliverables names the artifacts the stage is expected to produce,
	// tracked as a boolean checklist on the runtime state.
	Deliverables []string `json:"deliverables,omitempty" yaml:"deliverables,omitempty"`

	// Dependencies lists stage ids that must be completed before this stage
	// may start.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// NextStageID is the successor in mode order, empty for the last stage.
	NextStageID string `json:"next_stage,omitempty" yaml:"next_stage,omitempty"`

	// RequiredOutput names the artifact file the output-validation gate
	// looks for before the stage may complete. Empty disables the gate for
	// this stage.
	RequiredOutput string `json:"required_output,omitempty" yaml:"required_output,omitempty"`
}

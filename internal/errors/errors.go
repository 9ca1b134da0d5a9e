// Package errors provides centralized error handling for AceFlow.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrUnknownMode indicates a flow mode with no stage definitions in the
	// catalog was requested.
	ErrUnknownMode = errors.New("unknown flow mode")

	// ErrUnknownStage indicates a stage id that is not part of the active
	// mode's stage list.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrDependencyNotMet indicates a stage was started before all of its
	// declared dependency stages were completed.
	ErrDependencyNotMet = errors.New("stage dependencies not met")

	// ErrOutputNotReady indicates the required output artifact for a stage
	// does not exist or is empty, blocking completion.
	ErrOutputNotReady = errors.New("stage output not ready")

	// ErrInvalidProgress indicates a progress value outside the 0-100 range.
	ErrInvalidProgress = errors.New("progress out of range")

	// ErrAlreadyCompleted indicates an attempt to regress progress on a
	// completed stage. Completion is monotonic.
	ErrAlreadyCompleted = errors.New("stage already completed")

	// ErrStateCorrupt indicates the state document failed schema or
	// invariant validation on load.
	ErrStateCorrupt = errors.New("state document corrupted")

	// ErrStateNotFound indicates no state document exists in the project
	// directory. Run init first.
	ErrStateNotFound = errors.New("project state not found")

	// ErrStateExists indicates an attempt to initialize a project that
	// already has a state document.
	ErrStateExists = errors.New("project state already exists")

	// ErrLockTimeout indicates the state file lock could not be acquired
	// within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrMigrationMappingAbsent indicates no explicit mapping table exists
	// for a mode pair. The migrator recovers internally via the similarity
	// heuristic; this error never surfaces to callers.
	ErrMigrationMappingAbsent = errors.New("no migration mapping for mode pair")

	// ErrAbnormalityNotFound indicates the referenced abnormality id does
	// not exist in the state document.
	ErrAbnormalityNotFound = errors.New("abnormality not found")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrNonInteractiveMode indicates that an operation requiring confirmation
	// was attempted in non-interactive mode without the force flag.
	ErrNonInteractiveMode = errors.New("use --force in non-interactive mode")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrJSONErrorOutput indicates that an error has already been output as JSON.
	// This ensures a non-zero exit code while preventing duplicate error messages.
	// Commands should silence cobra's error printing when this is returned.
	ErrJSONErrorOutput = errors.New("error output as JSON")

	// ErrNoNextStage indicates the current stage is the last stage of the
	// mode and has no successor to advance to.
	ErrNoNextStage = errors.New("no next stage")

	// ErrNoPrevStage indicates the current stage is the first stage of the
	// mode and has no predecessor to roll back to.
	ErrNoPrevStage = errors.New("no previous stage")

	// ErrUnknownDeliverable indicates a deliverable name that is not part of
	// the stage's declared checklist.
	ErrUnknownDeliverable = errors.New("unknown deliverable")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}

// Package constants provides centralized constant values used throughout AceFlow.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by AceFlow for state persistence.
const (
	// StateFileName is the name of the JSON document that stores project state.
	StateFileName = "current_state.json"

	// CatalogFileName is the name of the optional YAML file that overrides
	// the built-in stage catalog and mode mapping rules.
	CatalogFileName = "flow_modes.yaml"

	// ConfigFileName is the name of the YAML configuration file, both in the
	// global home directory and inside a project's .aceflow directory.
	ConfigFileName = "config.yaml"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "aceflow.log"
)

// Directory names and paths used by AceFlow for organizing data.
const (
	// AceflowHome is the hidden directory name where AceFlow stores global
	// data. This directory is created in the user's home directory.
	AceflowHome = ".aceflow"

	// ProjectDir is the hidden directory inside a project that holds the
	// state document, catalog override, and project configuration.
	ProjectDir = ".aceflow"

	// ResultsDir is the directory where stage output artifacts are collected.
	ResultsDir = "aceflow_result"

	// IterationsDir is the subdirectory of ResultsDir holding per-iteration
	// output trees scanned by the output-validation gate.
	IterationsDir = "iterations"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// File locking configuration for the state store.
const (
	// LockTimeout is the maximum duration to wait for acquiring the state
	// file lock before failing the operation.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the pause between lock acquisition attempts.
	LockRetryInterval = 50 * time.Millisecond
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the maximum size of a log file before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age of rotated log files.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated log files.
	LogCompress = true
)

// Progress bounds for stage completion tracking.
const (
	// ProgressMin is the minimum valid stage progress value.
	ProgressMin = 0

	// ProgressMax is the maximum valid stage progress value. Reaching it
	// through the progress path marks a stage completed.
	ProgressMax = 100

	// SuggestedProgressStep is the largest progress increment the navigator
	// recommends per step.
	SuggestedProgressStep = 10
)

// Schema version constants for data migration support.
const (
	// StateSchemaVersion is the current version of the state document schema.
	// This enables forward-compatible schema migrations.
	StateSchemaVersion = "1.0"
)

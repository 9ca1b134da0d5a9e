// Package domain provides shared domain types for the AceFlow stage tracker.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"time"

	"github.com/aceflow-ai/aceflow/internal/constants"
)

// ProjectState is the root persisted aggregate for one project. It is created
// once at project initialization and mutated exclusively through engine
// operations and mode migration; every mutation is a full read-modify-write
// of the whole document.
//
// Example JSON representation:
//
//	{
//	    "project": {"name": "demo", "mode": "minimal", ...},
//	    "flow": {"current_stage": "analysis", "completed_stages": [], ...},
//	    "stage_states": {"analysis": {"status": "in_progress", ...}},
//	    "abnormalities": [],
//	    "schema_version": "1.0"
//	}
type ProjectState struct {
	// Project holds project identity and timestamps.
	Project ProjectInfo `json:"project"`

	// Flow holds the traversal position within the active mode.
	Flow FlowState `json:"flow"`

	// StageStates maps stage id to its mutable runtime record. Stages with
	// no entry are implicitly pending with zero progress.
	StageStates map[string]*StageRuntimeState `json:"stage_states"`

	// Abnormalities is the append-only issue log for this project.
	Abnormalities []Abnormality `json:"abnormalities,omitempty"`

	// SchemaVersion indicates the version of the state document schema.
	// This enables forward-compatible schema migrations.
	SchemaVersion string `json:"schema_version"`
}

// ProjectInfo holds project identity metadata.
type ProjectInfo struct {
	// Name is the human-readable project name.
	Name string `json:"name"`

	// Mode selects the active stage ordering.
	Mode constants.FlowMode `json:"mode"`

	// CreatedAt is when the project was initialized.
	CreatedAt time.Time `json:"created_at"`

	// LastUpdated is when the state document was last written.
	LastUpdated time.Time `json:"last_updated"`
}

// FlowState tracks the traversal position within the active mode.
type FlowState struct {
	// CurrentStage is the id of the stage in focus. Empty only before the
	// first stage starts.
	CurrentStage string `json:"current_stage"`

	// CompletedStages lists completed stage ids in completion order.
	// Append-only within one mode epoch; duplicate-free.
	CompletedStages []string `json:"completed_stages"`

	// NextStage is the successor of CurrentStage in mode order, empty for
	// the last stage.
	NextStage string `json:"next_stage,omitempty"`

	// ProgressPercentage is derived: floor(100 * completed / total stages).
	// Recomputed after every mutation, never stored independently.
	ProgressPercentage int `json:"progress_percentage"`
}

// StageRuntimeState is the per-stage mutable record.
type StageRuntimeState struct {
	// Status is the current lifecycle state of the stage.
	Status constants.StageStatus `json:"status"`

	// Progress is the completion percentage, 0-100. A completed stage
	// always has progress 100.
	Progress int `json:"progress"`

	// Assignee is who is working the stage, if anyone.
	Assignee string `json:"assignee,omitempty"`

	// Notes is an append-only list of free-form annotations.
	Notes []string `json:"notes,omitempty"`

	// DeliverablesStatus maps deliverable name to done flag. Unset entries
	// default to false.
	DeliverablesStatus map[string]bool `json:"deliverables_status,omitempty"`

	// StartTime is when the stage first entered in_progress (nil if never started).
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime is when the stage completed (nil if not yet complete).
	EndTime *time.Time `json:"end_time,omitempty"`
}

// Clone returns a deep copy of the runtime state. Migration merges build on
// copies so the source document is never aliased.
func (s *StageRuntimeState) Clone() *StageRuntimeState {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Notes != nil {
		cp.Notes = append([]string(nil), s.Notes...)
	}
	if s.DeliverablesStatus != nil {
		cp.DeliverablesStatus = make(map[string]bool, len(s.DeliverablesStatus))
		for k, v := range s.DeliverablesStatus {
			cp.DeliverablesStatus[k] = v
		}
	}
	if s.StartTime != nil {
		t := *s.StartTime
		cp.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		cp.EndTime = &t
	}
	return &cp
}

// StageState returns the runtime record for the stage, materializing a
// pending zero record in the map if none exists yet. All default-filling for
// stage records happens here, once.
func (p *ProjectState) StageState(stageID string) *StageRuntimeState {
	if p.StageStates == nil {
		p.StageStates = make(map[string]*StageRuntimeState)
	}
	st, ok := p.StageStates[stageID]
	if !ok || st == nil {
		st = &StageRuntimeState{Status: constants.StageStatusPending}
		p.StageStates[stageID] = st
	}
	return st
}

// IsCompleted reports whether the stage id appears in the completed list.
func (p *ProjectState) IsCompleted(stageID string) bool {
	for _, id := range p.Flow.CompletedStages {
		if id == stageID {
			return true
		}
	}
	return false
}

// Abnormality is one entry in the project issue log. Entries are appended by
// the engine and flip from unresolved to resolved; they are never removed.
type Abnormality struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// StageID names the stage the issue was observed in.
	StageID string `json:"stage_id"`

	// Description is the human-readable issue summary.
	Description string `json:"description"`

	// Severity classifies the issue.
	Severity constants.Severity `json:"severity"`

	// Status is unresolved or resolved.
	Status constants.AbnormalityStatus `json:"status"`

	// DetectedAt is when the issue was recorded.
	DetectedAt time.Time `json:"detected_at"`

	// ResolvedAt is when the issue was resolved (nil while unresolved).
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// UnresolvedAbnormalities returns the unresolved entries recorded against the
// given stage, in record order.
func (p *ProjectState) UnresolvedAbnormalities(stageID string) []Abnormality {
	var out []Abnormality
	for _, a := range p.Abnormalities {
		if a.Status == constants.AbnormalityUnresolved && a.StageID == stageID {
			out = append(out, a)
		}
	}
	return out
}

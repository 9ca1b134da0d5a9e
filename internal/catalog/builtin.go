package catalog

import (
	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
)

// builtinModes returns the stage definitions shipped with AceFlow.
// Stage id naming is intentionally disjoint across modes; correspondence
// between modes is established only by the mapping tables below or by the
// migration similarity heuristic.
func builtinModes() map[constants.FlowMode][]domain.StageDefinition {
	minimal := []domain.StageDefinition{
		{
			ID:               "analysis",
			DisplayName:      "Requirements Analysis",
			Description:      "Clarify the problem, constraints and acceptance criteria",
			DurationEstimate: "2-4h",
			Deliverables:     []string{"requirements notes"},
			RequiredOutput:   "analysis.md",
		},
		{
			ID:               "planning",
			DisplayName:      "Planning & Design",
			Description:      "Break the work down and sketch the technical approach",
			DurationEstimate: "2-4h",
			Deliverables:     []string{"task breakdown"},
			Dependencies:     []string{"analysis"},
			RequiredOutput:   "planning.md",
		},
		{
			ID:               "implementation",
			DisplayName:      "Implementation",
			Description:      "Build the planned functionality",
			DurationEstimate: "1-3d",
			Deliverables:     []string{"working code"},
			Dependencies:     []string{"planning"},
			RequiredOutput:   "implementation.md",
		},
		{
			ID:               "validation",
			DisplayName:      "Validation & Testing",
			Description:      "Verify the implementation against the acceptance criteria",
			DurationEstimate: "4-8h",
			Deliverables:     []string{"test results"},
			Dependencies:     []string{"implementation"},
			RequiredOutput:   "validation.md",
		},
	}

	standard := []domain.StageDefinition{
		{
			ID:               "user_stories",
			DisplayName:      "User Stories",
			Description:      "Capture requirements as user stories with acceptance criteria",
			DurationEstimate: "4-8h",
			Deliverables:     []string{"user story list"},
			RequiredOutput:   "user_stories.md",
		},
		{
			ID:               "tasks_planning",
			DisplayName:      "Task Planning",
			Description:      "Split stories into estimated, ordered implementation tasks",
			DurationEstimate: "4-8h",
			Deliverables:     []string{"task plan"},
			Dependencies:     []string{"user_stories"},
			RequiredOutput:   "tasks_planning.md",
		},
		{
			ID:               "test_design",
			DisplayName:      "Test Design",
			Description:      "Design test cases covering the planned tasks",
			DurationEstimate: "4-8h",
			Deliverables:     []string{"test case catalog"},
			Dependencies:     []string{"tasks_planning"},
			RequiredOutput:   "test_design.md",
		},
		{
			ID:               "implementation",
			DisplayName:      "Implementation",
			Description:      "Build the planned functionality task by task",
			DurationEstimate: "3-5d",
			Deliverables:     []string{"working code"},
			Dependencies:     []string{"test_design"},
			RequiredOutput:   "implementation.md",
		},
		{
			ID:               "testing",
			DisplayName:      "Test Execution",
			Description:      "Execute the designed test cases and record outcomes",
			DurationEstimate: "1-2d",
			Deliverables:     []string{"test report"},
			Dependencies:     []string{"implementation"},
			RequiredOutput:   "testing.md",
		},
		{
			ID:               "review",
			DisplayName:      "Code Review",
			Description:      "Review the change set and close out findings",
			DurationEstimate: "4-8h",
			Deliverables:     []string{"review notes"},
			Dependencies:     []string{"testing"},
			RequiredOutput:   "review.md",
		},
	}

	complete := []domain.StageDefinition{
		{
			ID:               "s1_user_story",
			DisplayName:      "S1 User Story Analysis",
			Description:      "Refine user stories into detailed, testable requirements",
			DurationEstimate: "1d",
			Deliverables:     []string{"refined user stories"},
			RequiredOutput:   "s1_user_story.md",
		},
		{
			ID:               "s2_tasks_group",
			DisplayName:      "S2 Task Group Planning",
			Description:      "Group and order tasks derived from the refined stories",
			DurationEstimate: "1d",
			Deliverables:     []string{"grouped task plan"},
			Dependencies:     []string{"s1_user_story"},
			RequiredOutput:   "s2_tasks.md",
		},
		{
			ID:               "s3_testcases",
			DisplayName:      "S3 Test Case Design",
			Description:      "Design test cases for every planned task group",
			DurationEstimate: "1d",
			Deliverables:     []string{"test case catalog"},
			Dependencies:     []string{"s2_tasks_group"},
			RequiredOutput:   "s3_testcases.md",
		},
		{
			ID:               "s4_implementation",
			DisplayName:      "S4 Implementation",
			Description:      "Implement the planned functionality",
			DurationEstimate: "3-5d",
			Deliverables:     []string{"working code"},
			Dependencies:     []string{"s3_testcases"},
			RequiredOutput:   "s4_implementation.md",
		},
		{
			ID:               "s5_test_report",
			DisplayName:      "S5 Test Report",
			Description:      "Run the test cases and publish the results",
			DurationEstimate: "1-2d",
			Deliverables:     []string{"test report"},
			Dependencies:     []string{"s4_implementation"},
			RequiredOutput:   "s5_test_report.md",
		},
		{
			ID:               "s6_codereview",
			DisplayName:      "S6 Code Review",
			Description:      "Review the implementation and record findings",
			DurationEstimate: "1d",
			Deliverables:     []string{"review notes"},
			Dependencies:     []string{"s5_test_report"},
			RequiredOutput:   "s6_codereview.md",
		},
		{
			ID:               "s7_demo_script",
			DisplayName:      "S7 Demo & Feedback",
			Description:      "Demonstrate the result and collect stakeholder feedback",
			DurationEstimate: "4h",
			Deliverables:     []string{"demo script", "feedback notes"},
			Dependencies:     []string{"s6_codereview"},
			RequiredOutput:   "s7_feedback.md",
		},
		{
			ID:               "s8_summary_report",
			DisplayName:      "S8 Project Summary",
			Description:      "Summarize progress, outcomes and follow-ups",
			DurationEstimate: "4h",
			Deliverables:     []string{"summary report"},
			Dependencies:     []string{"s7_demo_script"},
			RequiredOutput:   "s8_summary.md",
		},
	}

	// Smart mode reuses the minimal stage set; pacing differences live in
	// the advisory layer, not in the stage definitions.
	smart := make([]domain.StageDefinition, len(minimal))
	copy(smart, minimal)

	return map[constants.FlowMode][]domain.StageDefinition{
		constants.FlowModeMinimal:  minimal,
		constants.FlowModeStandard: standard,
		constants.FlowModeComplete: complete,
		constants.FlowModeSmart:    smart,
	}
}

// builtinMappings returns the explicit mode-switch mapping tables, keyed
// "{from}_to_{to}" then target stage id. A value lists one source stage id or
// a comma-separated set to merge. Pairs without a table fall back to the
// similarity heuristic at migration time.
func builtinMappings() map[string]map[string]string {
	return map[string]map[string]string{
		"minimal_to_standard": {
			"user_stories":   "analysis",
			"tasks_planning": "planning",
			"implementation": "implementation",
			"testing":        "validation",
		},
		"standard_to_minimal": {
			"analysis":       "user_stories",
			"planning":       "tasks_planning,test_design",
			"implementation": "implementation",
			"validation":     "testing,review",
		},
		"standard_to_complete": {
			"s1_user_story":     "user_stories",
			"s2_tasks_group":    "tasks_planning",
			"s3_testcases":      "test_design",
			"s4_implementation": "implementation",
			"s5_test_report":    "testing",
			"s6_codereview":     "review",
		},
		"complete_to_standard": {
			"user_stories":   "s1_user_story",
			"tasks_planning": "s2_tasks_group",
			"test_design":    "s3_testcases",
			"implementation": "s4_implementation",
			"testing":        "s5_test_report",
			"review":         "s6_codereview,s7_demo_script,s8_summary_report",
		},
		"minimal_to_complete": {
			"s1_user_story":     "analysis",
			"s2_tasks_group":    "planning",
			"s4_implementation": "implementation",
			"s5_test_report":    "validation",
		},
		"complete_to_minimal": {
			"analysis":       "s1_user_story",
			"planning":       "s2_tasks_group,s3_testcases",
			"implementation": "s4_implementation",
			"validation":     "s5_test_report,s6_codereview",
		},
	}
}

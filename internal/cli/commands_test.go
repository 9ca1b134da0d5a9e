package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aceflow-ai/aceflow/internal/domain"
)

// runCLI executes one aceflow invocation against dir and returns its
// combined output. Commands run in JSON output mode so assertions can
// unmarshal instead of scraping styled text.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--directory", dir, "--output", "json"}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

// runCLIText executes one invocation in text mode, where command errors
// surface directly instead of as a JSON envelope.
func runCLIText(t *testing.T, dir string, args ...string) error {
	t.Helper()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--directory", dir}, args...))

	return cmd.Execute()
}

// unmarshalState decodes a ProjectState from JSON command output.
func unmarshalState(t *testing.T, out string) *domain.ProjectState {
	t.Helper()

	var st domain.ProjectState
	require.NoError(t, json.Unmarshal([]byte(out), &st), "output: %s", out)
	return &st
}

// writeArtifact creates a non-empty output artifact under the results dir.
func writeArtifact(t *testing.T, dir, name string) {
	t.Helper()

	resultDir := filepath.Join(dir, "aceflow_result")
	require.NoError(t, os.MkdirAll(resultDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(resultDir, name), []byte("# done\n"), 0o600))
}

func setupProject(t *testing.T, mode string) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("ACEFLOW_HOME", t.TempDir())

	_, err := runCLI(t, dir, "init", "demo", "--mode", mode)
	require.NoError(t, err)
	return dir
}

func TestInitCreatesStateFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACEFLOW_HOME", t.TempDir())

	out, err := runCLI(t, dir, "init", "demo", "--mode", "minimal")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "demo", st.Project.Name)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.Equal(t, "planning", st.Flow.NextStage)

	assert.FileExists(t, filepath.Join(dir, ".aceflow", "current_state.json"))
}

func TestInitTwiceFails(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "init", "demo")
	require.Error(t, err)
	assert.Contains(t, out, "already")
}

func TestInitUnknownModeFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACEFLOW_HOME", t.TempDir())

	out, err := runCLI(t, dir, "init", "demo", "--mode", "waterfall")
	require.Error(t, err)
	assert.Contains(t, out, "unknown flow mode")
}

func TestStatusShowsProject(t *testing.T) {
	dir := setupProject(t, "standard")

	out, err := runCLI(t, dir, "status")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "user_stories", st.Flow.CurrentStage)
	assert.Equal(t, 0, st.Flow.ProgressPercentage)
	assert.Len(t, st.StageStates, 6)
}

func TestStatusWithoutProjectFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACEFLOW_HOME", t.TempDir())

	out, err := runCLI(t, dir, "status")
	require.Error(t, err)
	assert.Contains(t, out, "not found")
}

func TestProgressReachingFullCompletesStage(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "progress", "analysis", "50")
	require.NoError(t, err)
	st := unmarshalState(t, out)
	assert.Equal(t, 50, st.StageStates["analysis"].Progress)

	writeArtifact(t, dir, "analysis.md")
	out, err = runCLI(t, dir, "progress", "analysis", "100")
	require.NoError(t, err)

	st = unmarshalState(t, out)
	assert.Contains(t, st.Flow.CompletedStages, "analysis")
	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Equal(t, 25, st.Flow.ProgressPercentage)
}

func TestProgressRejectsNonNumeric(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "progress", "analysis", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestCompleteBlockedWithoutArtifact(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "complete", "analysis")
	require.Error(t, err)
	assert.Contains(t, out, "analysis.md")
}

func TestCompleteWithArtifact(t *testing.T) {
	dir := setupProject(t, "minimal")
	writeArtifact(t, dir, "analysis.md")

	out, err := runCLI(t, dir, "complete", "analysis", "--note", "done early")
	require.NoError(t, err)

	var res struct {
		Stage    string               `json:"stage"`
		Warnings []string             `json:"warnings"`
		State    *domain.ProjectState `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "analysis", res.Stage)
	assert.NotEmpty(t, res.Warnings, "unchecked deliverables should warn")
	assert.Equal(t, "planning", res.State.Flow.CurrentStage)
	assert.Contains(t, res.State.StageStates["analysis"].Notes, "done early")
}

func TestNextForceBypassesOutputGate(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Contains(t, st.Flow.CompletedStages, "analysis")
}

func TestNextCompletesWithArtifact(t *testing.T) {
	dir := setupProject(t, "minimal")
	writeArtifact(t, dir, "analysis.md")

	out, err := runCLI(t, dir, "next")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Contains(t, st.Flow.CompletedStages, "analysis")
}

func TestCompleteForceBypassesOutputGate(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "complete", "analysis", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "analysis")
}

func TestStartForceMarksDependencies(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "start", "implementation", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "implementation", st.Flow.CurrentStage)
	assert.Contains(t, st.Flow.CompletedStages, "planning")
	assert.Equal(t, "in_progress", st.StageStates["implementation"].Status.String())
}

func TestStartRecordsAssigneeFlag(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "start", "analysis", "--assignee", "analyst-agent")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "analyst-agent", st.StageStates["analysis"].Assignee)
}

func TestStartBlockedByDependencyGate(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "start", "implementation")
	require.Error(t, err)
	assert.Contains(t, out, "requires completion of: planning")
}

func TestNextPastLastStageFails(t *testing.T) {
	dir := setupProject(t, "minimal")

	for range 3 {
		_, err := runCLI(t, dir, "next", "--force")
		require.NoError(t, err)
	}
	_, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err, "completing the last stage is still allowed")

	out, err := runCLI(t, dir, "next", "--force")
	require.Error(t, err)
	assert.Contains(t, out, "no next stage")
}

func TestGotoSkipsDependencyGate(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "goto", "validation")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "validation", st.Flow.CurrentStage)
	assert.Equal(t, "in_progress", st.StageStates["validation"].Status.String())
}

func TestGotoForceRestartsCurrentStage(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "progress", "analysis", "40")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "goto", "analysis", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.Equal(t, 0, st.StageStates["analysis"].Progress)
	assert.Equal(t, "in_progress", st.StageStates["analysis"].Status.String())
}

func TestRollbackStepsBack(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "rollback")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.NotContains(t, st.Flow.CompletedStages, "analysis")
	assert.Equal(t, "pending", st.StageStates["planning"].Status.String())
}

func TestRollbackAtFirstStageFails(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "rollback")
	require.Error(t, err)
	assert.Contains(t, out, "no previous stage")
}

func TestResetForceDiscardsDownstream(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "next", "--force")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "reset", "planning", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Equal(t, []string{"analysis"}, st.Flow.CompletedStages)
	assert.Equal(t, "in_progress", st.StageStates["planning"].Status.String())
	assert.Equal(t, 0, st.StageStates["planning"].Progress)
}

func TestResetWithoutForceNonInteractive(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "reset", "analysis")
	require.Error(t, err)
	assert.Contains(t, out, "non-interactive")
}

func TestDeliverableCheckUpdatesProgress(t *testing.T) {
	dir := setupProject(t, "complete")

	_, err := runCLI(t, dir, "goto", "s7_demo_script")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "deliverable", "check", "s7_demo_script", "demo script")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	rt := st.StageStates["s7_demo_script"]
	assert.True(t, rt.DeliverablesStatus["demo script"])
	assert.Equal(t, 50, rt.Progress)
}

func TestDeliverableUnknownNameFails(t *testing.T) {
	dir := setupProject(t, "minimal")

	err := runCLIText(t, dir, "deliverable", "check", "analysis", "pitch deck")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestModeSwitchPreservesProgress(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "mode", "switch", "standard", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Equal(t, "standard", st.Project.Mode.String())
	assert.Contains(t, st.Flow.CompletedStages, "user_stories")

	out, err = runCLI(t, dir, "status")
	require.NoError(t, err)
	st = unmarshalState(t, out)
	assert.Equal(t, "standard", st.Project.Mode.String(), "switch must persist")
}

func TestModeSwitchFreshStart(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "next", "--force")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "mode", "switch", "standard", "--preserve=false", "--force")
	require.NoError(t, err)

	st := unmarshalState(t, out)
	assert.Empty(t, st.Flow.CompletedStages)
	assert.Equal(t, "user_stories", st.Flow.CurrentStage)
}

func TestModeShow(t *testing.T) {
	dir := setupProject(t, "standard")

	out, err := runCLI(t, dir, "mode", "show")
	require.NoError(t, err)

	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "standard", res["mode"])
}

func TestSuggestRecommendsProgress(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "suggest")
	require.NoError(t, err)

	var suggestions []domain.Suggestion
	require.NoError(t, json.Unmarshal([]byte(out), &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "progress", string(suggestions[0].Type))
	assert.Contains(t, suggestions[0].SuggestedAction, "aceflow progress analysis")
}

func TestIssueLifecycle(t *testing.T) {
	dir := setupProject(t, "minimal")

	out, err := runCLI(t, dir, "issue", "record", "analysis", "requirements contradict", "--severity", "high")
	require.NoError(t, err)

	var abn domain.Abnormality
	require.NoError(t, json.Unmarshal([]byte(out), &abn))
	assert.NotEmpty(t, abn.ID)
	assert.Equal(t, "analysis", abn.StageID)

	out, err = runCLI(t, dir, "status")
	require.NoError(t, err)
	st := unmarshalState(t, out)
	assert.Equal(t, "blocked", st.StageStates["analysis"].Status.String())

	out, err = runCLI(t, dir, "issue", "list")
	require.NoError(t, err)
	var issues []domain.Abnormality
	require.NoError(t, json.Unmarshal([]byte(out), &issues))
	require.Len(t, issues, 1)

	out, err = runCLI(t, dir, "issue", "resolve", abn.ID)
	require.NoError(t, err)
	st = unmarshalState(t, out)
	assert.Equal(t, "in_progress", st.StageStates["analysis"].Status.String())
}

func TestIssueRecordRejectsBadSeverity(t *testing.T) {
	dir := setupProject(t, "minimal")

	_, err := runCLI(t, dir, "issue", "record", "analysis", "x", "--severity", "catastrophic")
	require.Error(t, err)
}

func TestListModeStages(t *testing.T) {
	t.Setenv("ACEFLOW_HOME", t.TempDir())
	dir := t.TempDir()

	out, err := runCLI(t, dir, "list", "--mode", "standard")
	require.NoError(t, err)

	var listing struct {
		Mode   string                   `json:"mode"`
		Stages []domain.StageDefinition `json:"stages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	assert.Equal(t, "standard", listing.Mode)
	assert.Len(t, listing.Stages, 6)
	assert.Equal(t, "user_stories", listing.Stages[0].ID)
}

func TestStartUnknownStageExitCode(t *testing.T) {
	dir := setupProject(t, "minimal")

	err := runCLIText(t, dir, "start", "deployment")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

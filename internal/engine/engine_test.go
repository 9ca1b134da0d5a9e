package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/clock"
	"github.com/aceflow-ai/aceflow/internal/constants"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
	"github.com/aceflow-ai/aceflow/internal/state"
)

// stubChecker reports artifact readiness from a fixed map.
type stubChecker struct {
	ready map[string]bool
	err   error
}

func (s *stubChecker) OutputReady(filename string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if filename == "" {
		return true, nil
	}
	return s.ready[filename], nil
}

// allReady reports every artifact as produced.
type allReady struct{}

func (allReady) OutputReady(string) (bool, error) { return true, nil }

var testTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, checker OutputChecker, opts Options) *Engine {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(store, catalog.Builtin(), checker, clock.Fixed{T: testTime}, zerolog.Nop(), opts)
}

func initProject(t *testing.T, e *Engine, mode constants.FlowMode) {
	t.Helper()
	_, err := e.InitProject(context.Background(), "demo", mode)
	require.NoError(t, err)
}

func TestInitProject(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	ctx := context.Background()

	st, err := e.InitProject(ctx, "demo", constants.FlowModeMinimal)
	require.NoError(t, err)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.Equal(t, "planning", st.Flow.NextStage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["analysis"].Status)

	_, err = e.InitProject(ctx, "demo", constants.FlowModeMinimal)
	require.ErrorIs(t, err, aceerrors.ErrStateExists)
}

func TestInitProjectUnknownMode(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})

	_, err := e.InitProject(context.Background(), "demo", "waterfall")
	require.ErrorIs(t, err, aceerrors.ErrUnknownMode)
}

func TestInitProjectEmptyName(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})

	_, err := e.InitProject(context.Background(), "", constants.FlowModeMinimal)
	require.ErrorIs(t, err, aceerrors.ErrEmptyValue)
}

func TestStartEnforcesDependencyGate(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.Start(ctx, "implementation", "")
	require.ErrorIs(t, err, aceerrors.ErrDependencyNotMet)

	_, err = e.Start(ctx, "nope", "")
	require.ErrorIs(t, err, aceerrors.ErrUnknownStage)
}

func TestStartSkipDependencyGate(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{SkipDependencyGate: true})
	initProject(t, e, constants.FlowModeMinimal)

	st, err := e.Start(context.Background(), "implementation", "")
	require.NoError(t, err)
	assert.Equal(t, "implementation", st.Flow.CurrentStage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["implementation"].Status)
}

func TestStartRecordsAssignee(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	st, err := e.Start(ctx, "analysis", "analyst-agent")
	require.NoError(t, err)
	assert.Equal(t, "analyst-agent", st.StageStates["analysis"].Assignee)

	// Restarting without an assignee keeps the recorded one.
	st, err = e.Start(ctx, "analysis", "")
	require.NoError(t, err)
	assert.Equal(t, "analyst-agent", st.StageStates["analysis"].Assignee)
}

func TestUpdateProgressPartial(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	st, err := e.UpdateProgress(context.Background(), "analysis", 40)
	require.NoError(t, err)
	rt := st.StageStates["analysis"]
	assert.Equal(t, 40, rt.Progress)
	assert.Equal(t, constants.StageStatusInProgress, rt.Status)
	assert.Equal(t, "analysis", st.Flow.CurrentStage, "partial progress does not advance the flow")
	assert.Equal(t, 0, st.Flow.ProgressPercentage)
}

func TestUpdateProgressRange(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", -1)
	require.ErrorIs(t, err, aceerrors.ErrInvalidProgress)
	_, err = e.UpdateProgress(ctx, "analysis", 101)
	require.ErrorIs(t, err, aceerrors.ErrInvalidProgress)
}

func TestUpdateProgressCompletesAndAdvances(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	st, err := e.UpdateProgress(context.Background(), "analysis", 100)
	require.NoError(t, err)

	rt := st.StageStates["analysis"]
	assert.Equal(t, constants.StageStatusCompleted, rt.Status)
	assert.Equal(t, 100, rt.Progress)
	require.NotNil(t, rt.EndTime)
	assert.Equal(t, []string{"analysis"}, st.Flow.CompletedStages)
	assert.Equal(t, 25, st.Flow.ProgressPercentage)

	// The flow advances to the successor, which starts immediately.
	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Equal(t, "implementation", st.Flow.NextStage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["planning"].Status)
}

func TestUpdateProgressMonotonicCompletion(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", 100)
	require.NoError(t, err)

	// 100 again is a no-op; anything lower is rejected.
	st, err := e.UpdateProgress(ctx, "analysis", 100)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)

	_, err = e.UpdateProgress(ctx, "analysis", 50)
	require.ErrorIs(t, err, aceerrors.ErrAlreadyCompleted)
}

func TestUpdateProgressOnPendingStageChecksDependencies(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	_, err := e.UpdateProgress(context.Background(), "validation", 30)
	require.ErrorIs(t, err, aceerrors.ErrDependencyNotMet)
}

func TestOutputGateBlocksCompletion(t *testing.T) {
	checker := &stubChecker{ready: map[string]bool{}}
	e := newTestEngine(t, checker, Options{RequireOutputs: true})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", 100)
	require.ErrorIs(t, err, aceerrors.ErrOutputNotReady)

	// Producing the artifact unblocks completion.
	checker.ready["analysis.md"] = true
	st, err := e.UpdateProgress(ctx, "analysis", 100)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)
}

func TestOutputGateDisabled(t *testing.T) {
	e := newTestEngine(t, &stubChecker{}, Options{RequireOutputs: false})
	initProject(t, e, constants.FlowModeMinimal)

	st, err := e.UpdateProgress(context.Background(), "analysis", 100)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)
}

func TestCompleteWarnsOnUncheckedDeliverables(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	st, warnings, err := e.Complete(context.Background(), "analysis", "requirements signed off", false)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "requirements notes")

	rt := st.StageStates["analysis"]
	assert.Equal(t, constants.StageStatusCompleted, rt.Status)
	assert.Equal(t, []string{"requirements signed off"}, rt.Notes)
}

func TestCompleteWithCheckedDeliverables(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateDeliverable(ctx, "analysis", "requirements notes", true)
	require.NoError(t, err)

	_, warnings, err := e.Complete(ctx, "analysis", "", false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCompleteChecksDependenciesOnUntouchedStage(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	// Completing a stage that never started is an implicit start, so the
	// same gate applies as for a progress update.
	_, _, err := e.Complete(ctx, "validation", "", false)
	require.ErrorIs(t, err, aceerrors.ErrDependencyNotMet)

	st, _, err := e.Complete(ctx, "validation", "", true)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["validation"].Status)
}

func TestAdvanceCompletesCurrent(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	st, err := e.Advance(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)
	assert.Equal(t, "planning", st.Flow.CurrentStage)
}

func TestAdvanceForceBypassesOutputGate(t *testing.T) {
	e := newTestEngine(t, &stubChecker{}, Options{RequireOutputs: true})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.Advance(ctx, false)
	require.ErrorIs(t, err, aceerrors.ErrOutputNotReady)

	st, err := e.Advance(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "planning", st.Flow.CurrentStage)
}

func TestAdvancePastLastStage(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	for range 4 {
		_, err := e.Advance(ctx, false)
		require.NoError(t, err)
	}

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Flow.ProgressPercentage)
	assert.Equal(t, "validation", st.Flow.CurrentStage)
	assert.Empty(t, st.Flow.NextStage)

	_, err = e.Advance(ctx, false)
	require.ErrorIs(t, err, aceerrors.ErrNoNextStage)
}

func TestGoto(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	st, err := e.Goto(ctx, "implementation", false)
	require.NoError(t, err)
	assert.Equal(t, "implementation", st.Flow.CurrentStage)
	assert.Equal(t, "validation", st.Flow.NextStage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["implementation"].Status)
	assert.Empty(t, st.Flow.CompletedStages, "goto never completes anything")

	// Jumping to the current stage is a no-op.
	st, err = e.Goto(ctx, "implementation", false)
	require.NoError(t, err)
	assert.Equal(t, "implementation", st.Flow.CurrentStage)

	_, err = e.Goto(ctx, "nope", false)
	require.ErrorIs(t, err, aceerrors.ErrUnknownStage)
}

func TestGotoForceRestartsStage(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", 60)
	require.NoError(t, err)

	// Without force, jumping to the current stage changes nothing.
	st, err := e.Goto(ctx, "analysis", false)
	require.NoError(t, err)
	assert.Equal(t, 60, st.StageStates["analysis"].Progress)

	// With force, the current stage restarts from zero.
	st, err = e.Goto(ctx, "analysis", true)
	require.NoError(t, err)
	rt := st.StageStates["analysis"]
	assert.Equal(t, 0, rt.Progress)
	assert.Equal(t, constants.StageStatusInProgress, rt.Status)
	require.NotNil(t, rt.StartTime)
	assert.Nil(t, rt.EndTime)
	assert.Empty(t, st.Flow.CompletedStages)
}

func TestGotoForceKeepsCompletedTarget(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", 100)
	require.NoError(t, err)

	st, err := e.Goto(ctx, "analysis", true)
	require.NoError(t, err)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)
	assert.Equal(t, []string{"analysis"}, st.Flow.CompletedStages)
}

func TestRevert(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	_, err := e.UpdateProgress(ctx, "analysis", 100)
	require.NoError(t, err)

	st, err := e.Revert(ctx)
	require.NoError(t, err)
	assert.Equal(t, "analysis", st.Flow.CurrentStage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["analysis"].Status)
	assert.Equal(t, constants.StageStatusPending, st.StageStates["planning"].Status)
	assert.Empty(t, st.Flow.CompletedStages)
	assert.Equal(t, 0, st.Flow.ProgressPercentage)
}

func TestRevertFromFirstStage(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	_, err := e.Revert(context.Background())
	require.ErrorIs(t, err, aceerrors.ErrNoPrevStage)
}

func TestReset(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	for range 3 {
		_, err := e.Advance(ctx, false)
		require.NoError(t, err)
	}

	st, err := e.Reset(ctx, "planning")
	require.NoError(t, err)

	assert.Equal(t, "planning", st.Flow.CurrentStage)
	assert.Equal(t, []string{"analysis"}, st.Flow.CompletedStages)
	assert.Equal(t, 25, st.Flow.ProgressPercentage)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["planning"].Status)

	for _, id := range []string{"implementation", "validation"} {
		rt := st.StageStates[id]
		assert.Equal(t, constants.StageStatusPending, rt.Status, id)
		assert.Equal(t, 0, rt.Progress, id)
		assert.Nil(t, rt.StartTime, id)
		assert.Nil(t, rt.EndTime, id)
	}

	// Completed stages before the reset point survive untouched.
	assert.Equal(t, constants.StageStatusCompleted, st.StageStates["analysis"].Status)
}

func TestUpdateDeliverable(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeComplete)
	ctx := context.Background()

	// s7_demo_script declares two deliverables.
	st, err := e.Goto(ctx, "s7_demo_script", false)
	require.NoError(t, err)
	require.Equal(t, "s7_demo_script", st.Flow.CurrentStage)

	st, err = e.UpdateDeliverable(ctx, "s7_demo_script", "demo script", true)
	require.NoError(t, err)
	rt := st.StageStates["s7_demo_script"]
	assert.Equal(t, 50, rt.Progress)
	assert.True(t, rt.DeliverablesStatus["demo script"])

	st, err = e.UpdateDeliverable(ctx, "s7_demo_script", "feedback notes", true)
	require.NoError(t, err)
	rt = st.StageStates["s7_demo_script"]
	assert.Equal(t, 100, rt.Progress)
	assert.Equal(t, constants.StageStatusInProgress, rt.Status,
		"a full checklist raises progress but completion still goes through Complete")

	_, err = e.UpdateDeliverable(ctx, "s7_demo_script", "slides", true)
	require.ErrorIs(t, err, aceerrors.ErrUnknownDeliverable)
}

func TestAbnormalityLifecycle(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)
	ctx := context.Background()

	st, abn, err := e.RecordAbnormality(ctx, "analysis", "requirements contradict each other", constants.SeverityHigh)
	require.NoError(t, err)
	require.NotNil(t, abn)
	assert.NotEmpty(t, abn.ID)
	assert.Equal(t, constants.AbnormalityUnresolved, abn.Status)

	// High severity blocks the stage.
	assert.Equal(t, constants.StageStatusBlocked, st.StageStates["analysis"].Status)
	require.Len(t, st.UnresolvedAbnormalities("analysis"), 1)

	st, err = e.ResolveAbnormality(ctx, abn.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.AbnormalityResolved, st.Abnormalities[0].Status)
	require.NotNil(t, st.Abnormalities[0].ResolvedAt)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["analysis"].Status)
	assert.Empty(t, st.UnresolvedAbnormalities("analysis"))
}

func TestLowSeverityDoesNotBlock(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	st, _, err := e.RecordAbnormality(context.Background(), "analysis", "naming still unsettled", constants.SeverityLow)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusInProgress, st.StageStates["analysis"].Status)
}

func TestResolveUnknownAbnormality(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeMinimal)

	_, err := e.ResolveAbnormality(context.Background(), "no-such-id")
	require.ErrorIs(t, err, aceerrors.ErrAbnormalityNotFound)
}

func TestFullFlowWalkthrough(t *testing.T) {
	e := newTestEngine(t, allReady{}, Options{})
	initProject(t, e, constants.FlowModeStandard)
	ctx := context.Background()

	order := []string{"user_stories", "tasks_planning", "test_design", "implementation", "testing", "review"}
	for i, id := range order {
		st, err := e.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, id, st.Flow.CurrentStage)

		st, err = e.UpdateProgress(ctx, id, 100)
		require.NoError(t, err)
		assert.Equal(t, 100*(i+1)/len(order), st.Flow.ProgressPercentage)
	}

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Flow.ProgressPercentage)
	assert.Equal(t, order, st.Flow.CompletedStages)
	assert.Equal(t, "review", st.Flow.CurrentStage)
}

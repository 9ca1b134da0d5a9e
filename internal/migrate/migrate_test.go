package migrate

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aceflow-ai/aceflow/internal/catalog"
	"github.com/aceflow-ai/aceflow/internal/clock"
	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
	"github.com/aceflow-ai/aceflow/internal/state"
)

var testTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestMigrator() *Migrator {
	return New(catalog.Builtin(), clock.Fixed{T: testTime}, zerolog.Nop())
}

func minimalState(t *testing.T) *domain.ProjectState {
	t.Helper()
	stages, err := catalog.Builtin().StagesForMode(constants.FlowModeMinimal)
	require.NoError(t, err)
	return state.NewProjectState("demo", constants.FlowModeMinimal, stages, testTime)
}

func completeStage(st *domain.ProjectState, id string, at time.Time) {
	rt := st.StageState(id)
	rt.Status = constants.StageStatusCompleted
	rt.Progress = 100
	start := at.Add(-time.Hour)
	rt.StartTime = &start
	end := at
	rt.EndTime = &end
	st.Flow.CompletedStages = append(st.Flow.CompletedStages, id)
}

func TestMigrateSameModeIsNoop(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)

	out, err := m.Migrate(st, constants.FlowModeMinimal, true)
	require.NoError(t, err)
	assert.Same(t, st, out)
}

func TestMigrateUnknownMode(t *testing.T) {
	m := newTestMigrator()

	_, err := m.Migrate(minimalState(t), "waterfall", true)
	require.ErrorIs(t, err, aceerrors.ErrUnknownMode)
}

func TestMigrateMinimalToStandardPreservesProgress(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)

	completeStage(st, "analysis", testTime)
	planning := st.StageState("planning")
	planning.Status = constants.StageStatusInProgress
	planning.Progress = 60
	planning.Notes = []string{"sprint plan drafted"}
	st.Flow.CurrentStage = "planning"

	out, err := m.Migrate(st, constants.FlowModeStandard, true)
	require.NoError(t, err)

	assert.Equal(t, constants.FlowModeStandard, out.Project.Mode)
	assert.Equal(t, st.Project.CreatedAt, out.Project.CreatedAt)

	// analysis maps to user_stories, planning to tasks_planning.
	assert.Equal(t, constants.StageStatusCompleted, out.StageStates["user_stories"].Status)
	assert.Equal(t, 100, out.StageStates["user_stories"].Progress)

	tp := out.StageStates["tasks_planning"]
	assert.Equal(t, constants.StageStatusInProgress, tp.Status)
	assert.Equal(t, 60, tp.Progress)
	assert.Equal(t, []string{"sprint plan drafted"}, tp.Notes)

	// Unmapped target stages start pending.
	assert.Equal(t, constants.StageStatusPending, out.StageStates["test_design"].Status)

	// Focus lands on the first non-completed stage.
	assert.Equal(t, "tasks_planning", out.Flow.CurrentStage)
	assert.Equal(t, "test_design", out.Flow.NextStage)
	assert.Equal(t, []string{"user_stories"}, out.Flow.CompletedStages)
	assert.Equal(t, 16, out.Flow.ProgressPercentage)
}

func TestMigrateMergesCommaSeparatedSources(t *testing.T) {
	m := newTestMigrator()
	stages, err := catalog.Builtin().StagesForMode(constants.FlowModeStandard)
	require.NoError(t, err)
	st := state.NewProjectState("demo", constants.FlowModeStandard, stages, testTime)

	// standard_to_minimal folds tasks_planning and test_design into planning.
	completeStage(st, "user_stories", testTime)
	completeStage(st, "tasks_planning", testTime.Add(time.Hour))
	td := st.StageState("test_design")
	td.Status = constants.StageStatusInProgress
	td.Progress = 50
	td.Notes = []string{"edge cases pending"}

	out, err := m.Migrate(st, constants.FlowModeMinimal, true)
	require.NoError(t, err)

	// completed(100) + in_progress(50) merge to in_progress at the average.
	planning := out.StageStates["planning"]
	assert.Equal(t, constants.StageStatusInProgress, planning.Status)
	assert.Equal(t, 75, planning.Progress)
	assert.Equal(t, []string{"edge cases pending"}, planning.Notes)
	assert.Nil(t, planning.EndTime, "a partially merged stage has no end time")

	assert.Equal(t, constants.StageStatusCompleted, out.StageStates["analysis"].Status)
	assert.Equal(t, "planning", out.Flow.CurrentStage)
}

func TestMigrateAllSourcesCompleted(t *testing.T) {
	m := newTestMigrator()
	stages, err := catalog.Builtin().StagesForMode(constants.FlowModeStandard)
	require.NoError(t, err)
	st := state.NewProjectState("demo", constants.FlowModeStandard, stages, testTime)

	for i, id := range []string{"user_stories", "tasks_planning", "test_design", "implementation", "testing", "review"} {
		completeStage(st, id, testTime.Add(time.Duration(i)*time.Hour))
	}

	out, err := m.Migrate(st, constants.FlowModeMinimal, true)
	require.NoError(t, err)

	// Everything carried as completed: focus rests on the last stage.
	assert.Equal(t, 100, out.Flow.ProgressPercentage)
	assert.Equal(t, "validation", out.Flow.CurrentStage)
	assert.Empty(t, out.Flow.NextStage)

	// Merged stages keep the earliest start and latest end of their sources.
	planning := out.StageStates["planning"]
	require.NotNil(t, planning.StartTime)
	require.NotNil(t, planning.EndTime)
	assert.Equal(t, testTime.Add(time.Hour).Add(-time.Hour), *planning.StartTime)
	assert.Equal(t, testTime.Add(2*time.Hour), *planning.EndTime)
}

func TestMigrateFreshStart(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)
	completeStage(st, "analysis", testTime)

	out, err := m.Migrate(st, constants.FlowModeStandard, false)
	require.NoError(t, err)

	assert.Empty(t, out.Flow.CompletedStages)
	assert.Equal(t, 0, out.Flow.ProgressPercentage)
	assert.Equal(t, "user_stories", out.Flow.CurrentStage)
	assert.Equal(t, constants.StageStatusInProgress, out.StageStates["user_stories"].Status)
	for _, id := range []string{"tasks_planning", "test_design", "implementation", "testing", "review"} {
		assert.Equal(t, constants.StageStatusPending, out.StageStates[id].Status, id)
	}
}

func TestMigrateCarriesAbnormalities(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)
	st.Abnormalities = []domain.Abnormality{{
		ID:          "abn-1",
		StageID:     "analysis",
		Description: "conflicting requirements",
		Severity:    constants.SeverityMedium,
		Status:      constants.AbnormalityUnresolved,
		DetectedAt:  testTime,
	}}

	out, err := m.Migrate(st, constants.FlowModeStandard, true)
	require.NoError(t, err)
	require.Len(t, out.Abnormalities, 1)
	assert.Equal(t, "abn-1", out.Abnormalities[0].ID)
}

func TestMigrateSimilarityFallback(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)
	completeStage(st, "analysis", testTime)

	// No mapping table exists for smart pairs; identical definitions match
	// through the similarity heuristic (smart reuses the minimal stage set).
	out, err := m.Migrate(st, constants.FlowModeSmart, true)
	require.NoError(t, err)
	assert.Equal(t, constants.StageStatusCompleted, out.StageStates["analysis"].Status)
	assert.Equal(t, "planning", out.Flow.CurrentStage)
}

func TestMigrateSimilarityBelowThreshold(t *testing.T) {
	m := newTestMigrator()
	m.Scorer = scorerFunc(func(_, _ domain.StageDefinition) float64 { return 0.1 })
	st := minimalState(t)
	completeStage(st, "analysis", testTime)

	out, err := m.Migrate(st, constants.FlowModeSmart, true)
	require.NoError(t, err)

	// Nothing clears the threshold, so nothing carries over.
	assert.Empty(t, out.Flow.CompletedStages)
	assert.Equal(t, "analysis", out.Flow.CurrentStage)
	assert.Equal(t, constants.StageStatusInProgress, out.StageStates["analysis"].Status)
}

type scorerFunc func(a, b domain.StageDefinition) float64

func (f scorerFunc) Score(a, b domain.StageDefinition) float64 { return f(a, b) }

func TestMigrateLogsMissingMappingTable(t *testing.T) {
	var buf bytes.Buffer
	m := New(catalog.Builtin(), clock.Fixed{T: testTime}, zerolog.New(&buf))
	st := minimalState(t)

	_, err := m.Migrate(st, constants.FlowModeSmart, true)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), aceerrors.ErrMigrationMappingAbsent.Error())

	// Pairs with an explicit table stay quiet.
	buf.Reset()
	_, err = m.Migrate(st, constants.FlowModeStandard, true)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), aceerrors.ErrMigrationMappingAbsent.Error())
}

func TestPlan(t *testing.T) {
	m := newTestMigrator()
	st := minimalState(t)
	completeStage(st, "analysis", testTime)

	previews, err := m.Plan(st, constants.FlowModeStandard)
	require.NoError(t, err)
	require.Len(t, previews, 6)

	byTarget := make(map[string]Preview, len(previews))
	for _, p := range previews {
		byTarget[p.TargetStage] = p
	}
	assert.Equal(t, []string{"analysis"}, byTarget["user_stories"].Sources)
	assert.Equal(t, "completed", byTarget["user_stories"].Status)
	assert.Equal(t, 100, byTarget["user_stories"].Progress)
	assert.Equal(t, "pending", byTarget["test_design"].Status)
}

func TestJaccardScorer(t *testing.T) {
	s := JaccardScorer{}

	a := domain.StageDefinition{DisplayName: "Requirements Analysis", Description: "Clarify the problem"}
	assert.InDelta(t, 1.0, s.Score(a, a), 1e-9)

	b := domain.StageDefinition{DisplayName: "Deployment", Description: "Ship the release"}
	assert.Less(t, s.Score(a, b), SimilarityThreshold)

	// Empty definitions never match.
	assert.Zero(t, s.Score(domain.StageDefinition{}, domain.StageDefinition{}))
}

package warehouse

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db, 0)
	require.NoError(t, s.Init(context.Background()))
	return s
}

type runRow struct {
	runID, dataset, status, trigger, bdate, created, updated string
}

func insertRuns(t *testing.T, s *Store, rows []runRow) {
	t.Helper()
	for _, r := range rows {
		_, err := s.db.Exec(`
INSERT INTO workflow_run_instance
    (dag_run_id, output_dataset_id, status, trigger_type, business_date, created_date, updated_date)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.runID, r.dataset, r.status, r.trigger, r.bdate, r.created, r.updated)
		require.NoError(t, err)
	}
}

func insertTasks(t *testing.T, s *Store, runID string, tasks []model.TaskRow) {
	t.Helper()
	for _, task := range tasks {
		_, err := s.db.Exec(`
INSERT INTO task_instance (task_id, dag_id, run_id, state, duration, start_date, end_date, try_number, operator)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.TaskID, task.DAGID, runID, task.State, task.Duration,
			task.StartDate, task.EndDate, task.TryNumber, task.Operator)
		require.NoError(t, err)
	}
}

func TestBatchStatusLatestPerDatasetAndTrigger(t *testing.T) {
	s := newTestStore(t)
	insertRuns(t, s, []runRow{
		// Two PRELIM runs for ds-a: the later one wins.
		{"FGW_a_old", "ds-a", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:30:00"},
		{"FGW_a_new", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 04:00:00", "2026-02-21 04:45:00"},
		// A FINAL run for ds-a is its own partition.
		{"FGW_a_final", "ds-a", "RUNNING", "RerunTrigger", "2026-02-21", "2026-02-21 05:00:00", ""},
		{"FGW_b", "ds-b", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 03:00:00", "2026-02-21 03:10:00"},
		// A different business date never leaks in.
		{"FGW_b_yday", "ds-b", "SUCCESS", "ProcessTrigger", "2026-02-20", "2026-02-20 03:00:00", "2026-02-20 03:40:00"},
	})

	report, err := s.BatchStatus(context.Background(), model.StatusQuery{
		DatasetIDs:   []string{"ds-a", "ds-b"},
		BusinessDate: "2026-02-21",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, map[string]int{"SUCCESS": 1, "RUNNING": 1, "FAILED": 1}, report.Summary)

	byRun := map[string]model.StatusRow{}
	for _, row := range report.Rows {
		byRun[row.RunID] = row
	}
	assert.NotContains(t, byRun, "FGW_a_old", "superseded run is hidden")
	assert.Equal(t, "PRELIM", byRun["FGW_a_new"].ProcessingType)
	assert.Equal(t, "FINAL", byRun["FGW_a_final"].ProcessingType)
	// Rows come back newest first.
	assert.Equal(t, "FGW_a_final", report.Rows[0].RunID)
}

func TestBatchStatusProcessingTypeFilter(t *testing.T) {
	s := newTestStore(t)
	insertRuns(t, s, []runRow{
		{"FGW_prelim", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:30:00"},
		{"FGW_final", "ds-a", "FAILED", "RerunTrigger", "2026-02-21", "2026-02-21 05:00:00", "2026-02-21 05:20:00"},
	})

	report, err := s.BatchStatus(context.Background(), model.StatusQuery{
		DatasetIDs:     []string{"ds-a"},
		BusinessDate:   "2026-02-21",
		ProcessingType: "FINAL",
	})
	require.NoError(t, err)

	require.Equal(t, 1, report.Total)
	assert.Equal(t, "FGW_final", report.Rows[0].RunID)
}

func TestBatchStatusStatusFilterAndEmptyInput(t *testing.T) {
	s := newTestStore(t)
	insertRuns(t, s, []runRow{
		{"FGW_ok", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:30:00"},
		{"FGW_bad", "ds-b", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 03:00:00", "2026-02-21 03:10:00"},
	})

	report, err := s.BatchStatus(context.Background(), model.StatusQuery{
		DatasetIDs:   []string{"ds-a", "ds-b"},
		BusinessDate: "2026-02-21",
		StatusFilter: []string{"FAILED"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Total)
	assert.Equal(t, "FGW_bad", report.Rows[0].RunID)

	empty, err := s.BatchStatus(context.Background(), model.StatusQuery{BusinessDate: "2026-02-21"})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Rows)
}

func TestSliceStatusGroupsByPattern(t *testing.T) {
	s := newTestStore(t)
	insertRuns(t, s, []runRow{
		{"FGW_ic_2026-02-21_AWS_OTC_DERIV_AGG_EMEA_111", "intercompany", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:10:00"},
		{"FGW_ic_2026-02-21_AWS_OTC_DERIV_AGG_EMEA_222", "intercompany", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 04:00:00", "2026-02-21 04:30:00"},
		{"FGW_ic_2026-02-21_AWS_OTC_DERIV_AGG_NA_333", "intercompany", "RUNNING", "ProcessTrigger", "2026-02-21", "2026-02-21 05:00:00", ""},
	})

	report, err := s.SliceStatus(context.Background(), model.SliceQuery{
		DatasetID:    "intercompany",
		BusinessDate: "2026-02-21",
		SlicePatterns: []string{
			"AWS_OTC_DERIV_AGG_EMEA",
			"AWS_OTC_DERIV_AGG_NA",
			"AWS_OTC_DERIV_AGG_APAC",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)

	emea := report.Slices["AWS_OTC_DERIV_AGG_EMEA"]
	assert.Equal(t, "SUCCESS", emea.Status, "the latest run per slice wins")
	assert.Equal(t, 2, emea.TotalRuns)

	na := report.Slices["AWS_OTC_DERIV_AGG_NA"]
	assert.Equal(t, "RUNNING", na.Status)
	assert.Equal(t, 1, na.TotalRuns)

	apac := report.Slices["AWS_OTC_DERIV_AGG_APAC"]
	assert.Equal(t, model.StatusNotStarted, apac.Status, "a slice with no runs reads NOT_STARTED")
	assert.Zero(t, apac.TotalRuns)
}

func TestBatchProgressStepsAndOverall(t *testing.T) {
	s := newTestStore(t)
	def := &model.BatchDefinition{
		EssentialName: "TB-Derivatives",
		Datasets: []model.DatasetDef{
			{DatasetID: "stage-a1", SequenceOrder: 0},
			{DatasetID: "stage-a2", SequenceOrder: 0},
			{DatasetID: "stage-b", SequenceOrder: 1},
			{DatasetID: "stage-c", SequenceOrder: 2},
		},
	}
	insertRuns(t, s, []runRow{
		{"FGW_a1", "stage-a1", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:30:00"},
		{"FGW_a2", "stage-a2", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 02:40:00"},
		{"FGW_b", "stage-b", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 03:00:00", "2026-02-21 03:05:00"},
	})

	report, err := s.BatchProgress(context.Background(), def, "2026-02-21", "")
	require.NoError(t, err)

	require.Len(t, report.Steps, 3)
	assert.Equal(t, "COMPLETED", report.Steps[0].Status)
	assert.Equal(t, []string{"stage-a1", "stage-a2"}, report.Steps[0].Datasets)
	assert.Equal(t, "FAILED", report.Steps[1].Status)
	assert.Equal(t, model.StatusNotStarted, report.Steps[2].Status)

	assert.Equal(t, 2, report.Overall.Completed)
	assert.Equal(t, 4, report.Overall.Total)
	assert.Equal(t, 0.5, report.Overall.Fraction)
}

func TestBatchProgressNilDefinition(t *testing.T) {
	s := newTestStore(t)
	report, err := s.BatchProgress(context.Background(), nil, "2026-02-21", "")
	require.NoError(t, err)
	assert.Empty(t, report.Steps)
	assert.Zero(t, report.Overall.Total)
}

func TestTaskDetailsSummaryAndFilter(t *testing.T) {
	s := newTestStore(t)
	insertTasks(t, s, "FGW_run", []model.TaskRow{
		{TaskID: "extract", DAGID: "ic_dag", State: "success", Duration: 120.5, StartDate: "2026-02-21 02:00:00", TryNumber: 1, Operator: "SparkOperator"},
		{TaskID: "transform", DAGID: "ic_dag", State: "failed", Duration: 30, StartDate: "2026-02-21 02:05:00", TryNumber: 3, Operator: "SparkOperator"},
		{TaskID: "load", DAGID: "ic_dag", State: "upstream_failed", StartDate: "2026-02-21 02:10:00", TryNumber: 1},
	})

	report, err := s.TaskDetails(context.Background(), "FGW_run", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, map[string]int{"success": 1, "failed": 1, "upstream_failed": 1}, report.Summary)
	// Ordered by start date.
	assert.Equal(t, "extract", report.Tasks[0].TaskID)
	assert.Equal(t, 3, report.Tasks[1].TryNumber)

	failedOnly, err := s.TaskDetails(context.Background(), "FGW_run", []string{"failed"})
	require.NoError(t, err)
	require.Equal(t, 1, failedOnly.Total)
	assert.Equal(t, "transform", failedOnly.Tasks[0].TaskID)

	none, err := s.TaskDetails(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, none.Total)
}

func TestHistoricalRunsStats(t *testing.T) {
	s := newTestStore(t)
	// Three business dates of successful runs with 30, 40 and 60 minute
	// durations, plus a failed run that must not contribute.
	insertRuns(t, s, []runRow{
		{"FGW_1", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-19", "2026-02-19 02:00:00", "2026-02-19 02:30:00"},
		{"FGW_2", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-20", "2026-02-20 02:00:00", "2026-02-20 02:40:00"},
		{"FGW_3", "ds-a", "SUCCESS", "ProcessTrigger", "2026-02-21", "2026-02-21 02:00:00", "2026-02-21 03:00:00"},
		{"FGW_4", "ds-a", "FAILED", "ProcessTrigger", "2026-02-21", "2026-02-21 04:00:00", "2026-02-21 09:00:00"},
	})

	report, err := s.HistoricalRuns(context.Background(), "ds-a", 10, "")
	require.NoError(t, err)

	require.Len(t, report.History, 3)
	// Newest date first.
	assert.Equal(t, "2026-02-21", report.History[0].BusinessDate)
	assert.Equal(t, 60, report.History[0].MaxMinutes)
	assert.Equal(t, "2026-02-19", report.History[2].BusinessDate)
	assert.Equal(t, 30, report.History[2].MinMinutes)

	require.NotNil(t, report.Stats)
	assert.Equal(t, 3, report.Stats.SampleCount)
	assert.Equal(t, 40, report.Stats.P50Minutes)
	assert.Equal(t, 60, report.Stats.P95Minutes)
	assert.InDelta(t, 43.3, report.Stats.AvgMinutes, 0.01)
}

func TestHistoricalRunsEmpty(t *testing.T) {
	s := newTestStore(t)
	report, err := s.HistoricalRuns(context.Background(), "ds-missing", 5, "PRELIM")
	require.NoError(t, err)
	assert.Empty(t, report.History)
	assert.Nil(t, report.Stats)
}

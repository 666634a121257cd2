package turn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/batchwatch-poc/server/internal/agent/model"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// RCA seeding caps: a status check drills into the first few failures, an
// explicit drilldown goes deeper.
const (
	statusCheckRCALimit = 5
	drilldownRCALimit   = 10
)

// fetchData dispatches the query combination for the classified intent and
// assembles the raw results plus RCA seed data. Queries for one turn run in
// a fixed order (status, then progress, then drilldown detail) because later
// calls consume earlier results.
func (o *Orchestrator) fetchData(ctx context.Context, st *model.ConversationState) {
	switch st.Intent {
	case model.IntentStatusCheck:
		o.fetchStatus(ctx, st)
	case model.IntentRCADrilldown:
		o.fetchRCA(ctx, st)
	case model.IntentTaskDetail:
		o.fetchTaskDetail(ctx, st)
	}
}

func (o *Orchestrator) fetchStatus(ctx context.Context, st *model.ConversationState) {
	results := &model.QueryResults{}

	status, ok := o.batchStatus(ctx, st)
	if !ok {
		return
	}
	results.BatchStatus = status

	if st.BatchDefinition != nil {
		t0 := time.Now()
		progress, err := o.warehouse.BatchProgress(ctx, st.BatchDefinition, st.BusinessDate, st.ProcessingType)
		if err != nil {
			st.Error = fmt.Sprintf("Failed to fetch progress for '%s': %v", st.BatchName, err)
			return
		}
		st.RecordToolCall("get_batch_progress", map[string]string{
			"batch":         st.BatchDefinition.EssentialName,
			"business_date": st.BusinessDate,
		}, time.Since(t0).Milliseconds())
		results.BatchProgress = progress
	}

	if st.TargetDataset != nil && len(st.ResolvedSlices) > 0 {
		t0 := time.Now()
		slices, err := o.warehouse.SliceStatus(ctx, model.SliceQuery{
			DatasetID:      st.TargetDataset.DatasetID,
			BusinessDate:   st.BusinessDate,
			SlicePatterns:  st.ResolvedSlices,
			ProcessingType: st.ProcessingType,
		})
		if err != nil {
			st.Error = fmt.Sprintf("Failed to fetch slice status for '%s': %v", st.TargetDataset.DatasetID, err)
			return
		}
		st.RecordToolCall("get_slice_status", map[string]string{
			"dataset_id":    st.TargetDataset.DatasetID,
			"business_date": st.BusinessDate,
		}, time.Since(t0).Milliseconds())
		results.SliceStatus = slices
	}

	st.QueryResults = results

	// Seed RCA from any failures so the analysis can explain them without a
	// second turn.
	failed := status.FailedRows()
	if len(failed) == 0 {
		return
	}
	rca := &model.RCAFindings{}
	for _, row := range capRows(failed, statusCheckRCALimit) {
		finding := findingFromRow(row)
		if row.RunID != "" {
			tasks, ok := o.taskDetails(ctx, st, row.RunID, []string{"failed"})
			if !ok {
				return
			}
			finding.FailedTasks = tasks.Tasks
		}
		rca.FailedDatasets = append(rca.FailedDatasets, finding)
	}
	st.RCAFindings = rca
}

func (o *Orchestrator) fetchRCA(ctx context.Context, st *model.ConversationState) {
	// The full picture first: every latest run, not just the failed ones.
	status, ok := o.batchStatus(ctx, st)
	if !ok {
		return
	}
	st.QueryResults = &model.QueryResults{BatchStatus: status}

	failed := status.FailedRows()
	if len(failed) == 0 {
		st.RCAFindings = &model.RCAFindings{Message: "No failed runs found for this batch and date."}
		return
	}

	rca := &model.RCAFindings{}
	for _, row := range capRows(failed, drilldownRCALimit) {
		finding := findingFromRow(row)
		if row.RunID != "" {
			tasks, ok := o.taskDetails(ctx, st, row.RunID, nil)
			if !ok {
				return
			}
			finding.AllTasks = tasks.Tasks
			for _, t := range tasks.Tasks {
				if t.State == "failed" {
					finding.FailedTasks = append(finding.FailedTasks, t)
				}
			}
			finding.TaskSummary = tasks.Summary
		}
		rca.FailedDatasets = append(rca.FailedDatasets, finding)
	}
	st.RCAFindings = rca
}

func (o *Orchestrator) fetchTaskDetail(ctx context.Context, st *model.ConversationState) {
	runID := extractRunID(st)
	if runID == "" {
		st.Error = "No run ID found. Please specify which run to inspect."
		return
	}

	tasks, ok := o.taskDetails(ctx, st, runID, nil)
	if !ok {
		return
	}
	st.QueryResults = &model.QueryResults{TaskDetails: tasks, RunID: runID}
}

// batchStatus fetches the latest-per-dataset rows for the resolved dataset
// set. The second return is false when the turn errored.
func (o *Orchestrator) batchStatus(ctx context.Context, st *model.ConversationState) (*model.StatusReport, bool) {
	t0 := time.Now()
	status, err := o.warehouse.BatchStatus(ctx, model.StatusQuery{
		DatasetIDs:     st.DatasetIDs,
		BusinessDate:   st.BusinessDate,
		ProcessingType: st.ProcessingType,
	})
	if err != nil {
		st.Error = fmt.Sprintf("Failed to fetch status for '%s' on %s: %v", st.BatchName, st.BusinessDate, err)
		return nil, false
	}
	st.RecordToolCall("get_batch_status", map[string]string{
		"dataset_ids":     strings.Join(st.DatasetIDs, ","),
		"business_date":   st.BusinessDate,
		"processing_type": st.ProcessingType,
	}, time.Since(t0).Milliseconds())
	return status, true
}

func (o *Orchestrator) taskDetails(ctx context.Context, st *model.ConversationState, runID string, stateFilter []string) (*model.TaskReport, bool) {
	t0 := time.Now()
	tasks, err := o.warehouse.TaskDetails(ctx, runID, stateFilter)
	if err != nil {
		st.Error = fmt.Sprintf("Failed to fetch task details for run '%s': %v", runID, err)
		return nil, false
	}
	st.RecordToolCall("get_task_details", map[string]string{
		"run_id":       runID,
		"state_filter": strings.Join(stateFilter, ","),
	}, time.Since(t0).Milliseconds())
	return tasks, true
}

func findingFromRow(row model.StatusRow) model.RCAFinding {
	return model.RCAFinding{
		DatasetID:      row.DatasetID,
		RunID:          row.RunID,
		Status:         row.Status,
		ProcessingType: row.ProcessingType,
		CreatedDate:    row.CreatedDate,
		UpdatedDate:    row.UpdatedDate,
	}
}

func capRows(rows []model.StatusRow, limit int) []model.StatusRow {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// extractRunID resolves which run a task_detail turn is about, in priority
// order: an explicit token in the latest user message, then the first failed
// row of results carried on the state, then the first RCA finding.
func extractRunID(st *model.ConversationState) string {
	if msg := st.LatestUserMessage(); strings.Contains(msg, model.RunIDPrefix) {
		for _, token := range strings.Fields(msg) {
			if strings.HasPrefix(token, model.RunIDPrefix) {
				return strings.TrimRight(token, ".,;:!?\"')")
			}
		}
	}

	if st.QueryResults != nil && st.QueryResults.BatchStatus != nil {
		for _, row := range st.QueryResults.BatchStatus.Rows {
			if row.Status == model.StatusFailed && row.RunID != "" {
				return row.RunID
			}
		}
	}

	if st.RCAFindings != nil {
		for _, finding := range st.RCAFindings.FailedDatasets {
			if finding.RunID != "" {
				return finding.RunID
			}
		}
	}

	return ""
}

// analyzeResults is a thin stage wrapper; the engine itself lives in the
// analyze package and never fails the turn.
func (o *Orchestrator) analyzeResults(st *model.ConversationState) {
	st.Analysis = analyzeState(st)
	logx.Debug().
		Str("conversation_id", st.ConversationID).
		Str("batch_status", st.Analysis.BatchStatus).
		Int("failures", len(st.Analysis.Failures)).
		Msg("Analysis complete")
}

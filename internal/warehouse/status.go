package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/batchwatch-poc/server/internal/agent/model"
	errx "github.com/batchwatch-poc/server/internal/core/error"
)

// BatchStatus returns the latest run per (dataset, trigger type) for the
// requested business date. A window function ranks runs per partition so a
// rerun never hides the earlier trigger's outcome.
func (s *Store) BatchStatus(ctx context.Context, q model.StatusQuery) (*model.StatusReport, error) {
	if len(q.DatasetIDs) == 0 {
		return &model.StatusReport{Summary: map[string]int{}}, nil
	}

	limit := q.Limit
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	var sb strings.Builder
	var args []any

	sb.WriteString(`
SELECT dag_run_id, output_dataset_id, status, trigger_type,
       business_date, created_date, updated_date
FROM (
    SELECT *, ROW_NUMBER() OVER (
        PARTITION BY output_dataset_id, trigger_type
        ORDER BY created_date DESC
    ) AS rn
    FROM workflow_run_instance
    WHERE business_date = ? AND output_dataset_id IN (`)
	args = append(args, q.BusinessDate)
	writePlaceholders(&sb, len(q.DatasetIDs))
	for _, id := range q.DatasetIDs {
		args = append(args, id)
	}
	sb.WriteString(")")

	if trigger, ok := model.TriggerForProcessingType(strings.ToUpper(q.ProcessingType)); ok {
		sb.WriteString(" AND trigger_type = ?")
		args = append(args, trigger)
	}

	sb.WriteString(`
) WHERE rn = 1`)

	if len(q.StatusFilter) > 0 {
		sb.WriteString(" AND status IN (")
		writePlaceholders(&sb, len(q.StatusFilter))
		sb.WriteString(")")
		for _, st := range q.StatusFilter {
			args = append(args, st)
		}
	}

	sb.WriteString(" ORDER BY created_date DESC LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errx.WrapWarehouse(fmt.Errorf("batch status query: %w", err))
	}
	defer rows.Close()

	report := &model.StatusReport{Summary: map[string]int{}}
	for rows.Next() {
		var row model.StatusRow
		var created, updated sql.NullString
		if err := rows.Scan(&row.RunID, &row.DatasetID, &row.Status, &row.TriggerType,
			&row.BusinessDate, &created, &updated); err != nil {
			return nil, errx.WrapWarehouse(err)
		}
		row.CreatedDate = created.String
		row.UpdatedDate = updated.String
		row.ProcessingType = model.ProcessingTypeForTrigger(row.TriggerType)
		report.Rows = append(report.Rows, row)
		report.Summary[row.Status]++
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapWarehouse(err)
	}
	report.Total = len(report.Rows)
	return report, nil
}

// SliceStatus reports the latest run per slice pattern of one dataset.
// Slice names must come from the catalog; patterns are matched against the
// run id with LIKE, never parsed out of it.
func (s *Store) SliceStatus(ctx context.Context, q model.SliceQuery) (*model.SliceReport, error) {
	if len(q.SlicePatterns) == 0 {
		return &model.SliceReport{Slices: map[string]model.SliceRun{}}, nil
	}

	var sb strings.Builder
	var args []any

	sb.WriteString(`
SELECT dag_run_id, status, trigger_type, created_date, updated_date
FROM workflow_run_instance
WHERE business_date = ? AND output_dataset_id = ? AND (`)
	args = append(args, q.BusinessDate, q.DatasetID)
	for i, pattern := range q.SlicePatterns {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("dag_run_id LIKE ?")
		args = append(args, "%"+pattern+"%")
	}
	sb.WriteString(")")

	if trigger, ok := model.TriggerForProcessingType(strings.ToUpper(q.ProcessingType)); ok {
		sb.WriteString(" AND trigger_type = ?")
		args = append(args, trigger)
	}

	sb.WriteString(" ORDER BY created_date DESC LIMIT ?")
	args = append(args, s.limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errx.WrapWarehouse(fmt.Errorf("slice status query: %w", err))
	}
	defer rows.Close()

	type sliceRow struct {
		runID, status, trigger, created, updated string
	}
	var fetched []sliceRow
	for rows.Next() {
		var r sliceRow
		var created, updated sql.NullString
		if err := rows.Scan(&r.runID, &r.status, &r.trigger, &created, &updated); err != nil {
			return nil, errx.WrapWarehouse(err)
		}
		r.created = created.String
		r.updated = updated.String
		fetched = append(fetched, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapWarehouse(err)
	}

	// Each row belongs to the first pattern its run id contains; rows are
	// already newest-first, so the first hit per pattern is the latest run.
	report := &model.SliceReport{
		Patterns: q.SlicePatterns,
		Slices:   map[string]model.SliceRun{},
		Total:    len(fetched),
	}
	counts := map[string]int{}
	for _, r := range fetched {
		for _, pattern := range q.SlicePatterns {
			if !strings.Contains(r.runID, pattern) {
				continue
			}
			counts[pattern]++
			if _, seen := report.Slices[pattern]; !seen {
				report.Slices[pattern] = model.SliceRun{
					Status:         r.status,
					ProcessingType: model.ProcessingTypeForTrigger(r.trigger),
					RunID:          r.runID,
					CreatedDate:    r.created,
					UpdatedDate:    r.updated,
				}
			}
			break
		}
	}
	for _, pattern := range q.SlicePatterns {
		run, seen := report.Slices[pattern]
		if !seen {
			report.Slices[pattern] = model.SliceRun{Status: model.StatusNotStarted}
			continue
		}
		run.TotalRuns = counts[pattern]
		report.Slices[pattern] = run
	}
	return report, nil
}

// BatchProgress groups the batch's datasets by sequence order and reports
// per-step completion plus the overall fraction. It is computed from the
// same latest-per-dataset rows a status check sees.
func (s *Store) BatchProgress(ctx context.Context, def *model.BatchDefinition, businessDate, processingType string) (*model.ProgressReport, error) {
	if def == nil || len(def.Datasets) == 0 {
		return &model.ProgressReport{}, nil
	}

	status, err := s.BatchStatus(ctx, model.StatusQuery{
		DatasetIDs:     def.DatasetIDs(),
		BusinessDate:   businessDate,
		ProcessingType: processingType,
	})
	if err != nil {
		return nil, err
	}

	// First row per dataset wins; rows are newest-first.
	latest := map[string]string{}
	for _, row := range status.Rows {
		if _, ok := latest[row.DatasetID]; !ok {
			latest[row.DatasetID] = row.Status
		}
	}

	report := &model.ProgressReport{}
	total := len(def.Datasets)
	completed := 0

	for _, group := range def.DatasetsBySequence() {
		step := model.ProgressStep{SequenceOrder: group.Order}
		for _, ds := range group.Datasets {
			step.Datasets = append(step.Datasets, ds.DatasetID)
			st, ok := latest[ds.DatasetID]
			if !ok {
				st = model.StatusNotStarted
			}
			switch st {
			case model.StatusSuccess:
				step.Counts.Success++
			case model.StatusFailed:
				step.Counts.Failed++
			case model.StatusRunning:
				step.Counts.Running++
			case model.StatusNotStarted:
				step.Counts.NotStarted++
			}
			step.Counts.Total++
		}
		completed += step.Counts.Success
		step.Status = stepStatus(step.Counts)
		report.Steps = append(report.Steps, step)
	}

	report.Overall = model.OverallProgress{
		Completed: completed,
		Total:     total,
	}
	if total > 0 {
		report.Overall.Fraction = math.Round(float64(completed)/float64(total)*10000) / 10000
	}
	return report, nil
}

func stepStatus(c model.StepCounts) string {
	switch {
	case c.Success == c.Total && c.Total > 0:
		return "COMPLETED"
	case c.Failed > 0:
		return "FAILED"
	case c.Running > 0:
		return "RUNNING"
	case c.NotStarted == c.Total:
		return model.StatusNotStarted
	default:
		return "PARTIAL"
	}
}

// HistoricalRuns samples successful runs of one dataset across its most
// recent business dates and computes runtime statistics for trend analysis.
func (s *Store) HistoricalRuns(ctx context.Context, datasetID string, lastNDates int, processingType string) (*model.HistoryReport, error) {
	if lastNDates <= 0 {
		lastNDates = 10
	}
	if lastNDates > 30 {
		lastNDates = 30
	}

	var sb strings.Builder
	var args []any

	trigger, hasTrigger := model.TriggerForProcessingType(strings.ToUpper(processingType))
	triggerClause := ""
	if hasTrigger {
		triggerClause = " AND trigger_type = ?"
	}

	// Duration in whole minutes, derived from the created/updated pair.
	sb.WriteString(fmt.Sprintf(`
SELECT business_date,
       CAST(ROUND((julianday(updated_date) - julianday(created_date)) * 1440) AS INTEGER) AS duration_minutes
FROM workflow_run_instance
WHERE output_dataset_id = ? AND status = 'SUCCESS'%s
  AND business_date IN (
      SELECT DISTINCT business_date
      FROM workflow_run_instance
      WHERE output_dataset_id = ? AND status = 'SUCCESS'%s
      ORDER BY business_date DESC
      LIMIT ?
  )
  AND created_date IS NOT NULL AND updated_date IS NOT NULL
ORDER BY business_date DESC, created_date DESC
LIMIT ?`, triggerClause, triggerClause))

	args = append(args, datasetID)
	if hasTrigger {
		args = append(args, trigger)
	}
	args = append(args, datasetID)
	if hasTrigger {
		args = append(args, trigger)
	}
	args = append(args, lastNDates, s.limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errx.WrapWarehouse(fmt.Errorf("historical runs query: %w", err))
	}
	defer rows.Close()

	byDate := map[string][]int{}
	for rows.Next() {
		var bdate string
		var dur sql.NullInt64
		if err := rows.Scan(&bdate, &dur); err != nil {
			return nil, errx.WrapWarehouse(err)
		}
		if !dur.Valid {
			continue
		}
		byDate[bdate] = append(byDate[bdate], int(dur.Int64))
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapWarehouse(err)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	report := &model.HistoryReport{}
	var all []int
	for _, bdate := range dates {
		durations := byDate[bdate]
		all = append(all, durations...)
		entry := model.HistoryEntry{
			BusinessDate: bdate,
			RunCount:     len(durations),
			MinMinutes:   durations[0],
			MaxMinutes:   durations[0],
		}
		sum := 0
		for _, d := range durations {
			if d < entry.MinMinutes {
				entry.MinMinutes = d
			}
			if d > entry.MaxMinutes {
				entry.MaxMinutes = d
			}
			sum += d
		}
		entry.AvgMinutes = math.Round(float64(sum)/float64(len(durations))*10) / 10
		report.History = append(report.History, entry)
	}

	if len(all) > 0 {
		sort.Ints(all)
		n := len(all)
		sum := 0
		for _, d := range all {
			sum += d
		}
		report.Stats = &model.HistoryStats{
			P50Minutes:  all[n/2],
			P90Minutes:  all[percentileIndex(n, 0.9)],
			P95Minutes:  all[percentileIndex(n, 0.95)],
			AvgMinutes:  math.Round(float64(sum)/float64(n)*10) / 10,
			SampleCount: n,
		}
	}
	return report, nil
}

func percentileIndex(n int, p float64) int {
	i := int(float64(n) * p)
	if i >= n {
		i = n - 1
	}
	return i
}

func writePlaceholders(sb *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
	}
}

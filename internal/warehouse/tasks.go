package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/batchwatch-poc/server/internal/agent/model"
	errx "github.com/batchwatch-poc/server/internal/core/error"
)

// TaskDetails drills from a failed run into its individual tasks. The run
// id joins workflow_run_instance.dag_run_id to task_instance.run_id; an
// optional state filter narrows the result to, say, just the failed tasks.
func (s *Store) TaskDetails(ctx context.Context, runID string, stateFilter []string) (*model.TaskReport, error) {
	if runID == "" {
		return &model.TaskReport{Summary: map[string]int{}}, nil
	}

	var sb strings.Builder
	var args []any

	sb.WriteString(`
SELECT task_id, dag_id, state, duration, start_date, end_date, try_number, operator
FROM task_instance
WHERE run_id = ?`)
	args = append(args, runID)

	if len(stateFilter) > 0 {
		sb.WriteString(" AND state IN (")
		writePlaceholders(&sb, len(stateFilter))
		sb.WriteString(")")
		for _, st := range stateFilter {
			args = append(args, st)
		}
	}

	sb.WriteString(" ORDER BY start_date LIMIT ?")
	args = append(args, s.limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errx.WrapWarehouse(fmt.Errorf("task details query: %w", err))
	}
	defer rows.Close()

	report := &model.TaskReport{Summary: map[string]int{}}
	for rows.Next() {
		var task model.TaskRow
		var dagID, start, end, operator sql.NullString
		var duration sql.NullFloat64
		var tryNumber sql.NullInt64
		if err := rows.Scan(&task.TaskID, &dagID, &task.State, &duration,
			&start, &end, &tryNumber, &operator); err != nil {
			return nil, errx.WrapWarehouse(err)
		}
		task.DAGID = dagID.String
		task.Duration = duration.Float64
		task.StartDate = start.String
		task.EndDate = end.String
		task.TryNumber = int(tryNumber.Int64)
		task.Operator = operator.String

		state := task.State
		if state == "" {
			state = "unknown"
		}
		report.Summary[state]++
		report.Tasks = append(report.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapWarehouse(err)
	}
	report.Total = len(report.Tasks)
	return report, nil
}

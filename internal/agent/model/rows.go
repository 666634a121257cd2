package model

// Workflow run statuses as stored in the warehouse.
const (
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
	StatusRunning    = "RUNNING"
	StatusQueued     = "QUEUED"
	StatusNotStarted = "NOT_STARTED"
)

// RunIDPrefix is the fixed prefix of workflow run identifiers
// (FGW_{dag}_{business_date}_{slice}_{unique}).
const RunIDPrefix = "FGW_"

// Trigger types recorded on run rows, mapped 1:1 to processing-type labels.
// ProcessTrigger is the first pass of the day, RerunTrigger the second,
// ManualTrigger an operator intervention.
var triggerByProcessingType = map[string]string{
	"PRELIM": "ProcessTrigger",
	"FINAL":  "RerunTrigger",
	"MANUAL": "ManualTrigger",
}

// TriggerForProcessingType maps PRELIM/FINAL/MANUAL to the stored trigger
// type. The second return is false for unknown labels.
func TriggerForProcessingType(pt string) (string, bool) {
	t, ok := triggerByProcessingType[pt]
	return t, ok
}

// ProcessingTypeForTrigger maps a stored trigger type back to its label.
// Unknown triggers are passed through unchanged.
func ProcessingTypeForTrigger(trigger string) string {
	for pt, t := range triggerByProcessingType {
		if t == trigger {
			return pt
		}
	}
	return trigger
}

// StatusRow is one workflow-run record. The query layer returns only the
// most recent row per (dataset, trigger type); older rows for the same pair
// are discarded upstream.
type StatusRow struct {
	RunID          string `json:"run_id"`
	DatasetID      string `json:"dataset_id"`
	Status         string `json:"status"`
	TriggerType    string `json:"trigger_type"`
	ProcessingType string `json:"processing_type"`
	BusinessDate   string `json:"business_date"`
	CreatedDate    string `json:"created_date,omitempty"`
	UpdatedDate    string `json:"updated_date,omitempty"`
}

// StatusReport is the result of a batch status query.
type StatusReport struct {
	Rows    []StatusRow    `json:"rows"`
	Summary map[string]int `json:"summary"`
	Total   int            `json:"total"`
}

// FailedRows returns the rows with FAILED status, in report order.
func (r *StatusReport) FailedRows() []StatusRow {
	var failed []StatusRow
	for _, row := range r.Rows {
		if row.Status == StatusFailed {
			failed = append(failed, row)
		}
	}
	return failed
}

// StepCounts are per-status tallies within one sequence step.
type StepCounts struct {
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Running    int `json:"running"`
	NotStarted int `json:"not_started"`
	Total      int `json:"total"`
}

// ProgressStep is the status of one sequence-order group.
type ProgressStep struct {
	SequenceOrder int        `json:"sequence_order"`
	Status        string     `json:"status"`
	Datasets      []string   `json:"datasets"`
	Counts        StepCounts `json:"counts"`
}

// OverallProgress is the completion fraction across all datasets.
type OverallProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// ProgressReport is the result of a sequence-grouped progress query.
type ProgressReport struct {
	Steps   []ProgressStep  `json:"steps"`
	Overall OverallProgress `json:"overall"`
}

// SliceRun is the latest run observed for one slice pattern.
type SliceRun struct {
	Status         string `json:"status"`
	ProcessingType string `json:"processing_type,omitempty"`
	RunID          string `json:"run_id,omitempty"`
	CreatedDate    string `json:"created_date,omitempty"`
	UpdatedDate    string `json:"updated_date,omitempty"`
	TotalRuns      int    `json:"total_runs"`
}

// SliceReport maps slice patterns to their latest run. Patterns preserves
// the query order so downstream output stays deterministic.
type SliceReport struct {
	Patterns []string            `json:"patterns"`
	Slices   map[string]SliceRun `json:"slices"`
	Total    int                 `json:"total"`
}

// TaskRow is one task instance within a workflow run.
type TaskRow struct {
	TaskID    string  `json:"task_id"`
	DAGID     string  `json:"dag_id,omitempty"`
	State     string  `json:"state"`
	Duration  float64 `json:"duration,omitempty"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
	TryNumber int     `json:"try_number,omitempty"`
	Operator  string  `json:"operator,omitempty"`
}

// TaskReport is the result of a task-detail query for one run.
type TaskReport struct {
	Tasks   []TaskRow      `json:"tasks"`
	Summary map[string]int `json:"summary"`
	Total   int            `json:"total"`
}

// HistoryEntry is the per-business-date runtime stats of one dataset.
type HistoryEntry struct {
	BusinessDate string  `json:"business_date"`
	RunCount     int     `json:"run_count"`
	MinMinutes   int     `json:"min_minutes"`
	MaxMinutes   int     `json:"max_minutes"`
	AvgMinutes   float64 `json:"avg_minutes"`
}

// HistoryStats are aggregate runtime percentiles across all sampled dates.
type HistoryStats struct {
	P50Minutes  int     `json:"p50_minutes"`
	P90Minutes  int     `json:"p90_minutes"`
	P95Minutes  int     `json:"p95_minutes"`
	AvgMinutes  float64 `json:"avg_minutes"`
	SampleCount int     `json:"sample_count"`
}

// HistoryReport is the result of a historical-runs query.
type HistoryReport struct {
	History []HistoryEntry `json:"history"`
	Stats   *HistoryStats  `json:"stats,omitempty"`
}

// QueryResults accumulates the raw per-turn query outputs.
type QueryResults struct {
	BatchStatus   *StatusReport   `json:"batch_status,omitempty"`
	BatchProgress *ProgressReport `json:"batch_progress,omitempty"`
	SliceStatus   *SliceReport    `json:"slice_status,omitempty"`
	TaskDetails   *TaskReport     `json:"task_details,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
}

// RCAFinding captures one failed run and its task-level detail.
type RCAFinding struct {
	DatasetID      string         `json:"dataset_id"`
	RunID          string         `json:"run_id"`
	Status         string         `json:"status"`
	ProcessingType string         `json:"processing_type,omitempty"`
	CreatedDate    string         `json:"created_date,omitempty"`
	UpdatedDate    string         `json:"updated_date,omitempty"`
	FailedTasks    []TaskRow      `json:"failed_tasks,omitempty"`
	AllTasks       []TaskRow      `json:"all_tasks,omitempty"`
	TaskSummary    map[string]int `json:"task_summary,omitempty"`
}

// RCAFindings is the root-cause seed produced during data aggregation.
// Message is set instead of FailedDatasets when there is nothing to drill
// into.
type RCAFindings struct {
	FailedDatasets []RCAFinding `json:"failed_datasets,omitempty"`
	Message        string       `json:"message,omitempty"`
}

// StatusQuery are the parameters of a batch status fetch.
type StatusQuery struct {
	DatasetIDs     []string
	BusinessDate   string
	ProcessingType string
	StatusFilter   []string
	Limit          int
}

// SliceQuery are the parameters of a slice status fetch.
type SliceQuery struct {
	DatasetID      string
	BusinessDate   string
	SlicePatterns  []string
	ProcessingType string
}

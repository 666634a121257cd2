package model

// Batch-level derived statuses.
const (
	BatchPartialFailure = "PARTIAL_FAILURE"
	BatchRunning        = "RUNNING"
	BatchSuccess        = "SUCCESS"
	BatchNotStarted     = "NOT_STARTED"
	BatchInProgress     = "IN_PROGRESS"
)

// Summary tallies the latest runs of a batch by status. NotStarted is the
// count of declared datasets with no run at all.
type Summary struct {
	TotalDatasets int `json:"total_datasets"`
	Success       int `json:"success"`
	Failed        int `json:"failed"`
	Running       int `json:"running"`
	Cancelled     int `json:"cancelled"`
	Queued        int `json:"queued"`
	NotStarted    int `json:"not_started"`
}

// CategoryCounts are per-status tallies within one trigger category.
type CategoryCounts struct {
	Total     int `json:"total"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Cancelled int `json:"cancelled"`
	Queued    int `json:"queued"`
}

// CategoryBreakdown is the row tally for one processing-type label.
// Breakdowns are emitted sorted by name so analysis output is reproducible.
type CategoryBreakdown struct {
	Name   string         `json:"name"`
	Counts CategoryCounts `json:"counts"`
}

// OverallDisplay renders the completion fraction for presentation.
type OverallDisplay struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
	Display   string  `json:"display"`
}

// Failure is one failed run with its computed duration. DurationMinutes is
// nil when either timestamp is missing or unparsable.
type Failure struct {
	DatasetID       string `json:"dataset_id"`
	RunID           string `json:"run_id"`
	ProcessingType  string `json:"processing_type,omitempty"`
	CreatedDate     string `json:"created_date,omitempty"`
	UpdatedDate     string `json:"updated_date,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// Anomaly flags a successful run that took more than twice the median.
type Anomaly struct {
	DatasetID       string  `json:"dataset_id"`
	RunID           string  `json:"run_id"`
	DurationMinutes int     `json:"duration_minutes"`
	MedianMinutes   int     `json:"median_minutes"`
	Factor          float64 `json:"factor"`
}

// SliceEntry is the analyzed status of one slice of the targeted dataset.
type SliceEntry struct {
	Name            string `json:"name"`
	Status          string `json:"status"`
	RunID           string `json:"run_id,omitempty"`
	CreatedDate     string `json:"created_date,omitempty"`
	UpdatedDate     string `json:"updated_date,omitempty"`
	TotalRuns       int    `json:"total_runs"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// SliceSummary rolls up slice statuses for the targeted dataset.
type SliceSummary struct {
	Total      int `json:"total"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
	Running    int `json:"running"`
	NotStarted int `json:"not_started"`
}

// SliceAnalysis is the slice-level breakdown for a targeted dataset.
type SliceAnalysis struct {
	DatasetID string       `json:"dataset_id,omitempty"`
	Slices    []SliceEntry `json:"slices"`
	Summary   SliceSummary `json:"summary"`
}

// Analysis is the immutable per-turn snapshot derived from status rows and
// the batch definition. It is computed once and consumed once by the
// synthesis boundary; nothing mutates it after construction.
type Analysis struct {
	Intent           Intent              `json:"intent"`
	Summary          Summary             `json:"summary"`
	ByProcessingType []CategoryBreakdown `json:"by_processing_type,omitempty"`
	SequenceProgress []SequenceStep      `json:"sequence_progress,omitempty"`
	OverallProgress  *OverallDisplay     `json:"overall_progress,omitempty"`
	BatchStatus      string              `json:"batch_status"`
	Failures         []Failure           `json:"failures,omitempty"`
	Anomalies        []Anomaly           `json:"anomalies,omitempty"`
	RCA              *RCAFindings        `json:"rca,omitempty"`
	SliceAnalysis    *SliceAnalysis      `json:"slice_analysis,omitempty"`
}

// SequenceStep is the analyzed view of one sequence-order group.
type SequenceStep struct {
	Order    int        `json:"order"`
	Status   string     `json:"status"`
	Datasets []string   `json:"datasets"`
	Counts   StepCounts `json:"counts"`
}

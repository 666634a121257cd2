// Package analyze derives the per-turn analysis snapshot from raw status
// rows and the batch definition. Every computation here is pure and total:
// malformed or missing input degrades to an empty or absent result, never an
// error. The turn cannot fail in this package.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

// durationAnomalyFactor flags successful runs slower than factor × median.
const durationAnomalyFactor = 2.0

// Input is everything the engine may consume for one turn.
type Input struct {
	Intent        model.Intent
	Results       *model.QueryResults
	Definition    *model.BatchDefinition
	RCA           *model.RCAFindings
	TargetDataset *model.DatasetDef
}

// Analyze computes the analysis snapshot. Running it twice on the same
// input yields identical output; it keeps no state between calls.
func Analyze(in Input) *model.Analysis {
	analysis := &model.Analysis{Intent: in.Intent}

	results := in.Results
	if results == nil {
		results = &model.QueryResults{}
	}
	var rows []model.StatusRow
	if results.BatchStatus != nil {
		rows = results.BatchStatus.Rows
	}

	analysis.Summary = summarize(rows, results.BatchStatus, in.Definition)
	analysis.ByProcessingType = byProcessingType(rows)

	if results.BatchProgress != nil && len(results.BatchProgress.Steps) > 0 {
		steps, overall := sequenceProgress(results.BatchProgress)
		analysis.SequenceProgress = steps
		analysis.OverallProgress = overall
	}

	analysis.BatchStatus = deriveBatchStatus(analysis.Summary)
	analysis.Failures = failureDetails(rows)

	if in.RCA != nil {
		analysis.RCA = in.RCA
	}

	analysis.Anomalies = detectAnomalies(rows)

	if results.SliceStatus != nil && len(results.SliceStatus.Patterns) > 0 {
		analysis.SliceAnalysis = analyzeSlices(results.SliceStatus, in.TargetDataset)
	}

	return analysis
}

func summarize(rows []model.StatusRow, report *model.StatusReport, def *model.BatchDefinition) model.Summary {
	s := model.Summary{}
	if report != nil {
		s.TotalDatasets = report.Total
	}
	for _, row := range rows {
		switch row.Status {
		case model.StatusSuccess:
			s.Success++
		case model.StatusFailed:
			s.Failed++
		case model.StatusRunning:
			s.Running++
		case model.StatusCancelled:
			s.Cancelled++
		case model.StatusQueued:
			s.Queued++
		}
	}

	// With a definition in hand the declared dataset count is authoritative,
	// and datasets with no run at all become the not-started set.
	if def != nil {
		seen := map[string]bool{}
		for _, row := range rows {
			seen[row.DatasetID] = true
		}
		missing := 0
		for _, d := range def.Datasets {
			if !seen[d.DatasetID] {
				missing++
			}
		}
		s.NotStarted = missing
		s.TotalDatasets = len(def.Datasets)
	}
	return s
}

func byProcessingType(rows []model.StatusRow) []model.CategoryBreakdown {
	if len(rows) == 0 {
		return nil
	}
	byName := map[string]*model.CategoryCounts{}
	for _, row := range rows {
		name := row.ProcessingType
		if name == "" {
			name = "UNKNOWN"
		}
		counts, ok := byName[name]
		if !ok {
			counts = &model.CategoryCounts{}
			byName[name] = counts
		}
		counts.Total++
		switch row.Status {
		case model.StatusSuccess:
			counts.Success++
		case model.StatusFailed:
			counts.Failed++
		case model.StatusRunning:
			counts.Running++
		case model.StatusCancelled:
			counts.Cancelled++
		case model.StatusQueued:
			counts.Queued++
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	breakdown := make([]model.CategoryBreakdown, 0, len(names))
	for _, name := range names {
		breakdown = append(breakdown, model.CategoryBreakdown{Name: name, Counts: *byName[name]})
	}
	return breakdown
}

func sequenceProgress(progress *model.ProgressReport) ([]model.SequenceStep, *model.OverallDisplay) {
	steps := make([]model.SequenceStep, 0, len(progress.Steps))
	for _, step := range progress.Steps {
		steps = append(steps, model.SequenceStep{
			Order:    step.SequenceOrder,
			Status:   step.Status,
			Datasets: step.Datasets,
			Counts:   step.Counts,
		})
	}
	overall := &model.OverallDisplay{
		Completed: progress.Overall.Completed,
		Total:     progress.Overall.Total,
		Fraction:  progress.Overall.Fraction,
		Display:   fmt.Sprintf("%d of %d", progress.Overall.Completed, progress.Overall.Total),
	}
	return steps, overall
}

// deriveBatchStatus applies the fixed precedence: failures trump running,
// running trumps completion checks. An empty batch (total 0, nothing
// succeeded) falls through to IN_PROGRESS.
func deriveBatchStatus(s model.Summary) string {
	switch {
	case s.Failed > 0:
		return model.BatchPartialFailure
	case s.Running > 0:
		return model.BatchRunning
	case s.Success == s.TotalDatasets && s.TotalDatasets > 0:
		return model.BatchSuccess
	case s.Success == 0 && s.TotalDatasets > 0:
		return model.BatchNotStarted
	default:
		return model.BatchInProgress
	}
}

func failureDetails(rows []model.StatusRow) []model.Failure {
	var failures []model.Failure
	for _, row := range rows {
		if row.Status != model.StatusFailed {
			continue
		}
		failures = append(failures, model.Failure{
			DatasetID:       row.DatasetID,
			RunID:           row.RunID,
			ProcessingType:  row.ProcessingType,
			CreatedDate:     row.CreatedDate,
			UpdatedDate:     row.UpdatedDate,
			DurationMinutes: durationMinutes(row.CreatedDate, row.UpdatedDate),
		})
	}
	return failures
}

func detectAnomalies(rows []model.StatusRow) []model.Anomaly {
	type sample struct {
		datasetID string
		runID     string
		minutes   int
	}
	var samples []sample
	for _, row := range rows {
		if row.Status != model.StatusSuccess {
			continue
		}
		if d := durationMinutes(row.CreatedDate, row.UpdatedDate); d != nil {
			samples = append(samples, sample{row.DatasetID, row.RunID, *d})
		}
	}
	if len(samples) < 3 {
		return nil
	}

	values := make([]int, 0, len(samples))
	for _, s := range samples {
		values = append(values, s.minutes)
	}
	sort.Ints(values)
	median := values[len(values)/2]
	if median == 0 {
		return nil
	}

	threshold := float64(median) * durationAnomalyFactor
	var anomalies []model.Anomaly
	for _, s := range samples {
		if float64(s.minutes) > threshold {
			anomalies = append(anomalies, model.Anomaly{
				DatasetID:       s.datasetID,
				RunID:           s.runID,
				DurationMinutes: s.minutes,
				MedianMinutes:   median,
				Factor:          math.Round(float64(s.minutes)/float64(median)*10) / 10,
			})
		}
	}
	return anomalies
}

func analyzeSlices(report *model.SliceReport, target *model.DatasetDef) *model.SliceAnalysis {
	sa := &model.SliceAnalysis{}
	if target != nil {
		sa.DatasetID = target.DatasetID
	}
	for _, pattern := range report.Patterns {
		run := report.Slices[pattern]
		status := run.Status
		if status == "" {
			status = model.StatusNotStarted
		}
		sa.Slices = append(sa.Slices, model.SliceEntry{
			Name:            pattern,
			Status:          status,
			RunID:           run.RunID,
			CreatedDate:     run.CreatedDate,
			UpdatedDate:     run.UpdatedDate,
			TotalRuns:       run.TotalRuns,
			DurationMinutes: durationMinutes(run.CreatedDate, run.UpdatedDate),
		})
		sa.Summary.Total++
		switch status {
		case model.StatusSuccess:
			sa.Summary.Success++
		case model.StatusFailed, model.StatusCancelled:
			sa.Summary.Failed++
		case model.StatusRunning, model.StatusQueued:
			sa.Summary.Running++
		default:
			sa.Summary.NotStarted++
		}
	}
	return sa
}

// timestampLayouts covers the formats the warehouse emits.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// durationMinutes computes whole minutes between two timestamp strings,
// clamped to >= 0. Missing or unparsable input yields nil, never an error.
func durationMinutes(created, updated string) *int {
	if created == "" || updated == "" {
		return nil
	}
	from, ok := parseTimestamp(created)
	if !ok {
		return nil
	}
	to, ok := parseTimestamp(updated)
	if !ok {
		return nil
	}
	minutes := int(math.Floor(to.Sub(from).Seconds() / 60))
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

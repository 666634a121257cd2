package turn

import (
	"context"
	"fmt"

	"github.com/batchwatch-poc/server/internal/agent/analyze"
	"github.com/batchwatch-poc/server/internal/agent/model"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

const maxSuggestions = 5

func analyzeState(st *model.ConversationState) *model.Analysis {
	return analyze.Analyze(analyze.Input{
		Intent:        st.Intent,
		Results:       st.QueryResults,
		Definition:    st.BatchDefinition,
		RCA:           st.RCAFindings,
		TargetDataset: st.TargetDataset,
	})
}

// respond is the terminal stage: it turns whatever the turn accumulated —
// an analysis, a task report, a placeholder, or an error — into the
// user-facing reply, and appends it to the conversation history.
func (o *Orchestrator) respond(ctx context.Context, st *model.ConversationState) {
	switch {
	case st.Error != "":
		// Specific but apologetic; raw collaborator errors are already
		// embedded in the single explanatory sentence.
		o.finishTurn(st, fmt.Sprintf("I ran into an issue: %s", st.Error), errorSuggestions())
		return

	case st.ResponseText != "":
		// Placeholder attached by the classifier (prediction, general_query).
		o.finishTurn(st, st.ResponseText, st.SuggestedQueries)
		return

	case st.Intent == model.IntentOutOfScope:
		o.finishTurn(st, outOfScopeText, outOfScopeSuggestions())
		return
	}

	st.StructuredData = buildStructuredData(st)

	result, err := o.synthesizer.Synthesize(ctx, st)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", st.ConversationID).Msg("Response synthesis failed")
		o.finishTurn(st, fallbackText(st), defaultSuggestions(st))
		return
	}
	o.finishTurn(st, result.Text, result.SuggestedQueries)
}

func (o *Orchestrator) finishTurn(st *model.ConversationState, text string, suggestions []string) {
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	st.ResponseText = text
	st.SuggestedQueries = suggestions
	st.Messages = append(st.Messages, model.Message{Role: model.RoleAssistant, Content: text})
}

func buildStructuredData(st *model.ConversationState) *model.StructuredData {
	switch st.Intent {
	case model.IntentStatusCheck, model.IntentRCADrilldown:
		if st.Analysis == nil {
			return nil
		}
		payloadType := model.StructuredBatchStatus
		if st.Intent == model.IntentRCADrilldown {
			payloadType = model.StructuredRCAAnalysis
		}
		summary := st.Analysis.Summary
		return &model.StructuredData{
			Type:             payloadType,
			BatchName:        st.BatchName,
			BusinessDate:     st.BusinessDate,
			ProcessingType:   st.ProcessingType,
			Summary:          &summary,
			SequenceProgress: st.Analysis.SequenceProgress,
			Failures:         st.Analysis.Failures,
		}

	case model.IntentTaskDetail:
		if st.QueryResults == nil || st.QueryResults.TaskDetails == nil {
			return nil
		}
		return &model.StructuredData{
			Type:        model.StructuredTaskDetails,
			RunID:       st.QueryResults.RunID,
			Tasks:       st.QueryResults.TaskDetails.Tasks,
			TaskSummary: st.QueryResults.TaskDetails.Summary,
		}
	}
	return nil
}

const outOfScopeText = "I'm BatchWatch, a batch monitoring assistant. I can help with:\n" +
	"- Checking batch status\n" +
	"- Investigating failures (RCA)\n" +
	"- Viewing task-level details for specific runs\n\n" +
	"Try asking about a specific batch like Derivatives, 6G, or SNU."

func outOfScopeSuggestions() []string {
	return []string{
		"How is derivatives doing today?",
		"What is the status of 6G?",
		"Show me SNU status",
	}
}

func errorSuggestions() []string {
	return []string{
		"Try asking about a specific batch: derivatives, 6G, SNU",
		"What batches can you monitor?",
	}
}

func defaultSuggestions(st *model.ConversationState) []string {
	if st.BatchName == "" {
		return []string{
			"How is derivatives doing today?",
			"What is the status of 6G?",
		}
	}
	return []string{
		fmt.Sprintf("What failed in %s?", st.BatchName),
		"Show me the task details for the failed run",
		fmt.Sprintf("How long did %s take last week?", st.BatchName),
	}
}

// fallbackText renders a bare numeric summary when synthesis is unavailable.
func fallbackText(st *model.ConversationState) string {
	batch := st.BatchName
	if batch == "" {
		batch = "the batch"
	}
	bdate := st.BusinessDate
	if bdate == "" {
		bdate = "today"
	}
	if st.Analysis != nil {
		s := st.Analysis.Summary
		return fmt.Sprintf("%s for %s: %d succeeded, %d failed, %d running, %d not started (out of %d total datasets).",
			batch, bdate, s.Success, s.Failed, s.Running, s.NotStarted, s.TotalDatasets)
	}
	return fmt.Sprintf("Retrieved data for %s on %s.", batch, bdate)
}

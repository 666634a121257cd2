package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"intent": "status_check"}`, `{"intent": "status_check"}`},
		{"json fence", "```json\n{\"intent\": \"status_check\"}\n```", `{"intent": "status_check"}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading whitespace", "  \n```json\n{}\n```\n", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdownFences(tt.in))
		})
	}
}

func TestParseClassification(t *testing.T) {
	raw := "```json\n" + `{
  "intent": "status_check",
  "batch_name": "derivatives",
  "business_date": "2026-02-21",
  "processing_type": "prelim",
  "dataset_ref": null,
  "slice_ref": "EMEA"
}` + "\n```"

	cls, err := parseClassification(raw)
	require.NoError(t, err)

	assert.Equal(t, model.IntentStatusCheck, cls.Intent)
	assert.Equal(t, "derivatives", cls.BatchName)
	assert.Equal(t, "2026-02-21", cls.BusinessDate)
	assert.Equal(t, "PRELIM", cls.ProcessingType)
	assert.Empty(t, cls.DatasetRef)
	assert.Equal(t, "EMEA", cls.SliceRef)
}

func TestParseClassificationUnknownIntent(t *testing.T) {
	cls, err := parseClassification(`{"intent": "make_coffee"}`)
	require.NoError(t, err)
	assert.Equal(t, model.IntentOutOfScope, cls.Intent)
}

func TestParseClassificationNonJSON(t *testing.T) {
	_, err := parseClassification("I think the user wants a status check.")
	assert.Error(t, err)
}

func TestAttachPlaceholders(t *testing.T) {
	pred := &model.Classification{Intent: model.IntentPrediction}
	attachPlaceholders(pred)
	assert.Contains(t, pred.ResponseText, "future release")
	assert.NotEmpty(t, pred.SuggestedQueries)

	general := &model.Classification{Intent: model.IntentGeneralQuery}
	attachPlaceholders(general)
	assert.Contains(t, general.ResponseText, "future release")

	status := &model.Classification{Intent: model.IntentStatusCheck}
	attachPlaceholders(status)
	assert.Empty(t, status.ResponseText, "data-path intents carry no placeholder")
}

func TestParseSynthesis(t *testing.T) {
	result := parseSynthesis("```json\n" + `{"text": "All good.", "suggested_queries": ["What failed?"]}` + "\n```")
	assert.Equal(t, "All good.", result.Text)
	assert.Equal(t, []string{"What failed?"}, result.SuggestedQueries)
}

func TestParseSynthesisFallsBackToRawText(t *testing.T) {
	result := parseSynthesis("The batch looks healthy today.")
	assert.Equal(t, "The batch looks healthy today.", result.Text)
	assert.Empty(t, result.SuggestedQueries)
}

func TestBuildContextIncludesPopulatedSections(t *testing.T) {
	st := &model.ConversationState{
		Intent:       model.IntentStatusCheck,
		BatchName:    "DERIVATIVES",
		BusinessDate: "2026-02-21",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "how is derivatives?"},
		},
		Analysis: &model.Analysis{BatchStatus: model.BatchRunning},
	}

	ctx := buildContext(st)
	assert.Contains(t, ctx, "Intent: status_check")
	assert.Contains(t, ctx, "Batch: DERIVATIVES")
	assert.Contains(t, ctx, "Analysis:")
	assert.Contains(t, ctx, "User Question: how is derivatives?")
	assert.NotContains(t, ctx, "RCA Findings:", "empty sections stay out of the prompt")
}

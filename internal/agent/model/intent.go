package model

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentStatusCheck  Intent = "status_check"
	IntentRCADrilldown Intent = "rca_drilldown"
	IntentTaskDetail   Intent = "task_detail"
	IntentPrediction   Intent = "prediction"
	IntentGeneralQuery Intent = "general_query"
	IntentOutOfScope   Intent = "out_of_scope"
)

// ParseIntent maps a raw classifier label to a known Intent.
// Unknown labels degrade to IntentOutOfScope rather than failing the turn.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentStatusCheck, IntentRCADrilldown, IntentTaskDetail,
		IntentPrediction, IntentGeneralQuery, IntentOutOfScope:
		return Intent(s)
	}
	return IntentOutOfScope
}

// Classification is the structured output of the intent-classification
// collaborator: one intent plus whatever entities were extracted from the
// message. Empty string means "not mentioned".
type Classification struct {
	Intent         Intent `json:"intent"`
	BatchName      string `json:"batch_name,omitempty"`
	BusinessDate   string `json:"business_date,omitempty"`
	ProcessingType string `json:"processing_type,omitempty"`
	DatasetRef     string `json:"dataset_ref,omitempty"`
	SliceRef       string `json:"slice_ref,omitempty"`

	// Precomputed response for intents that never reach the data stages
	// (prediction, general_query, out_of_scope).
	ResponseText     string   `json:"response_text,omitempty"`
	SuggestedQueries []string `json:"suggested_queries,omitempty"`
}

// SynthesisResult is the structured output of the response-synthesis
// collaborator.
type SynthesisResult struct {
	Text             string   `json:"text"`
	SuggestedQueries []string `json:"suggested_queries,omitempty"`
}

package model

// Message roles within a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is one dispatched query, recorded in call order within a turn.
type ToolCall struct {
	Tool       string            `json:"tool"`
	Input      map[string]string `json:"input"`
	DurationMS int64             `json:"duration_ms"`
}

// ConversationState is the single mutable record threaded through every
// stage of a turn, persisted per conversation id between turns.
//
// Durable fields survive across turns unless the current turn's input
// overrides them. Ephemeral fields are reset by the turn context manager
// before any other stage runs; nothing from the previous turn may leak
// through them.
type ConversationState struct {
	ConversationID string `json:"conversation_id"`

	// Conversation history, append-only across turns.
	Messages []Message `json:"messages,omitempty"`

	// Durable context.
	BatchName       string           `json:"batch_name,omitempty"`
	BatchDefinition *BatchDefinition `json:"batch_definition,omitempty"`
	DatasetIDs      []string         `json:"dataset_ids,omitempty"`
	BusinessDate    string           `json:"business_date,omitempty"`
	ProcessingType  string           `json:"processing_type,omitempty"`

	// Ephemeral, valid only within the current turn.
	Intent           Intent          `json:"intent,omitempty"`
	DatasetRef       string          `json:"dataset_ref,omitempty"`
	TargetDataset    *DatasetDef     `json:"target_dataset,omitempty"`
	SliceRef         string          `json:"slice_ref,omitempty"`
	ResolvedSlices   []string        `json:"resolved_slices,omitempty"`
	QueryResults     *QueryResults   `json:"query_results,omitempty"`
	RCAFindings      *RCAFindings    `json:"rca_findings,omitempty"`
	Analysis         *Analysis       `json:"analysis,omitempty"`
	ResponseText     string          `json:"response_text,omitempty"`
	StructuredData   *StructuredData `json:"structured_data,omitempty"`
	SuggestedQueries []string        `json:"suggested_queries,omitempty"`
	ToolCalls        []ToolCall      `json:"tool_calls,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// LatestUserMessage returns the content of the most recent user message, or
// empty if there is none.
func (s *ConversationState) LatestUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// RecordToolCall appends one entry to the per-turn tool call log.
func (s *ConversationState) RecordToolCall(tool string, input map[string]string, durationMS int64) {
	s.ToolCalls = append(s.ToolCalls, ToolCall{Tool: tool, Input: input, DurationMS: durationMS})
}

// TurnInput is the explicit per-turn input: the user message plus any
// durable-field overrides supplied by the caller.
type TurnInput struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	BusinessDate   string `json:"business_date,omitempty"`
	ProcessingType string `json:"processing_type,omitempty"`
}

// TurnResult is what one processed turn hands back to the caller.
type TurnResult struct {
	ConversationID   string          `json:"conversation_id"`
	Text             string          `json:"text"`
	StructuredData   *StructuredData `json:"structured_data,omitempty"`
	SuggestedQueries []string        `json:"suggested_queries,omitempty"`
	ToolCalls        []ToolCall      `json:"tool_calls,omitempty"`
	IsError          bool            `json:"is_error"`
}

// StructuredData is the typed response payload consumed by presentation.
// Exactly one shape is populated per turn, keyed by Type.
type StructuredData struct {
	Type             string         `json:"type"`
	BatchName        string         `json:"batch_name,omitempty"`
	BusinessDate     string         `json:"business_date,omitempty"`
	ProcessingType   string         `json:"processing_type,omitempty"`
	Summary          *Summary       `json:"summary,omitempty"`
	SequenceProgress []SequenceStep `json:"sequence_progress,omitempty"`
	Failures         []Failure      `json:"failures,omitempty"`
	RunID            string         `json:"run_id,omitempty"`
	Tasks            []TaskRow      `json:"tasks,omitempty"`
	TaskSummary      map[string]int `json:"task_summary,omitempty"`
}

// Structured payload types.
const (
	StructuredBatchStatus = "batch_status"
	StructuredRCAAnalysis = "rca_analysis"
	StructuredTaskDetails = "task_details"
)

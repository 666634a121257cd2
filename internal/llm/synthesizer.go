package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/batchwatch-poc/server/internal/agent/model"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

//go:embed template/synthesizer_prompt.txt
var synthesizerSystemPrompt string

// Synthesizer turns the per-turn analysis into the user-facing reply.
type Synthesizer struct {
	client *genai.Client
	cfg    model.SynthesizerModelConfig
}

func NewSynthesizer(client *genai.Client, cfg model.SynthesizerModelConfig) (*Synthesizer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm: gemini client must not be nil")
	}
	return &Synthesizer{client: client, cfg: cfg}, nil
}

// Synthesize renders the accumulated turn state into natural language. A
// reply that is not the expected JSON envelope degrades to the raw text
// rather than failing the turn.
func (s *Synthesizer) Synthesize(ctx context.Context, st *model.ConversationState) (*model.SynthesisResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromText("Context:\n"+buildContext(st), genai.RoleUser),
	}

	raw, err := generate(ctx, s.client, s.cfg.Model, s.cfg.Temperature, s.cfg.MaxTokens,
		synthesizerSystemPrompt, contents)
	if err != nil {
		logx.Error().Err(err).Msg("Synthesizer model call failed")
		return nil, err
	}

	return parseSynthesis(raw), nil
}

type synthesisPayload struct {
	Text             string   `json:"text"`
	SuggestedQueries []string `json:"suggested_queries"`
}

func parseSynthesis(raw string) *model.SynthesisResult {
	cleaned := stripMarkdownFences(raw)

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil || payload.Text == "" {
		logx.Warn().Str("raw", snippet(raw)).Msg("Synthesizer returned non-JSON, using raw text")
		return &model.SynthesisResult{Text: strings.TrimSpace(cleaned)}
	}
	return &model.SynthesisResult{
		Text:             payload.Text,
		SuggestedQueries: payload.SuggestedQueries,
	}
}

// buildContext serializes what the turn accumulated into a compact prompt
// section. Only populated parts are included.
func buildContext(st *model.ConversationState) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Intent: %s", st.Intent))
	batch := st.BatchName
	if batch == "" {
		batch = "unknown"
	}
	parts = append(parts, fmt.Sprintf("Batch: %s", batch))
	parts = append(parts, fmt.Sprintf("Business Date: %s", st.BusinessDate))
	if st.ProcessingType != "" {
		parts = append(parts, fmt.Sprintf("Processing Type: %s", st.ProcessingType))
	}

	if st.Analysis != nil {
		parts = append(parts, "\nAnalysis:\n"+marshalIndent(st.Analysis))
	}
	if st.QueryResults != nil && st.QueryResults.TaskDetails != nil {
		parts = append(parts, "\nTask Details:\n"+marshalIndent(st.QueryResults.TaskDetails))
	}
	if st.RCAFindings != nil {
		parts = append(parts, "\nRCA Findings:\n"+marshalIndent(st.RCAFindings))
	}
	if msg := st.LatestUserMessage(); msg != "" {
		parts = append(parts, "\nUser Question: "+msg)
	}

	return strings.Join(parts, "\n")
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

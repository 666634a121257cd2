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

//go:embed template/classifier_prompt.txt
var classifierSystemPrompt string

const (
	predictionPlaceholder = "Runtime prediction is coming in a future release. " +
		"For now, I can show you historical runtimes - just ask!"
	generalQueryPlaceholder = "Ad-hoc analytical queries are coming in a future release. " +
		"For now, I can check current batch status, investigate failures, " +
		"or show task-level details for specific runs."
)

// Classifier determines the user's intent and extracts query entities.
type Classifier struct {
	client *genai.Client
	cfg    model.ClassifierModelConfig
}

func NewClassifier(client *genai.Client, cfg model.ClassifierModelConfig) (*Classifier, error) {
	if client == nil {
		return nil, fmt.Errorf("llm: gemini client must not be nil")
	}
	return &Classifier{client: client, cfg: cfg}, nil
}

// Classify runs the conversation through the classifier model and returns
// the parsed classification. The businessDate anchors relative date
// references ("today", "yesterday") in the prompt.
func (c *Classifier) Classify(ctx context.Context, messages []model.Message, businessDate string) (*model.Classification, error) {
	prompt := strings.ReplaceAll(classifierSystemPrompt, "{today}", businessDate)

	raw, err := generate(ctx, c.client, c.cfg.Model, c.cfg.Temperature, c.cfg.MaxTokens,
		prompt, conversationContents(messages))
	if err != nil {
		logx.Error().Err(err).Msg("Classifier model call failed")
		return nil, err
	}

	cls, err := parseClassification(raw)
	if err != nil {
		logx.Warn().Str("raw", snippet(raw)).Msg("Classifier returned non-JSON")
		return nil, err
	}

	attachPlaceholders(cls)
	return cls, nil
}

// classificationPayload is the raw JSON shape the model returns; null
// entities decode to nil pointers.
type classificationPayload struct {
	Intent         string  `json:"intent"`
	BatchName      *string `json:"batch_name"`
	BusinessDate   *string `json:"business_date"`
	ProcessingType *string `json:"processing_type"`
	DatasetRef     *string `json:"dataset_ref"`
	SliceRef       *string `json:"slice_ref"`
}

func parseClassification(raw string) (*model.Classification, error) {
	cleaned := stripMarkdownFences(raw)

	var payload classificationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	return &model.Classification{
		Intent:         model.ParseIntent(payload.Intent),
		BatchName:      deref(payload.BatchName),
		BusinessDate:   deref(payload.BusinessDate),
		ProcessingType: strings.ToUpper(deref(payload.ProcessingType)),
		DatasetRef:     deref(payload.DatasetRef),
		SliceRef:       deref(payload.SliceRef),
	}, nil
}

// attachPlaceholders sets canned responses for the intents that have no
// implemented data path yet; the turn router short-circuits on them.
func attachPlaceholders(cls *model.Classification) {
	switch cls.Intent {
	case model.IntentPrediction:
		cls.ResponseText = predictionPlaceholder
		cls.SuggestedQueries = []string{
			"How long did this batch take last week?",
			"What is the current status instead?",
		}
	case model.IntentGeneralQuery:
		cls.ResponseText = generalQueryPlaceholder
		cls.SuggestedQueries = []string{
			"What is the current status of this batch?",
			"What failed today?",
			"Show me historical runs for the last 5 days",
		}
	}
}

func conversationContents(messages []model.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Package turn drives one request/response cycle of the batch-monitoring
// agent: load the conversation snapshot, reset per-turn state, classify the
// message, step the stage router until respond, synthesize the reply, and
// persist the snapshot wholesale.
//
// A turn runs synchronously, stage by stage. Turns for different
// conversation ids may run concurrently; the caller must never run two
// turns for the same id at once — the in-flight turn owns its state
// exclusively.
package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/batchwatch-poc/server/internal/agent/model"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// Classifier is the intent-classification collaborator.
type Classifier interface {
	Classify(ctx context.Context, messages []model.Message, businessDate string) (*model.Classification, error)
}

// Synthesizer is the response-synthesis collaborator.
type Synthesizer interface {
	Synthesize(ctx context.Context, st *model.ConversationState) (*model.SynthesisResult, error)
}

// Catalog resolves a user-facing batch name to its definition.
type Catalog interface {
	Definition(ctx context.Context, name string) (*model.BatchDefinition, error)
}

// Warehouse executes the fixed set of status queries.
type Warehouse interface {
	BatchStatus(ctx context.Context, q model.StatusQuery) (*model.StatusReport, error)
	BatchProgress(ctx context.Context, def *model.BatchDefinition, businessDate, processingType string) (*model.ProgressReport, error)
	SliceStatus(ctx context.Context, q model.SliceQuery) (*model.SliceReport, error)
	TaskDetails(ctx context.Context, runID string, stateFilter []string) (*model.TaskReport, error)
}

// StateStore persists one ConversationState snapshot per conversation id.
// Load returns (nil, nil) for an unknown id.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (*model.ConversationState, error)
	Save(ctx context.Context, st *model.ConversationState) error
}

// Orchestrator wires the collaborators together and processes turns.
type Orchestrator struct {
	classifier  Classifier
	synthesizer Synthesizer
	catalog     Catalog
	warehouse   Warehouse
	store       StateStore
}

func NewOrchestrator(c Classifier, s Synthesizer, cat Catalog, wh Warehouse, store StateStore) (*Orchestrator, error) {
	if c == nil {
		return nil, errors.New("turn: classifier must not be nil")
	}
	if s == nil {
		return nil, errors.New("turn: synthesizer must not be nil")
	}
	if cat == nil {
		return nil, errors.New("turn: catalog must not be nil")
	}
	if wh == nil {
		return nil, errors.New("turn: warehouse must not be nil")
	}
	if store == nil {
		return nil, errors.New("turn: state store must not be nil")
	}
	return &Orchestrator{classifier: c, synthesizer: s, catalog: cat, warehouse: wh, store: store}, nil
}

// ProcessTurn runs one turn end to end. The returned error covers only
// infrastructure failures around the turn (state load/save); anything that
// goes wrong inside a stage surfaces through the response itself.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	if in.ConversationID == "" {
		return nil, errors.New("turn: conversation id must not be empty")
	}

	prev, err := o.store.Load(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}

	st := BeginTurn(prev, in)
	o.classify(ctx, st)

	for stage := Next(StageTurnStart, st); stage != StageRespond; stage = Next(stage, st) {
		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("stage", stage.String()).
			Str("intent", string(st.Intent)).
			Msg("Running stage")
		switch stage {
		case StageResolveBatch:
			o.resolveBatch(ctx, st)
		case StageFetchData:
			o.fetchData(ctx, st)
		case StageAnalyze:
			o.analyzeResults(st)
		}
	}

	o.respond(ctx, st)

	if err := o.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save conversation state: %w", err)
	}

	return &model.TurnResult{
		ConversationID:   st.ConversationID,
		Text:             st.ResponseText,
		StructuredData:   st.StructuredData,
		SuggestedQueries: st.SuggestedQueries,
		ToolCalls:        st.ToolCalls,
		IsError:          st.Error != "",
	}, nil
}

// classify calls the classification collaborator and folds its output into
// the turn state. Durable fields are only overwritten when the classifier
// actually extracted a replacement.
func (o *Orchestrator) classify(ctx context.Context, st *model.ConversationState) {
	if len(st.Messages) == 0 {
		st.Intent = model.IntentOutOfScope
		st.Error = "No message provided"
		return
	}

	today := st.BusinessDate
	if today == "" {
		today = time.Now().Format("2006-01-02")
	}

	cls, err := o.classifier.Classify(ctx, st.Messages, today)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", st.ConversationID).Msg("Intent classification failed")
		st.Intent = model.IntentOutOfScope
		st.Error = fmt.Sprintf("I could not understand the request: %v", err)
		return
	}

	st.Intent = cls.Intent
	logx.Info().
		Str("conversation_id", st.ConversationID).
		Str("intent", string(cls.Intent)).
		Msg("Classified intent")

	if cls.BatchName != "" {
		st.BatchName = cls.BatchName
	}
	// Business date preference: caller-supplied, then classifier, then today.
	if st.BusinessDate == "" {
		if cls.BusinessDate != "" {
			st.BusinessDate = cls.BusinessDate
		} else {
			st.BusinessDate = today
		}
	}
	if st.ProcessingType == "" && cls.ProcessingType != "" {
		st.ProcessingType = cls.ProcessingType
	}
	st.DatasetRef = cls.DatasetRef
	st.SliceRef = cls.SliceRef

	// Placeholder responses for intents that never reach the data stages.
	if cls.ResponseText != "" {
		st.ResponseText = cls.ResponseText
		st.SuggestedQueries = cls.SuggestedQueries
	}
}

package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

func TestNextErrorAlwaysRoutesToRespond(t *testing.T) {
	st := &model.ConversationState{Intent: model.IntentStatusCheck, Error: "boom"}
	for _, stage := range []Stage{StageTurnStart, StageResolveBatch, StageFetchData, StageAnalyze} {
		assert.Equal(t, StageRespond, Next(stage, st), "from %s", stage)
	}
}

func TestNextStatusCheckPath(t *testing.T) {
	st := &model.ConversationState{Intent: model.IntentStatusCheck}
	assert.Equal(t, StageResolveBatch, Next(StageTurnStart, st))
	assert.Equal(t, StageFetchData, Next(StageResolveBatch, st))
	assert.Equal(t, StageAnalyze, Next(StageFetchData, st))
	assert.Equal(t, StageRespond, Next(StageAnalyze, st))
}

func TestNextRCADrilldownPath(t *testing.T) {
	st := &model.ConversationState{Intent: model.IntentRCADrilldown}
	assert.Equal(t, StageResolveBatch, Next(StageTurnStart, st))
	assert.Equal(t, StageFetchData, Next(StageResolveBatch, st))
	assert.Equal(t, StageAnalyze, Next(StageFetchData, st))
}

func TestNextTaskDetailSkipsResolutionAndAnalysis(t *testing.T) {
	st := &model.ConversationState{Intent: model.IntentTaskDetail}
	assert.Equal(t, StageFetchData, Next(StageTurnStart, st))
	assert.Equal(t, StageRespond, Next(StageFetchData, st))
}

func TestNextShortCircuitIntents(t *testing.T) {
	for _, intent := range []model.Intent{model.IntentPrediction, model.IntentGeneralQuery, model.IntentOutOfScope} {
		st := &model.ConversationState{Intent: intent}
		assert.Equal(t, StageRespond, Next(StageTurnStart, st), "intent %s", intent)
	}
}

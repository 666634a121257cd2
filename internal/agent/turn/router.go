package turn

import "github.com/batchwatch-poc/server/internal/agent/model"

// Stage is one step of the per-turn pipeline.
type Stage int

const (
	StageTurnStart Stage = iota
	StageResolveBatch
	StageFetchData
	StageAnalyze
	StageRespond
)

func (s Stage) String() string {
	switch s {
	case StageTurnStart:
		return "turn_start"
	case StageResolveBatch:
		return "resolve_batch"
	case StageFetchData:
		return "fetch_data"
	case StageAnalyze:
		return "analyze"
	default:
		return "respond"
	}
}

// Next decides which stage runs after current. An error set by any stage
// routes straight to respond — that check has precedence over every
// intent-based rule, so stages never need to know about routing. Respond is
// terminal; no stage is ever retried.
func Next(current Stage, st *model.ConversationState) Stage {
	if st.Error != "" {
		return StageRespond
	}

	switch current {
	case StageTurnStart:
		switch st.Intent {
		case model.IntentStatusCheck, model.IntentRCADrilldown:
			return StageResolveBatch
		case model.IntentTaskDetail:
			// Task inspection works off a run id, not a batch definition.
			return StageFetchData
		default:
			// prediction, general_query, out_of_scope: the classifier already
			// attached a placeholder response.
			return StageRespond
		}

	case StageResolveBatch:
		switch st.Intent {
		case model.IntentStatusCheck, model.IntentRCADrilldown:
			return StageFetchData
		default:
			return StageRespond
		}

	case StageFetchData:
		switch st.Intent {
		case model.IntentStatusCheck, model.IntentRCADrilldown:
			return StageAnalyze
		default:
			// task_detail skips analysis; the raw task report is the answer.
			return StageRespond
		}

	default:
		return StageRespond
	}
}

package turn

import (
	"strings"

	"github.com/batchwatch-poc/server/internal/agent/model"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// BeginTurn produces the working state for a new turn from the previous
// turn's snapshot and the caller's explicit input.
//
// Every ephemeral field is dropped outright, including a stale error, so a
// prior turn's failure cannot short-circuit this one. Durable fields carry
// forward unless the input supplies a replacement. This never fails and has
// no side effects beyond the returned state.
func BeginTurn(prev *model.ConversationState, in model.TurnInput) *model.ConversationState {
	st := &model.ConversationState{ConversationID: in.ConversationID}

	if prev != nil {
		st.Messages = prev.Messages
		st.BatchName = prev.BatchName
		st.BatchDefinition = prev.BatchDefinition
		st.DatasetIDs = prev.DatasetIDs
		st.BusinessDate = prev.BusinessDate
		st.ProcessingType = prev.ProcessingType

		if prev.Error != "" {
			logx.Debug().
				Str("conversation_id", in.ConversationID).
				Msg("Cleared error from previous turn")
		}
	}

	if v := strings.TrimSpace(in.BusinessDate); v != "" {
		st.BusinessDate = v
	}
	if v := strings.TrimSpace(in.ProcessingType); v != "" {
		st.ProcessingType = v
	}

	if msg := strings.TrimSpace(in.Message); msg != "" {
		st.Messages = append(st.Messages, model.Message{Role: model.RoleUser, Content: msg})
	}

	return st
}

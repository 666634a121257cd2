package turn

import (
	"context"
	"fmt"
	"time"

	"github.com/batchwatch-poc/server/internal/agent/model"
	"github.com/batchwatch-poc/server/internal/agent/resolve"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// resolveBatch turns the conversational batch name into a catalog
// definition and, when the user named a dataset or slice, pins down the
// concrete targets within it.
func (o *Orchestrator) resolveBatch(ctx context.Context, st *model.ConversationState) {
	if st.BatchName == "" {
		st.Error = "No batch name found in the conversation. Which batch would you like to check?"
		return
	}

	t0 := time.Now()
	def, err := o.catalog.Definition(ctx, st.BatchName)
	if err != nil {
		logx.Warn().Err(err).Str("batch_name", st.BatchName).Msg("Batch resolution failed")
		st.Error = fmt.Sprintf("Failed to resolve batch '%s': %v", st.BatchName, err)
		return
	}
	st.RecordToolCall("resolve_batch", map[string]string{"batch_name": st.BatchName}, time.Since(t0).Milliseconds())

	st.BatchName = def.DisplayName
	st.BatchDefinition = def
	st.DatasetIDs = def.DatasetIDs()

	logx.Info().
		Str("batch", def.EssentialName).
		Int("datasets", len(st.DatasetIDs)).
		Msg("Resolved batch definition")

	if st.DatasetRef != "" {
		st.TargetDataset = resolve.MatchDataset(def.Datasets, st.DatasetRef)
		if st.TargetDataset == nil {
			// An unknown dataset reference narrows nothing; batch-level
			// analysis still answers the question.
			logx.Warn().
				Str("dataset_ref", st.DatasetRef).
				Str("batch", def.EssentialName).
				Msg("Dataset reference did not match any dataset")
		}
	}
	if st.TargetDataset != nil {
		st.ResolvedSlices = resolve.EffectiveSlices(st.TargetDataset, st.SliceRef)
	}
}

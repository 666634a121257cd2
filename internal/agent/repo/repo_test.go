package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

func sampleState() *model.ConversationState {
	return &model.ConversationState{
		ConversationID: "conv-1",
		BatchName:      "DERIVATIVES",
		BusinessDate:   "2026-02-21",
		DatasetIDs:     []string{"ds-a", "ds-b"},
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "how is derivatives?"},
			{Role: model.RoleAssistant, Content: "All 2 datasets succeeded."},
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState()))

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "DERIVATIVES", loaded.BatchName)
	assert.Len(t, loaded.Messages, 2)
}

func TestMemoryStoreUnknownIDIsNilNil(t *testing.T) {
	store := NewMemoryStateStore()
	loaded, err := store.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStoreIsolatesSnapshots(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleState()))

	first, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	first.BatchName = "MUTATED"
	first.Messages = append(first.Messages, model.Message{Role: model.RoleUser, Content: "and now?"})

	second, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "DERIVATIVES", second.BatchName, "loaded snapshots are copies")
	assert.Len(t, second.Messages, 2)
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleState()))
	require.NoError(t, store.Clear(ctx, "conv-1"))

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStoreSaveOverwritesWholesale(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleState()))

	next := sampleState()
	next.BatchName = "SNU"
	next.Messages = next.Messages[:1]
	require.NoError(t, store.Save(ctx, next))

	loaded, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "SNU", loaded.BatchName)
	assert.Len(t, loaded.Messages, 1)
}

func TestRedisStateKeyFormat(t *testing.T) {
	store := NewRedisStateStore(nil, time.Hour)
	assert.Equal(t, "conversation:conv-1:state", store.stateKey("conv-1"))
}

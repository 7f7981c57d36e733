package memory

import (
	"context"
	"testing"

	"ai-chatstream-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChatHistory(t *testing.T) {
	repo := NewChatHistoryRepository(0)
	ctx := context.Background()
	a := store.SessionKey{UserName: "alice", SessionID: 1}
	b := store.SessionKey{UserName: "alice", SessionID: 2}

	require.NoError(t, repo.Append(ctx, a, store.Turn{Role: store.RoleUser, Content: store.TextContent("q1")}))
	require.NoError(t, repo.Append(ctx, a, store.Turn{Role: store.RoleAssistant, Content: store.TextContent("a1")}))
	require.NoError(t, repo.Append(ctx, b, store.Turn{Role: store.RoleUser, Content: store.TextContent("q2")}))

	turns, err := repo.ReadOrdered(ctx, a)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "a1", turns[1].Content.Text)

	snapshots, err := repo.Snapshots(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, int64(2), snapshots[0].SessionID)
	assert.Equal(t, "q1", snapshots[1].LastMsg)

	require.NoError(t, repo.Delete(ctx, a))
	turns, err = repo.ReadOrdered(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryChatHistoryReadIsStable(t *testing.T) {
	repo := NewChatHistoryRepository(0)
	ctx := context.Background()
	s := store.SessionKey{UserName: "bob", SessionID: 1}

	require.NoError(t, repo.Append(ctx, s, store.Turn{Role: store.RoleUser, Content: store.TextContent("q")}))
	before, err := repo.ReadOrdered(ctx, s)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, s, store.Turn{Role: store.RoleAssistant, Content: store.TextContent("a")}))

	assert.Len(t, before, 1)
}

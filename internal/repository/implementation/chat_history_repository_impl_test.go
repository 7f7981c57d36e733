package implementation

import (
	"context"
	"testing"
	"time"

	"ai-chatstream-be/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisHistory(t *testing.T, ttl time.Duration) (*ChatHistoryRepositoryImpl, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewChatHistoryRepository(rdb, ttl).(*ChatHistoryRepositoryImpl), mr
}

func userTurn(text string) store.Turn {
	return store.Turn{Role: store.RoleUser, Content: store.TextContent(text)}
}

func assistantTurn(text string) store.Turn {
	return store.Turn{Role: store.RoleAssistant, Content: store.TextContent(text), ModelName: "llama3"}
}

func TestChatHistoryAppendKeepsOrderAndDuplicates(t *testing.T) {
	repo, mr := newRedisHistory(t, 0)
	ctx := context.Background()
	session := store.SessionKey{UserName: "alice", SessionID: 100}

	for _, turn := range []store.Turn{userTurn("hi"), assistantTurn("ok"), userTurn("hi"), assistantTurn("ok")} {
		require.NoError(t, repo.Append(ctx, session, turn))
	}

	turns, err := repo.ReadOrdered(ctx, session)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "hi", turns[2].Content.Text)
	assert.Equal(t, store.RoleAssistant, turns[3].Role)
	assert.Equal(t, "llama3", turns[3].ModelName)

	seq, err := mr.Get("chat_history_seq:alice:100")
	require.NoError(t, err)
	assert.Equal(t, "4", seq)
	assert.True(t, mr.Exists("chat_history:alice:100"))
}

func TestChatHistoryMultimodalRoundTrip(t *testing.T) {
	repo, _ := newRedisHistory(t, 0)
	ctx := context.Background()
	session := store.SessionKey{UserName: "alice", SessionID: 1}

	turn := store.Turn{Role: store.RoleUser, Content: store.TurnContent{
		Text:   "what is this?",
		Images: []string{"data:image/png;base64,AAAA"},
	}}
	require.NoError(t, repo.Append(ctx, session, turn))

	turns, err := repo.ReadOrdered(ctx, session)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, turn.Content, turns[0].Content)
}

func TestChatHistoryReadMissingSession(t *testing.T) {
	repo, _ := newRedisHistory(t, 0)

	turns, err := repo.ReadOrdered(context.Background(), store.SessionKey{UserName: "nobody", SessionID: 1})

	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatHistorySnapshots(t *testing.T) {
	repo, _ := newRedisHistory(t, 0)
	ctx := context.Background()

	older := store.SessionKey{UserName: "alice", SessionID: 100}
	newer := store.SessionKey{UserName: "alice", SessionID: 200}
	other := store.SessionKey{UserName: "alice:bob", SessionID: 300}

	require.NoError(t, repo.Append(ctx, older, userTurn("first question")))
	require.NoError(t, repo.Append(ctx, older, assistantTurn("first answer")))
	require.NoError(t, repo.Append(ctx, newer, userTurn("pending question")))
	require.NoError(t, repo.Append(ctx, other, userTurn("not alice")))

	snapshots, err := repo.Snapshots(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, int64(200), snapshots[0].SessionID)
	assert.Equal(t, "pending question", snapshots[0].LastMsg)
	assert.Equal(t, int64(100), snapshots[1].SessionID)
	assert.Equal(t, "first question", snapshots[1].LastMsg)
	assert.Equal(t, "alice", snapshots[1].UserName)
}

func TestChatHistoryDelete(t *testing.T) {
	repo, mr := newRedisHistory(t, 0)
	ctx := context.Background()
	session := store.SessionKey{UserName: "alice", SessionID: 1}

	require.NoError(t, repo.Append(ctx, session, userTurn("hi")))
	require.NoError(t, repo.Delete(ctx, session))

	assert.False(t, mr.Exists("chat_history:alice:1"))
	assert.False(t, mr.Exists("chat_history_seq:alice:1"))

	require.NoError(t, repo.Append(ctx, session, userTurn("again")))
	turns, err := repo.ReadOrdered(ctx, session)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "again", turns[0].Content.Text)
}

func TestChatHistoryTTL(t *testing.T) {
	repo, mr := newRedisHistory(t, time.Hour)
	session := store.SessionKey{UserName: "alice", SessionID: 1}

	require.NoError(t, repo.Append(context.Background(), session, userTurn("hi")))

	assert.Equal(t, time.Hour, mr.TTL("chat_history:alice:1"))
	assert.Equal(t, time.Hour, mr.TTL("chat_history_seq:alice:1"))
}

package service

import (
	"context"
	"testing"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/repository/memory"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog []llm.ModelCatalog

func (c staticCatalog) Models() []llm.ModelCatalog { return c }

func TestChatServiceHistory(t *testing.T) {
	history := memory.NewChatHistoryRepository(0)
	s := NewChatService(history, staticCatalog{})
	ctx := context.Background()
	session := store.SessionKey{UserName: "alice", SessionID: 1718000000}

	require.NoError(t, history.Append(ctx, session, store.Turn{Role: store.RoleUser, Content: store.TextContent("Hi")}))
	require.NoError(t, history.Append(ctx, session, store.Turn{Role: store.RoleAssistant, Content: store.TextContent("Hello!"), ModelName: "qwen"}))

	req := &dto.SessionRequest{UserName: "alice", SessionID: 1718000000}
	record, err := s.Record(ctx, req)
	require.NoError(t, err)
	require.Len(t, record, 2)
	assert.Equal(t, "user", record[0].Role)
	assert.Equal(t, "Hello!", record[1].Content)
	assert.Equal(t, "qwen", record[1].ModelName)

	snaps, err := s.Snapshots(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Hi", snaps[0].LastMsg)

	require.NoError(t, s.Delete(ctx, req))
	record, err = s.Record(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, record)
	assert.NotNil(t, record)
}

func TestChatServiceSnapshotsOfUnknownUser(t *testing.T) {
	s := NewChatService(memory.NewChatHistoryRepository(0), staticCatalog{})

	snaps, err := s.Snapshots(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, snaps)
	assert.Empty(t, snaps)
}

func TestChatServiceModes(t *testing.T) {
	s := NewChatService(memory.NewChatHistoryRepository(0), staticCatalog{
		{Type: llm.ModelTypeOllama, Desc: "local", Names: []string{"qwen2.5:7b"}},
	})

	modes := s.Modes(context.Background())

	require.Len(t, modes, 1)
	assert.Equal(t, "ollama", modes[0].ModelType)
	assert.Equal(t, []string{"qwen2.5:7b"}, modes[0].Names)
}

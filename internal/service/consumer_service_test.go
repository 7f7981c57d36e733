package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-chatstream-be/internal/dto"
	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsumer(db *knowledgeDB, embedder *lengthEmbedder) *consumerService {
	return NewConsumerService(nil, "ingest", fakeFactory{db: db}, embedder, 10, 0, logger.Nop()).(*consumerService)
}

func ingestPayload(fileId, text string) *dto.PublishIngestMessage {
	return &dto.PublishIngestMessage{
		UserName: "alice",
		FileId:   fileId,
		FilePath: "/docs/guide.pdf",
		FileName: "guide.pdf",
		FileType: "application/pdf",
		Text:     text,
	}
}

func TestIngestCreatesKnowledgeAndChunks(t *testing.T) {
	db := &knowledgeDB{}
	cs := newConsumer(db, &lengthEmbedder{})

	require.NoError(t, cs.ingest(context.Background(), ingestPayload("f1", "alpha beta gamma delta")))

	rows, chunks := db.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "f1", rows[0].FileId)
	assert.Equal(t, 10, rows[0].ChunkSize)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, rows[0].Id, c.KnowledgeId)
		assert.Equal(t, "alice", c.UserName)
	}
	assert.Equal(t, "alpha beta gamma delta", joinChunks(chunks))
	assert.Equal(t, 1, db.commits)
}

func joinChunks(chunks []*entity.KnowledgeChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

func TestIngestReplacesChunksOfSameFile(t *testing.T) {
	db := &knowledgeDB{}
	cs := newConsumer(db, &lengthEmbedder{})
	ctx := context.Background()

	require.NoError(t, cs.ingest(ctx, ingestPayload("f1", "first version of the text")))
	require.NoError(t, cs.ingest(ctx, ingestPayload("f2", "second")))

	rows, chunks := db.snapshot()
	require.Len(t, rows, 1, "upserted by file path")
	assert.Equal(t, "f2", rows[0].FileId)
	assert.NotNil(t, rows[0].UpdatedAt)
	require.Len(t, chunks, 1)
	assert.Equal(t, "second", chunks[0].Text)
	assert.Equal(t, "f2", chunks[0].FileId)
}

func TestIngestEmbeddingFailureWritesNothing(t *testing.T) {
	db := &knowledgeDB{}
	cs := newConsumer(db, &lengthEmbedder{err: errors.New("embedder offline")})

	err := cs.ingest(context.Background(), ingestPayload("f1", "some text"))

	require.Error(t, err)
	rows, chunks := db.snapshot()
	assert.Empty(t, rows)
	assert.Empty(t, chunks)
	assert.Zero(t, db.commits)
}

func TestIngestStoreFailureRollsBack(t *testing.T) {
	db := &knowledgeDB{failBulk: errors.New("disk full")}
	cs := newConsumer(db, &lengthEmbedder{})

	err := cs.ingest(context.Background(), ingestPayload("f1", "some text"))

	require.Error(t, err)
	assert.Equal(t, 1, db.rollbacks)
	rows, _ := db.snapshot()
	assert.Empty(t, rows)
}

func TestConsumeFromQueue(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	db := &knowledgeDB{}
	cs := NewConsumerService(pubSub, "ingest", fakeFactory{db: db}, &lengthEmbedder{}, 100, 0, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cs.Consume(ctx))

	payload, err := json.Marshal(ingestPayload("f1", "queued text"))
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish("ingest", message.NewMessage(uuid.NewString(), []byte("{broken"))))
	require.NoError(t, pubSub.Publish("ingest", message.NewMessage(uuid.NewString(), payload)))

	assert.Eventually(t, func() bool {
		rows, _ := db.snapshot()
		return len(rows) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

package nats

import (
	"testing"

	"ai-chatstream-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent("events.knowledge.ingest_requested", []byte(`{"file_path":"/docs/a.pdf"}`))

	require.NoError(t, err)
	assert.Equal(t, events.TypeKnowledgeIngestRequested, event.EventType())
	assert.Equal(t, "/docs/a.pdf", event.Payload()["file_path"])
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := decodeEvent("events.chat.turn_completed", []byte("not json"))

	assert.Error(t, err)
}

package imageqa

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type chatStub struct {
	llm.LLMProvider
	reply string
	err   error
	calls [][]llm.Message
}

func (c *chatStub) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	c.calls = append(c.calls, history)
	return c.reply, c.err
}

func imageCandidate(t *testing.T, id string) store.Candidate {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(pixelPNG)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), id+".png")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return store.Candidate{
		ID:     id,
		Text:   "original " + id,
		Source: store.SourceMeta{FilePath: path, ImageType: store.ImageTypePDFImage},
	}
}

func TestDescribeReplacesImageText(t *testing.T) {
	stub := &chatStub{reply: " A red square. "}
	d := NewDescriber(stub, logger.Nop())
	images := []store.Candidate{imageCandidate(t, "i1"), imageCandidate(t, "i2")}

	out, err := d.Describe(context.Background(), "what colour?", images)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A red square.", out[0].Text)
	assert.Equal(t, "A red square.", out[1].Text)
	assert.Equal(t, "original i1", images[0].Text, "input is not mutated")

	require.Len(t, stub.calls, 1)
	msg := stub.calls[0][0]
	assert.Contains(t, msg.Content, "Question: what colour?")
	require.Len(t, msg.Images, 2)
	assert.True(t, strings.HasPrefix(msg.Images[0], "data:image/png;base64,"))
}

func TestDescribeKeepsTextOnFailure(t *testing.T) {
	stub := &chatStub{err: errors.New("vision model offline")}
	d := NewDescriber(stub, logger.Nop())
	images := []store.Candidate{imageCandidate(t, "i1")}

	out, err := d.Describe(context.Background(), "q", images)

	assert.Error(t, err)
	assert.Equal(t, "original i1", out[0].Text)
}

func TestDescribeEmptyAnswerKeepsText(t *testing.T) {
	d := NewDescriber(&chatStub{reply: "   "}, logger.Nop())

	out, err := d.Describe(context.Background(), "q", []store.Candidate{imageCandidate(t, "i1")})

	require.NoError(t, err)
	assert.Equal(t, "original i1", out[0].Text)
}

func TestDescribeWithoutReadableImages(t *testing.T) {
	stub := &chatStub{reply: "never"}
	d := NewDescriber(stub, logger.Nop())
	missing := store.Candidate{ID: "x", Text: "keep", Source: store.SourceMeta{FilePath: "/does/not/exist.png"}}

	out, err := d.Describe(context.Background(), "q", []store.Candidate{missing})

	assert.ErrorIs(t, err, ErrNoReadableImages)
	assert.Equal(t, "keep", out[0].Text)
	assert.Empty(t, stub.calls)
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameRequest struct {
	Query string `json:"query"`
}

func decodeTestFrame(frame string) (store.TurnRequest, error) {
	var r frameRequest
	if err := json.Unmarshal([]byte(frame), &r); err != nil {
		return store.TurnRequest{}, err
	}
	if r.Query == "" {
		return store.TurnRequest{}, errors.New("query is required")
	}
	return store.TurnRequest{Session: testSession, Query: r.Query}, nil
}

type recordingHandler struct {
	mu      sync.Mutex
	queries []string
	outcome func(req store.TurnRequest) TurnOutcome
}

func (h *recordingHandler) HandleTurn(ctx context.Context, ch EventChannel, req store.TurnRequest) TurnOutcome {
	h.mu.Lock()
	h.queries = append(h.queries, req.Query)
	h.mu.Unlock()
	if h.outcome != nil {
		return h.outcome(req)
	}
	return TurnOutcome{State: StateCompleted}
}

func TestServeConnectionRunsTurnsInOrder(t *testing.T) {
	ch := newFakeChannel(`{"query":"one"}`, `{"query":"two"}`)
	ch.hangUpWhenDrained = true
	h := &recordingHandler{}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, h, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, h.queries)
}

func TestServeConnectionRejectsMalformedFrames(t *testing.T) {
	ch := newFakeChannel(`not json`, `{"query":"ok"}`)
	ch.hangUpWhenDrained = true
	h := &recordingHandler{}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, h, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, h.queries, "the connection survives a bad frame")
	sent := ch.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], constant.CommandErrorFromServe)
	assert.Equal(t, constant.CommandDoneFromServe, sent[1])
}

func TestServeConnectionIgnoresIdleStop(t *testing.T) {
	ch := newFakeChannel(constant.CommandStopFromClient, `{"query":"ok"}`)
	ch.hangUpWhenDrained = true
	h := &recordingHandler{}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, h, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, h.queries)
	assert.Empty(t, ch.Sent())
}

func TestServeConnectionReplaysPendingFrames(t *testing.T) {
	ch := newFakeChannel(`{"query":"one"}`)
	ch.hangUpWhenDrained = true
	h := &recordingHandler{}
	h.outcome = func(req store.TurnRequest) TurnOutcome {
		if req.Query == "one" {
			return TurnOutcome{State: StateCompleted, Pending: []string{`{"query":"two"}`, `{"query":"three"}`}}
		}
		return TurnOutcome{State: StateCompleted}
	}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, h, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, h.queries)
}

func TestServeConnectionStopsOnDisconnectedTurn(t *testing.T) {
	ch := newFakeChannel(`{"query":"one"}`, `{"query":"two"}`)
	h := &recordingHandler{}
	h.outcome = func(store.TurnRequest) TurnOutcome {
		return TurnOutcome{State: StateCancelled, Disconnected: true}
	}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, h, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, h.queries)
}

func TestServeConnectionReturnsOnContextEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := ServeConnection(ctx, newFakeChannel(), decodeTestFrame, &recordingHandler{}, 10*time.Millisecond, logger.Nop())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// A request sent while another turn is streaming waits for it to finish.
func TestServeConnectionSerializesStreamingTurns(t *testing.T) {
	hist := newMemoryHistory()
	p := &scriptedProvider{frags: []string{"A", "B"}, delay: 100 * time.Millisecond}
	c := newTestController(hist, p, stubSuggester{questions: []string{}})

	ch := newFakeChannel(`{"query":"one"}`)
	followUps := 0
	ch.onSend = func(c *fakeChannel, n int, frame string) {
		switch {
		case n == 1:
			c.push(`{"query":"two"}`)
		case frame == `{"follow_questions":[]}`:
			followUps++
			if followUps == 2 {
				c.Close()
			}
		}
	}

	err := ServeConnection(context.Background(), ch, decodeTestFrame, c, 10*time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"A", "B", constant.CommandDoneFromServe, `{"follow_questions":[]}`,
		"A", "B", constant.CommandDoneFromServe, `{"follow_questions":[]}`,
	}, ch.Sent())

	turns := hist.Turns(testSession)
	require.Len(t, turns, 4)
	assert.Equal(t, "one", turns[0].Content.Text)
	assert.Equal(t, "AB", turns[1].Content.Text)
	assert.Equal(t, "two", turns[2].Content.Text)
	assert.Equal(t, "AB", turns[3].Content.Text)
}

package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"
)

// fakeChannel records outbound frames and serves queued inbound frames.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []string
	inbound chan string
	closed  chan struct{}
	once    sync.Once

	// hangUpWhenDrained reports a disconnect once the inbound queue is empty.
	hangUpWhenDrained bool
	onSend            func(c *fakeChannel, n int, frame string)
}

func newFakeChannel(frames ...string) *fakeChannel {
	c := &fakeChannel{inbound: make(chan string, 16), closed: make(chan struct{})}
	for _, f := range frames {
		c.inbound <- f
	}
	return c
}

func (c *fakeChannel) Send(ctx context.Context, frame string) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	c.mu.Lock()
	c.sent = append(c.sent, frame)
	n := len(c.sent)
	hook := c.onSend
	c.mu.Unlock()

	if hook != nil {
		hook(c, n, frame)
	}
	return nil
}

func (c *fakeChannel) ReceiveWithTimeout(ctx context.Context, d time.Duration) (string, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	default:
	}
	select {
	case <-c.closed:
		return "", ErrChannelClosed
	default:
	}
	if c.hangUpWhenDrained {
		return "", ErrChannelClosed
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return "", ErrChannelClosed
	case <-timer.C:
		return "", ErrReceiveTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *fakeChannel) push(frame string) { c.inbound <- frame }

func (c *fakeChannel) queued() int { return len(c.inbound) }

func (c *fakeChannel) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *fakeChannel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// memoryHistory is an in-process HistoryStore.
type memoryHistory struct {
	mu        sync.Mutex
	turns     map[store.SessionKey][]store.Turn
	readErr   error
	appendErr error

	// honourCtx fails calls made with an ended context, as network stores do.
	honourCtx bool
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{turns: make(map[store.SessionKey][]store.Turn)}
}

func (h *memoryHistory) Append(ctx context.Context, session store.SessionKey, turn store.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.honourCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if h.appendErr != nil {
		return h.appendErr
	}
	h.turns[session] = append(h.turns[session], turn)
	return nil
}

func (h *memoryHistory) ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.readErr != nil {
		return nil, h.readErr
	}
	return append([]store.Turn(nil), h.turns[session]...), nil
}

func (h *memoryHistory) Turns(session store.SessionKey) []store.Turn {
	turns, _ := h.ReadOrdered(context.Background(), session)
	return turns
}

// scriptedProvider streams a fixed list of fragments, pausing before every
// fragment after the first.
type scriptedProvider struct {
	frags []string
	delay time.Duration
	err   error

	// onClose runs when the stream is closed, before the fragment channel is.
	onClose func()

	mu    sync.Mutex
	calls [][]llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not scripted")
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not scripted")
}

func (p *scriptedProvider) Stream(ctx context.Context, history []llm.Message, options ...llm.Option) (llm.Stream, error) {
	p.mu.Lock()
	p.calls = append(p.calls, history)
	p.mu.Unlock()
	return &scriptedStream{ctx: ctx, frags: p.frags, delay: p.delay, err: p.err, onClose: p.onClose}, nil
}

func (p *scriptedProvider) LastCall() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}

type scriptedStream struct {
	ctx     context.Context
	frags   []string
	delay   time.Duration
	err     error
	onClose func()
	i       int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.i >= len(s.frags) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	if s.i > 0 && s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	f := s.frags[s.i]
	s.i++
	return f, nil
}

func (s *scriptedStream) Close() error {
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

type resolverFunc func(modelType, modelName string) (llm.LLMProvider, error)

func (f resolverFunc) Resolve(modelType, modelName string) (llm.LLMProvider, error) {
	return f(modelType, modelName)
}

func fixedResolver(p llm.LLMProvider) ProviderResolver {
	return resolverFunc(func(string, string) (llm.LLMProvider, error) { return p, nil })
}

type stubSuggester struct {
	questions []string
	err       error
}

func (s stubSuggester) Suggest(ctx context.Context, question, answer string) ([]string, error) {
	return s.questions, s.err
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []TurnReport
}

func (o *recordingObserver) TurnFinished(ctx context.Context, r TurnReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

var testSession = store.SessionKey{UserName: "alice", SessionID: 1718000000}

func testConfig() Config {
	return Config{PollInterval: 10 * time.Millisecond, FinalizeTimeout: time.Second}
}

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const moduleName = "GenerationController"

type State int

const (
	StateCompleted State = iota
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HistoryStore is the append-only per-session turn log.
type HistoryStore interface {
	Append(ctx context.Context, session store.SessionKey, turn store.Turn) error
	ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error)
}

// ProviderResolver maps a request's model selection to a backend.
type ProviderResolver interface {
	Resolve(modelType, modelName string) (llm.LLMProvider, error)
}

type FollowupSuggester interface {
	Suggest(ctx context.Context, question, answer string) ([]string, error)
}

// PromptBuilder folds grounding passages into the final question.
type PromptBuilder func(query string, nodes []store.Candidate) string

type Config struct {
	// PollInterval bounds each wait for a client frame while generating.
	PollInterval time.Duration
	// FinalizeTimeout bounds history writes made after the client is gone.
	FinalizeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    time.Second,
		FinalizeTimeout: 5 * time.Second,
	}
}

// Turn is everything RunTurn needs for one generation.
type Turn struct {
	Request store.TurnRequest

	// Grounded marks a knowledge-augmented turn: Nodes are folded into the
	// prompt and the stream start marker is announced.
	Grounded bool
	Nodes    []store.Candidate

	// Prompt replaces the raw query as the question sent to the model.
	Prompt string

	// PrepareErr is set when preparation failed and already reported the
	// error to the client. RunTurn then only closes the turn.
	PrepareErr error
}

type TurnOutcome struct {
	State        State
	Text         string
	Err          error
	Disconnected bool
	FollowUps    []string

	// Pending holds non-stop frames received while generating, in order.
	Pending []string
}

type Controller struct {
	history   HistoryStore
	providers ProviderResolver
	followups FollowupSuggester
	prompt    PromptBuilder
	observer  TurnObserver
	cfg       Config
	log       logger.ILogger
}

func NewController(
	history HistoryStore,
	providers ProviderResolver,
	followups FollowupSuggester,
	prompt PromptBuilder,
	cfg Config,
	log logger.ILogger,
) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultConfig().FinalizeTimeout
	}
	return &Controller{
		history:   history,
		providers: providers,
		followups: followups,
		prompt:    prompt,
		observer:  nopObserver{},
		cfg:       cfg,
		log:       log,
	}
}

func (c *Controller) WithObserver(o TurnObserver) *Controller {
	if o != nil {
		c.observer = o
	}
	return c
}

// HandleTurn runs a plain chat turn.
func (c *Controller) HandleTurn(ctx context.Context, ch EventChannel, req store.TurnRequest) TurnOutcome {
	return c.RunTurn(ctx, ch, Turn{Request: req})
}

// turnRun carries the mutable bookkeeping of one RunTurn call.
type turnRun struct {
	turn    Turn
	started time.Time
	report  TurnReport
	out     TurnOutcome
}

// RunTurn drives one turn to a terminal marker. The user turn is recorded
// before generation starts and the assistant turn, possibly partial, is
// recorded on every path. Generation and the stop watcher are both joined
// before it returns.
func (c *Controller) RunTurn(ctx context.Context, ch EventChannel, t Turn) TurnOutcome {
	ctx, span := otel.Tracer("ai-chatstream-be/pkg/stream").Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.user", t.Request.Session.UserName),
		attribute.Int64("chat.session", t.Request.Session.SessionID),
		attribute.Bool("chat.grounded", t.Grounded),
	)

	run := &turnRun{
		turn:    t,
		started: time.Now(),
		report:  TurnReport{Session: t.Request.Session, Grounded: t.Grounded},
	}
	defer func() {
		span.SetAttributes(attribute.String("chat.outcome", run.out.State.String()))
	}()

	req := t.Request

	// Prior turns are read before the current one is appended so the
	// current question is only sent once. Grounded turns already had the
	// history folded in by the query rewrite.
	var prior []store.Turn
	if req.MultiTurn && !t.Grounded {
		h, err := c.history.ReadOrdered(ctx, req.Session)
		if err != nil {
			c.log.Warn(moduleName, "Failed to read history, continuing without it", map[string]interface{}{
				"session": req.Session.String(),
				"error":   err.Error(),
			})
		} else {
			prior = h
		}
	}

	if err := c.record(ctx, req.Session, req.UserTurn()); err != nil {
		c.log.Error(moduleName, "Failed to record user turn", map[string]interface{}{
			"session": req.Session.String(),
			"error":   err.Error(),
		})
		run.out = TurnOutcome{State: StateFailed, Err: fmt.Errorf("record user turn: %w", err)}
		run.out.Disconnected = !c.sendAll(ctx, ch, ErrorEvent(StageGenerate, run.out.Err).Frame(), StreamDone().Frame())
		return c.finish(ctx, run)
	}

	if t.PrepareErr != nil {
		run.out = TurnOutcome{State: StateFailed, Err: t.PrepareErr}
		run.out.Disconnected = !c.sendAll(ctx, ch, StreamDone().Frame())
		c.recordAssistant(ctx, req, "")
		return c.finish(ctx, run)
	}

	provider, err := c.providers.Resolve(req.ModelType, req.ModelName)
	if err != nil {
		run.out = TurnOutcome{State: StateFailed, Err: err}
		run.out.Disconnected = !c.sendAll(ctx, ch, ErrorEvent(StageGenerate, err).Frame(), StreamDone().Frame())
		c.recordAssistant(ctx, req, "")
		return c.finish(ctx, run)
	}

	if t.Grounded && !c.sendAll(ctx, ch, StreamStart().Frame()) {
		run.out = TurnOutcome{State: StateCancelled, Disconnected: true}
		c.recordAssistant(ctx, req, "")
		return c.finish(ctx, run)
	}

	c.stream(ctx, ch, provider, c.messages(prior, t), run)

	switch {
	case run.out.Disconnected:
		c.log.Info(moduleName, "Client disconnected mid-turn", map[string]interface{}{
			"session": req.Session.String(),
			"chars":   len(run.out.Text),
		})
		c.recordAssistant(ctx, req, run.out.Text)

	case run.out.State == StateCancelled:
		run.out.Disconnected = !c.sendAll(ctx, ch, StopAcknowledged().Frame(), StreamDone().Frame())
		c.recordAssistant(ctx, req, run.out.Text)

	case run.out.State == StateFailed:
		c.log.Error(moduleName, "Generation failed", map[string]interface{}{
			"session": req.Session.String(),
			"error":   run.out.Err.Error(),
		})
		run.out.Disconnected = !c.sendAll(ctx, ch, ErrorEvent(StageGenerate, run.out.Err).Frame(), StreamDone().Frame())
		c.recordAssistant(ctx, req, run.out.Text)

	default:
		if !c.sendAll(ctx, ch, StreamDone().Frame()) {
			run.out.Disconnected = true
			c.recordAssistant(ctx, req, run.out.Text)
			break
		}
		c.recordAssistant(ctx, req, run.out.Text)
		c.sendFollowUps(ctx, ch, req.Query, run)
	}

	return c.finish(ctx, run)
}

// stream runs the generation task and the stop watcher and multiplexes
// fragments onto ch. Only this goroutine sends while they run.
func (c *Controller) stream(ctx context.Context, ch EventChannel, provider llm.LLMProvider, messages []llm.Message, run *turnRun) {
	genCtx, cancelGen := context.WithCancel(ctx)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelGen()
	defer cancelWatch()

	fragments := make(chan string)
	genErr := make(chan error, 1)
	stopCh := make(chan struct{})
	goneCh := make(chan struct{})

	var (
		wg      sync.WaitGroup
		pending []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(fragments)
		genErr <- c.generate(genCtx, provider, messages, fragments)
	}()
	go func() {
		defer wg.Done()
		pending = c.watch(watchCtx, ch, stopCh, goneCh)
	}()

	var sb strings.Builder
	state := StateCompleted
	disconnected := false
	var failure error

loop:
	for {
		select {
		case <-stopCh:
			// A stop that lands after the last fragment leaves the answer whole.
			select {
			case _, ok := <-fragments:
				if !ok {
					if err := <-genErr; err != nil {
						state, failure = StateFailed, err
					}
					break loop
				}
			default:
			}
			state = StateCancelled
			break loop
		case <-goneCh:
			state, disconnected = StateCancelled, true
			break loop
		case frag, ok := <-fragments:
			if !ok {
				if err := <-genErr; err != nil {
					state, failure = StateFailed, err
				}
				break loop
			}
			// A stop that raced with this fragment wins.
			select {
			case <-stopCh:
				state = StateCancelled
				break loop
			default:
			}
			if err := ch.Send(ctx, frag); err != nil {
				state, disconnected = StateCancelled, true
				break loop
			}
			if run.report.Fragments == 0 {
				run.report.FirstFragment = time.Since(run.started)
			}
			run.report.Fragments++
			sb.WriteString(frag)
		}
	}

	cancelGen()
	for range fragments {
	}
	cancelWatch()
	wg.Wait()

	// Generation cut short by the connection context ending is a disconnect.
	if state == StateFailed && ctx.Err() != nil && isContextErr(failure) {
		state, disconnected, failure = StateCancelled, true, nil
	}

	run.out = TurnOutcome{
		State:        state,
		Text:         sb.String(),
		Err:          failure,
		Disconnected: disconnected,
		Pending:      pending,
	}
}

// generate pulls fragments from the backend until EOF, error or cancellation.
func (c *Controller) generate(ctx context.Context, provider llm.LLMProvider, messages []llm.Message, out chan<- string) error {
	s, err := provider.Stream(ctx, messages)
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if frag == "" {
			continue
		}
		select {
		case out <- frag:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watch polls the client until a stop frame or a disconnect. Any other
// receive failure, ctx ending included, counts as the client being gone.
// Other frames are kept for the connection loop.
func (c *Controller) watch(ctx context.Context, ch EventChannel, stopCh, goneCh chan<- struct{}) []string {
	var pending []string
	for {
		frame, err := ch.ReceiveWithTimeout(ctx, c.cfg.PollInterval)
		switch {
		case err == nil:
			if IsStopFrame(frame) {
				close(stopCh)
				return pending
			}
			pending = append(pending, frame)
		case errors.Is(err, ErrReceiveTimeout):
			continue
		default:
			close(goneCh)
			return pending
		}
	}
}

func (c *Controller) messages(prior []store.Turn, t Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(prior)+1)
	for _, h := range prior {
		msgs = append(msgs, llm.Message{Role: string(h.Role), Content: h.Content.Text, Images: h.Content.Images})
	}

	question := t.Request.Query
	if t.Prompt != "" {
		question = t.Prompt
	}
	if t.Grounded && c.prompt != nil {
		question = c.prompt(question, t.Nodes)
	}
	return append(msgs, llm.Message{Role: string(store.RoleUser), Content: question, Images: t.Request.ImageURLs})
}

func (c *Controller) sendFollowUps(ctx context.Context, ch EventChannel, question string, run *turnRun) {
	if c.followups == nil {
		return
	}
	questions, err := c.followups.Suggest(ctx, question, run.out.Text)
	if err != nil {
		c.log.Warn(moduleName, "Follow-up suggestion failed", map[string]interface{}{"error": err.Error()})
		questions = []string{}
	}
	run.out.FollowUps = questions
	if err := ch.Send(ctx, FollowUpFrame(questions)); err != nil {
		run.out.Disconnected = true
	}
}

// record appends a turn detached from ctx, so a closing connection still
// leaves a complete history.
func (c *Controller) record(ctx context.Context, session store.SessionKey, turn store.Turn) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FinalizeTimeout)
	defer cancel()
	return c.history.Append(persistCtx, session, turn)
}

func (c *Controller) recordAssistant(ctx context.Context, req store.TurnRequest, text string) {
	turn := store.Turn{Role: store.RoleAssistant, Content: store.TextContent(text), ModelName: req.ModelName}
	if err := c.record(ctx, req.Session, turn); err != nil {
		c.log.Error(moduleName, "Failed to record assistant turn", map[string]interface{}{
			"session": req.Session.String(),
			"error":   err.Error(),
		})
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// sendAll sends frames in order and reports false once the client is gone.
func (c *Controller) sendAll(ctx context.Context, ch EventChannel, frames ...string) bool {
	return sendFrames(ctx, ch, frames...) == nil
}

func (c *Controller) finish(ctx context.Context, run *turnRun) TurnOutcome {
	run.report.State = run.out.State
	run.report.Disconnected = run.out.Disconnected
	run.report.Chars = len(run.out.Text)
	run.report.Duration = time.Since(run.started)
	if run.out.Err != nil {
		run.report.Err = run.out.Err.Error()
	}
	c.observer.TurnFinished(ctx, run.report)
	return run.out
}

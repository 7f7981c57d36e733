package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/rag/rerank"
	"ai-chatstream-be/pkg/rag/retrieval"
	"ai-chatstream-be/pkg/store"
	"ai-chatstream-be/pkg/stream"
	"ai-chatstream-be/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "RagPipeline"

// State is a step of the preparation state machine. Transitions only move
// forward: idle, rewriting, retrieving, reranking, image_qa, then ready or
// failed.
type State int

const (
	StateIdle State = iota
	StateRewriting
	StateRetrieving
	StateReranking
	StateImageQA
	StateReady
	StateFailed
)

func (s State) String() string {
	return [...]string{"idle", "rewriting", "retrieving", "reranking", "image_qa", "ready", "failed"}[s]
}

type QueryRewriter interface {
	Rewrite(ctx context.Context, query string, history []store.Turn) string
}

type HistoryReader interface {
	ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error)
}

type ImageDescriber interface {
	Describe(ctx context.Context, question string, images []store.Candidate) ([]store.Candidate, error)
}

// StageRecorder receives the duration and outcome of every finished stage.
type StageRecorder interface {
	StageFinished(stage stream.Stage, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) StageFinished(stream.Stage, time.Duration, error) {}

type StageTiming struct {
	Stage   stream.Stage
	Elapsed time.Duration
}

// Result is what generation needs from a finished preparation.
type Result struct {
	// Nodes are the text candidates followed by the image candidates.
	Nodes []store.Candidate
	// Query is the resolved question to generate from.
	Query   string
	Timings []StageTiming
}

type Pipeline struct {
	history     HistoryReader
	rewriter    QueryRewriter
	retriever   retrieval.Retriever
	reranker    rerank.Reranker
	describer   ImageDescriber
	recorder    StageRecorder
	encodeImage func(path string) (string, error)
	tracer      trace.Tracer
	log         logger.ILogger
}

func NewPipeline(
	history HistoryReader,
	rewriter QueryRewriter,
	retriever retrieval.Retriever,
	reranker rerank.Reranker,
	describer ImageDescriber,
	log logger.ILogger,
) *Pipeline {
	if reranker == nil {
		reranker = rerank.ScoreOrder{}
	}
	return &Pipeline{
		history:     history,
		rewriter:    rewriter,
		retriever:   retriever,
		reranker:    reranker,
		describer:   describer,
		recorder:    nopRecorder{},
		encodeImage: utils.ImageBase64,
		tracer:      otel.Tracer("ai-chatstream-be/pkg/rag/pipeline"),
		log:         log,
	}
}

func (p *Pipeline) WithRecorder(r StageRecorder) *Pipeline {
	if r != nil {
		p.recorder = r
	}
	return p
}

// run is the typed state threaded through the steps of one preparation.
type run struct {
	req     store.TurnRequest
	query   string
	cands   []store.Candidate
	text    []store.Candidate
	images  []store.Candidate
	timings []StageTiming
	err     error
}

// Prepare runs the stages before generation and reports progress on ch.
// A failed stage has already been reported to the client when the error
// is returned; the caller only has to close the turn.
func (p *Pipeline) Prepare(ctx context.Context, ch stream.EventChannel, req store.TurnRequest) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "rag.prepare")
	defer span.End()

	r := &run{req: req, query: req.Query}
	state := StateIdle
	for state != StateReady && state != StateFailed {
		state = p.step(ctx, ch, r, state)
	}

	span.SetAttributes(attribute.String("rag.state", state.String()), attribute.Int("rag.nodes", len(r.text)+len(r.images)))
	if state == StateFailed {
		span.SetStatus(codes.Error, r.err.Error())
		return Result{Query: r.query, Timings: r.timings}, r.err
	}

	nodes := make([]store.Candidate, 0, len(r.text)+len(r.images))
	nodes = append(nodes, r.text...)
	nodes = append(nodes, r.images...)
	return Result{Nodes: nodes, Query: r.query, Timings: r.timings}, nil
}

// step performs the work of state and returns the next state.
func (p *Pipeline) step(ctx context.Context, ch stream.EventChannel, r *run, state State) State {
	switch state {
	case StateIdle:
		if r.req.MultiTurn {
			return StateRewriting
		}
		return StateRetrieving

	case StateRewriting:
		if err := p.rewrite(ctx, ch, r); err != nil {
			r.err = err
			return StateFailed
		}
		return StateRetrieving

	case StateRetrieving:
		if err := p.retrieve(ctx, ch, r); err != nil {
			r.err = err
			return StateFailed
		}
		return StateReranking

	case StateReranking:
		if err := p.rerankCandidates(ctx, ch, r); err != nil {
			r.err = err
			return StateFailed
		}
		if len(r.images) > 0 && p.describer != nil {
			return StateImageQA
		}
		return StateReady

	case StateImageQA:
		if err := p.describeImages(ctx, ch, r); err != nil {
			r.err = err
			return StateFailed
		}
		return StateReady

	default:
		return state
	}
}

func (p *Pipeline) rewrite(ctx context.Context, ch stream.EventChannel, r *run) error {
	started, err := p.begin(ctx, ch, stream.StageRewrite)
	if err != nil {
		return err
	}

	history, err := p.history.ReadOrdered(ctx, r.req.Session)
	if err != nil {
		p.log.Warn(moduleName, "History unavailable, skipping rewrite", map[string]interface{}{
			"session": r.req.Session.String(),
			"error":   err.Error(),
		})
		history = nil
	}
	if len(history) > 0 {
		_, span := p.tracer.Start(ctx, "rag.rewrite")
		r.query = p.rewriter.Rewrite(ctx, r.req.Query, history)
		span.End()
	}
	return p.end(ctx, ch, r, stream.StageRewrite, started, nil)
}

func (p *Pipeline) retrieve(ctx context.Context, ch stream.EventChannel, r *run) error {
	started, err := p.begin(ctx, ch, stream.StageRetrieve)
	if err != nil {
		return err
	}

	sctx, span := p.tracer.Start(ctx, "rag.retrieve")
	cands, err := p.retriever.Retrieve(sctx, retrieval.Query{
		Text:        r.query,
		TopK:        countOr(r.req.RetrieveCount, store.DefaultRetrieveCount),
		FusionCount: countOr(r.req.FusionCount, store.DefaultFusionCount),
		UserName:    r.req.Session.UserName,
	})
	span.SetAttributes(attribute.Int("rag.candidates", len(cands)))
	span.End()

	if err != nil {
		p.recorder.StageFinished(stream.StageRetrieve, time.Since(started), err)
		p.log.Error(moduleName, "Retrieval failed", map[string]interface{}{"error": err.Error()})
		if sendErr := ch.Send(ctx, stream.ErrorEvent(stream.StageRetrieve, err).Frame()); sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("retrieve: %w", err)
	}

	r.cands = cands
	return p.end(ctx, ch, r, stream.StageRetrieve, started, nil)
}

func (p *Pipeline) rerankCandidates(ctx context.Context, ch stream.EventChannel, r *run) error {
	started, err := p.begin(ctx, ch, stream.StageRerank)
	if err != nil {
		return err
	}

	n := countOr(r.req.RerankCount, store.DefaultRerankCount)
	sctx, span := p.tracer.Start(ctx, "rag.rerank")
	ranked, rerankErr := p.reranker.Rerank(sctx, r.query, r.cands, n)
	span.End()
	if rerankErr != nil {
		p.log.Warn(moduleName, "Rerank failed, keeping retrieval order", map[string]interface{}{"error": rerankErr.Error()})
		ranked = rerank.Fallback(r.cands, n)
	}

	if err := p.end(ctx, ch, r, stream.StageRerank, started, rerankErr); err != nil {
		return err
	}
	if err := ch.Send(ctx, p.nodesFrame(ranked)); err != nil {
		return err
	}

	r.text, r.images = store.PartitionCandidates(ranked)
	return nil
}

func (p *Pipeline) describeImages(ctx context.Context, ch stream.EventChannel, r *run) error {
	started, err := p.begin(ctx, ch, stream.StageImageQA)
	if err != nil {
		return err
	}

	sctx, span := p.tracer.Start(ctx, "rag.image_qa")
	described, qaErr := p.describer.Describe(sctx, r.query, r.images)
	span.End()
	if qaErr != nil {
		p.log.Warn(moduleName, "Image QA failed, keeping image text", map[string]interface{}{"error": qaErr.Error()})
	}
	r.images = described
	return p.end(ctx, ch, r, stream.StageImageQA, started, qaErr)
}

func (p *Pipeline) begin(ctx context.Context, ch stream.EventChannel, stage stream.Stage) (time.Time, error) {
	return time.Now(), ch.Send(ctx, stream.StageStart(stage).Frame())
}

// end records a stage that did not abort the pipeline and reports it done.
func (p *Pipeline) end(ctx context.Context, ch stream.EventChannel, r *run, stage stream.Stage, started time.Time, stageErr error) error {
	elapsed := time.Since(started)
	r.timings = append(r.timings, StageTiming{Stage: stage, Elapsed: elapsed})
	p.recorder.StageFinished(stage, elapsed, stageErr)
	return ch.Send(ctx, stream.StageDone(stage, elapsed).Frame())
}

// FrontendNode is the client view of a candidate.
type FrontendNode struct {
	NodeID      string `json:"node_id"`
	Text        string `json:"text"`
	FileID      string `json:"file_id"`
	Score       string `json:"score"`
	FileType    string `json:"file_type"`
	FilePath    string `json:"file_path"`
	FileName    string `json:"file_name"`
	ImageBase64 string `json:"image_base64"`
}

type nodesPayload struct {
	ChunkFrontendNodes []FrontendNode `json:"chunk_frontend_nodes"`
}

// nodesFrame encodes the reranked candidates for the client's source panel.
func (p *Pipeline) nodesFrame(cands []store.Candidate) string {
	data, _ := json.Marshal(nodesPayload{ChunkFrontendNodes: FrontendNodes(cands, p.encodeImage)})
	return string(data)
}

// FrontendNodes converts candidates to their client representation. Image
// candidates carry the picture itself when it can be read.
func FrontendNodes(cands []store.Candidate, encodeImage func(path string) (string, error)) []FrontendNode {
	nodes := make([]FrontendNode, 0, len(cands))
	for _, c := range cands {
		n := FrontendNode{
			NodeID:   c.ID,
			Text:     c.Text,
			FileID:   c.Source.FileID,
			Score:    strconv.FormatFloat(c.Score, 'f', -1, 64),
			FileType: c.Source.FileType,
			FilePath: c.Source.FilePath,
			FileName: c.Source.FileName,
		}
		if c.IsImage() && encodeImage != nil {
			if b64, err := encodeImage(c.Source.FilePath); err == nil {
				n.ImageBase64 = b64
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func countOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

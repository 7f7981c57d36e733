package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/internal/repository/specification"
	"ai-chatstream-be/internal/repository/unitofwork"
	"ai-chatstream-be/pkg/embedding"
	"ai-chatstream-be/pkg/events"
)

// knowledgeDB is an in-memory stand-in for the knowledge tables. Writes made
// inside a transaction only become visible on commit.
type knowledgeDB struct {
	mu        sync.Mutex
	knowledge []*entity.Knowledge
	chunks    []*entity.KnowledgeChunk
	commits   int
	rollbacks int
	failBulk  error
}

func (db *knowledgeDB) snapshot() ([]*entity.Knowledge, []*entity.KnowledgeChunk) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*entity.Knowledge(nil), db.knowledge...), append([]*entity.KnowledgeChunk(nil), db.chunks...)
}

type fakeFactory struct{ db *knowledgeDB }

func (f fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{db: f.db}
}

type fakeUoW struct {
	db        *knowledgeDB
	inTx      bool
	knowledge []*entity.Knowledge
	chunks    []*entity.KnowledgeChunk
}

func (u *fakeUoW) Begin(ctx context.Context) error {
	u.knowledge, u.chunks = u.db.snapshot()
	u.inTx = true
	return nil
}

func (u *fakeUoW) Commit() error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	u.db.knowledge, u.db.chunks = u.knowledge, u.chunks
	u.db.commits++
	u.inTx = false
	return nil
}

func (u *fakeUoW) Rollback() error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	u.db.rollbacks++
	u.inTx = false
	return nil
}

func (u *fakeUoW) view() ([]*entity.Knowledge, []*entity.KnowledgeChunk) {
	if u.inTx {
		return u.knowledge, u.chunks
	}
	return u.db.snapshot()
}

func (u *fakeUoW) KnowledgeRepository() contract.KnowledgeRepository {
	return &fakeKnowledgeRepo{uow: u}
}

func (u *fakeUoW) KnowledgeChunkRepository() contract.KnowledgeChunkRepository {
	return &fakeChunkRepo{uow: u}
}

type fakeKnowledgeRepo struct{ uow *fakeUoW }

func (r *fakeKnowledgeRepo) Create(ctx context.Context, k *entity.Knowledge) error {
	cp := *k
	r.uow.knowledge = append(r.uow.knowledge, &cp)
	return nil
}

func (r *fakeKnowledgeRepo) Update(ctx context.Context, k *entity.Knowledge) error {
	for i, row := range r.uow.knowledge {
		if row.Id == k.Id {
			cp := *k
			r.uow.knowledge[i] = &cp
			return nil
		}
	}
	return errors.New("not found")
}

func matchKnowledge(k *entity.Knowledge, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByFilePath:
			if k.FilePath != spec.FilePath {
				return false
			}
		case specification.ByUserName:
			if k.UserName != spec.UserName {
				return false
			}
		}
	}
	return true
}

func (r *fakeKnowledgeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Knowledge, error) {
	rows, _ := r.uow.view()
	for _, k := range rows {
		if matchKnowledge(k, specs) {
			cp := *k
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeKnowledgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Knowledge, error) {
	rows, _ := r.uow.view()
	var out []*entity.Knowledge
	for _, k := range rows {
		if matchKnowledge(k, specs) {
			out = append(out, k)
		}
	}
	return out, nil
}

type fakeChunkRepo struct{ uow *fakeUoW }

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	if r.uow.db.failBulk != nil {
		return r.uow.db.failBulk
	}
	r.uow.chunks = append(r.uow.chunks, chunks...)
	return nil
}

func (r *fakeChunkRepo) DeleteByFileId(ctx context.Context, fileId string) error {
	kept := r.uow.chunks[:0:0]
	for _, c := range r.uow.chunks {
		if c.FileId != fileId {
			kept = append(kept, c)
		}
	}
	r.uow.chunks = kept
	return nil
}

func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error) {
	_, rows := r.uow.view()
	var out []*entity.KnowledgeChunk
	for _, c := range rows {
		keep := true
		for _, s := range specs {
			if spec, ok := s.(specification.ByFileID); ok && c.FileId != spec.FileID {
				keep = false
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, err := r.FindAll(ctx, specs...)
	return int64(len(rows)), err
}

func (r *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, threshold float64, specs ...specification.Specification) ([]*contract.ScoredKnowledgeChunk, error) {
	return nil, errors.New("not supported")
}

type lengthEmbedder struct {
	err   error
	calls int
}

func (e *lengthEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{float32(len(text))}}}, nil
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type captureEvents struct {
	events []events.Event
	err    error
}

func (c *captureEvents) Publish(ctx context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return c.err
}

type turnObservation struct {
	kind, outcome string
	fragments     int
}

type stageObservation struct {
	stage  string
	failed bool
}

type recordingMetrics struct {
	turns  []turnObservation
	stages []stageObservation
}

func (m *recordingMetrics) ObserveTurn(kind, outcome string, fragments int, firstFragment, duration time.Duration) {
	m.turns = append(m.turns, turnObservation{kind, outcome, fragments})
}

func (m *recordingMetrics) ObserveStage(stage string, elapsed time.Duration, failed bool) {
	m.stages = append(m.stages, stageObservation{stage, failed})
}

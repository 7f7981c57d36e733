package contract

import (
	"context"

	"ai-chatstream-be/internal/entity"
	"ai-chatstream-be/internal/repository/specification"
)

// ScoredKnowledgeChunk wraps a chunk with its cosine similarity to the query.
type ScoredKnowledgeChunk struct {
	Chunk      *entity.KnowledgeChunk
	Similarity float64 // 1.0 = identical
}

type KnowledgeChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error
	DeleteByFileId(ctx context.Context, fileId string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns the closest chunks at or above threshold, best first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, specs ...specification.Specification) ([]*ScoredKnowledgeChunk, error)
}

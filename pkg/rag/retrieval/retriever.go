package retrieval

import (
	"context"
	"fmt"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/internal/repository/specification"
	"ai-chatstream-be/pkg/embedding"
	"ai-chatstream-be/pkg/store"
)

const moduleName = "Retriever"

// Query describes one retrieval request.
type Query struct {
	Text        string
	TopK        int
	FusionCount int
	UserName    string
	FileID      string
}

type Retriever interface {
	Retrieve(ctx context.Context, q Query) ([]store.Candidate, error)
}

// ChunkSearcher is the part of the chunk repository retrieval needs.
type ChunkSearcher interface {
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, specs ...specification.Specification) ([]*contract.ScoredKnowledgeChunk, error)
}

// VectorRetriever embeds the query and runs a cosine search over the chunks.
type VectorRetriever struct {
	embedder  embedding.EmbeddingProvider
	chunks    ChunkSearcher
	threshold float64
	log       logger.ILogger
}

func NewVectorRetriever(embedder embedding.EmbeddingProvider, chunks ChunkSearcher, threshold float64, log logger.ILogger) *VectorRetriever {
	return &VectorRetriever{
		embedder:  embedder,
		chunks:    chunks,
		threshold: threshold,
		log:       log,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, q Query) ([]store.Candidate, error) {
	res, err := r.embedder.Generate(ctx, q.Text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var specs []specification.Specification
	if q.UserName != "" {
		specs = append(specs, specification.ByUserName{UserName: q.UserName})
	}
	if q.FileID != "" {
		specs = append(specs, specification.ByFileID{FileID: q.FileID})
	}

	topK := q.TopK
	if topK <= 0 {
		topK = store.DefaultRetrieveCount
	}

	scored, err := r.chunks.SearchSimilarWithScore(ctx, res.Embedding.Values, topK, r.threshold, specs...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	r.log.Debug(moduleName, "Vector search finished", map[string]interface{}{
		"query":   q.Text,
		"results": len(scored),
	})

	cands := make([]store.Candidate, 0, len(scored))
	for _, s := range scored {
		cands = append(cands, ToCandidate(s))
	}
	return cands, nil
}

// ToCandidate converts a scored chunk row into a pipeline candidate.
func ToCandidate(s *contract.ScoredKnowledgeChunk) store.Candidate {
	c := s.Chunk
	return store.Candidate{
		ID:    c.Id.String(),
		Text:  c.Text,
		Score: s.Similarity,
		Source: store.SourceMeta{
			FileID:    c.FileId,
			FilePath:  c.FilePath,
			FileName:  c.FileName,
			FileType:  c.FileType,
			ImageType: c.ImageType,
			Position:  c.Position,
		},
	}
}

package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ai-chatstream-be/pkg/store"
)

// ErrEmptyScores means the scorer did not return one score per document.
var ErrEmptyScores = errors.New("reranker returned no usable scores")

// Reranker orders candidates by relevance to the query and keeps the best n.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []store.Candidate, n int) ([]store.Candidate, error)
}

type rerankingRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankingResponse struct {
	Result []float64 `json:"result"`
	Model  string    `json:"model"`
}

// Client scores candidates with a cross-encoder served over HTTP.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Rerank(ctx context.Context, query string, cands []store.Candidate, n int) ([]store.Candidate, error) {
	if len(cands) == 0 {
		return cands, nil
	}

	docs := make([]string, len(cands))
	for i, cand := range cands {
		docs[i] = cand.Text
	}

	jsonData, err := json.Marshal(rerankingRequest{Model: c.model, Query: query, Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/reranking", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make reranking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranking API returned status %d: %s", resp.StatusCode, string(body))
	}

	var out rerankingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode reranking response: %w", err)
	}
	if len(out.Result) != len(cands) {
		return nil, ErrEmptyScores
	}

	scored := make([]store.Candidate, len(cands))
	for i, cand := range cands {
		scored[i] = cand
		scored[i].Score = out.Result[i]
	}
	return top(scored, n), nil
}

// ScoreOrder reranks by the retrieval score alone. It serves when no
// cross-encoder is configured.
type ScoreOrder struct{}

func (ScoreOrder) Rerank(ctx context.Context, query string, cands []store.Candidate, n int) ([]store.Candidate, error) {
	return top(append([]store.Candidate(nil), cands...), n), nil
}

// Fallback keeps the first n candidates in retrieval order.
func Fallback(cands []store.Candidate, n int) []store.Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}

func top(cands []store.Candidate, n int) []store.Candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	return Fallback(cands, n)
}

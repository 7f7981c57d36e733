package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

// listMarker matches bullets and numbering the model puts before a query.
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// rrfK dampens the weight of top ranks in reciprocal rank fusion.
const rrfK = 60.0

// FusionRetriever widens recall by searching several phrasings of the query
// and merging the ranked lists.
type FusionRetriever struct {
	base Retriever
	llm  llm.LLMProvider
	log  logger.ILogger
}

func NewFusionRetriever(base Retriever, provider llm.LLMProvider, log logger.ILogger) *FusionRetriever {
	return &FusionRetriever{base: base, llm: provider, log: log}
}

func (f *FusionRetriever) Retrieve(ctx context.Context, q Query) ([]store.Candidate, error) {
	if q.FusionCount <= 1 || f.llm == nil {
		return f.base.Retrieve(ctx, q)
	}

	queries := append([]string{q.Text}, f.variants(ctx, q.Text, q.FusionCount-1)...)
	if len(queries) == 1 {
		return f.base.Retrieve(ctx, q)
	}

	results := make([][]store.Candidate, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range queries {
		i, text := i, text
		g.Go(func() error {
			sub := q
			sub.Text = text
			cands, err := f.base.Retrieve(gctx, sub)
			if err != nil {
				return fmt.Errorf("retrieve %q: %w", text, err)
			}
			results[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := ReciprocalRankFusion(results...)
	if q.TopK > 0 && len(fused) > q.TopK {
		fused = fused[:q.TopK]
	}
	return fused, nil
}

// variants asks the model for n extra phrasings. Failures yield none.
func (f *FusionRetriever) variants(ctx context.Context, query string, n int) []string {
	out, err := f.llm.Generate(ctx, fmt.Sprintf(constant.QueryFusionPrompt, n, query))
	if err != nil {
		f.log.Warn(moduleName, "Query variant generation failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var variants []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" || strings.EqualFold(line, query) {
			continue
		}
		variants = append(variants, line)
		if len(variants) == n {
			break
		}
	}
	return variants
}

// ReciprocalRankFusion merges ranked lists. Each candidate scores the sum of
// 1/(k+rank) over the lists it appears in; ties keep first-seen order.
func ReciprocalRankFusion(lists ...[]store.Candidate) []store.Candidate {
	type entry struct {
		cand  store.Candidate
		score float64
		order int
	}
	merged := make(map[string]*entry)
	for _, list := range lists {
		for rank, c := range list {
			e, ok := merged[c.ID]
			if !ok {
				e = &entry{cand: c, order: len(merged)}
				merged[c.ID] = e
			}
			e.score += 1.0 / (rrfK + float64(rank+1))
		}
	}

	entries := make([]*entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	out := make([]store.Candidate, len(entries))
	for i, e := range entries {
		out[i] = e.cand
		out[i].Score = e.score
	}
	return out
}

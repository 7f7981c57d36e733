package rewrite

import (
	"context"
	"fmt"
	"strings"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/store"
)

const moduleName = "QueryRewriter"

// maxHistoryTurns caps how much conversation is shown to the rewrite model.
const maxHistoryTurns = 10

// Rewriter turns a follow-up question into a standalone one.
type Rewriter struct {
	llm llm.LLMProvider
	log logger.ILogger
}

func NewRewriter(provider llm.LLMProvider, log logger.ILogger) *Rewriter {
	return &Rewriter{llm: provider, log: log}
}

// Rewrite resolves references in query against history. Without history the
// query is returned untouched and no model call is made. Any model failure
// also falls back to the raw query.
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []store.Turn) string {
	if len(history) == 0 || r.llm == nil {
		return query
	}

	prompt := fmt.Sprintf(constant.QueryRewritePrompt, formatHistory(history), query)
	out, err := r.llm.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		r.log.Warn(moduleName, "Rewrite failed, using raw query", map[string]interface{}{"error": err.Error()})
		return query
	}

	rewritten := strings.Trim(strings.TrimSpace(out), `"`)
	if rewritten == "" {
		return query
	}
	r.log.Debug(moduleName, "Query rewritten", map[string]interface{}{"from": query, "to": rewritten})
	return rewritten
}

func formatHistory(history []store.Turn) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	var sb strings.Builder
	for _, t := range history {
		text := strings.TrimSpace(t.Content.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, text)
	}
	return sb.String()
}

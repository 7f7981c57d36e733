package followup

import (
	"context"
	"fmt"
	"strings"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/pkg/llm"
)

const DefaultCount = 3

// Suggester proposes short follow-up questions after a completed answer.
type Suggester struct {
	llm   llm.LLMProvider
	count int
}

func NewSuggester(provider llm.LLMProvider, count int) *Suggester {
	if count <= 0 {
		count = DefaultCount
	}
	return &Suggester{llm: provider, count: count}
}

func (s *Suggester) Suggest(ctx context.Context, question, answer string) ([]string, error) {
	out, err := s.llm.Generate(ctx, fmt.Sprintf(constant.FollowUpPrompt, s.count, question, answer))
	if err != nil {
		return nil, fmt.Errorf("follow-up generation failed: %w", err)
	}
	return Parse(out, s.count), nil
}

// Parse extracts up to n questions from a reply. The prompt already opens
// the first question, so text before the first marker counts as one too.
func Parse(reply string, n int) []string {
	questions := []string{}
	for _, line := range strings.Split(reply, "\n") {
		for _, part := range strings.Split(line, constant.FollowUpQuestionPrefix) {
			q := strings.TrimSpace(part)
			if q == "" {
				continue
			}
			questions = append(questions, q)
			if len(questions) == n {
				return questions
			}
		}
	}
	return questions
}

package prompt

import (
	"fmt"
	"strings"

	"ai-chatstream-be/internal/constant"
	"ai-chatstream-be/pkg/store"
)

// Build folds the retrieved passages into the grounded answer prompt.
// An empty node list still yields the grounded prompt, so the model is told
// to admit it does not know instead of answering from memory.
func Build(query string, nodes []store.Candidate) string {
	return fmt.Sprintf(constant.RagAnswerPrompt, contextBlock(nodes), query)
}

func contextBlock(nodes []store.Candidate) string {
	var sb strings.Builder
	for i, n := range nodes {
		text := strings.TrimSpace(n.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if n.Source.FileName != "" {
			fmt.Fprintf(&sb, "[%d] %s\n", i+1, n.Source.FileName)
		}
		sb.WriteString(text)
	}
	return sb.String()
}

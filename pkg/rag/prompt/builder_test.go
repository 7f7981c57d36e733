package prompt

import (
	"testing"

	"ai-chatstream-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	nodes := []store.Candidate{
		{ID: "a", Text: "Paris is the capital of France.", Source: store.SourceMeta{FileName: "geo.pdf"}},
		{ID: "b", Text: "   "},
		{ID: "c", Text: "It has 2 million inhabitants."},
	}

	got := Build("What is the capital?", nodes)

	assert.Contains(t, got, "[1] geo.pdf\nParis is the capital of France.\n\nIt has 2 million inhabitants.")
	assert.Contains(t, got, "Question: What is the capital?")
}

func TestBuildWithoutNodes(t *testing.T) {
	got := Build("Anything?", nil)

	assert.Contains(t, got, "Use ONLY the context below")
	assert.Contains(t, got, "Question: Anything?")
}

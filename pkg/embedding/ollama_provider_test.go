package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProviderNormalizes(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"embeddings":[[3,4]]}`))
	}))
	defer srv.Close()

	res, err := NewOllamaProvider(srv.URL+"/", "nomic-embed-text").Generate(context.Background(), "hello", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, "search_query: hello", got.Input)
	assert.InDelta(t, 0.6, res.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 0.8, res.Embedding.Values[1], 1e-6)
}

func TestOllamaProviderTaskPrefixes(t *testing.T) {
	nomic := NewOllamaProvider("", "nomic-embed-text").(*OllamaProvider)
	assert.Equal(t, "search_document: body", nomic.input("body", TaskRetrievalDocument))
	assert.Equal(t, "body", nomic.input("body", ""))

	other := NewOllamaProvider("", "mxbai-embed-large").(*OllamaProvider)
	assert.Equal(t, "body", other.input("body", TaskRetrievalQuery))
}

func TestOllamaProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `model not found`},
		{"error field", http.StatusOK, `{"error":"model not loaded"}`},
		{"no vectors", http.StatusOK, `{"embeddings":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "nomic-embed-text").Generate(context.Background(), "x", TaskRetrievalQuery)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))

	v := NormalizeVector([]float32{1, 2, 2})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

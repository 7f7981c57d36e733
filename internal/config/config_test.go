package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "memory")

	cfg := Load()

	assert.Equal(t, "memory", cfg.App.HistoryBackend)
	assert.Equal(t, time.Second, cfg.Stream.PollInterval)
	assert.Equal(t, 3, cfg.Stream.FollowUpCount)
	assert.Equal(t, 1500, cfg.Ingest.ChunkSize)
	assert.False(t, cfg.IsProduction())
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("D_GO", "1500ms")
	t.Setenv("D_SECONDS", "2")
	t.Setenv("D_BAD", "soon")

	assert.Equal(t, 1500*time.Millisecond, getEnvAsDuration("D_GO", 0))
	assert.Equal(t, 2*time.Second, getEnvAsDuration("D_SECONDS", 0))
	assert.Equal(t, time.Minute, getEnvAsDuration("D_BAD", time.Minute))
	assert.Equal(t, time.Minute, getEnvAsDuration("D_UNSET", time.Minute))
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("MODELS", " a, ,b ,")
	t.Setenv("EMPTY_MODELS", " , ")

	assert.Equal(t, []string{"a", "b"}, getEnvAsList("MODELS", nil))
	assert.Equal(t, []string{"x"}, getEnvAsList("EMPTY_MODELS", []string{"x"}))
}

package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Stream   StreamConfig
	Ingest   IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	HistoryBackend     string // "redis" or "memory"
	HistoryTTL         time.Duration
	TracingEnabled     bool
	OtlpEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	JWTSecret string
	OpenAI    string
	Jina      string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	LLMProvider       string // default model type for chat turns
	LLMModel          string
	OllamaChatModels  []string
	OpenAIBaseURL     string
	OpenAIModels      []string
	MultimodalModel   string
	FollowUpModel     string
	RewriteModel      string
	RerankerURL       string
	RerankerModel     string
	SimilarityCutoff  float64
}

type StreamConfig struct {
	PollInterval    time.Duration
	IdleWait        time.Duration
	WriteWait       time.Duration
	FinalizeTimeout time.Duration
	FollowUpCount   int
}

type IngestConfig struct {
	Topic        string
	ChunkSize    int
	ChunkOverlap int
	NatsSubject  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			HistoryBackend:     getEnv("HISTORY_BACKEND", "redis"),
			HistoryTTL:         getEnvAsDuration("HISTORY_TTL", 0),
			TracingEnabled:     getEnvAsBool("OTEL_ENABLED", false),
			OtlpEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			JWTSecret: getEnv("JWT_SECRET", ""),
			OpenAI:    getEnv("OPENAI_API_KEY", ""),
			Jina:      getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5:7b"),
			OllamaChatModels:  getEnvAsList("OLLAMA_CHAT_MODELS", []string{"qwen2.5:7b", "llama3"}),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModels:      getEnvAsList("OPENAI_MODELS", []string{"gpt-4o-mini", "gpt-4o"}),
			MultimodalModel:   getEnv("MULTIMODAL_MODEL", "qwen2.5vl:7b"),
			FollowUpModel:     getEnv("FOLLOWUP_MODEL", "qwen2.5:7b"),
			RewriteModel:      getEnv("REWRITE_MODEL", "qwen2.5:7b"),
			RerankerURL:       getEnv("RERANKER_URL", ""),
			RerankerModel:     getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
			SimilarityCutoff:  getEnvAsFloat("SIMILARITY_CUTOFF", 0.0),
		},
		Stream: StreamConfig{
			PollInterval:    getEnvAsDuration("STREAM_POLL_INTERVAL", time.Second),
			IdleWait:        getEnvAsDuration("STREAM_IDLE_WAIT", time.Second),
			WriteWait:       getEnvAsDuration("STREAM_WRITE_WAIT", 10*time.Second),
			FinalizeTimeout: getEnvAsDuration("STREAM_FINALIZE_TIMEOUT", 5*time.Second),
			FollowUpCount:   getEnvAsInt("FOLLOWUP_COUNT", 3),
		},
		Ingest: IngestConfig{
			Topic:        getEnv("INGEST_TOPIC_NAME", "INGEST_KNOWLEDGE_FILE"),
			ChunkSize:    getEnvAsInt("INGEST_CHUNK_SIZE", 1500),
			ChunkOverlap: getEnvAsInt("INGEST_CHUNK_OVERLAP", 200),
			NatsSubject:  getEnv("INGEST_NATS_SUBJECT", "events.knowledge.ingest_requested"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1500ms") or plain seconds ("2").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

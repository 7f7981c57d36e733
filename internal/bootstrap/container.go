package bootstrap

import (
	"context"
	"log"

	"ai-chatstream-be/internal/config"
	"ai-chatstream-be/internal/controller"
	"ai-chatstream-be/internal/handler"
	"ai-chatstream-be/internal/observability"
	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/internal/pkg/serverutils"
	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/internal/repository/implementation"
	"ai-chatstream-be/internal/repository/memory"
	"ai-chatstream-be/internal/repository/unitofwork"
	"ai-chatstream-be/internal/service"
	"ai-chatstream-be/internal/websocket"
	"ai-chatstream-be/pkg/embedding"
	"ai-chatstream-be/pkg/embedding/jina"
	"ai-chatstream-be/pkg/llm"
	"ai-chatstream-be/pkg/llm/factory"
	"ai-chatstream-be/pkg/llm/ollama"
	"ai-chatstream-be/pkg/llm/openai"
	"ai-chatstream-be/pkg/rag/followup"
	"ai-chatstream-be/pkg/rag/imageqa"
	"ai-chatstream-be/pkg/rag/pipeline"
	"ai-chatstream-be/pkg/rag/prompt"
	"ai-chatstream-be/pkg/rag/rerank"
	"ai-chatstream-be/pkg/rag/retrieval"
	"ai-chatstream-be/pkg/rag/rewrite"
	"ai-chatstream-be/pkg/stream"

	pktNats "ai-chatstream-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	ConfigController    controller.IConfigController
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController

	ChatSocketHandler *handler.ChatSocketHandler
	WebSocketHub      *websocket.Hub
	Metrics           *observability.StreamingMetrics

	// Background services, run by main.
	ConsumerService  service.IConsumerService
	KnowledgeService service.IKnowledgeService
	NatsSubscriber   *pktNats.Subscriber

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)
	metrics := observability.NewStreamingMetrics()

	c := &Container{Metrics: metrics}

	// 2. Event bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { pubSub.Close() })

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.NatsSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// 3. Chat history
	history := newHistoryRepository(cfg, c)

	// 4. Models
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	registry := factory.NewRegistry(llm.ModelType(cfg.Ai.LLMProvider))
	registry.Register(llm.ModelTypeOllama, "Local models served by Ollama", cfg.Ai.OllamaChatModels, func(name string) llm.LLMProvider {
		return ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, name)
	})
	if cfg.Keys.OpenAI != "" {
		registry.Register(llm.ModelTypeOpenAI, "OpenAI compatible API", cfg.Ai.OpenAIModels, func(name string) llm.LLMProvider {
			return openai.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL, name)
		})
	}
	log.Printf("[INFO] Default chat backend: %s", cfg.Ai.LLMProvider)

	rewriteLLM := mustProvider(cfg.Ai.LLMProvider, cfg.Ai.RewriteModel, cfg)
	followUpLLM := mustProvider(cfg.Ai.LLMProvider, cfg.Ai.FollowUpModel, cfg)
	multimodalLLM := mustProvider(string(llm.ModelTypeOllama), cfg.Ai.MultimodalModel, cfg)

	// 5. Retrieval
	chunkRepo := implementation.NewKnowledgeChunkRepository(db)
	vectorRetriever := retrieval.NewVectorRetriever(embeddingProvider, chunkRepo, cfg.Ai.SimilarityCutoff, sysLogger)
	fusionRetriever := retrieval.NewFusionRetriever(vectorRetriever, rewriteLLM, sysLogger)

	var reranker rerank.Reranker = rerank.ScoreOrder{}
	if cfg.Ai.RerankerURL != "" {
		reranker = rerank.NewClient(cfg.Ai.RerankerURL, cfg.Ai.RerankerModel)
		log.Printf("[INFO] Using reranker at %s (%s)", cfg.Ai.RerankerURL, cfg.Ai.RerankerModel)
	}

	// 6. Streaming
	var turnEvents service.EventPublisher
	if natsPub != nil {
		turnEvents = natsPub
	}
	audit := service.NewAuditService(metrics, turnEvents, sysLogger)

	ctrl := stream.NewController(
		history,
		registry,
		followup.NewSuggester(followUpLLM, cfg.Stream.FollowUpCount),
		prompt.Build,
		stream.Config{
			PollInterval:    cfg.Stream.PollInterval,
			FinalizeTimeout: cfg.Stream.FinalizeTimeout,
		},
		streamLogger,
	).WithObserver(audit)

	ragPipeline := pipeline.NewPipeline(
		history,
		rewrite.NewRewriter(rewriteLLM, streamLogger),
		fusionRetriever,
		reranker,
		imageqa.NewDescriber(multimodalLLM, streamLogger),
		streamLogger,
	).WithRecorder(audit)

	hub := websocket.NewHub(streamLogger)
	hub.OnChange(metrics.SetActiveConnections)
	c.WebSocketHub = hub

	c.ChatSocketHandler = handler.NewChatSocketHandler(
		hub,
		ctrl,
		pipeline.NewTurnHandler(ragPipeline, ctrl),
		cfg.Stream.IdleWait,
		cfg.Stream.WriteWait,
		streamLogger,
	)

	// 7. Services
	publisherService := service.NewPublisherService(cfg.Ingest.Topic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Ingest.Topic,
		uowFactory,
		embeddingProvider,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		sysLogger,
	)
	c.KnowledgeService = service.NewKnowledgeService(uowFactory, vectorRetriever, publisherService, sysLogger)
	chatService := service.NewChatService(history, registry)

	// 8. Controllers
	c.ConfigController = controller.NewConfigController()
	c.ChatController = controller.NewChatController(chatService, serverutils.NewJwtMiddleware(cfg.Keys.JWTSecret))
	c.KnowledgeController = controller.NewKnowledgeController(c.KnowledgeService)

	return c
}

// StartBackground runs the ingest consumer and, when NATS is reachable, the
// ingest request subscription.
func (c *Container) StartBackground(ctx context.Context, cfg *config.Config) error {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.NatsSubscriber == nil {
		return nil
	}
	return c.NatsSubscriber.Subscribe(ctx, cfg.Ingest.NatsSubject, "chatstream-ingest", c.KnowledgeService.HandleIngestEvent)
}

// Close closes live sockets first, then the buses.
func (c *Container) Close() {
	c.WebSocketHub.CloseAll()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newHistoryRepository(cfg *config.Config, c *Container) contract.ChatHistoryRepository {
	if cfg.App.HistoryBackend == "memory" {
		log.Printf("[INFO] Using in-memory chat history")
		return memory.NewChatHistoryRepository(cfg.App.HistoryTTL)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { rdb.Close() })
	return implementation.NewChatHistoryRepository(rdb, cfg.App.HistoryTTL)
}

func mustProvider(providerType, model string, cfg *config.Config) llm.LLMProvider {
	p, err := factory.NewLLMProvider(providerType, model, baseURLFor(providerType, cfg), cfg.Keys.OpenAI)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	return p
}

func baseURLFor(providerType string, cfg *config.Config) string {
	if llm.ModelType(providerType) == llm.ModelTypeOpenAI {
		return cfg.Ai.OpenAIBaseURL
	}
	return cfg.Ai.OllamaBaseURL
}

package bootstrap

import (
	"log"
	"time"

	"rag-context-be/internal/config"
	"rag-context-be/internal/controller"
	"rag-context-be/internal/pkg/logger"
	"rag-context-be/internal/service"
	"rag-context-be/pkg/configstore"
	"rag-context-be/pkg/embedding"
	"rag-context-be/pkg/guardrail/enhance"
	"rag-context-be/pkg/guardrail/pipeline"
	"rag-context-be/pkg/guardrail/rerank"
	"rag-context-be/pkg/llm/factory"
	"rag-context-be/pkg/store"
	"rag-context-be/pkg/tokenizer"
	"rag-context-be/pkg/vectorstore"

	pktNats "rag-context-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ContextController controller.IContextController

	// Exposed for main.go shutdown
	NatsPublisher *pktNats.Publisher
	Logger        logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGeminiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		log.Panicf("Unable to create LLM provider: %v", err)
	}

	// 3. Stores
	counter := tokenizer.NewHeuristicCounter()
	vectors := vectorstore.NewPgVectorStore(db, sysLogger)
	cfgStore := configstore.NewGormStore(db, sysLogger,
		time.Duration(cfg.Guardrail.ConfigTTLSecond)*time.Second, nil)

	cacheTTL := time.Duration(cfg.Guardrail.CacheTTLSeconds) * time.Second
	var respCache store.ResponseCache
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Invalid REDIS_URL, falling back to in-memory cache: %v", err)
			respCache = store.NewMemoryCache(cacheTTL)
		} else {
			respCache = store.NewRedisCache(redis.NewClient(opts), cacheTTL)
			log.Printf("[INFO] Using Redis response cache")
		}
	} else {
		respCache = store.NewMemoryCache(cacheTTL)
	}

	// 4. Telemetry Bus (optional)
	var publisher *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		publisher, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] NATS unavailable, telemetry disabled: %v", err)
			publisher = nil
		}
	}

	// 5. Pipeline
	enhancer := enhance.NewEnhancer(llmProvider, sysLogger,
		cfg.Guardrail.RewriteEnabled, cfg.Guardrail.HydeEnabled,
		enhance.Mode(cfg.Guardrail.RewriteMode))
	reranker := rerank.NewReranker(embeddingProvider, sysLogger)

	var eventSink pipeline.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}

	engine := pipeline.NewEngine(
		cfgStore,
		embeddingProvider,
		vectors,
		enhancer,
		reranker,
		counter,
		respCache,
		eventSink,
		sysLogger,
	)

	// 6. Service & Controller
	contextService := service.NewContextService(engine)

	return &Container{
		ContextController: controller.NewContextController(contextService),
		NatsPublisher:     publisher,
		Logger:            sysLogger,
	}
}

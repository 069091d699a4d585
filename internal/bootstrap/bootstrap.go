package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/storefront-assistant/internal/config"
	"github.com/kirillkom/storefront-assistant/internal/core/ports"
	"github.com/kirillkom/storefront-assistant/internal/core/usecase"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/cache"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/llm"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/profile"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/storefront-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Assistant *usecase.AssistantService
	Executor  *resilience.Executor
	Qdrant    *qdrant.Client
	Redis     *redis.Client
	Queue     *nats.Queue

	closeFn func()
}

// NewAPI wires the answering pipeline. observer and listener may be nil.
func NewAPI(ctx context.Context, cfg config.Config, observer usecase.AnswerObserver, listener resilience.StateListener) (*App, error) {
	defaultBackend, err := llm.ResolveBackend(cfg.DefaultLLM, llm.BackendOllama)
	if err != nil {
		return nil, fmt.Errorf("default llm backend: %w", err)
	}

	var opts []resilience.Option
	if listener != nil {
		opts = append(opts, resilience.WithStateListener(listener))
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), opts...)

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            cfg.LLMTimeout,
		ResilienceExecutor: executor,
	})
	deepSeek := openaicompat.New(cfg.DeepSeekURL, cfg.DeepSeekAPIKey, cfg.DeepSeekModel, openaicompat.Options{
		Timeout:            cfg.LLMTimeout,
		ResilienceExecutor: executor,
	})
	generator := llm.NewDispatcher(defaultBackend, map[string]ports.Generator{
		llm.BackendOllama:   ollama.NewGenerator(ollamaClient),
		llm.BackendDeepSeek: deepSeek,
	})

	var embedder ports.Embedder = ollama.NewEmbedder(ollamaClient)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("embedding_cache_disabled", "error", err)
		} else {
			embedder = cache.NewEmbeddingCache(redisClient, embedder, ollamaClient.EmbedModel(), cfg.EmbeddingCacheTTL)
		}
	}

	qdrantClient := qdrant.New(cfg.QdrantURL, qdrant.Options{
		APIKey:             cfg.QdrantAPIKey,
		ResilienceExecutor: executor,
	})

	var (
		queue     *nats.Queue
		publisher ports.AnswerEventPublisher
	)
	if cfg.EventsEnabled {
		publishExecutor := resilience.NewExecutor(resilienceConfig(cfg).WithRetries(cfg.PublishRetryAttempts), opts...)
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ClientName:         "storefront-assistant-api",
			ResilienceExecutor: publishExecutor,
		})
		if err != nil {
			closeRedis(redisClient)
			return nil, fmt.Errorf("init answer event queue: %w", err)
		}
		publisher = queue
	}

	registry := usecase.NewClientRegistry(profile.NewFileStore(cfg.ClientSitesRoot), cfg.DefaultClient)
	classifier := usecase.NewTaskClassifier(generator)
	orchestrator := usecase.NewOrchestrator(
		loadCorrector(cfg),
		usecase.NewFAQRetriever(qdrant.NewFAQIndex(qdrantClient), embedder, generator, cfg.FAQTopK),
		classifier,
		usecase.NewProductEngine(
			usecase.NewFilterSpecGenerator(generator),
			classifier,
			embedder,
			qdrant.NewProductIndex(qdrantClient, qdrant.ScoreKind(cfg.QdrantScoreKind)),
			generator,
			usecase.ProductEngineConfig{
				TopN:       cfg.ProductTopN,
				RelaxBelow: cfg.RelaxBelow,
				Enough:     cfg.RelaxEnough,
			},
		),
		generator,
		cfg.MaxContextPairs,
	)

	return &App{
		Config:    cfg,
		Assistant: usecase.NewAssistantService(registry, orchestrator, publisher, observer),
		Executor:  executor,
		Qdrant:    qdrantClient,
		Redis:     redisClient,
		Queue:     queue,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			closeRedis(redisClient)
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

type Worker struct {
	Config config.Config

	Subscriber ports.AnswerEventSubscriber
	Audit      *usecase.AnswerAuditUseCase

	closeFn func()
}

// NewWorker wires the answer-event audit consumer.
func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnswerEventRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ClientName: "storefront-assistant-worker",
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init answer event queue: %w", err)
	}

	return &Worker{
		Config:     cfg,
		Subscriber: queue,
		Audit:      usecase.NewAnswerAuditUseCase(repo),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.CallTimeout = cfg.LLMTimeout
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return out
}

// loadCorrector returns nil, which disables correction, when the word list
// cannot be read.
func loadCorrector(cfg config.Config) *usecase.SpellCorrector {
	words, err := profile.LoadWordList(cfg.SpellDictionaryPath, cfg.SpellMinWordLength, cfg.SpellMaxWords)
	if err != nil {
		slog.Warn("spell_corrector_disabled", "path", cfg.SpellDictionaryPath, "error", err)
		return nil
	}
	corrector := usecase.NewSpellCorrector(words)
	slog.Info("spell_corrector_loaded", "words", len(words), "enabled", corrector.Enabled())
	return corrector
}

func closeRedis(client *redis.Client) {
	if client != nil {
		_ = client.Close()
	}
}

package main

import (
	"context"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/devcoach-ai/devcoach/internal/api"
	"github.com/devcoach-ai/devcoach/internal/chat"
	"github.com/devcoach-ai/devcoach/internal/config"
	"github.com/devcoach-ai/devcoach/internal/database"
	"github.com/devcoach-ai/devcoach/internal/guardrail"
	"github.com/devcoach-ai/devcoach/internal/history"
	"github.com/devcoach-ai/devcoach/internal/listener"
	"github.com/devcoach-ai/devcoach/internal/llm"
	"github.com/devcoach-ai/devcoach/internal/memory"
	"github.com/devcoach-ai/devcoach/internal/metrics"
	"github.com/devcoach-ai/devcoach/internal/middleware"
	"github.com/devcoach-ai/devcoach/internal/rag"
	iredis "github.com/devcoach-ai/devcoach/internal/redis"
	"github.com/devcoach-ai/devcoach/internal/server"
	"github.com/devcoach-ai/devcoach/internal/tools"
	"github.com/devcoach-ai/devcoach/internal/vectorstore"
)

// defaultSystemPrompt is used when no prompt file is configured.
const defaultSystemPrompt = `You are a programming study assistant. You help users with questions about
learning to code and preparing for software engineering interviews, and you give
actionable advice. Focus on four areas:
1. Planning a clear programming learning path
2. Suggesting practice projects
3. Guiding the full job-hunting process (resume polish, application strategy)
4. Sharing frequently asked interview questions and interview techniques
Answer in plain, concise language to help users learn and land a job efficiently.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Model clients
	chatModel := llm.NewOpenAIChatModel(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.ChatModel,
	})
	embedder := llm.NewOpenAIEmbedder(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.EmbeddingModel,
	})

	// Vector store
	var store vectorstore.Store
	switch cfg.Vector.Backend {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Vector)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store, err = vectorstore.NewPostgresStore(ctx, embedder, pool)
		if err != nil {
			slog.Error("initializing pgvector store", "error", err)
			os.Exit(1)
		}
	case "sqlite":
		sqliteStore, err := vectorstore.NewSQLiteStore(embedder, cfg.Vector.Path)
		if err != nil {
			slog.Error("initializing sqlite vector store", "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		store = vectorstore.NewMemoryStore(embedder)
	}

	// Reference documents
	loader := rag.NewLoader(store)
	chunks, err := loader.LoadFromDirectory(ctx, cfg.Docs.Dir)
	if err != nil {
		slog.Error("loading reference documents", "error", err)
		os.Exit(1)
	}
	metrics.DocumentChunks.Set(float64(chunks))

	// Redis, when the memory backend or the rate limiter needs it
	var redisClient *goredis.Client
	if cfg.Memory.Backend == "redis" || cfg.RateLimit.Enabled {
		redisClient, err = iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	// Conversation memory
	var mem memory.Store
	if cfg.Memory.Backend == "redis" {
		mem = memory.NewRedisStore(redisClient, cfg.Memory.Cap, cfg.Memory.TTL)
	} else {
		mem = memory.NewInMemoryStore(cfg.Memory.Cap)
	}

	// Tools
	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewWebSearchTool(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Model, cfg.Search.Timeout),
		tools.NewInterviewSearchTool(""),
		tools.NewCodeSearchTool(""),
	} {
		if err := registry.Register(tool); err != nil {
			slog.Error("registering tool", "error", err)
			os.Exit(1)
		}
	}

	// Telemetry
	notifier := listener.NewNotifier()
	notifier.AddListener(listener.MetricsListener{})

	// Persisted chat history
	var hist chat.HistoryStore
	if cfg.History.Enabled {
		histStore, err := history.NewStore(cfg.History.Path)
		if err != nil {
			slog.Error("opening chat history store", "error", err)
			os.Exit(1)
		}
		defer histStore.Close()
		hist = histStore
	}

	svc := chat.NewService(chat.Deps{
		Model:        chatModel,
		Guard:        guardrail.New(nil),
		Memory:       mem,
		Retriever:    rag.NewRetriever(store),
		Tools:        registry,
		Notifier:     notifier,
		History:      hist,
		Loader:       loader,
		DocsDir:      cfg.Docs.Dir,
		SystemPrompt: loadSystemPrompt(cfg.LLM.SystemPrompt),
	})
	handler := chat.NewHandler(svc)

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		VectorStoreCheck: func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		},
	}
	if redisClient != nil {
		routerCfg.RedisCheck = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if cfg.RateLimit.Enabled && redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.MaxReqs, cfg.RateLimit.WindowSec)
		routerCfg.ChatRateLimiter = limiter.Middleware
	}

	router := api.NewRouter(routerCfg, api.HandlerSet{
		ChatStream:      handler.Stream,
		ChatSync:        handler.Sync,
		ChatReport:      handler.Report,
		ChatRAG:         handler.RAG,
		ChatTools:       handler.Tools,
		ListMemory:      handler.ListMemory,
		ClearMemory:     handler.ClearMemory,
		ReloadDocuments: handler.ReloadDocuments,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadSystemPrompt reads the configured prompt file, falling back to
// the built-in prompt when the path is empty or unreadable.
func loadSystemPrompt(path string) string {
	if path == "" {
		return defaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("reading system prompt file, using built-in prompt", "path", path, "error", err)
		return defaultSystemPrompt
	}
	return string(data)
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

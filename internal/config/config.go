package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Search    SearchConfig
	Vector    VectorConfig
	Memory    MemoryConfig
	History   HistoryConfig
	Docs      DocsConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// LLMConfig selects the chat/embedding provider. Any OpenAI-compatible
// endpoint works (DashScope, Ollama's /v1, vLLM, OpenAI itself).
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	SystemPrompt   string // path to the system prompt file, optional
}

type SearchConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// VectorConfig selects the vector store backend: "memory", "sqlite" or
// "postgres". The sqlite backend falls back to memory when the file
// cannot be opened.
type VectorConfig struct {
	Backend string
	Path    string

	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGName     string
	PGSSLMode  string
}

func (c VectorConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGName, c.PGSSLMode)
}

// MemoryConfig selects the conversation memory backend: "memory" or "redis".
type MemoryConfig struct {
	Backend string
	Cap     int
	TTL     time.Duration
}

type HistoryConfig struct {
	Enabled bool
	Path    string
}

type DocsConfig struct {
	Dir string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RateLimitConfig struct {
	Enabled   bool
	MaxReqs   int
	WindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		LLM: LLMConfig{
			BaseURL:        k.String("llm.base.url"),
			APIKey:         k.String("llm.api.key"),
			ChatModel:      k.String("llm.chat.model"),
			EmbeddingModel: k.String("llm.embedding.model"),
			SystemPrompt:   k.String("llm.system.prompt"),
		},
		Search: SearchConfig{
			APIKey:  k.String("search.api.key"),
			BaseURL: k.String("search.base.url"),
			Model:   k.String("search.model"),
		},
		Vector: VectorConfig{
			Backend:    k.String("vector.backend"),
			Path:       k.String("vector.path"),
			PGHost:     k.String("vector.pg.host"),
			PGPort:     k.Int("vector.pg.port"),
			PGUser:     k.String("vector.pg.user"),
			PGPassword: k.String("vector.pg.password"),
			PGName:     k.String("vector.pg.name"),
			PGSSLMode:  k.String("vector.pg.sslmode"),
		},
		Memory: MemoryConfig{
			Backend: k.String("memory.backend"),
			Cap:     k.Int("memory.cap"),
		},
		History: HistoryConfig{
			Enabled: k.Bool("history.enabled"),
			Path:    k.String("history.path"),
		},
		Docs: DocsConfig{
			Dir: k.String("docs.dir"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		RateLimit: RateLimitConfig{
			Enabled:   k.Bool("ratelimit.enabled"),
			MaxReqs:   k.Int("ratelimit.max.reqs"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.LLM.ChatModel == "" {
		cfg.LLM.ChatModel = "qwen2.5:7b"
	}
	if cfg.LLM.EmbeddingModel == "" {
		cfg.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://open.bigmodel.cn/api/paas/v4"
	}
	if cfg.Search.Model == "" {
		cfg.Search.Model = "glm-4"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "sqlite"
	}
	if cfg.Vector.Path == "" {
		cfg.Vector.Path = "./data/vectors.db"
	}
	if cfg.Vector.PGHost == "" {
		cfg.Vector.PGHost = "localhost"
	}
	if cfg.Vector.PGPort == 0 {
		cfg.Vector.PGPort = 5432
	}
	if cfg.Vector.PGUser == "" {
		cfg.Vector.PGUser = "devcoach"
	}
	if cfg.Vector.PGName == "" {
		cfg.Vector.PGName = "devcoach"
	}
	if cfg.Vector.PGSSLMode == "" {
		cfg.Vector.PGSSLMode = "disable"
	}
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "memory"
	}
	if cfg.Memory.Cap == 0 {
		cfg.Memory.Cap = 10
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "./data/history.db"
	}
	if cfg.Docs.Dir == "" {
		cfg.Docs.Dir = "./resources/docs"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.RateLimit.MaxReqs == 0 {
		cfg.RateLimit.MaxReqs = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	searchTimeoutStr := k.String("search.timeout")
	if searchTimeoutStr == "" {
		searchTimeoutStr = "5s"
	}
	cfg.Search.Timeout, err = time.ParseDuration(searchTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing search timeout: %w", err)
	}

	memoryTTLStr := k.String("memory.ttl")
	if memoryTTLStr == "" {
		memoryTTLStr = "1h"
	}
	cfg.Memory.TTL, err = time.ParseDuration(memoryTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing memory ttl: %w", err)
	}

	return cfg, nil
}

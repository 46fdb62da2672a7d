package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434/v1", ChatModel: "qwen2.5:7b",
			EmbeddingModel: "nomic-embed-text", APIKey: "key",
		},
		Search: SearchConfig{APIKey: "key", Timeout: 5 * time.Second},
		Vector: VectorConfig{Backend: "sqlite", Path: "./data/vectors.db"},
		Memory: MemoryConfig{Backend: "memory", Cap: 10, TTL: time.Hour},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_UnknownVectorBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Vector.Backend = "faiss"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "VECTOR_BACKEND") {
		t.Fatalf("expected VECTOR_BACKEND error, got: %v", err)
	}
}

func TestValidate_UnknownMemoryBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Memory.Backend = "dynamo"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MEMORY_BACKEND") {
		t.Fatalf("expected MEMORY_BACKEND error, got: %v", err)
	}
}

func TestValidate_NonPositiveMemoryCap(t *testing.T) {
	cfg := validConfig()
	cfg.Memory.Cap = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MEMORY_CAP") {
		t.Fatalf("expected MEMORY_CAP error, got: %v", err)
	}
}

func TestValidate_PostgresBackendNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Vector.Backend = "postgres"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "VECTOR_PG_PASSWORD") {
		t.Fatalf("expected VECTOR_PG_PASSWORD error, got: %v", err)
	}
}

func TestValidate_PortRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_RateLimitIndependentOfMemoryBackend(t *testing.T) {
	// The limiter gets its own Redis client, so it does not require the
	// redis memory backend.
	cfg := validConfig()
	cfg.RateLimit.Enabled = true
	cfg.Memory.Backend = "memory"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Vector.Backend = "faiss"
	cfg.Memory.Cap = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "VECTOR_BACKEND") || !strings.Contains(err.Error(), "MEMORY_CAP") {
		t.Fatalf("expected both errors collected, got: %v", err)
	}
}

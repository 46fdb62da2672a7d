package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchReturnsModelSummary(t *testing.T) {
	var gotBody webSearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Go 1.24 was released in February"}},
			},
		})
	}))
	defer srv.Close()

	tool := NewWebSearchTool("test-key", srv.URL, "glm-4", time.Second)
	out, err := tool.Execute(context.Background(), map[string]any{"query": "go release"})
	require.NoError(t, err)
	assert.Equal(t, "Go 1.24 was released in February", out)

	assert.Equal(t, "glm-4", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "Search and summary: go release", gotBody.Messages[0].Content)
	require.Len(t, gotBody.Tools, 1)
	assert.Equal(t, "web_search", gotBody.Tools[0].Type)
	assert.True(t, gotBody.Tools[0].WebSearch.Enable)
}

func TestWebSearchEmptyQuerySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	tool := NewWebSearchTool("test-key", srv.URL, "", time.Second)
	out, err := tool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Search query is required", out)
	assert.Zero(t, calls.Load())
}

func TestWebSearchEmptyContentSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	tool := NewWebSearchTool("test-key", srv.URL, "", time.Second)
	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "No results found", out)
}

func TestWebSearchHTTPErrorSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tool := NewWebSearchTool("test-key", srv.URL, "", time.Second)
	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "Web search failed: HTTP 502", out)
}

func TestWebSearchMissingKeySentinel(t *testing.T) {
	tool := NewWebSearchTool("", "http://unused", "", time.Second)
	out, err := tool.Execute(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Contains(t, out, "Web search failed")
}

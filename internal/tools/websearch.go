package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const webSearchSchema = `{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The search query"
		}
	}
}`

// WebSearchTool answers real-time questions through the BigModel
// web-search API. The provider bolts a non-standard "web_search" tool
// type onto an otherwise OpenAI-shaped chat endpoint, so the request is
// built by hand instead of going through the chat client.
type WebSearchTool struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

// NewWebSearchTool creates the tool. An empty baseURL falls back to the
// public BigModel endpoint; an empty model falls back to glm-4.
func NewWebSearchTool(apiKey, baseURL, model string, timeout time.Duration) *WebSearchTool {
	if baseURL == "" {
		baseURL = "https://open.bigmodel.cn/api/paas/v4"
	}
	if model == "" {
		model = "glm-4"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebSearchTool{
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for real-time information. Use this tool when the user asks about current events or facts that may have changed recently."
}

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(webSearchSchema)
}

type webSearchRequest struct {
	Model    string             `json:"model"`
	Messages []webSearchMessage `json:"messages"`
	Tools    []webSearchToolDef `json:"tools"`
}

type webSearchMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type webSearchToolDef struct {
	Type      string            `json:"type"`
	WebSearch webSearchToolSpec `json:"web_search"`
}

type webSearchToolSpec struct {
	Enable bool `json:"enable"`
}

type webSearchResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Execute runs the search. Failures come back as sentinel strings, not
// errors, so a broken search degrades the answer instead of the request.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "Search query is required", nil
	}
	if t.apiKey == "" {
		return "Web search failed: search API key is not configured", nil
	}

	body, err := json.Marshal(webSearchRequest{
		Model:    t.model,
		Messages: []webSearchMessage{{Role: "user", Content: "Search and summary: " + query}},
		Tools:    []webSearchToolDef{{Type: "web_search", WebSearch: webSearchToolSpec{Enable: true}}},
	})
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Web search failed: %v", err), nil
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("web search request failed", "error", err)
		return fmt.Sprintf("Web search failed: %v", err), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Error("web search returned non-200", "status", resp.StatusCode)
		return fmt.Sprintf("Web search failed: HTTP %d", resp.StatusCode), nil
	}

	var parsed webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Sprintf("Web search failed: %v", err), nil
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "No results found", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

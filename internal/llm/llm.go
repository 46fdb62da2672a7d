// Package llm defines the chat-completion and embedding client
// interfaces plus their OpenAI-compatible implementations. Provider
// selection is a configuration choice: any endpoint that speaks the
// OpenAI API (DashScope, Ollama, vLLM, OpenAI) plugs in via base URL.
package llm

import (
	"context"
	"encoding/json"
)

// Message is a chat message in provider-neutral form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls carries the calls an assistant message proposed.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Roles understood by chat models.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation proposed by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Completion is a full model response, possibly carrying tool calls.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// StreamChunk is one fragment of a streamed response. A non-nil Err
// terminates the stream; the channel is closed afterwards either way.
type StreamChunk struct {
	Content string
	Err     error
}

// ChatModel is the polymorphic chat-completion client.
type ChatModel interface {
	// Name identifies the underlying model for telemetry.
	Name() string
	// Invoke performs one synchronous request/response call.
	Invoke(ctx context.Context, messages []Message) (string, error)
	// Stream returns a lazy, single-pass sequence of text fragments.
	Stream(ctx context.Context, messages []Message) (<-chan StreamChunk, error)
	// InvokeWithTools lets the model propose tool calls.
	InvokeWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error)
}

// Embedder converts text into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

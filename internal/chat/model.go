package chat

import "github.com/devcoach-ai/devcoach/internal/structured"

// ChatRequest binds the query parameters of the chat endpoints.
type ChatRequest struct {
	Message  string `validate:"required,min=1,max=4000"`
	MemoryID string `validate:"omitempty,max=128"`
}

// ChatResponse is the sync answer payload.
type ChatResponse struct {
	Content string `json:"content"`
}

// RAGResponse carries the answer plus the identifiers of the chunks
// that informed it.
type RAGResponse struct {
	Content string   `json:"content"`
	Sources []string `json:"sources"`
}

// ToolCallRecord is one executed tool call, echoed back to the caller.
type ToolCallRecord struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result,omitempty"`
}

// ToolsResponse carries the answer plus the tool calls the model made.
type ToolsResponse struct {
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`
}

// ReportResponse aliases the structured report for the HTTP layer.
type ReportResponse = structured.Report

// ReloadResponse is the payload of the document reload endpoint.
type ReloadResponse struct {
	Chunks int `json:"chunks"`
}

// MemoryListResponse lists the active conversation IDs.
type MemoryListResponse struct {
	Conversations []string `json:"conversations"`
}

// Package chat orchestrates a conversation turn: guardrail check,
// memory lookup, retrieval, tool execution, prompt assembly, model
// invocation and memory write-back.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devcoach-ai/devcoach/internal/guardrail"
	"github.com/devcoach-ai/devcoach/internal/listener"
	"github.com/devcoach-ai/devcoach/internal/llm"
	"github.com/devcoach-ai/devcoach/internal/memory"
	"github.com/devcoach-ai/devcoach/internal/metrics"
	"github.com/devcoach-ai/devcoach/internal/structured"
	"github.com/devcoach-ai/devcoach/internal/vectorstore"
)

// contextHeader introduces retrieved chunks in the system prompt.
const contextHeader = "\n\nRelevant reference material:\n"

// Retriever supplies reference chunks for a query. Failures must
// degrade to an empty result inside the implementation.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []vectorstore.Document
}

// ToolExecutor exposes tool definitions and runs tool calls.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// HistoryStore persists completed turns. May be absent.
type HistoryStore interface {
	Append(ctx context.Context, memoryID, role, content string) error
}

// DocumentLoader refills the vector store from the docs directory.
type DocumentLoader interface {
	ReloadFromDirectory(ctx context.Context, dir string) (int, error)
}

// Service implements the chat flows behind the /ai endpoints.
type Service struct {
	model        llm.ChatModel
	guard        *guardrail.Guardrail
	memory       memory.Store
	retriever    Retriever
	tools        ToolExecutor
	notifier     *listener.Notifier
	history      HistoryStore
	loader       DocumentLoader
	docsDir      string
	systemPrompt string
}

// Deps bundles the collaborators of the chat service. History and
// Loader are optional.
type Deps struct {
	Model        llm.ChatModel
	Guard        *guardrail.Guardrail
	Memory       memory.Store
	Retriever    Retriever
	Tools        ToolExecutor
	Notifier     *listener.Notifier
	History      HistoryStore
	Loader       DocumentLoader
	DocsDir      string
	SystemPrompt string
}

func NewService(d Deps) *Service {
	return &Service{
		model:        d.Model,
		guard:        d.Guard,
		memory:       d.Memory,
		retriever:    d.Retriever,
		tools:        d.Tools,
		notifier:     d.Notifier,
		history:      d.History,
		loader:       d.Loader,
		docsDir:      d.DocsDir,
		systemPrompt: d.SystemPrompt,
	}
}

// rejection formats the caller-visible guardrail short-circuit.
func rejection(res guardrail.Result) string {
	return "Input validation failed: " + res.Reason
}

// Chat answers one message without memory or retrieval.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if res := s.guard.Validate(message); !res.Safe {
		return rejection(res), nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.systemPrompt},
		{Role: llm.RoleUser, Content: message},
	}
	return s.invoke(ctx, messages)
}

// ChatWithRAG answers one message with retrieved context and reports
// which documents informed the answer.
func (s *Service) ChatWithRAG(ctx context.Context, message string) (RAGResponse, error) {
	if res := s.guard.Validate(message); !res.Safe {
		return RAGResponse{Content: rejection(res), Sources: []string{}}, nil
	}

	docs := s.retriever.Retrieve(ctx, message)
	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, sourceOf(doc))
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.systemPrompt + contextBlock(docs)},
		{Role: llm.RoleUser, Content: message},
	}
	content, err := s.invoke(ctx, messages)
	if err != nil {
		return RAGResponse{}, err
	}
	return RAGResponse{Content: content, Sources: sources}, nil
}

// ChatWithTools lets the model call registered tools, feeds the results
// back and returns the final answer plus the executed calls.
func (s *Service) ChatWithTools(ctx context.Context, message string) (ToolsResponse, error) {
	if res := s.guard.Validate(message); !res.Safe {
		return ToolsResponse{Content: rejection(res)}, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: s.systemPrompt},
		{Role: llm.RoleUser, Content: message},
	}

	requestID := s.notifier.OnRequest(s.model.Name(), messages)
	completion, err := s.model.InvokeWithTools(ctx, messages, s.tools.Definitions())
	if err != nil {
		s.notifier.OnError(requestID, s.model.Name(), err)
		return ToolsResponse{}, fmt.Errorf("invoking model with tools: %w", err)
	}
	s.notifier.OnResponse(requestID, s.model.Name(), completion.Content)

	if len(completion.ToolCalls) == 0 {
		return ToolsResponse{Content: completion.Content}, nil
	}

	records := make([]ToolCallRecord, 0, len(completion.ToolCalls))
	assistantTurn := llm.Message{Role: llm.RoleAssistant, Content: completion.Content, ToolCalls: completion.ToolCalls}
	messages = append(messages, assistantTurn)
	for _, call := range completion.ToolCalls {
		result, execErr := s.tools.Execute(ctx, call.Name, call.Args)
		if execErr != nil {
			// Degrade: the model still gets an answer shaped like a
			// tool result and can respond without it.
			slog.Warn("tool call degraded", "tool", call.Name, "error", execErr)
			result = fmt.Sprintf("Error: %v", execErr)
		}
		records = append(records, ToolCallRecord{ID: call.ID, Name: call.Name, Args: call.Args, Result: result})
		messages = append(messages, llm.Message{Role: llm.RoleTool, Content: result, ToolCallID: call.ID})
	}

	content, err := s.invoke(ctx, messages)
	if err != nil {
		return ToolsResponse{}, err
	}
	return ToolsResponse{Content: content, ToolCalls: records}, nil
}

// ChatForReport produces a structured study report. It never returns
// an error; every failure path yields the fallback report.
func (s *Service) ChatForReport(ctx context.Context, message string) structured.Report {
	if res := s.guard.Validate(message); !res.Safe {
		return structured.Report{Name: "Validation Failed", SuggestionList: []string{res.Reason}}
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: structured.BuildReportPrompt(s.systemPrompt)},
		{Role: llm.RoleUser, Content: message},
	}
	content, err := s.invoke(ctx, messages)
	if err != nil {
		slog.Error("report invocation failed", "error", err)
		return structured.FallbackReport()
	}
	return structured.ParseReport(content)
}

// ChatStream answers with conversation memory and retrieval, forwarding
// each fragment to emit as it arrives. The user and assistant turns are
// written to memory only after the stream completes without error. A
// guardrail rejection is emitted as a single fragment with no side
// effects.
func (s *Service) ChatStream(ctx context.Context, memoryID, message string, emit func(fragment string) error) error {
	if res := s.guard.Validate(message); !res.Safe {
		return emit(rejection(res))
	}

	turns, err := s.memory.History(ctx, memoryID)
	if err != nil {
		slog.Warn("memory lookup failed, continuing without history", "memory_id", memoryID, "error", err)
		turns = nil
	}
	docs := s.retriever.Retrieve(ctx, message)

	messages := make([]llm.Message, 0, len(turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt + contextBlock(docs)})
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	requestID := s.notifier.OnRequest(s.model.Name(), messages)
	stream, err := s.model.Stream(ctx, messages)
	if err != nil {
		s.notifier.OnError(requestID, s.model.Name(), err)
		return fmt.Errorf("starting model stream: %w", err)
	}

	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			s.notifier.OnError(requestID, s.model.Name(), chunk.Err)
			return fmt.Errorf("model stream: %w", chunk.Err)
		}
		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			s.notifier.OnError(requestID, s.model.Name(), err)
			return fmt.Errorf("forwarding stream fragment: %w", err)
		}
	}
	s.notifier.OnResponse(requestID, s.model.Name(), full.String())

	response := full.String()
	if err := s.memory.Append(ctx, memoryID,
		memory.Turn{Role: llm.RoleUser, Content: message},
		memory.Turn{Role: llm.RoleAssistant, Content: response},
	); err != nil {
		slog.Error("saving conversation turns", "memory_id", memoryID, "error", err)
	}
	s.persistHistory(ctx, memoryID, message, response)

	slog.Info("chat stream completed", "memory_id", memoryID, "response_len", len(response))
	return nil
}

// ListConversations returns the known conversation IDs.
func (s *Service) ListConversations(ctx context.Context) ([]string, error) {
	return s.memory.ListIDs(ctx)
}

// ClearConversation forgets one conversation's window.
func (s *Service) ClearConversation(ctx context.Context, memoryID string) error {
	return s.memory.Clear(ctx, memoryID)
}

// ReloadDocuments replaces the vector store contents with a fresh read
// of the docs directory and returns the number of chunks produced.
func (s *Service) ReloadDocuments(ctx context.Context) (int, error) {
	if s.loader == nil {
		return 0, fmt.Errorf("document loading is not configured")
	}
	chunks, err := s.loader.ReloadFromDirectory(ctx, s.docsDir)
	if err != nil {
		return 0, err
	}
	metrics.DocumentChunks.Set(float64(chunks))
	return chunks, nil
}

// invoke runs one sync model call inside a telemetry bracket.
func (s *Service) invoke(ctx context.Context, messages []llm.Message) (string, error) {
	requestID := s.notifier.OnRequest(s.model.Name(), messages)
	content, err := s.model.Invoke(ctx, messages)
	if err != nil {
		s.notifier.OnError(requestID, s.model.Name(), err)
		return "", fmt.Errorf("invoking model: %w", err)
	}
	s.notifier.OnResponse(requestID, s.model.Name(), content)
	return content, nil
}

func (s *Service) persistHistory(ctx context.Context, memoryID, userMessage, response string) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, memoryID, llm.RoleUser, userMessage); err != nil {
		slog.Error("persisting user turn", "memory_id", memoryID, "error", err)
		return
	}
	if err := s.history.Append(ctx, memoryID, llm.RoleAssistant, response); err != nil {
		slog.Error("persisting assistant turn", "memory_id", memoryID, "error", err)
	}
}

// contextBlock renders retrieved chunks for the system prompt. Empty
// retrieval yields an empty string.
func contextBlock(docs []vectorstore.Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = doc.Content
	}
	return contextHeader + strings.Join(parts, "\n---\n")
}

func sourceOf(doc vectorstore.Document) string {
	if s := doc.Metadata["source"]; s != "" {
		return s
	}
	if s := doc.Metadata["file_name"]; s != "" {
		return s
	}
	return "unknown"
}

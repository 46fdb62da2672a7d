// Package tools hosts the function-calling tools the chat model can
// request, plus the registry that validates and dispatches the calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/devcoach-ai/devcoach/internal/llm"
	"github.com/devcoach-ai/devcoach/internal/metrics"
)

// ErrToolNotFound is returned by Execute for unregistered tool names.
var ErrToolNotFound = fmt.Errorf("tool not found")

// Tool is a callable exposed to the model via function calling.
// Parameters must be a JSON Schema object describing the arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the registered tools and validates call arguments
// against each tool's declared schema before dispatching.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its parameter schema. Registering a
// name twice replaces the previous tool.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	compiler := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, strings.NewReader(string(tool.Parameters()))); err != nil {
		return fmt.Errorf("adding schema for tool %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compiling schema for tool %s: %w", name, err)
	}

	r.mu.Lock()
	r.tools[name] = tool
	r.schemas[name] = schema
	r.mu.Unlock()
	slog.Debug("tool registered", "tool", name)
	return nil
}

// Definitions returns the registered tools in the shape the chat model
// client expects.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Execute validates args against the tool's schema and runs it.
// Handler errors are logged and re-raised to the caller.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(normalizeArgs(args)); err != nil {
		metrics.ToolExecutions.WithLabelValues(name, "invalid_args").Inc()
		return "", fmt.Errorf("invalid arguments for tool %s: %w", name, err)
	}

	slog.Info("executing tool", "tool", name)
	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ToolExecutions.WithLabelValues(name, "error").Inc()
		slog.Error("tool execution failed", "tool", name, "error", err, "duration", elapsed)
		return "", fmt.Errorf("executing tool %s: %w", name, err)
	}
	metrics.ToolExecutions.WithLabelValues(name, "ok").Inc()
	metrics.ToolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	slog.Info("tool completed", "tool", name, "duration", elapsed)
	return result, nil
}

// normalizeArgs round-trips args through encoding/json so numeric types
// match what the schema validator expects.
func normalizeArgs(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}

// Package tools implements the analytics tool registry the model
// drives: parameter schemas, argument validation, and dispatch with
// JSON payloads in both directions.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runlens/runlens/internal/observability"
)

// Handler executes one tool call with validated arguments and returns
// a JSON-marshalable payload.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one registered analytics operation.
type Tool struct {
	Name        string
	Description string
	Params      []ParamSpec
	Handler     Handler
}

// Registry holds the tool catalog. Safe for concurrent use; tools are
// registered at startup and only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. Duplicate names are a programming error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool has no name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns the catalog in the OpenAI function shape LLM
// providers consume.
func (r *Registry) Definitions() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  Schema(t.Params),
			},
		})
	}
	return defs
}

// Execute runs one tool call and always returns a JSON payload string.
// Failures of any kind come back as an error payload the model can
// read and recover from, flagged by the second return; they never
// propagate as Go errors.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, bool) {
	invocation := uuid.NewString()
	logger := r.logger.With("tool", name, "invocation", invocation)
	start := time.Now()

	tool, ok := r.Get(name)
	if !ok {
		logger.Warn("unknown tool requested")
		observability.ToolInvocations.WithLabelValues(name, "unknown").Inc()
		return errorPayload(name, args, fmt.Sprintf("unknown tool %q", name)), true
	}

	validated, err := ValidateArgs(name, tool.Params, args)
	if err != nil {
		logger.Warn("tool arguments rejected", "error", err)
		observability.ToolInvocations.WithLabelValues(name, "invalid_args").Inc()
		return errorPayload(name, args, err.Error()), true
	}

	result, err := tool.Handler(ctx, validated)
	if err != nil {
		logger.Error("tool failed", "error", err, "elapsed", time.Since(start))
		observability.ToolInvocations.WithLabelValues(name, "error").Inc()
		return errorPayload(name, args, err.Error()), true
	}

	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error("tool result not encodable", "error", err)
		observability.ToolInvocations.WithLabelValues(name, "error").Inc()
		return errorPayload(name, args, fmt.Sprintf("encoding result: %v", err)), true
	}

	logger.Debug("tool executed", "elapsed", time.Since(start), "bytes", len(payload))
	observability.ToolInvocations.WithLabelValues(name, "ok").Inc()
	return string(payload), false
}

// errorPayload renders a failure the model can act on without
// breaking the conversation loop.
func errorPayload(tool string, args map[string]any, msg string) string {
	payload, err := json.Marshal(map[string]any{
		"error":     msg,
		"tool":      tool,
		"arguments": args,
	})
	if err != nil {
		// Arguments can hold unmarshalable values; retry without them.
		payload, _ = json.Marshal(map[string]any{"error": msg, "tool": tool})
	}
	return string(payload)
}

// Package tools implements the Tool Handler Registry (§4.8): a map from
// tool_type to a validating handler the orchestrator dispatches
// into, plus the six required handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"university-query-engine/internal/domain"
)

// Handler is one executable capability the orchestrator can invoke.
type Handler interface {
	ToolType() domain.ToolType
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry maps tool_type to its Handler and dispatches by name.
type Registry struct {
	handlers map[domain.ToolType]Handler
}

// NewRegistry returns an empty registry; Register each required handler
// into it at composition time.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.ToolType]Handler)}
}

func (r *Registry) Register(h Handler) { r.handlers[h.ToolType()] = h }

// Has reports whether a handler is registered for toolType.
func (r *Registry) Has(toolType domain.ToolType) bool {
	_, ok := r.handlers[toolType]
	return ok
}

// Dispatch runs the named tool's handler, producing a domain.ToolCall
// record with execution status/timing filled in regardless of outcome.
func (r *Registry) Dispatch(ctx context.Context, toolType domain.ToolType, args map[string]any) (map[string]any, error) {
	h, ok := r.handlers[toolType]
	if !ok {
		return nil, fmt.Errorf("tools: no handler registered for %q", toolType)
	}
	return h.Execute(ctx, args)
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argStringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]string)
	if ok {
		return raw
	}
	anySlice, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(anySlice))
	for _, v := range anySlice {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func argFloat(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

// MarshalArgs round-trips a tool's declared argument struct through JSON
// into the map[string]any shape Handler.Execute takes, mirroring how the
// orchestrator receives arguments from an LLM tool-call response.
func MarshalArgs(v any) map[string]any {
	b, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// internal/tools/registry.go
package tools

import (
	"context"
	"log/slog"
	"strings"

	custom_errors "repolens/internal/errors"
)

// Param declares one input field of a tool.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Args carries a tool invocation's decoded arguments. Values come from JSON,
// so numbers arrive as float64.
type Args map[string]any

// String returns the named argument as a string, "" when absent or not a string.
func (a Args) String(key string) string {
	v, _ := a[key].(string)
	return v
}

// Int returns the named argument as an int, 0 when absent or not numeric.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// RunFunc executes a tool invocation with validated arguments.
type RunFunc func(ctx context.Context, args Args) (any, error)

// Tool is one named operation with its declared parameters.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Run         RunFunc `json:"-"`
}

// Registry holds the registered tools and validates invocations against
// their declared parameters before anything touches the network.
type Registry struct {
	logger *slog.Logger
	tools  map[string]Tool
	order  []string
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		tools:  map[string]Tool{},
	}
}

// Register adds a tool, keeping registration order for listings. Registering
// the same name twice replaces the definition.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Tools lists the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke validates the arguments against the tool's declared parameters and
// runs it. Unknown tools and missing required arguments are rejected before
// the tool body executes.
func (r *Registry) Invoke(ctx context.Context, name string, args Args) (any, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &custom_errors.UnknownToolError{Tool: name}
	}
	if args == nil {
		args = Args{}
	}

	for _, p := range tool.Params {
		if !p.Required {
			continue
		}
		v, present := args[p.Name]
		if !present {
			return nil, &custom_errors.MissingParamError{Tool: name, Param: p.Name}
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return nil, &custom_errors.MissingParamError{Tool: name, Param: p.Name}
		}
	}

	r.logger.Debug("invoking tool", "tool", name)
	return tool.Run(ctx, args)
}

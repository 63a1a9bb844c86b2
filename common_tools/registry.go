package common_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kindtohomeless/outreach/models"
)

// Handler runs one tool against already-validated arguments.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool pairs the declaration sent to the model with its handler.
type Tool struct {
	Declaration models.FunctionDeclaration
	Handler     Handler
}

// UnknownToolError is returned by Dispatch for a name that was never
// registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ArgumentError names the declared parameter a tool call got wrong.
type ArgumentError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("%s: invalid arguments: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: parameter %q %s", e.Tool, e.Param, e.Reason)
}

// Bind adapts a typed handler to Handler. defaults supplies the parameter
// struct before the arguments are decoded over it, so omitted optional
// parameters keep their default values.
func Bind[P any](defaults func() P, fn func(ctx context.Context, params P) (interface{}, error)) Handler {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		var params P
		if defaults != nil {
			params = defaults()
		}
		raw, err := json.Marshal(dropNulls(args))
		if err != nil {
			return nil, &ArgumentError{Reason: err.Error()}
		}
		if err := json.Unmarshal(raw, &params); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return nil, &ArgumentError{Param: typeErr.Field, Reason: "must be " + typeErr.Type.String()}
			}
			return nil, &ArgumentError{Reason: err.Error()}
		}
		return fn(ctx, params)
	}
}

// Registry is the closed, immutable set of tools an agent may call.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry validates and indexes tools. Names must be unique and
// non-empty, handlers non-nil and every required parameter declared.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		decl := tool.Declaration
		if decl.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.tools[decl.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", decl.Name)
		}
		if tool.Handler == nil {
			return nil, fmt.Errorf("tool %q has no handler", decl.Name)
		}
		for _, req := range decl.Parameters.Required {
			if _, ok := decl.Parameters.Properties[req]; !ok {
				return nil, fmt.Errorf("tool %q requires undeclared parameter %q", decl.Name, req)
			}
		}
		r.tools[decl.Name] = tool
		r.order = append(r.order, decl.Name)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tool sets; it panics on error.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Declarations returns the toolset in registration order.
func (r *Registry) Declarations() []models.FunctionDeclaration {
	decls := make([]models.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration)
	}
	return decls
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Dispatch validates args against the tool's declaration and runs it.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if err := ValidateArguments(tool.Declaration, args); err != nil {
		return nil, err
	}
	result, err := tool.Handler(ctx, args)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) && argErr.Tool == "" {
			argErr.Tool = name
		}
		return nil, err
	}
	return result, nil
}

// ValidateArguments checks args against decl: every required parameter is
// present and non-null, no undeclared parameter is passed, and each value
// matches its declared JSON type. Null optional parameters count as absent.
func ValidateArguments(decl models.FunctionDeclaration, args map[string]interface{}) error {
	for _, req := range decl.Parameters.Required {
		if v, ok := args[req]; !ok || v == nil {
			return &ArgumentError{Tool: decl.Name, Param: req, Reason: "is required"}
		}
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		prop, declared := decl.Parameters.Properties[k]
		if !declared {
			return &ArgumentError{Tool: decl.Name, Param: k, Reason: "is not a declared parameter"}
		}
		v := args[k]
		if v == nil {
			continue
		}
		schema, _ := prop.(map[string]interface{})
		if reason := checkType(schema, v); reason != "" {
			return &ArgumentError{Tool: decl.Name, Param: k, Reason: reason}
		}
	}
	return nil
}

func checkType(schema map[string]interface{}, v interface{}) string {
	want, _ := schema["type"].(string)
	switch want {
	case "string":
		if _, ok := v.(string); !ok {
			return "must be a string"
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return "must be a boolean"
		}
	case "integer":
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return "must be an integer"
		}
	case "number":
		if _, ok := toFloat(v); !ok {
			return "must be a number"
		}
	case "object":
		if _, ok := v.(map[string]interface{}); !ok {
			return "must be an object"
		}
	case "array":
		items, ok := v.([]interface{})
		if !ok {
			if _, isStrings := v.([]string); isStrings {
				return ""
			}
			return "must be an array"
		}
		itemSchema, _ := schema["items"].(map[string]interface{})
		for i, item := range items {
			if reason := checkType(itemSchema, item); reason != "" {
				return fmt.Sprintf("item %d %s", i, reason)
			}
		}
	}
	if enum, ok := schema["enum"].([]string); ok {
		s, _ := v.(string)
		for _, allowed := range enum {
			if s == allowed {
				return ""
			}
		}
		return "must be one of " + strings.Join(enum, ", ")
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func dropNulls(args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

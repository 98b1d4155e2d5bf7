package tools

import (
	"fmt"
	"math"
)

// ParamSpec declares one tool parameter. The registry derives the JSON
// schema advertised to the model from it and validates incoming
// arguments against it.
type ParamSpec struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean"
	Description string
	Required    bool
	Default     any
	Enum        []string
	Minimum     *float64
	Maximum     *float64
}

// ValidationError reports one rejected tool argument.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s: parameter %s: %s", e.Tool, e.Field, e.Reason)
}

// Schema builds a JSON-schema object map for a parameter list, the
// shape LLM providers expect for tool input.
func Schema(params []ParamSpec) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ValidateArgs checks model-supplied arguments against the parameter
// specs, fills in defaults, and coerces JSON numbers to the declared
// type. Unknown arguments are dropped rather than rejected; models
// sometimes invent extras.
func ValidateArgs(tool string, specs []ParamSpec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		raw, present := args[spec.Name]
		if !present || raw == nil {
			if spec.Required {
				return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: "required parameter missing"}
			}
			if spec.Default != nil {
				out[spec.Name] = spec.Default
			}
			continue
		}

		val, err := coerce(tool, spec, raw)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = val
	}
	return out, nil
}

func coerce(tool string, spec ParamSpec, raw any) (any, error) {
	switch spec.Type {
	case "string":
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("expected string, got %T", raw)}
		}
		if len(spec.Enum) > 0 {
			for _, e := range spec.Enum {
				if s == e {
					return s, nil
				}
			}
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("%q is not one of %v", s, spec.Enum)}
		}
		return s, nil

	case "integer":
		f, ok := asNumber(raw)
		if !ok {
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("expected integer, got %T", raw)}
		}
		if f != math.Trunc(f) {
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("expected whole number, got %v", raw)}
		}
		if err := checkRange(tool, spec, f); err != nil {
			return nil, err
		}
		return int(f), nil

	case "number":
		f, ok := asNumber(raw)
		if !ok {
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("expected number, got %T", raw)}
		}
		if err := checkRange(tool, spec, f); err != nil {
			return nil, err
		}
		return f, nil

	case "boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("expected boolean, got %T", raw)}
		}
		return b, nil

	default:
		return nil, &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("unsupported parameter type %q", spec.Type)}
	}
}

// asNumber accepts the numeric representations JSON decoding produces.
func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func checkRange(tool string, spec ParamSpec, f float64) error {
	if spec.Minimum != nil && f < *spec.Minimum {
		return &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("%v is below minimum %v", f, *spec.Minimum)}
	}
	if spec.Maximum != nil && f > *spec.Maximum {
		return &ValidationError{Tool: tool, Field: spec.Name, Reason: fmt.Sprintf("%v is above maximum %v", f, *spec.Maximum)}
	}
	return nil
}

package pluginapi

import (
	"math"
	"reflect"
)

// ConfigSchema declares the parameters a plugin accepts, in the form the
// host consumes to validate configuration before initialize and action
// parameters before execute_action.
type ConfigSchema struct {
	Parameters  map[string]ParamSpec     `json:"parameters"`
	Required    []string                 `json:"required,omitempty"`
	Description string                   `json:"description,omitempty"`
	Examples    []map[string]interface{} `json:"examples,omitempty"`
	Timeout     float64                  `json:"timeout,omitempty"`
}

// ParamSpec describes one schema parameter. Type is one of string, integer,
// number, boolean, array, object.
type ParamSpec struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Minimum     *float64      `json:"minimum,omitempty"`
	Maximum     *float64      `json:"maximum,omitempty"`
	Examples    []interface{} `json:"examples,omitempty"`
}

// Validate checks values against the schema. The first violation is
// returned as a ValidationError naming the offending parameter. Keys not
// present in the schema are ignored.
func (s ConfigSchema) Validate(values map[string]interface{}) error {
	for _, name := range s.Required {
		if _, ok := values[name]; !ok {
			return Errorf(ValidationError, "missing required parameter %q", name)
		}
	}
	for name, spec := range s.Parameters {
		v, ok := values[name]
		if !ok {
			if spec.Required {
				return Errorf(ValidationError, "missing required parameter %q", name)
			}
			continue
		}
		if err := spec.check(name, v); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDefaults returns a copy of values with schema defaults filled in for
// absent parameters.
func (s ConfigSchema) ApplyDefaults(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values)+len(s.Parameters))
	for k, v := range values {
		out[k] = v
	}
	for name, spec := range s.Parameters {
		if _, ok := out[name]; !ok && spec.Default != nil {
			out[name] = spec.Default
		}
	}
	return out
}

func (p ParamSpec) check(name string, v interface{}) error {
	if v == nil {
		return Errorf(ValidationError, "parameter %q must not be null", name)
	}
	switch p.Type {
	case "", "object":
		if p.Type == "object" && reflect.ValueOf(v).Kind() != reflect.Map {
			return typeError(name, "object")
		}
	case "string":
		if _, ok := v.(string); !ok {
			return typeError(name, "string")
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return typeError(name, "boolean")
		}
	case "array":
		if k := reflect.ValueOf(v).Kind(); k != reflect.Slice && k != reflect.Array {
			return typeError(name, "array")
		}
	case "integer":
		n, ok := asNumber(v)
		if !ok || n != math.Trunc(n) {
			return typeError(name, "integer")
		}
		return p.checkRange(name, n)
	case "number":
		n, ok := asNumber(v)
		if !ok {
			return typeError(name, "number")
		}
		return p.checkRange(name, n)
	default:
		return Errorf(InternalError, "parameter %q declares unknown type %q", name, p.Type)
	}
	return nil
}

func (p ParamSpec) checkRange(name string, n float64) error {
	if p.Minimum != nil && n < *p.Minimum {
		return Errorf(ValidationError, "parameter %q is below minimum %v", name, *p.Minimum)
	}
	if p.Maximum != nil && n > *p.Maximum {
		return Errorf(ValidationError, "parameter %q is above maximum %v", name, *p.Maximum)
	}
	return nil
}

func typeError(name, want string) error {
	return Errorf(ValidationError, "parameter %q must be of type %s", name, want)
}

// asNumber accepts the numeric shapes produced by JSON decoding and by
// in-process configuration values.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

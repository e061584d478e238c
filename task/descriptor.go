package task

import (
	"fmt"
	"math"
	"time"

	"github.com/attune-io/attune/types"
)

// ParamType enumerates the accepted parameter value types.
type ParamType string

const (
	ParamString   ParamType = "string"
	ParamPath     ParamType = "path"
	ParamBool     ParamType = "bool"
	ParamInt      ParamType = "int"
	ParamFloat    ParamType = "float"
	ParamDuration ParamType = "duration"
)

// ParamSpec declares one task parameter.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	// Default applies when the parameter is absent and not required.
	Default any
	Usage   string
}

// Descriptor declares a task's complete interface. Immutable after
// registration; help surfaces and plan validation are generated from
// it.
type Descriptor struct {
	// ID is the registry identifier, e.g. "audio.diarize".
	ID    string
	Usage string
	// Inputs and Outputs name the task's artifact contract.
	Inputs  []types.ArtifactSpec
	Outputs []types.ArtifactSpec
	Params  []ParamSpec
}

// Params holds coerced parameter values keyed by name. Values are
// already the declared Go type, so the typed getters only assert.
type Params map[string]any

func (p Params) String(name string) string {
	v, _ := p[name].(string)
	return v
}

func (p Params) Bool(name string) bool {
	v, _ := p[name].(bool)
	return v
}

func (p Params) Int(name string) int {
	v, _ := p[name].(int)
	return v
}

func (p Params) Float(name string) float64 {
	v, _ := p[name].(float64)
	return v
}

func (p Params) Duration(name string) time.Duration {
	v, _ := p[name].(time.Duration)
	return v
}

// CoerceParams validates raw parameter values (as decoded from YAML or
// CLI flags) against the specs: unknown names are rejected, required
// names must be present, defaults fill the rest, and every value is
// coerced to its declared type. All failures are
// ErrInvalidConfiguration, raised before any capability runs.
func CoerceParams(taskID string, specs []ParamSpec, raw map[string]any) (Params, error) {
	byName := make(map[string]ParamSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, types.NewError(types.ErrInvalidConfiguration, taskID, "",
				fmt.Errorf("unknown parameter %q", name))
		}
	}

	params := make(Params, len(specs))
	for _, s := range specs {
		value, ok := raw[s.Name]
		if !ok || value == nil {
			if s.Required {
				return nil, types.NewError(types.ErrInvalidConfiguration, taskID, "",
					fmt.Errorf("missing required parameter %q", s.Name))
			}
			if s.Default == nil {
				continue
			}
			value = s.Default
		}
		coerced, err := coerceValue(s.Type, value)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidConfiguration, taskID, "",
				fmt.Errorf("parameter %q: %w", s.Name, err))
		}
		params[s.Name] = coerced
	}
	return params, nil
}

func coerceValue(t ParamType, value any) (any, error) {
	switch t {
	case ParamString, ParamPath:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return v, nil
	case ParamBool:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		return v, nil
	case ParamInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected integer, got %g", v)
			}
			return int(v), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", value)
		}
	case ParamFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("expected number, got %T", value)
		}
	case ParamDuration:
		switch v := value.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q: %w", v, err)
			}
			return d, nil
		default:
			return nil, fmt.Errorf("expected duration string, got %T", value)
		}
	default:
		return nil, fmt.Errorf("unknown parameter type %q", t)
	}
}

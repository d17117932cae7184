// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jllopis/praxis/pkg/errors"
)

// coerceParams validates raw parameters against the declared schema and
// returns the coerced map. Unknown parameters are rejected so a planner typo
// never silently passes through to the callable.
func coerceParams(specs []ParamSpec, raw map[string]any) (map[string]any, error) {
	byName := make(map[string]ParamSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}
	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, errors.New(errors.CodeParameterParse,
				fmt.Sprintf("unknown parameter %q", name), nil)
		}
	}

	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		value, present := raw[spec.Name]
		if !present {
			if spec.Default != nil {
				out[spec.Name] = spec.Default
				continue
			}
			if spec.Required {
				return nil, errors.New(errors.CodeParameterParse,
					fmt.Sprintf("missing required parameter %q", spec.Name), nil)
			}
			continue
		}
		coerced, err := coerceValue(spec, value)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = coerced
	}
	return out, nil
}

func coerceValue(spec ParamSpec, value any) (any, error) {
	switch spec.Type {
	case "string", "":
		str, ok := value.(string)
		if !ok {
			return nil, parseError(spec.Name, "string", value)
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, str) {
			return nil, errors.New(errors.CodeParameterParse,
				fmt.Sprintf("parameter %q must be one of [%s], got %q",
					spec.Name, strings.Join(spec.Enum, ", "), str), nil)
		}
		return str, nil
	case "int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
			return nil, parseError(spec.Name, "int", value)
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, parseError(spec.Name, "int", value)
			}
			return n, nil
		default:
			return nil, parseError(spec.Name, "int", value)
		}
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, parseError(spec.Name, "float", value)
			}
			return f, nil
		default:
			return nil, parseError(spec.Name, "float", value)
		}
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, parseError(spec.Name, "bool", value)
			}
			return b, nil
		default:
			return nil, parseError(spec.Name, "bool", value)
		}
	default:
		return nil, errors.New(errors.CodeParameterParse,
			fmt.Sprintf("parameter %q has unsupported type %q", spec.Name, spec.Type), nil)
	}
}

func parseError(name, want string, got any) error {
	return errors.New(errors.CodeParameterParse,
		fmt.Sprintf("parameter %q must be %s, got %T", name, want, got), nil)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

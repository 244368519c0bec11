package tool

import (
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"
)

// ParseArguments decodes a tool-call argument payload. Models sometimes emit
// slightly malformed JSON (trailing commas, single quotes), so one repair
// attempt is made before giving up on a syntax error. An empty payload means
// no arguments.
func ParseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	err := json.Unmarshal([]byte(raw), &args)
	if err == nil {
		return args, nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr == nil {
			if json.Unmarshal([]byte(repaired), &args) == nil {
				return args, nil
			}
		}
	}
	return nil, err
}

// StringArg extracts a string argument.
func StringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntArg extracts an integer argument, accepting the float64 form that
// encoding/json produces.
func IntArg(input map[string]any, key string) (int, bool) {
	v, ok := input[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// BoolArg extracts a boolean argument.
func BoolArg(input map[string]any, key string) (bool, bool) {
	v, ok := input[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

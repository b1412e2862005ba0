package evaluator

import (
	"encoding/json"
	"math"
)

// ValueToJSON marshals a Value to JSON bytes.
// Numbers output integers without decimal point. Identifiers are written by name.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case Null:
		return nil

	case Boolean:
		return val.Value

	case Number:
		// Output integers without decimal point
		if val.Value == math.Trunc(val.Value) && !math.IsInf(val.Value, 0) && !math.IsNaN(val.Value) {
			if val.Value >= math.MinInt64 && val.Value <= math.MaxInt64 {
				return int64(val.Value)
			}
		}
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			// JSON has no encoding for these
			return FormatNumber(val.Value)
		}
		return val.Value

	case String:
		return val.Value

	case Identifier:
		return val.Name
	}

	return nil
}

// BindingsToJSON marshals bindings as a JSON object, keeping their order.
func BindingsToJSON(bindings []Binding) ([]byte, error) {
	if len(bindings) == 0 {
		return []byte("{}"), nil
	}

	buf := []byte{'{'}
	for i, b := range bindings {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(b.Name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')

		valBytes, err := ValueToJSON(b.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// ScopeToJSON marshals every binding visible from s.
func ScopeToJSON(s *Scope) ([]byte, error) {
	return BindingsToJSON(s.Bindings())
}

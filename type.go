// File: figtree/type.go
package figtree

import (
	"fmt"
	"reflect"
	"strconv"
)

// PullString pulls an address and converts the result to a string.
// Attempts conversion from common types if the value isn't already a string.
func (n *Node) PullString(addr string, defaults ...any) (string, error) {
	val, err := n.Pull(addr, defaults...)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil // Treat null as empty string for convenience
	}

	if strVal, ok := val.(string); ok {
		return strVal, nil
	}

	switch v := val.(type) {
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case error:
		return v.Error(), nil
	default:
		return "", fmt.Errorf("cannot convert type %T to string for address %s", val, addr)
	}
}

// PullInt pulls an address and converts the result to an int64.
// Attempts conversion from numeric types, parsable strings, and booleans.
func (n *Node) PullInt(addr string, defaults ...any) (int64, error) {
	val, err := n.Pull(addr, defaults...)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return 0, fmt.Errorf("value for address %s is null, cannot convert to int64", addr)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		maxInt64 := int64(^uint64(0) >> 1)
		if u > uint64(maxInt64) {
			return 0, fmt.Errorf("cannot convert unsigned integer %d (type %T) to int64 for address %s: overflow", u, val, addr)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		// Truncate float to int
		return int64(v.Float()), nil
	case reflect.String:
		s := v.String()
		if i, err := strconv.ParseInt(s, 0, 64); err == nil { // Base 0 for auto-detection (e.g., "0xFF")
			return i, nil
		} else {
			if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
				return int64(f), nil // Truncate
			}
			return 0, fmt.Errorf("cannot convert string %q to int64 for address %s: %w", s, addr, err)
		}
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("cannot convert type %T to int64 for address %s", val, addr)
}

// PullBool pulls an address and converts the result to a bool.
// Attempts conversion from numeric types (0=false, non-zero=true) and
// parsable strings.
func (n *Node) PullBool(addr string, defaults ...any) (bool, error) {
	val, err := n.Pull(addr, defaults...)
	if err != nil {
		return false, err
	}
	if val == nil {
		return false, fmt.Errorf("value for address %s is null, cannot convert to bool", addr)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		s := v.String()
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		} else {
			return false, fmt.Errorf("cannot convert string %q to bool for address %s: %w", s, addr, err)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}

	return false, fmt.Errorf("cannot convert type %T to bool for address %s", val, addr)
}

// PullFloat pulls an address and converts the result to a float64.
// Attempts conversion from numeric types, parsable strings, and booleans.
func (n *Node) PullFloat(addr string, defaults ...any) (float64, error) {
	val, err := n.Pull(addr, defaults...)
	if err != nil {
		return 0.0, err
	}
	if val == nil {
		return 0.0, fmt.Errorf("value for address %s is null, cannot convert to float64", addr)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.String:
		s := v.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		} else {
			return 0.0, fmt.Errorf("cannot convert string %q to float64 for address %s: %w", s, addr, err)
		}
	case reflect.Bool:
		if v.Bool() {
			return 1.0, nil
		}
		return 0.0, nil
	}

	return 0.0, fmt.Errorf("cannot convert type %T to float64 for address %s", val, addr)
}

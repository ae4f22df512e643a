// File: figtree/decode.go
package figtree

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// tagName is the struct tag consulted when decoding config data into
// argument structs and Scan targets.
const tagName = "fig"

// decodeHook is the composite hook for all decode-time type conversions.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}

		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// decodeInto decodes a plain map into target using the shared hook set.
func decodeInto(data map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(data)
}

// Scan decodes the subtree at an address into the target struct or map.
// The target must be a non-nil pointer. Fields map through `fig` tags.
func (n *Node) Scan(addr string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	node := n
	if addr != "" {
		found, err := n.Peek(addr)
		if err != nil {
			return err
		}
		node = found
	}

	flat := node.FlatValue()
	section, ok := flat.(map[string]any)
	if !ok {
		return fmt.Errorf("address %q does not refer to a scannable section (mapping), but to type %T", addr, flat)
	}

	if err := decodeInto(section, target); err != nil {
		return fmt.Errorf("failed to scan section %q into %T: %w", addr, target, err)
	}
	return nil
}

// extractArgs populates a self-extracting constructor's argument struct:
// each exported field is pulled by name from the node's children (so aliases
// and parent deferral apply per parameter), then the collected values are
// decoded into the struct. Missing parameters keep the prototype's value.
func extractArgs(cfg *Node, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("argument prototype must be a non-nil pointer, got %T", target)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("argument prototype must point to a struct, got %T", target)
	}

	values := make(map[string]any)
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldKey(field)
		if name == "" {
			continue
		}
		v, err := cfg.PullSilent(name)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue // keep prototype default
			}
			return err
		}
		values[name] = v
	}

	return decodeInto(values, target)
}

// fieldKey derives the config key for a struct field from its fig tag,
// falling back to the lowercased field name. A "-" tag skips the field.
func fieldKey(field reflect.StructField) string {
	tag := field.Tag.Get(tagName)
	if tag == "-" {
		return ""
	}
	if tag != "" {
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" {
			return tag
		}
	}
	return strings.ToLower(field.Name)
}

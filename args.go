// File: figtree/args.go
package figtree

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScriptPlaceholder in the first argv position requests composition with
// no script.
const ScriptPlaceholder = "_"

// ParsedArgv is the structured form of a command line: an optional script
// name, the fragments to compose, and literal key/value overrides.
type ParsedArgv struct {
	Script    string
	Fragments []string
	Data      map[string]any
}

// ParseArgv interprets arguments as `[script] [fragment...] [--key value]`.
// The first non-flag token is the script name ("_" for none), subsequent
// non-flag tokens before the first flag are fragment names, and the rest
// are overrides: `--key value`, `--key=value`, or a bare `--flag` meaning
// true. Values parse as YAML scalars.
func ParseArgv(args []string) (*ParsedArgv, error) {
	parsed := &ParsedArgv{Data: make(map[string]any)}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--") {
			break
		}
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("invalid argument %q: single-dash options are not supported", arg)
		}
		if i == 0 {
			if arg != ScriptPlaceholder {
				parsed.Script = arg
			}
			continue
		}
		parsed.Fragments = append(parsed.Fragments, arg)
	}

	for ; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected positional argument %q after options", arg)
		}
		key := strings.TrimPrefix(arg, "--")
		if key == "" {
			return nil, fmt.Errorf("empty option name in %q", arg)
		}

		if eq := strings.Index(key, "="); eq >= 0 {
			parsed.Data[key[:eq]] = parseScalar(key[eq+1:])
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			parsed.Data[key] = parseScalar(args[i+1])
			i++
			continue
		}
		parsed.Data[key] = true
	}

	return parsed, nil
}

// noneValues are scalar spellings treated as null on the command line and
// in appended values, beyond what YAML itself recognizes.
var noneValues = map[string]bool{
	"None": true, "none": true, "_none": true, "_None": true,
	"null": true, "nil": true,
}

// parseScalar interprets a raw token as a typed scalar using YAML rules,
// with an extended null vocabulary. Unparseable tokens stay strings.
func parseScalar(s string) any {
	if noneValues[s] {
		return nil
	}
	var out any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	switch out.(type) {
	case map[string]any, []any:
		// Command-line values are scalars only.
		return s
	}
	return out
}

// CreateConfigFromArgv parses a command line and composes the resulting
// config. The chosen script name, if any, is recorded under
// _meta.script_name for the caller to dispatch on.
func (m *Manager) CreateConfigFromArgv(args []string) (*Node, error) {
	parsed, err := ParseArgv(args)
	if err != nil {
		return nil, err
	}
	cfg, err := m.CreateConfig(parsed.Fragments, parsed.Data)
	if err != nil {
		return nil, err
	}
	if parsed.Script != "" {
		if err := cfg.Push("_meta.script_name", parsed.Script); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunArgv composes a config from a command line and runs the selected
// script against it. With no script named, the composed config itself is
// returned.
func (m *Manager) RunArgv(args []string) (any, error) {
	parsed, err := ParseArgv(args)
	if err != nil {
		return nil, err
	}
	cfg, err := m.CreateConfig(parsed.Fragments, parsed.Data)
	if err != nil {
		return nil, err
	}
	if parsed.Script == "" {
		return cfg, nil
	}
	if err := cfg.Push("_meta.script_name", parsed.Script); err != nil {
		return nil, err
	}
	reg := cfg.Registry()
	if reg == nil {
		return nil, ErrNoRegistry
	}
	return reg.RunScript(parsed.Script, cfg)
}

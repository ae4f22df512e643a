// File: figtree/manager.go
package figtree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Fragment is a named, registered raw structure plus its declared ancestor
// fragments, prior to merging.
type Fragment struct {
	Name  string
	Path  string // source file, empty for literal registrations
	Bases []string

	tree *Node
}

// Tree returns a detached copy of the fragment's structure.
func (f *Fragment) Tree() *Node {
	return f.tree.Copy()
}

// ManagerOptions configures fragment registration and config composition.
type ManagerOptions struct {
	// ParentKey is the ancestor-list key inside fragment data.
	ParentKey string

	// Delimiter joins directory components into fragment names.
	Delimiter string

	// Extensions lists recognized fragment file extensions, in order.
	Extensions []string

	// Settings seeds the root settings of every created config.
	Settings Settings

	// Reporter is attached to created configs; nil uses a stdout default.
	Reporter *Reporter

	// Registry is attached to created configs for instantiation.
	Registry *Registry
}

// DefaultManagerOptions returns the standard options.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		ParentKey:  BaseKey,
		Delimiter:  "/",
		Extensions: []string{".yaml", ".yml", ".json", ".toml", ".tml"},
	}
}

// Manager owns the fragment registry and composes merged config trees.
type Manager struct {
	opts      ManagerOptions
	fragments map[string]*Fragment
}

// NewManager creates a manager with default options.
func NewManager() *Manager {
	return NewManagerWithOptions(DefaultManagerOptions())
}

// NewManagerWithOptions creates a manager with the given options.
func NewManagerWithOptions(opts ManagerOptions) *Manager {
	if opts.ParentKey == "" {
		opts.ParentKey = BaseKey
	}
	if opts.Delimiter == "" {
		opts.Delimiter = "/"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultManagerOptions().Extensions
	}
	return &Manager{
		opts:      opts,
		fragments: make(map[string]*Fragment),
	}
}

// Registry returns the registry configs created by this manager will carry.
func (m *Manager) Registry() *Registry {
	return m.opts.Registry
}

// RegisterFragment registers raw structured data (or a *Node) under a name.
// The ancestor list is extracted from the parent key, which accepts a single
// name or a sequence of names.
func (m *Manager) RegisterFragment(name string, raw any) (*Fragment, error) {
	if name == "" {
		return nil, fmt.Errorf("fragment name cannot be empty")
	}
	tree := FromRaw(raw)
	bases, err := m.fragmentBases(tree)
	if err != nil {
		return nil, fmt.Errorf("fragment %q: %w", name, err)
	}
	frag := &Fragment{Name: name, Bases: bases, tree: tree}
	m.fragments[name] = frag
	return frag, nil
}

// RegisterFile loads a fragment from a YAML, JSON, or TOML file. An empty
// name registers under the file's base name without extension.
func (m *Manager) RegisterFile(name, path string) (*Fragment, error) {
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	tree, err := loadFragmentFile(path)
	if err != nil {
		return nil, err
	}
	bases, err := m.fragmentBases(tree)
	if err != nil {
		return nil, fmt.Errorf("fragment %q: %w", name, err)
	}
	frag := &Fragment{Name: name, Path: path, Bases: bases, tree: tree}
	m.fragments[name] = frag
	return frag, nil
}

// RegisterDir registers every fragment file found under root. With
// recursive set, subdirectory structure is preserved in fragment names
// using the configured delimiter ("a/b" for a/b.yaml). A prefix, if given,
// is prepended to every name.
func (m *Manager) RegisterDir(root string, recursive bool, prefix string) ([]*Fragment, error) {
	var out []*Fragment
	walk := func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		recognized := false
		for _, e := range m.opts.Extensions {
			if ext == e {
				recognized = true
				break
			}
		}
		if !recognized {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, ext)
		name := prefix + strings.Join(strings.Split(rel, string(filepath.Separator)), m.opts.Delimiter)
		frag, err := m.RegisterFile(name, path)
		if err != nil {
			return err
		}
		out = append(out, frag)
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("failed to register config directory %q: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fragment looks up a registered fragment by name.
func (m *Manager) Fragment(name string) (*Fragment, error) {
	frag, ok := m.fragments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFragment, name)
	}
	return frag, nil
}

// FragmentNames returns all registered fragment names, sorted.
func (m *Manager) FragmentNames() []string {
	names := make([]string, 0, len(m.fragments))
	for name := range m.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fragmentBases extracts the declared ancestor names from a fragment tree.
func (m *Manager) fragmentBases(tree *Node) ([]string, error) {
	if tree.kind != Mapping {
		return nil, nil
	}
	base, ok := tree.child(m.opts.ParentKey)
	if !ok {
		return nil, nil
	}
	switch base.kind {
	case Scalar:
		s, ok := base.value.(string)
		if !ok {
			return nil, fmt.Errorf("invalid %s value %v (type %T)", m.opts.ParentKey, base.value, base.value)
		}
		return []string{s}, nil
	case Sequence:
		out := make([]string, 0, base.Len())
		for _, item := range base.items {
			s, ok := item.value.(string)
			if !item.IsLeaf() || !ok {
				return nil, fmt.Errorf("invalid %s entry %v", m.opts.ParentKey, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid %s value of kind %s", m.opts.ParentKey, base.kind)
	}
}

// CreateConfig composes the named fragments (highest precedence last) and
// the optional literal data overlay (highest precedence overall) into one
// merged tree. Fragment ancestry is linearized before merging, the parent
// key is stripped from the result, and merge provenance is recorded under
// the ancestors key, lowest precedence first.
func (m *Manager) CreateConfig(names []string, data map[string]any) (*Node, error) {
	if data != nil {
		if _, clash := data[m.opts.ParentKey]; clash {
			return nil, fmt.Errorf("literal data cannot declare %s", m.opts.ParentKey)
		}
	}

	order, err := linearizeAncestry(names, func(name string) ([]string, error) {
		frag, err := m.Fragment(name)
		if err != nil {
			return nil, err
		}
		return frag.Bases, nil
	})
	if err != nil {
		return nil, err
	}

	merged := NewMapping()
	if m.opts.Settings != nil {
		merged.ApplySettings(m.opts.Settings)
	}
	if m.opts.Reporter != nil {
		merged.SetReporter(m.opts.Reporter)
	}
	if m.opts.Registry != nil {
		merged.SetRegistry(m.opts.Registry)
	}

	for _, name := range order {
		frag := m.fragments[name]
		merged.Update(frag.tree.Copy())
	}

	// Literal overrides are deep addresses, so --a.b.c reaches into the tree.
	dataKeys := make([]string, 0, len(data))
	for key := range data {
		dataKeys = append(dataKeys, key)
	}
	sort.Strings(dataKeys)
	for _, key := range dataKeys {
		if err := merged.Push(key, data[key]); err != nil {
			return nil, err
		}
	}

	merged.Remove(m.opts.ParentKey)
	if len(order) > 0 {
		if _, err := merged.SetChild(AncestorsKey, anySlice(order), true); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// QuickConfig composes the named fragments with no literal overlay.
func (m *Manager) QuickConfig(names ...string) (*Node, error) {
	return m.CreateConfig(names, nil)
}

// ApplyEnv overrides leaf values from environment variables: each leaf
// address maps to prefix + uppercased path with dots as underscores
// (server.port -> MYAPP_SERVER_PORT), and matching variables are pushed
// onto the tree as YAML-parsed scalars.
func (m *Manager) ApplyEnv(cfg *Node, prefix string) error {
	addrs := leafAddresses(cfg, "")
	for _, addr := range addrs {
		env := strings.ToUpper(strings.ReplaceAll(addr, ".", "_"))
		if prefix != "" {
			env = prefix + env
		}
		if value, exists := os.LookupEnv(env); exists {
			if err := cfg.Push(addr, parseScalar(value)); err != nil {
				return err
			}
		}
	}
	return nil
}

func leafAddresses(n *Node, prefix string) []string {
	if n.IsLeaf() {
		if prefix == "" {
			return nil
		}
		return []string{prefix}
	}
	var out []string
	for _, key := range n.Keys() {
		child, _ := n.child(key)
		addr := key
		if prefix != "" {
			addr = prefix + "." + key
		}
		out = append(out, leafAddresses(child, addr)...)
	}
	return out
}

// Save exports a config tree to YAML and writes it atomically.
func (m *Manager) Save(cfg *Node, path string) error {
	data, err := cfg.Export()
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data through a temporary file in the target
// directory and renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// loadFragmentFile reads and parses a fragment file, detecting the format
// from the extension and falling back to content detection.
func loadFragmentFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
		if format == "" {
			return nil, fmt.Errorf("unable to determine config format for file '%s'", path)
		}
	}

	switch format {
	case "yaml":
		tree, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
		return tree, nil
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		var raw any
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
		return FromRaw(normalizeJSON(raw)), nil
	case "toml":
		raw := make(map[string]any)
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
		return FromRaw(raw), nil
	default:
		return nil, fmt.Errorf("unknown config format %q for file '%s'", format, path)
	}
}

// normalizeJSON converts json.Number values into int64 or float64 scalars.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeJSON(val)
		}
		return out
	default:
		return v
	}
}

// detectFileFormat determines format from file extension.
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// Try TOML before YAML, since YAML accepts nearly anything
	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	return ""
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

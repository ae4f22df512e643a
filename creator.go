// File: figtree/creator.go
package figtree

import (
	"fmt"
	"strings"
)

// Constructor builds a product from a type-tagged config node. Errors (and
// panics) raised here propagate to the pull caller unmodified.
type Constructor func(cfg *Node) (any, error)

// Modifier wraps a constructor, composing extra behavior ahead of it. With
// _mod: [a, b] the composite is a(b(base)): the first listed modifier is the
// most specific and sees the call first. Composition is order-sensitive.
type Modifier func(next Constructor) Constructor

// Script is a registered top-level entry point taking the merged config.
type Script func(cfg *Node) (any, error)

// Creator is a strategy governing how a type-tagged node's constructor is
// invoked and its result produced. Custom strategies are registered by name
// and selected via the _creator key or the creator setting.
type Creator interface {
	CreateProduct(cfg *Node) (any, error)
}

// ComponentEntry records a registered constructor. Entries registered via
// RegisterComponentArgs are self-extracting: their parameters are pulled by
// name from the node's children before the call.
type ComponentEntry struct {
	Name        string
	CreatorName string // preferred creator strategy, empty for default

	build     Constructor
	proto     func() any
	buildArgs func(args any) (any, error)
}

// WithCreator sets the preferred creator strategy for this component.
func (e *ComponentEntry) WithCreator(name string) *ComponentEntry {
	e.CreatorName = name
	return e
}

// constructor returns the callable form of the entry, wrapping argument
// extraction for self-extracting components.
func (e *ComponentEntry) constructor() Constructor {
	if e.proto == nil {
		return e.build
	}
	return func(cfg *Node) (any, error) {
		args := e.proto()
		if err := extractArgs(cfg, args); err != nil {
			return nil, fmt.Errorf("failed to extract arguments for component %q: %w", e.Name, err)
		}
		return e.buildArgs(args)
	}
}

// ScriptEntry records a registered script.
type ScriptEntry struct {
	Name        string
	Description string
	Run         Script
}

// Registry holds name -> callable records in four namespaces: scripts,
// components, modifiers, and creator strategies. The config core only needs
// read access by name.
type Registry struct {
	scripts    map[string]*ScriptEntry
	components map[string]*ComponentEntry
	modifiers  map[string]Modifier
	creators   map[string]Creator
}

// NewRegistry returns an empty registry with the default creator strategy
// pre-registered under "default".
func NewRegistry() *Registry {
	r := &Registry{
		scripts:    make(map[string]*ScriptEntry),
		components: make(map[string]*ComponentEntry),
		modifiers:  make(map[string]Modifier),
		creators:   make(map[string]Creator),
	}
	r.RegisterCreator("default", DefaultCreator{})
	return r
}

// RegisterComponent registers a plain constructor: it receives the node
// itself and performs its own extraction.
func (r *Registry) RegisterComponent(name string, build Constructor) *ComponentEntry {
	entry := &ComponentEntry{Name: name, build: build}
	r.components[name] = entry
	return entry
}

// RegisterComponentArgs registers a self-extracting constructor: proto
// allocates the argument struct, its fields are pulled by name from the
// node's children (fig tags, falling back to lowercased field names), and
// build receives the populated struct.
func (r *Registry) RegisterComponentArgs(name string, proto func() any, build func(args any) (any, error)) *ComponentEntry {
	entry := &ComponentEntry{Name: name, proto: proto, buildArgs: build}
	r.components[name] = entry
	return entry
}

// RegisterModifier registers a named constructor wrapper.
func (r *Registry) RegisterModifier(name string, mod Modifier) {
	r.modifiers[name] = mod
}

// RegisterCreator registers a named creator strategy.
func (r *Registry) RegisterCreator(name string, c Creator) {
	r.creators[name] = c
}

// RegisterScript registers a named entry point.
func (r *Registry) RegisterScript(name, description string, run Script) {
	r.scripts[name] = &ScriptEntry{Name: name, Description: description, Run: run}
}

// Component looks up a registered constructor by name.
func (r *Registry) Component(name string) (*ComponentEntry, error) {
	entry, ok := r.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return entry, nil
}

// Modifier looks up a registered modifier by name.
func (r *Registry) Modifier(name string) (Modifier, error) {
	mod, ok := r.modifiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModifier, name)
	}
	return mod, nil
}

// Creator looks up a registered creator strategy by name.
func (r *Registry) Creator(name string) (Creator, error) {
	c, ok := r.creators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCreator, name)
	}
	return c, nil
}

// Script looks up a registered script by name.
func (r *Registry) Script(name string) (*ScriptEntry, error) {
	entry, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScript, name)
	}
	return entry, nil
}

// Scripts returns the registered script entries, for help listings.
func (r *Registry) Scripts() []*ScriptEntry {
	out := make([]*ScriptEntry, 0, len(r.scripts))
	for _, e := range r.scripts {
		out = append(out, e)
	}
	return out
}

// RunScript resolves and invokes a registered script with the given config.
func (r *Registry) RunScript(name string, cfg *Node) (any, error) {
	entry, err := r.Script(name)
	if err != nil {
		return nil, err
	}
	return entry.Run(cfg)
}

// DefaultCreator is the stock creation strategy: scalars produce their
// payload, untagged containers produce plain maps and slices of their pulled
// children, and _type-tagged mappings invoke the registered constructor.
type DefaultCreator struct{}

func (DefaultCreator) CreateProduct(cfg *Node) (any, error) {
	return cfg.defaultCreate(cfg.Silent(), false)
}

// Address returns the dotted path of this node from its root.
func (n *Node) Address() string {
	var segs []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		segs = append(segs, cur.key)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, ".")
}

// Product returns the cached product, if any.
func (n *Node) Product() (any, bool) {
	return n.product, n.hasProduct
}

// Process returns this node's product, constructing and caching it on the
// first call. With force_create set a fresh product is built every time;
// with allow_create false a cache miss fails with ErrProductUnavailable.
func (n *Node) Process() (any, error) {
	return n.process(nil, n.Silent())
}

// ProcessSilent is Process without reporter output.
func (n *Node) ProcessSilent() (any, error) {
	return n.process(nil, true)
}

// Create always constructs a fresh product. The cached product is left
// untouched unless the cache was previously empty.
func (n *Node) Create() (any, error) {
	p, err := n.construct(n.Silent())
	if err != nil {
		return nil, err
	}
	if !n.hasProduct {
		n.product = p
		n.hasProduct = true
	}
	return p, nil
}

// CreateSilent is Create without reporter output.
func (n *Node) CreateSilent() (any, error) {
	p, err := n.construct(true)
	if err != nil {
		return nil, err
	}
	if !n.hasProduct {
		n.product = p
		n.hasProduct = true
	}
	return p, nil
}

func (n *Node) process(s *search, silent bool) (any, error) {
	force := n.SettingBool(SettingForceCreate, false)
	if s != nil && s.force {
		force = true
	}
	if n.hasProduct && !force {
		if !silent && n.kind == Mapping && n.HasChild(TypeKey) {
			chain := []string{n.Address()}
			if s != nil {
				chain = s.chain
			}
			typeName, _ := n.typeTag()
			n.Reporter().reportReuse(n, chain, typeName)
		}
		return n.product, nil
	}
	if !n.SettingBool(SettingAllowCreate, true) {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, n.Address())
	}
	p, err := n.construct(silent)
	if err != nil {
		return nil, err
	}
	n.product = p
	n.hasProduct = true
	return p, nil
}

// produce turns a resolved node into a pull result.
func (s *search) produce(node *Node, silent bool) (any, error) {
	if node.IsLeaf() {
		if !silent {
			node.Reporter().reportValue(s.origin, s.chain, node.value)
		}
		return node.value, nil
	}
	return node.process(s, silent)
}

// construct dispatches to the selected creator strategy: the node-level
// _creator key wins, then the creator setting, then the default strategy.
func (n *Node) construct(silent bool) (any, error) {
	creatorName := ""
	if c, ok := n.child(CreatorKey); ok && c.IsLeaf() {
		creatorName, _ = c.value.(string)
	}
	if creatorName == "" {
		creatorName = n.SettingString(SettingCreator, "")
	}
	if creatorName != "" && creatorName != "default" {
		reg := n.Registry()
		if reg == nil {
			return nil, fmt.Errorf("%w: creator %q requested", ErrNoRegistry, creatorName)
		}
		c, err := reg.Creator(creatorName)
		if err != nil {
			return nil, err
		}
		return c.CreateProduct(n)
	}
	return n.defaultCreate(silent, true)
}

// typeTag returns the resolved _type value, if present.
func (n *Node) typeTag() (string, bool) {
	if n.kind != Mapping || !n.HasChild(TypeKey) {
		return "", false
	}
	v, err := n.PullSilent(TypeKey)
	if err != nil {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}

// defaultCreate implements the stock creation strategy. honorEntryCreator
// allows a component entry's preferred strategy to take over exactly once.
func (n *Node) defaultCreate(silent bool, honorEntryCreator bool) (any, error) {
	typeName, tagged := n.typeTag()
	if !tagged {
		return n.createContainer(silent)
	}
	return n.createComponent(typeName, silent, honorEntryCreator)
}

// createContainer recursively pulls children into plain data. Scalar nodes
// simply yield their payload.
func (n *Node) createContainer(silent bool) (any, error) {
	switch n.kind {
	case Scalar:
		return n.value, nil
	case Mapping:
		if !silent {
			n.Reporter().reportContainer(n, []string{n.Address()}, n)
		}
		out := make(map[string]any, n.Len())
		for _, key := range n.Keys() {
			v, err := n.pull(key, silent)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	default:
		if !silent {
			n.Reporter().reportContainer(n, []string{n.Address()}, n)
		}
		out := make([]any, 0, n.Len())
		for _, key := range n.Keys() {
			v, err := n.pull(key, silent)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// createComponent resolves the registered constructor, derives the composite
// for any listed modifiers, and invokes it with this node.
func (n *Node) createComponent(typeName string, silent bool, honorEntryCreator bool) (any, error) {
	reg := n.Registry()
	if reg == nil {
		return nil, fmt.Errorf("%w: component %q requested", ErrNoRegistry, typeName)
	}
	entry, err := reg.Component(typeName)
	if err != nil {
		return nil, err
	}

	if honorEntryCreator && entry.CreatorName != "" && entry.CreatorName != "default" {
		c, err := reg.Creator(entry.CreatorName)
		if err != nil {
			return nil, err
		}
		return c.CreateProduct(n)
	}

	mods, err := n.modifierTags()
	if err != nil {
		return nil, err
	}

	ctor := entry.constructor()
	// Wrap right to left so the first listed modifier is outermost.
	for i := len(mods) - 1; i >= 0; i-- {
		mod, err := reg.Modifier(mods[i])
		if err != nil {
			return nil, err
		}
		ctor = mod(ctor)
	}

	if !silent {
		n.Reporter().reportCreate(n, []string{n.Address()}, typeName, mods, entry.CreatorName)
	}
	return ctor(n)
}

// modifierTags resolves the _mod key into an ordered name list. A string
// names a single modifier; a sequence lists several, most specific first.
func (n *Node) modifierTags() ([]string, error) {
	if !n.HasChild(ModKey) {
		return nil, nil
	}
	v, err := n.PullSilent(ModKey)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{m}, nil
	case []any:
		out := make([]string, 0, len(m))
		for _, item := range m {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid modifier entry %v (type %T)", item, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("invalid modifier value %v (type %T)", v, v)
	}
}

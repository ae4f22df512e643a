// File: figtree/node.go
package figtree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies what a node holds. A node is exactly one kind at a time;
// the kind changes only by replacing the node, never by mutation.
type Kind int

const (
	Scalar Kind = iota
	Mapping
	Sequence
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Mapping:
		return "mapping"
	case Sequence:
		return "sequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one addressable point in a config tree. It holds a scalar value,
// or acts as an ordered mapping or sequence of child nodes. The parent link
// is a non-owning back-reference used for upward traversal only; each child
// is owned by exactly one parent.
type Node struct {
	kind  Kind
	value any // scalar payload

	keys     []string         // mapping insertion order
	children map[string]*Node // mapping children
	items    []*Node          // sequence children

	parent *Node
	key    string // key (or index) under parent; empty on roots

	settings Settings

	// root-only collaborators, resolved through the parent chain
	registry *Registry
	reporter *Reporter

	product    any
	hasProduct bool
}

// NewScalar returns a leaf node holding value.
func NewScalar(value any) *Node {
	return &Node{kind: Scalar, value: value}
}

// NewMapping returns an empty ordered-mapping node.
func NewMapping() *Node {
	return &Node{kind: Mapping, children: make(map[string]*Node)}
}

// NewSequence returns an empty sequence node.
func NewSequence() *Node {
	return &Node{kind: Sequence}
}

// FromRaw converts plain nested data (maps, slices, scalars) into a node
// tree. Map keys are sorted for deterministic ordering; use ParseYAML to
// preserve document order. An existing *Node is deep-copied.
func FromRaw(raw any) *Node {
	switch v := raw.(type) {
	case *Node:
		return v.copy()
	case map[string]any:
		n := NewMapping()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			n.attach(k, FromRaw(v[k]))
		}
		return n
	case map[any]any:
		flat := make(map[string]any, len(v))
		for k, val := range v {
			flat[fmt.Sprint(k)] = val
		}
		return FromRaw(flat)
	case []any:
		n := NewSequence()
		for _, item := range v {
			n.Append(FromRaw(item))
		}
		return n
	default:
		return NewScalar(raw)
	}
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// IsLeaf reports whether the node holds a scalar.
func (n *Node) IsLeaf() bool { return n.kind == Scalar }

// Value returns the scalar payload; nil for containers.
func (n *Node) Value() any { return n.value }

// Parent returns the owning node, or nil on a root.
func (n *Node) Parent() *Node { return n.parent }

// Key returns the key (or index) this node is stored under in its parent.
func (n *Node) Key() string { return n.key }

// Root walks the parent chain to the top of the tree.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Len returns the number of immediate children; zero for scalars.
func (n *Node) Len() int {
	switch n.kind {
	case Mapping:
		return len(n.keys)
	case Sequence:
		return len(n.items)
	default:
		return 0
	}
}

// Keys returns mapping keys in insertion order, or stringified indices for
// sequences. The returned slice is a copy.
func (n *Node) Keys() []string {
	switch n.kind {
	case Mapping:
		out := make([]string, len(n.keys))
		copy(out, n.keys)
		return out
	case Sequence:
		out := make([]string, len(n.items))
		for i := range n.items {
			out[i] = strconv.Itoa(i)
		}
		return out
	default:
		return nil
	}
}

// Children returns immediate children in insertion (or index) order.
// The returned slice is a copy; the nodes are not.
func (n *Node) Children() []*Node {
	switch n.kind {
	case Mapping:
		out := make([]*Node, 0, len(n.keys))
		for _, k := range n.keys {
			out = append(out, n.children[k])
		}
		return out
	case Sequence:
		out := make([]*Node, len(n.items))
		copy(out, n.items)
		return out
	default:
		return nil
	}
}

// child performs a direct single-segment lookup with no deferral.
// Integer-like segments address sequence indices when the node is a sequence.
func (n *Node) child(key string) (*Node, bool) {
	switch n.kind {
	case Mapping:
		c, ok := n.children[key]
		return c, ok
	case Sequence:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(n.items) {
			return nil, false
		}
		return n.items[idx], true
	default:
		return nil, false
	}
}

// HasChild reports whether a direct child exists for the given segment.
func (n *Node) HasChild(key string) bool {
	_, ok := n.child(key)
	return ok
}

// GetChild returns the direct child for a mapping key or sequence index.
// It fails with ErrKeyNotFound when absent; no parent deferral applies.
func (n *Node) GetChild(key string) (*Node, error) {
	c, ok := n.child(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return c, nil
}

// attach inserts or replaces a direct mapping child, preserving insertion
// order for existing keys.
func (n *Node) attach(key string, child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[key]; !exists {
		n.keys = append(n.keys, key)
	}
	child.parent = n
	child.key = key
	n.children[key] = child
}

// Append adds a child to the end of a sequence node.
func (n *Node) Append(child *Node) {
	child.parent = n
	child.key = strconv.Itoa(len(n.items))
	n.items = append(n.items, child)
}

// Remove deletes a direct child and reports whether it existed.
func (n *Node) Remove(key string) bool {
	switch n.kind {
	case Mapping:
		if _, ok := n.children[key]; !ok {
			return false
		}
		delete(n.children, key)
		for i, k := range n.keys {
			if k == key {
				n.keys = append(n.keys[:i], n.keys[i+1:]...)
				break
			}
		}
		return true
	case Sequence:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(n.items) {
			return false
		}
		n.items = append(n.items[:idx], n.items[idx+1:]...)
		for i := idx; i < len(n.items); i++ {
			n.items[i].key = strconv.Itoa(i)
		}
		return true
	default:
		return false
	}
}

// SetChild inserts or replaces a child at a possibly dotted address,
// auto-vivifying intermediate mapping nodes. With overwrite false an
// existing child is kept and returned unchanged. The sequence segment "_"
// appends to the end of a sequence node.
func (n *Node) SetChild(addr string, value any, overwrite bool) (*Node, error) {
	segments := splitAddress(addr)
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty address")
	}
	cur := n
	for _, seg := range segments[:len(segments)-1] {
		if seg == "" {
			continue
		}
		next, ok := cur.child(seg)
		if !ok || next.kind == Scalar {
			next = NewMapping()
			if err := cur.place(seg, next); err != nil {
				return nil, err
			}
		}
		cur = next
	}

	last := segments[len(segments)-1]
	if existing, ok := cur.child(last); ok && !overwrite {
		return existing, nil
	}
	child := FromRaw(value)
	if err := cur.place(last, child); err != nil {
		return nil, err
	}
	return child, nil
}

// place stores child under a single segment, honoring sequence indexing.
func (n *Node) place(seg string, child *Node) error {
	switch n.kind {
	case Mapping:
		n.attach(seg, child)
		return nil
	case Sequence:
		if seg == "_" {
			n.Append(child)
			return nil
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx > len(n.items) {
			return fmt.Errorf("invalid sequence index %q", seg)
		}
		if idx == len(n.items) {
			n.Append(child)
			return nil
		}
		child.parent = n
		child.key = seg
		n.items[idx] = child
		return nil
	default:
		return fmt.Errorf("cannot set child %q on %s node", seg, n.kind)
	}
}

// splitAddress breaks a dotted address into segments. A list address may be
// provided pre-split via PeekPath and friends.
func splitAddress(addr string) []string {
	if addr == "" {
		return nil
	}
	return strings.Split(addr, ".")
}

// FlatValue recursively strips container structure into plain nested data
// (map[string]any, []any, scalars). Cached products are never included.
func (n *Node) FlatValue() any {
	switch n.kind {
	case Mapping:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.children[k].FlatValue()
		}
		return out
	case Sequence:
		out := make([]any, 0, len(n.items))
		for _, item := range n.items {
			out = append(out, item.FlatValue())
		}
		return out
	default:
		return n.value
	}
}

// copy deep-copies structure, values, and local settings. Products, parent
// links, and root collaborators are not carried over.
func (n *Node) copy() *Node {
	out := &Node{kind: n.kind, value: n.value}
	if n.settings != nil {
		out.settings = n.settings.clone()
	}
	switch n.kind {
	case Mapping:
		out.children = make(map[string]*Node, len(n.keys))
		for _, k := range n.keys {
			out.attach(k, n.children[k].copy())
		}
	case Sequence:
		for _, item := range n.items {
			out.Append(item.copy())
		}
	}
	return out
}

// Copy returns a detached deep copy of this subtree.
func (n *Node) Copy() *Node { return n.copy() }

// ClearProduct discards this node's cached product, and recursively its
// children's, without altering structure.
func (n *Node) ClearProduct(recursive bool) {
	n.product = nil
	n.hasProduct = false
	if recursive {
		for _, c := range n.Children() {
			c.ClearProduct(true)
		}
	}
}

// ProductExists reports whether a constructed object is cached on this node.
func (n *Node) ProductExists() bool { return n.hasProduct }

// SetRegistry attaches the artifact registry to this tree's root.
func (n *Node) SetRegistry(r *Registry) {
	n.Root().registry = r
}

// Registry returns the registry attached to this tree, or nil.
func (n *Node) Registry() *Registry {
	return n.Root().registry
}

// depth returns the number of ancestors above this node.
func (n *Node) depth() int {
	d := 0
	for cur := n.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

func (n *Node) String() string {
	switch n.kind {
	case Scalar:
		return fmt.Sprintf("Node(%v)", n.value)
	default:
		return fmt.Sprintf("Node[%d children](%s)", n.Len(), strings.Join(n.Keys(), ", "))
	}
}

// UnmarshalYAML builds the node from a YAML document, preserving mapping
// key order.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.DocumentNode:
		if len(value.Content) == 0 {
			*n = Node{kind: Scalar}
			return nil
		}
		return n.UnmarshalYAML(value.Content[0])
	case yaml.AliasNode:
		return n.UnmarshalYAML(value.Alias)
	case yaml.MappingNode:
		*n = Node{kind: Mapping, children: make(map[string]*Node)}
		for i := 0; i+1 < len(value.Content); i += 2 {
			var key string
			if err := value.Content[i].Decode(&key); err != nil {
				return fmt.Errorf("invalid mapping key at line %d: %w", value.Content[i].Line, err)
			}
			child := &Node{}
			if err := child.UnmarshalYAML(value.Content[i+1]); err != nil {
				return err
			}
			n.attach(key, child)
		}
		return nil
	case yaml.SequenceNode:
		*n = Node{kind: Sequence}
		for _, item := range value.Content {
			child := &Node{}
			if err := child.UnmarshalYAML(item); err != nil {
				return err
			}
			n.Append(child)
		}
		return nil
	default:
		var v any
		if err := value.Decode(&v); err != nil {
			return err
		}
		*n = Node{kind: Scalar, value: v}
		return nil
	}
}

// MarshalYAML serializes the node with mapping keys in insertion order.
// Products are never serialized.
func (n *Node) MarshalYAML() (any, error) {
	return n.yamlNode()
}

func (n *Node) yamlNode() (*yaml.Node, error) {
	switch n.kind {
	case Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.keys {
			keyNode := &yaml.Node{}
			if err := keyNode.Encode(k); err != nil {
				return nil, err
			}
			valNode, err := n.children[k].yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, keyNode, valNode)
		}
		return out, nil
	case Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			valNode, err := item.yamlNode()
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, valNode)
		}
		return out, nil
	default:
		out := &yaml.Node{}
		if err := out.Encode(n.value); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// ParseYAML builds a node tree from YAML data, preserving mapping key order.
func ParseYAML(data []byte) (*Node, error) {
	n := &Node{}
	if err := yaml.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if n.kind == Scalar && n.value == nil {
		// Empty documents act as empty mappings.
		return NewMapping(), nil
	}
	return n, nil
}

// Export serializes the tree to YAML, the persisted format for config trees.
func (n *Node) Export() ([]byte, error) {
	data, err := yaml.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config tree: %w", err)
	}
	return data, nil
}

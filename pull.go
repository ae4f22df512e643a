// File: figtree/pull.go
package figtree

import "fmt"

// Peek resolves an address to the node it denotes, applying parent deferral
// and alias chasing, without producing a value or constructing anything.
func (n *Node) Peek(addr string) (*Node, error) {
	return newSearch(n).resolveAddress(n, addr)
}

// Peeks tries each address in order and returns the first node that resolves.
func (n *Node) Peeks(addrs ...string) (*Node, error) {
	var lastErr error
	for _, addr := range addrs {
		node, err := n.Peek(addr)
		if err == nil {
			return node, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &SearchError{}
	}
	return nil, lastErr
}

// Pull resolves an address and produces its value: scalars are returned
// directly, type-tagged mappings are instantiated (memoized per node), and
// untagged containers are recursively pulled into plain maps and slices.
// When resolution fails, each default is tried in order; a default that is
// itself an alias-formatted string is resolved as an address from this node,
// and the first resolved or plain-literal default wins. With no defaults the
// failure is returned.
func (n *Node) Pull(addr string, defaults ...any) (any, error) {
	return n.pull(addr, n.Silent(), defaults...)
}

// PullSilent is Pull without the trace line, regardless of the silent setting.
func (n *Node) PullSilent(addr string, defaults ...any) (any, error) {
	return n.pull(addr, true, defaults...)
}

func (n *Node) pull(addr string, silent bool, defaults ...any) (any, error) {
	s := newSearch(n)
	node, err := s.resolveAddress(n, addr)
	if err != nil {
		return n.pullDefaults(s, err, silent, defaults)
	}
	return s.produce(node, silent)
}

// pullDefaults tries the supplied defaults after a failed resolution.
func (n *Node) pullDefaults(s *search, searchErr error, silent bool, defaults []any) (any, error) {
	for _, def := range defaults {
		if d := parseDirective(def); d.isAlias() {
			sub := newSearch(n)
			sub.chain = append(sub.chain, s.chain...)
			node, err := sub.resolveAddress(n, d.arg)
			if err != nil {
				continue
			}
			return sub.produce(node, silent)
		}
		if !silent {
			n.Reporter().reportDefault(n, s.chain, def)
		}
		return def, nil
	}
	return nil, searchErr
}

// Pulls tries each address in order with no per-address defaults; if all
// fail, the defaults are tried as in Pull, and with none given the last
// failure is returned.
func (n *Node) Pulls(addrs []string, defaults ...any) (any, error) {
	silent := n.Silent()
	var s *search
	var lastErr error
	for _, addr := range addrs {
		s = newSearch(n)
		node, err := s.resolveAddress(n, addr)
		if err == nil {
			return s.produce(node, silent)
		}
		lastErr = err
	}
	if s == nil {
		s = newSearch(n)
		lastErr = s.failed()
	}
	return n.pullDefaults(s, lastErr, silent, defaults)
}

// PullRaw resolves an address and returns the raw structural dump of the
// node, bypassing instantiation entirely.
func (n *Node) PullRaw(addr string) (any, error) {
	node, err := n.Peek(addr)
	if err != nil {
		return nil, err
	}
	return node.FlatValue(), nil
}

// Push deep-sets a value at an address, auto-creating intermediate mapping
// nodes. Pushing the deletion marker removes the target key instead.
func (n *Node) Push(addr string, value any) error {
	if n.ReadOnly() {
		return fmt.Errorf("%w: cannot push %q", ErrReadOnly, addr)
	}
	if parseDirective(value).kind == dirDelete {
		return n.deleteAt(addr)
	}
	if _, err := n.SetChild(addr, value, true); err != nil {
		return err
	}
	return nil
}

// PushSoft sets a value only if the address does not already hold one;
// otherwise the existing value is returned untouched.
func (n *Node) PushSoft(addr string, value any) (any, error) {
	if n.ReadOnly() {
		return nil, fmt.Errorf("%w: cannot push %q", ErrReadOnly, addr)
	}
	child, err := n.SetChild(addr, value, false)
	if err != nil {
		return nil, err
	}
	return child.FlatValue(), nil
}

// PushPull sets a value and immediately pulls it back through full
// resolution, so pushed aliases and type tags take effect.
func (n *Node) PushPull(addr string, value any) (any, error) {
	if err := n.Push(addr, value); err != nil {
		return nil, err
	}
	return n.Pull(addr)
}

// deleteAt removes the node a dotted address points to, if present.
func (n *Node) deleteAt(addr string) error {
	segs := splitAddress(addr)
	if len(segs) == 0 {
		return fmt.Errorf("empty address")
	}
	cur := n
	for _, seg := range segs[:len(segs)-1] {
		if seg == "" {
			continue
		}
		next, ok := cur.child(seg)
		if !ok {
			return nil // nothing to delete
		}
		cur = next
	}
	cur.Remove(segs[len(segs)-1])
	return nil
}

// ChildValue pairs a child key with its pulled value.
type ChildValue struct {
	Key   string
	Value any
}

// PeekChildren resolves each immediate child through the search machinery,
// so alias-valued children land on their targets. Order follows insertion.
func (n *Node) PeekChildren() ([]*Node, error) {
	out := make([]*Node, 0, n.Len())
	for _, key := range n.Keys() {
		node, err := n.Peek(key)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// PullChildren pulls every immediate child and returns the key/value pairs
// in insertion order. Type-tagged children are instantiated as usual.
func (n *Node) PullChildren() ([]ChildValue, error) {
	out := make([]ChildValue, 0, n.Len())
	for _, key := range n.Keys() {
		value, err := n.Pull(key)
		if err != nil {
			return nil, err
		}
		out = append(out, ChildValue{Key: key, Value: value})
	}
	return out, nil
}

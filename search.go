// File: figtree/search.go
package figtree

// search carries the state of one top-level resolution: the origin node the
// call began at (needed for origin-relative aliases), the query chain for
// reporting, and the force flag set by <!> aliases.
type search struct {
	origin *Node
	chain  []string
	force  bool
	fuel   int
}

// aliasFuel bounds alias chasing so reference cycles fail instead of hanging.
const aliasFuel = 100

func newSearch(origin *Node) *search {
	return &search{origin: origin, fuel: aliasFuel}
}

func (s *search) failed() error {
	chain := make([]string, len(s.chain))
	copy(chain, s.chain)
	return &SearchError{Chain: chain}
}

// resolveAddress resolves a dotted address starting at src, following
// aliases on the final node.
func (s *search) resolveAddress(src *Node, addr string) (*Node, error) {
	s.chain = append(s.chain, addr)
	node, err := s.resolveSegments(src, splitAddress(addr), true)
	if err != nil {
		return nil, err
	}
	return s.processNode(node)
}

// resolveSegments walks the remaining path segments from src. On a mapping
// miss the lookup retries at the parent with the full remaining path
// preserved, unless the segment is hidden or ask_parents is disabled.
func (s *search) resolveSegments(src *Node, segs []string, askParents bool) (*Node, error) {
	if len(segs) == 0 {
		return src, nil
	}
	seg := segs[0]
	if seg == "" {
		// Leading or doubled dot: self-reference no-op.
		return s.resolveSegments(src, segs[1:], askParents)
	}

	child, ok := src.child(seg)
	if ok {
		if parseDirective(child.value).kind == dirCutoff {
			// The key exists but resolves to "not effectively present";
			// deferral is suppressed for this key.
			return nil, s.failed()
		}
		if len(segs) == 1 {
			return child, nil
		}
		// Chase aliases before descending so deep keys can route through
		// redirected subtrees.
		next, err := s.processNode(child)
		if err != nil {
			return nil, err
		}
		return s.resolveSegments(next, segs[1:], askParents)
	}

	if askParents && !isHiddenKey(seg) && src.SettingBool(SettingAskParents, true) && src.parent != nil {
		if res, err := s.resolveSegments(src.parent, segs, askParents); err == nil {
			return res, nil
		}
	}

	if askParents && src.SettingBool(SettingAllowCousins, false) {
		if res, err := s.cousinLookup(src, segs); err == nil {
			return res, nil
		}
	}

	return nil, s.failed()
}

// cousinLookup searches the parent's parent using the current branch's own
// key as a path prefix, climbing further on each miss.
func (s *search) cousinLookup(src *Node, segs []string) (*Node, error) {
	for node := src; node.parent != nil && node.parent.parent != nil; node = node.parent {
		if node.key == "" {
			continue
		}
		full := append([]string{node.key}, segs...)
		if res, err := s.resolveSegments(node.parent.parent, full, false); err == nil {
			return res, nil
		}
	}
	return nil, s.failed()
}

// processNode follows alias directives on a resolved node until a literal
// value or container is reached.
func (s *search) processNode(node *Node) (*Node, error) {
	for {
		if node.kind != Scalar {
			return node, nil
		}
		d := parseDirective(node.value)
		if !d.isAlias() {
			if d.kind == dirCutoff {
				return nil, s.failed()
			}
			return node, nil
		}
		if s.fuel--; s.fuel <= 0 {
			return nil, s.failed()
		}
		s.chain = append(s.chain, d.arg)

		// Local aliases resolve from the enclosing mapping, so hidden
		// siblings stay reachable without parent deferral.
		start := node
		if node.parent != nil {
			start = node.parent
		}
		switch d.kind {
		case dirOriginAlias:
			start = s.origin
		case dirForceAlias:
			s.force = true
		}
		next, err := s.resolveSegments(start, splitAddress(d.arg), true)
		if err != nil {
			return nil, err
		}
		node = next
	}
}

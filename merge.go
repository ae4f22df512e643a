// File: figtree/merge.go
package figtree

import "sort"

// Update deep-merges src on top of this tree and returns it. Mapping keys
// recurse (absent keys are retained), sequences are replaced wholesale
// unless the incoming value carries the append marker, and deletion-tagged
// values remove the corresponding key. Cached products on both trees are
// discarded.
func (n *Node) Update(src *Node) *Node {
	n.ClearProduct(true)
	src.ClearProduct(true)
	n.merge(src)
	return n
}

func (n *Node) merge(src *Node) {
	if n.kind == Mapping && src.kind == Mapping {
		for _, key := range src.keys {
			child := src.children[key]
			d := directive{kind: dirLiteral}
			if child.IsLeaf() {
				d = parseDirective(child.value)
			}
			switch {
			case d.kind == dirDelete:
				n.Remove(key)
			case d.kind == dirAppend:
				n.appendValues(key, []any{parseScalar(d.arg)})
			case child.kind == Sequence && allAppendItems(child):
				n.appendValues(key, appendItems(child))
			default:
				existing, ok := n.children[key]
				if ok && existing.kind == Mapping && child.kind == Mapping {
					existing.merge(child)
				} else {
					n.attach(key, child.copy())
				}
			}
		}
		return
	}
	// Kind mismatch or non-mapping source: full replacement.
	n.replaceWith(src.copy())
}

// replaceWith swaps this node's content for another's, keeping its identity
// (parent link, key, local settings, root collaborators) intact.
func (n *Node) replaceWith(src *Node) {
	n.kind = src.kind
	n.value = src.value
	n.keys = src.keys
	n.children = src.children
	n.items = src.items
	for _, k := range n.keys {
		n.children[k].parent = n
	}
	for _, item := range n.items {
		item.parent = n
	}
}

// appendValues concatenates values onto the sequence at key, coercing an
// existing scalar into a one-element sequence first.
func (n *Node) appendValues(key string, values []any) {
	existing, ok := n.children[key]
	if !ok || existing.kind == Mapping {
		seq := NewSequence()
		n.attach(key, seq)
		existing = seq
	} else if existing.kind == Scalar {
		seq := NewSequence()
		seq.Append(NewScalar(existing.value))
		n.attach(key, seq)
		existing = seq
	}
	for _, v := range values {
		existing.Append(FromRaw(v))
	}
}

// allAppendItems reports whether every element of a sequence carries the
// append marker, the only form that appends instead of replacing.
func allAppendItems(seq *Node) bool {
	if seq.Len() == 0 {
		return false
	}
	for _, item := range seq.items {
		if !item.IsLeaf() || parseDirective(item.value).kind != dirAppend {
			return false
		}
	}
	return true
}

func appendItems(seq *Node) []any {
	out := make([]any, 0, seq.Len())
	for _, item := range seq.items {
		out = append(out, parseScalar(parseDirective(item.value).arg))
	}
	return out
}

// linearizeAncestry computes the merge order for the requested fragments
// and their transitive ancestry, lowest precedence first. Every fragment
// appears after all of its declared parents; among unrelated fragments,
// later requested (or later listed) names take higher precedence. A
// fragment transitively depending on itself is a CompositionError.
func linearizeAncestry(requested []string, parents func(string) ([]string, error)) ([]string, error) {
	memo := make(map[string][]string)
	active := make(map[string]bool)

	// lin returns the C3 linearization of one fragment, most derived first.
	var lin func(name string) ([]string, error)
	lin = func(name string) ([]string, error) {
		if seq, ok := memo[name]; ok {
			return seq, nil
		}
		if active[name] {
			return nil, cycleError(active)
		}
		active[name] = true
		defer delete(active, name)

		bases, err := parents(name)
		if err != nil {
			return nil, err
		}
		seqs := make([][]string, 0, len(bases)+1)
		// Reversed so that later-listed bases take higher precedence,
		// consistent with the positional override rule.
		rev := reversed(bases)
		for _, base := range rev {
			sub, err := lin(base)
			if err != nil {
				return nil, err
			}
			seqs = append(seqs, sub)
		}
		if len(rev) > 0 {
			seqs = append(seqs, rev)
		}
		merged, err := c3Merge(seqs)
		if err != nil {
			return nil, err
		}
		result := append([]string{name}, merged...)
		memo[name] = result
		return result, nil
	}

	rev := reversed(requested)
	seqs := make([][]string, 0, len(rev)+1)
	for _, name := range rev {
		sub, err := lin(name)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, sub)
	}
	if len(rev) > 0 {
		seqs = append(seqs, rev)
	}
	order, err := c3Merge(seqs)
	if err != nil {
		return nil, err
	}
	return reversed(order), nil
}

// c3Merge merges linearizations monotonically: a candidate head is taken
// only when it appears in no sequence's tail. Failure to find one means the
// constraints are unsatisfiable.
func c3Merge(seqs [][]string) ([]string, error) {
	work := make([][]string, 0, len(seqs))
	for _, seq := range seqs {
		if len(seq) > 0 {
			work = append(work, append([]string(nil), seq...))
		}
	}

	var result []string
	for len(work) > 0 {
		var head string
		found := false
		for _, seq := range work {
			candidate := seq[0]
			if inAnyTail(work, candidate) {
				continue
			}
			head = candidate
			found = true
			break
		}
		if !found {
			return nil, cycleErrorFromSeqs(work)
		}

		result = append(result, head)
		next := work[:0]
		for _, seq := range work {
			if seq[0] == head {
				seq = seq[1:]
			}
			if len(seq) > 0 {
				next = append(next, seq)
			}
		}
		work = next
	}
	return result, nil
}

func inAnyTail(seqs [][]string, name string) bool {
	for _, seq := range seqs {
		for _, other := range seq[1:] {
			if other == name {
				return true
			}
		}
	}
	return false
}

func cycleError(active map[string]bool) error {
	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)
	return &CompositionError{Remaining: names}
}

func cycleErrorFromSeqs(seqs [][]string) error {
	seen := make(map[string]bool)
	var names []string
	for _, seq := range seqs {
		for _, name := range seq {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return &CompositionError{Remaining: names}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// MergeTrees composes root nodes left to right, later trees taking
// precedence, into a fresh tree.
func MergeTrees(trees ...*Node) *Node {
	merged := NewMapping()
	for _, tree := range trees {
		merged.Update(tree)
	}
	return merged
}

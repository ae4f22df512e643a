// File: figtree/errors.go
package figtree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyNotFound indicates a direct child lookup miss.
	ErrKeyNotFound = errors.New("key not found")

	// ErrReadOnly indicates a push against a read-only tree.
	ErrReadOnly = errors.New("config is read-only")

	// ErrUnknownComponent indicates a _type name with no registered constructor.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownModifier indicates a _mod name with no registered modifier.
	ErrUnknownModifier = errors.New("unknown modifier")

	// ErrUnknownCreator indicates a _creator name with no registered strategy.
	ErrUnknownCreator = errors.New("unknown creator")

	// ErrUnknownScript indicates a script name with no registered callable.
	ErrUnknownScript = errors.New("unknown script")

	// ErrUnknownFragment indicates a fragment name that was never registered.
	ErrUnknownFragment = errors.New("unknown fragment")

	// ErrProductUnavailable indicates a product cache miss while the
	// allow_create setting forbids construction.
	ErrProductUnavailable = errors.New("product unavailable")

	// ErrNoRegistry indicates instantiation was requested on a tree that has
	// no registry attached.
	ErrNoRegistry = errors.New("no registry attached to config tree")
)

// SearchError reports an address that could not be resolved after exhausting
// parent deferral, aliases, and any provided defaults. It unwraps to
// ErrKeyNotFound so callers can treat both lookup failures uniformly.
type SearchError struct {
	Chain []string // queries attempted, in resolution order
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed: %s", strings.Join(e.Chain, " -> "))
}

func (e *SearchError) Unwrap() error {
	return ErrKeyNotFound
}

// CompositionError reports a cyclic or unsatisfiable fragment ancestry graph.
// It is fatal and surfaced at merge time.
type CompositionError struct {
	Remaining []string // fragments involved in the unresolvable portion
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("config composition cycle detected within: %s", strings.Join(e.Remaining, ", "))
}

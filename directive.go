// File: figtree/directive.go
package figtree

import "strings"

// Reserved key/value syntax. These are part of the persisted format and must
// not change between releases.
const (
	// HiddenPrefix marks keys invisible to parent-deferral scans.
	HiddenPrefix = "_"

	// BaseKey declares the ordered ancestor fragments of a fragment.
	BaseKey = "_base"

	// AncestorsKey records merge provenance on a composed tree.
	AncestorsKey = "ancestors"

	// TypeKey names the registered constructor for a mapping node.
	TypeKey = "_type"

	// ModKey lists registered modifier names, most specific first.
	ModKey = "_mod"

	// CreatorKey overrides the creator strategy for a mapping node.
	CreatorKey = "_creator"

	localAliasPrefix  = "<>"
	originAliasPrefix = "<o>"
	forceAliasPrefix  = "<!>"
	deleteMarker      = "_x_"
	cutoffMarker      = "__x__"
	appendPrefix      = "+"
)

// directiveKind classifies a string-encoded value. Raw strings are parsed
// once into this tagged form instead of re-inspecting prefixes at every
// access site.
type directiveKind int

const (
	dirLiteral directiveKind = iota
	dirLocalAlias
	dirOriginAlias
	dirForceAlias
	dirDelete
	dirCutoff
	dirAppend
)

type directive struct {
	kind directiveKind
	arg  string // alias target address, or appended raw value
}

// parseDirective classifies a value. Non-strings are always literals.
// The append form is only honored by the merger; the resolver treats it as
// a literal.
func parseDirective(v any) directive {
	s, ok := v.(string)
	if !ok {
		return directive{kind: dirLiteral}
	}
	switch {
	case s == deleteMarker:
		return directive{kind: dirDelete}
	case s == cutoffMarker:
		return directive{kind: dirCutoff}
	case strings.HasPrefix(s, forceAliasPrefix):
		return directive{kind: dirForceAlias, arg: s[len(forceAliasPrefix):]}
	case strings.HasPrefix(s, originAliasPrefix):
		return directive{kind: dirOriginAlias, arg: s[len(originAliasPrefix):]}
	case strings.HasPrefix(s, localAliasPrefix):
		return directive{kind: dirLocalAlias, arg: s[len(localAliasPrefix):]}
	case strings.HasPrefix(s, appendPrefix):
		return directive{kind: dirAppend, arg: s[len(appendPrefix):]}
	default:
		return directive{kind: dirLiteral}
	}
}

// isAlias reports whether the directive redirects resolution to another address.
func (d directive) isAlias() bool {
	return d.kind == dirLocalAlias || d.kind == dirOriginAlias || d.kind == dirForceAlias
}

// isHiddenKey reports whether a key is excluded from parent-deferral scans.
func isHiddenKey(key string) bool {
	return strings.HasPrefix(key, HiddenPrefix)
}

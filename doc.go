// File: figtree/doc.go

// Package figtree implements a hierarchical configuration engine: named
// fragments of structured data are linearized and deep-merged into a single
// tree of nodes, and application code pulls typed values or constructed
// objects out of addresses in that tree.
//
// Features:
//   - Fragment registry with declared ancestry (_base) and C3 linearization
//   - Deep merge with append (+value) and delete (_x_) directives
//   - Deep dotted addresses with parent deferral and cousin lookup
//   - Alias redirection (<>local, <o>origin) resolved at pull time
//   - Hidden keys (underscore prefix) invisible to parent deferral
//   - Component instantiation via _type / _mod / _creator tags
//   - Memoized products shared across pulls of the same node
//   - Scoped behavior settings inherited down the tree
//   - YAML, JSON, and TOML fragment files plus env and argv overrides
//
// Quick Start:
//
//	man := figtree.NewManager()
//	man.RegisterFragment("base", map[string]any{
//	    "server": map[string]any{"host": "localhost", "port": 8080},
//	})
//	man.RegisterFragment("prod", map[string]any{
//	    "_base":  []any{"base"},
//	    "server": map[string]any{"host": "0.0.0.0"},
//	})
//
//	cfg, err := man.QuickConfig("prod")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	host, _ := cfg.PullString("server.host")
//	port, _ := cfg.PullInt("server.port")
//
// Instantiation:
//
// A mapping carrying a _type key names a registered component; pulling its
// address constructs the component and caches the product, so every
// consumer of that address shares one instance. Listed _mod modifiers wrap
// the constructor, first listed outermost.
//
// Concurrency:
// A config tree is not safe for concurrent mutation. Compose and populate
// the tree first, then share it for reads.
package figtree

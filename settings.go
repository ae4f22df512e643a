// File: figtree/settings.go
package figtree

// Settings holds behavioral flags for a config subtree. A node with no local
// settings inherits from its parent; lookups walk the parent chain at read
// time rather than copying eagerly.
type Settings map[string]any

// Recognized setting names.
const (
	// SettingSilent suppresses reporter output for pulls under this node.
	SettingSilent = "silent"

	// SettingReadOnly rejects pushes under this node.
	SettingReadOnly = "readonly"

	// SettingAskParents enables parent deferral during lookup (default true).
	SettingAskParents = "ask_parents"

	// SettingAllowCousins additionally searches grandparents using the
	// current branch's key as a path prefix before failing.
	SettingAllowCousins = "allow_cousins"

	// SettingForceCreate constructs a fresh product on every process call.
	SettingForceCreate = "force_create"

	// SettingAllowCreate permits construction on a product cache miss
	// (default true). When false a miss fails with ErrProductUnavailable.
	SettingAllowCreate = "allow_create"

	// SettingCreator names the default creator strategy for this subtree.
	SettingCreator = "creator"
)

func (s Settings) clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Setting resolves a named setting for this node, deferring to ancestors
// when no local override exists.
func (n *Node) Setting(name string) (any, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.settings != nil {
			if v, ok := cur.settings[name]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// SettingBool resolves a boolean setting, returning def when unset or not a bool.
func (n *Node) SettingBool(name string, def bool) bool {
	v, ok := n.Setting(name)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// SettingString resolves a string setting, returning def when unset.
func (n *Node) SettingString(name string, def string) string {
	v, ok := n.Setting(name)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// SetSetting places a local setting override on this node. Descendants
// without their own override observe the new value.
func (n *Node) SetSetting(name string, value any) {
	if n.settings == nil {
		n.settings = make(Settings)
	}
	n.settings[name] = value
}

// ApplySettings copies all entries of s as local overrides on this node.
func (n *Node) ApplySettings(s Settings) {
	for k, v := range s {
		n.SetSetting(k, v)
	}
}

// WithSettings runs fn with temporary setting overrides on this node and
// restores the previous local overrides afterwards.
func (n *Node) WithSettings(overrides Settings, fn func()) {
	old := n.settings
	next := old.clone()
	if next == nil {
		next = make(Settings, len(overrides))
	}
	for k, v := range overrides {
		next[k] = v
	}
	n.settings = next
	defer func() { n.settings = old }()
	fn()
}

// Silent reports whether pulls under this node are silenced.
func (n *Node) Silent() bool {
	return n.SettingBool(SettingSilent, false)
}

// SetSilent toggles reporter output for this subtree.
func (n *Node) SetSilent(silent bool) {
	n.SetSetting(SettingSilent, silent)
}

// ReadOnly reports whether pushes under this node are rejected.
func (n *Node) ReadOnly() bool {
	return n.SettingBool(SettingReadOnly, false)
}

// SetReadOnly toggles push protection for this subtree.
func (n *Node) SetReadOnly(readonly bool) {
	n.SetSetting(SettingReadOnly, readonly)
}

// File: figtree/report.go
package figtree

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Reporter emits one human-readable trace line per resolved pull, showing
// the query chain and the value or component it produced. Output is
// suppressed per-subtree via the silent setting.
type Reporter struct {
	Out        io.Writer
	Indent     string
	Flair      string
	Transfer   string
	Colon      string
	MaxAliases int
}

// NewReporter returns a reporter writing to w (os.Stdout when nil).
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{
		Out:        w,
		Indent:     " > ",
		Flair:      "| ",
		Transfer:   " --> ",
		Colon:      ": ",
		MaxAliases: 3,
	}
}

// SetReporter attaches a reporter to this tree's root.
func (n *Node) SetReporter(r *Reporter) {
	n.Root().reporter = r
}

// Reporter returns the tree's reporter, creating a default stdout reporter
// on first use.
func (n *Node) Reporter() *Reporter {
	root := n.Root()
	if root.reporter == nil {
		root.reporter = NewReporter(nil)
	}
	return root.reporter
}

// key renders a query chain, eliding the middle of long alias chains.
func (r *Reporter) key(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	if len(chain) > r.MaxAliases {
		return strings.Join([]string{chain[0], "...", chain[len(chain)-1]}, r.Transfer)
	}
	return strings.Join(chain, r.Transfer)
}

func (r *Reporter) line(depth int, text string) {
	fmt.Fprintf(r.Out, "%s%s%s\n", r.Flair, strings.Repeat(r.Indent, depth), text)
}

func (r *Reporter) formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

func (r *Reporter) formatComponent(key, componentType string, modifiers []string, creatorType string) string {
	var info string
	switch {
	case len(modifiers) == 1:
		info = fmt.Sprintf(" (mod=%q)", modifiers[0])
	case len(modifiers) > 1:
		quoted := make([]string, len(modifiers))
		for i, m := range modifiers {
			quoted[i] = fmt.Sprintf("%q", m)
		}
		info = fmt.Sprintf(" (mods=[%s])", strings.Join(quoted, ", "))
	}
	if creatorType != "" {
		info = fmt.Sprintf("%s (creator=%q)", info, creatorType)
	}
	if key != "" {
		key += " "
	}
	return fmt.Sprintf("%stype=%q%s", key, componentType, info)
}

// reportValue traces a resolved scalar.
func (r *Reporter) reportValue(origin *Node, chain []string, value any) {
	r.line(origin.depth(), r.key(chain)+r.Colon+r.formatValue(value))
}

// reportDefault traces a value supplied by a pull default.
func (r *Reporter) reportDefault(origin *Node, chain []string, value any) {
	r.line(origin.depth(), r.key(chain)+r.Colon+r.formatValue(value)+" (by default)")
}

// reportContainer traces resolution of an untagged container.
func (r *Reporter) reportContainer(origin *Node, chain []string, node *Node) {
	t, unit := "dict", "item"
	if node.kind == Sequence {
		t, unit = "list", "element"
	}
	count := node.Len()
	if count != 1 {
		unit += "s"
	}
	r.line(origin.depth(), fmt.Sprintf("%s [%s with %d %s]", r.key(chain), t, count, unit))
}

// reportCreate traces construction of a component.
func (r *Reporter) reportCreate(origin *Node, chain []string, componentType string, modifiers []string, creatorType string) {
	r.line(origin.depth(), "CREATING "+r.formatComponent(r.key(chain), componentType, modifiers, creatorType))
}

// reportReuse traces a product cache hit.
func (r *Reporter) reportReuse(origin *Node, chain []string, componentType string) {
	key := r.key(chain)
	if componentType == "" {
		r.line(origin.depth(), "REUSING "+key)
		return
	}
	r.line(origin.depth(), "REUSING "+r.formatComponent(key, componentType, nil, ""))
}

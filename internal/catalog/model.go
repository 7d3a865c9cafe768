// Package catalog builds, caches and queries the in-memory tree of tabs and
// command nodes produced from catalog definitions.
package catalog

import (
	"strings"
	"time"

	"github.com/VoxDroid/tabrun/internal/nameutil"
)

// Kind tells how a node's command is run.
type Kind int

const (
	// KindNone marks a grouping node with nothing to run.
	KindNone Kind = iota
	// KindRaw is an inline shell string run as-is.
	KindRaw
	// KindLocalFile is a script next to the definition, run by its interpreter.
	KindLocalFile
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindLocalFile:
		return "local_file"
	default:
		return "none"
	}
}

// Command is the tagged action of a node. Text is the declared command text
// for every kind; Path and Args are only set for KindLocalFile.
type Command struct {
	Kind Kind
	Text string
	Path string
	Args []string
}

// Executable reports whether the command can be handed to an executor.
func (c Command) Executable() bool { return c.Kind != KindNone }

// Node is one entry of a tab tree. Key is the grouping key the node was
// declared under (e.g. "network/ping") and Dir the directory of the defining
// file. Nodes are created by Build and never modified afterwards.
type Node struct {
	Name        string
	Description string
	Key         string
	Command     Command
	TaskList    string
	MultiSelect bool
	Env         map[string]string
	Dir         string
	Source      string

	tab      string
	parent   *Node
	children []*Node
}

// Children returns the node's children in declaration order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// HasChildren reports whether the node groups other nodes.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Parent returns the enclosing node, or nil at the top of a tab.
func (n *Node) Parent() *Node { return n.parent }

// Tab returns the name of the owning tab.
func (n *Node) Tab() string { return n.tab }

// Path returns the node names from the top of the tab down to n.
func (n *Node) Path() []string {
	var rev []string
	for cur := n; cur != nil; cur = cur.parent {
		rev = append(rev, cur.Name)
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

// PathString joins Path with the path separator.
func (n *Node) PathString() string {
	return strings.Join(n.Path(), nameutil.PathSeparator)
}

// Tab is a named top-level grouping of nodes.
type Tab struct {
	Name  string
	Dir   string
	Nodes []*Node
}

// Walk visits every node of the tab depth-first in declaration order until
// fn returns false.
func (t *Tab) Walk(fn func(*Node) bool) {
	var walk func(nodes []*Node) bool
	walk = func(nodes []*Node) bool {
		for _, n := range nodes {
			if !fn(n) {
				return false
			}
			if !walk(n.children) {
				return false
			}
		}
		return true
	}
	walk(t.Nodes)
}

// Count returns the number of nodes in the tab.
func (t *Tab) Count() int {
	n := 0
	t.Walk(func(*Node) bool { n++; return true })
	return n
}

// Diagnostic is a non-fatal problem noticed while building.
type Diagnostic struct {
	Tab     string
	Key     string
	Source  string
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Tab)
	if d.Key != "" {
		b.WriteString(":" + d.Key)
	}
	b.WriteString(": " + d.Message)
	if d.Source != "" {
		b.WriteString(" (" + d.Source + ")")
	}
	return b.String()
}

// Catalog is one immutable build of the whole definition tree.
type Catalog struct {
	Tabs        []*Tab
	Diagnostics []Diagnostic
	Root        string
	Validated   bool
	BuiltAt     time.Time
}

// Count returns the number of nodes across all tabs.
func (c *Catalog) Count() int {
	n := 0
	for _, t := range c.Tabs {
		n += t.Count()
	}
	return n
}

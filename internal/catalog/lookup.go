package catalog

import (
	"fmt"
	"strings"

	"github.com/VoxDroid/tabrun/internal/nameutil"
)

// Tab returns the tab with the given name.
func (c *Catalog) Tab(name string) (*Tab, error) {
	for _, t := range c.Tabs {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTabNotFound, name)
}

// Node resolves a node by tab name and the names along its path.
func (c *Catalog) Node(tab string, path []string) (*Node, error) {
	t, err := c.Tab(tab)
	if err != nil {
		return nil, err
	}
	return t.Lookup(path)
}

// Lookup resolves a node by the names along its path from the top of the tab.
func (t *Tab) Lookup(path []string) (*Node, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path in tab %q", ErrNodeNotFound, t.Name)
	}
	level := t.Nodes
	var cur *Node
	for _, name := range path {
		cur = nil
		for _, n := range level {
			if n.Name == name {
				cur = n
				break
			}
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: %q in tab %q", ErrNodeNotFound, strings.Join(path, nameutil.PathSeparator), t.Name)
		}
		level = cur.children
	}
	return cur, nil
}

// SplitPath splits a "/"-joined display path into node names.
func SplitPath(p string) []string {
	var out []string
	for _, part := range strings.Split(p, nameutil.PathSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Equal reports whether two catalogs hold structurally identical trees: the
// same tabs in the same order with the same nodes, names, keys and commands.
// Build time and diagnostics are ignored.
func Equal(a, b *Catalog) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Tabs) != len(b.Tabs) {
		return false
	}
	for i := range a.Tabs {
		if a.Tabs[i].Name != b.Tabs[i].Name || !equalNodes(a.Tabs[i].Nodes, b.Tabs[i].Nodes) {
			return false
		}
	}
	return true
}

func equalNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Name != y.Name || x.Description != y.Description || x.Key != y.Key ||
			x.TaskList != y.TaskList || x.MultiSelect != y.MultiSelect || x.Dir != y.Dir ||
			!equalCommand(x.Command, y.Command) || !equalEnv(x.Env, y.Env) {
			return false
		}
		if !equalNodes(x.children, y.children) {
			return false
		}
	}
	return true
}

func equalCommand(a, b Command) bool {
	if a.Kind != b.Kind || a.Text != b.Text || a.Path != b.Path || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}

func equalEnv(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

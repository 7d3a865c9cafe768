package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Match is one search hit.
type Match struct {
	Node  *Node
	Score int
	// Target is the text that was matched: "<tab>/<path> <description>".
	Target         string
	MatchedIndexes []int
}

type searchTargets []*Node

func (s searchTargets) String(i int) string { return searchTarget(s[i]) }
func (s searchTargets) Len() int            { return len(s) }

func searchTarget(n *Node) string {
	t := n.tab + "/" + n.PathString()
	if n.Description != "" {
		t += " " + n.Description
	}
	return t
}

// Search fuzzy-matches query against every node's tab, path and description
// and returns hits best first. An empty query matches nothing.
func Search(c *Catalog, query string) []Match {
	query = strings.TrimSpace(query)
	if c == nil || query == "" {
		return nil
	}
	var nodes searchTargets
	for _, t := range c.Tabs {
		t.Walk(func(n *Node) bool {
			nodes = append(nodes, n)
			return true
		})
	}
	found := fuzzy.FindFrom(query, nodes)
	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, Match{
			Node:           nodes[m.Index],
			Score:          m.Score,
			Target:         m.Str,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return out
}

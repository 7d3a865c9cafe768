package engine

import "github.com/VoxDroid/tabrun/internal/catalog"

// Entry command types.
const (
	EntryRaw       = "raw"
	EntryScript    = "script"
	EntryDirectory = "directory"
)

// Entry is one node flattened for list views.
type Entry struct {
	// ID is "<tab>/<path>" and is unique within a catalog.
	ID          string   `json:"id"`
	Tab         string   `json:"tab"`
	Path        []string `json:"path"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Depth       int      `json:"depth"`
	CommandType string   `json:"command_type"`
	// Content is the raw command text or the script path.
	Content     string `json:"content,omitempty"`
	TaskList    string `json:"task_list,omitempty"`
	MultiSelect bool   `json:"multi_select"`
	HasChildren bool   `json:"has_children"`
}

// Runnable reports whether the entry has something to execute.
func (e Entry) Runnable() bool { return e.CommandType != EntryDirectory }

// TabEntries is a tab with its entries in pre-order.
type TabEntries struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Flatten turns a catalog into tab listings.
func Flatten(c *catalog.Catalog) []TabEntries {
	if c == nil {
		return nil
	}
	out := make([]TabEntries, 0, len(c.Tabs))
	for _, t := range c.Tabs {
		te := TabEntries{Name: t.Name, Entries: []Entry{}}
		t.Walk(func(n *catalog.Node) bool {
			te.Entries = append(te.Entries, EntryFor(n))
			return true
		})
		out = append(out, te)
	}
	return out
}

// EntryFor flattens a single node.
func EntryFor(n *catalog.Node) Entry {
	path := n.Path()
	e := Entry{
		ID:          n.Tab() + "/" + n.PathString(),
		Tab:         n.Tab(),
		Path:        path,
		Name:        n.Name,
		Description: n.Description,
		Depth:       len(path) - 1,
		TaskList:    n.TaskList,
		MultiSelect: n.MultiSelect,
		HasChildren: n.HasChildren(),
	}
	switch n.Command.Kind {
	case catalog.KindRaw:
		e.CommandType = EntryRaw
		e.Content = n.Command.Text
	case catalog.KindLocalFile:
		e.CommandType = EntryScript
		e.Content = n.Command.Path
	default:
		e.CommandType = EntryDirectory
	}
	return e
}

package catalog

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/VoxDroid/tabrun/internal/logging"
	"github.com/VoxDroid/tabrun/internal/nameutil"
	"github.com/VoxDroid/tabrun/internal/source"
)

// Source is anything that can feed a build: a directory scan or a stored
// snapshot.
type Source interface {
	Tabs() []source.TabDir
	Records() iter.Seq2[source.Record, error]
}

// BuildOptions control one build.
type BuildOptions struct {
	// Validate selects strict mode. Tolerant builds recover from malformed
	// files, duplicate names and empty tabs and report them as diagnostics.
	Validate bool
	// Probe decides whether command text names a local script. Defaults to
	// OSProbe.
	Probe  FileProbe
	Logger *log.Logger
}

// rawCommand is the declared, not yet inferred, command of a node.
type rawCommand struct {
	text string
	args []string
}

type tabBuilder struct {
	tab   *Tab
	order []*Node
	byKey map[string]*Node
}

type builder struct {
	opts   BuildOptions
	logger *log.Logger
	tabs   []*tabBuilder
	byName map[string]*tabBuilder
	raw    map[*Node]*rawCommand
	diags  []Diagnostic
}

// Build consumes src once and returns a new catalog. A *source.SourceError
// aborts the build in either mode. Strict builds fail with *BuildError on
// the first problem.
func Build(src Source, opts BuildOptions) (*Catalog, error) {
	if opts.Probe == nil {
		opts.Probe = OSProbe
	}
	b := &builder{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		byName: map[string]*tabBuilder{},
		raw:    map[*Node]*rawCommand{},
	}

	for _, td := range src.Tabs() {
		if err := b.seedTab(td); err != nil {
			return nil, err
		}
	}
	for rec, err := range src.Records() {
		if err != nil {
			if ferr := b.recordError(rec, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		if err := b.add(rec); err != nil {
			return nil, err
		}
	}

	cat := &Catalog{Validated: opts.Validate, BuiltAt: time.Now()}
	if r, ok := src.(interface{ Root() string }); ok {
		cat.Root = r.Root()
	}
	for _, tb := range b.tabs {
		if err := b.link(tb); err != nil {
			return nil, err
		}
		if len(tb.tab.Nodes) == 0 {
			if opts.Validate {
				return nil, &BuildError{Kind: EmptyTab, Tab: tb.tab.Name}
			}
			b.diag(Diagnostic{Tab: tb.tab.Name, Source: tb.tab.Dir, Message: "tab has no entries"})
		}
		if err := b.infer(tb.tab); err != nil {
			return nil, err
		}
		cat.Tabs = append(cat.Tabs, tb.tab)
	}
	cat.Diagnostics = b.diags
	b.logger.Debug("catalog built", "tabs", len(cat.Tabs), "nodes", cat.Count(), "validated", opts.Validate, "diagnostics", len(cat.Diagnostics))
	return cat, nil
}

func (b *builder) diag(d Diagnostic) {
	b.diags = append(b.diags, d)
	b.logger.Warn(d.Message, "tab", d.Tab, "key", d.Key, "source", d.Source)
}

// cleanName validates name in strict mode and sanitizes it in tolerant mode.
// An empty result in tolerant mode means the item should be skipped.
func (b *builder) cleanName(name, tab, key string) (string, error) {
	name = strings.TrimSpace(name)
	if b.opts.Validate {
		if err := nameutil.ValidateName(name); err != nil {
			return "", &BuildError{Kind: InvalidName, Tab: tab, Key: key, Name: name, Err: err}
		}
		return name, nil
	}
	clean, changed := nameutil.SanitizeName(name)
	if changed && clean != "" {
		b.diag(Diagnostic{Tab: tab, Key: key, Message: fmt.Sprintf("name %q sanitized to %q", name, clean)})
	}
	return clean, nil
}

func (b *builder) seedTab(td source.TabDir) error {
	name, err := b.cleanName(td.Name, td.Name, "")
	if err != nil {
		return err
	}
	if name == "" {
		b.diag(Diagnostic{Tab: td.Name, Source: td.Dir, Message: "tab skipped: empty name"})
		return nil
	}
	if tb, ok := b.byName[name]; ok {
		if b.opts.Validate {
			return &BuildError{Kind: DuplicateName, Tab: name, Err: fmt.Errorf("directories %s and %s", tb.tab.Dir, td.Dir)}
		}
		b.diag(Diagnostic{Tab: name, Source: td.Dir, Message: "duplicate tab name; entries merged into " + tb.tab.Dir})
		return nil
	}
	tb := &tabBuilder{tab: &Tab{Name: name, Dir: td.Dir}, byKey: map[string]*Node{}}
	b.tabs = append(b.tabs, tb)
	b.byName[name] = tb
	return nil
}

func (b *builder) recordError(rec source.Record, err error) error {
	var pe *source.ParseError
	if !errors.As(err, &pe) {
		return fmt.Errorf("build catalog: %w", err)
	}
	if b.opts.Validate {
		return &BuildError{Kind: Malformed, Tab: rec.Tab, Err: err}
	}
	b.diag(Diagnostic{Tab: rec.Tab, Source: pe.Path, Message: "definition skipped: " + pe.Err.Error()})
	return nil
}

func (b *builder) tabFor(name string) *tabBuilder {
	if tb, ok := b.byName[name]; ok {
		return tb
	}
	if clean, _ := nameutil.SanitizeName(name); clean != "" {
		if tb, ok := b.byName[clean]; ok {
			return tb
		}
	}
	return nil
}

func (b *builder) add(rec source.Record) error {
	tb := b.tabFor(rec.Tab)
	if tb == nil {
		name, err := b.cleanName(rec.Tab, rec.Tab, "")
		if err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		tb = &tabBuilder{tab: &Tab{Name: name}, byKey: map[string]*Node{}}
		b.tabs = append(b.tabs, tb)
		b.byName[name] = tb
	}
	tab := tb.tab.Name

	key := strings.Trim(rec.Key, nameutil.PathSeparator)
	if key == "" {
		if b.opts.Validate {
			return &BuildError{Kind: Malformed, Tab: tab, Name: rec.Name, Err: errors.New("record has no key")}
		}
		b.diag(Diagnostic{Tab: tab, Source: rec.Source, Message: "record skipped: no key"})
		return nil
	}
	name, err := b.cleanName(rec.Name, tab, key)
	if err != nil {
		return err
	}
	if name == "" {
		b.diag(Diagnostic{Tab: tab, Key: key, Source: rec.Source, Message: "record skipped: empty name"})
		return nil
	}

	n := &Node{
		Name:        name,
		Description: rec.Description,
		Key:         key,
		TaskList:    rec.TaskList,
		MultiSelect: rec.MultiSelect,
		Env:         copyEnv(rec.Env),
		Dir:         rec.Dir,
		Source:      rec.Source,
		tab:         tab,
	}
	rc := &rawCommand{text: rec.Command, args: append([]string(nil), rec.Args...)}

	if prev, ok := tb.byKey[key]; ok {
		if b.opts.Validate {
			return &BuildError{Kind: DuplicateName, Tab: tab, Key: key, Name: name, Err: fmt.Errorf("declared in %s and %s", prev.Source, rec.Source)}
		}
		b.diag(Diagnostic{Tab: tab, Key: key, Source: rec.Source, Message: "duplicate key; later definition wins"})
		overwrite(prev, n)
		b.raw[prev] = rc
		return nil
	}
	tb.byKey[key] = n
	tb.order = append(tb.order, n)
	b.raw[n] = rc
	return nil
}

// link attaches every node of a tab to the node owning its longest proper key
// prefix, or to the top of the tab. Siblings keep reader order.
func (b *builder) link(tb *tabBuilder) error {
	alias := map[*Node]*Node{}
	resolve := func(n *Node) *Node {
		for {
			a, ok := alias[n]
			if !ok {
				return n
			}
			n = a
		}
	}

	var adopt func(parent *Node, n *Node) error
	adopt = func(parent *Node, n *Node) error {
		siblings := tb.tab.Nodes
		if parent != nil {
			siblings = parent.children
		}
		for _, s := range siblings {
			if s.Name != n.Name {
				continue
			}
			if b.opts.Validate {
				return &BuildError{Kind: DuplicateName, Tab: tb.tab.Name, Key: n.Key, Name: n.Name,
					Err: fmt.Errorf("collides with %q", s.Key)}
			}
			b.diag(Diagnostic{Tab: tb.tab.Name, Key: n.Key, Source: n.Source,
				Message: fmt.Sprintf("name collides with %q; later definition wins and children merge", s.Key)})
			key := s.Key
			overwrite(s, n)
			s.Key = key
			b.raw[s] = b.raw[n]
			alias[n] = s
			moved := n.children
			n.children = nil
			for _, c := range moved {
				c.parent = nil
				if err := adopt(s, c); err != nil {
					return err
				}
			}
			return nil
		}
		n.parent = parent
		if parent == nil {
			tb.tab.Nodes = append(tb.tab.Nodes, n)
		} else {
			parent.children = append(parent.children, n)
		}
		return nil
	}

	for _, n := range tb.order {
		var parent *Node
		if pk := b.parentKey(tb, n.Key); pk != "" {
			parent = resolve(tb.byKey[pk])
		}
		if err := adopt(parent, n); err != nil {
			return err
		}
	}
	return nil
}

// parentKey returns the longest proper prefix of key that names a record in
// the tab, or "".
func (b *builder) parentKey(tb *tabBuilder, key string) string {
	for i := strings.LastIndex(key, nameutil.PathSeparator); i > 0; i = strings.LastIndex(key[:i], nameutil.PathSeparator) {
		if _, ok := tb.byKey[key[:i]]; ok {
			return key[:i]
		}
	}
	return ""
}

// infer resolves every node's command. A command declared on a node with
// children fails a strict build and is dropped with a diagnostic otherwise.
func (b *builder) infer(t *Tab) error {
	var err error
	t.Walk(func(n *Node) bool {
		rc := b.raw[n]
		if rc == nil {
			rc = &rawCommand{}
		}
		n.Command = InferCommand(rc.text, rc.args, n.HasChildren(), n.Dir, b.opts.Probe)
		switch {
		case n.HasChildren() && strings.TrimSpace(rc.text) != "":
			if b.opts.Validate {
				err = &BuildError{Kind: Malformed, Tab: t.Name, Key: n.Key, Name: n.Name,
					Err: fmt.Errorf("command %q declared on a node with children", strings.TrimSpace(rc.text))}
				return false
			}
			b.diag(Diagnostic{Tab: t.Name, Key: n.Key, Source: n.Source, Message: "command ignored on a node with children"})
		case !n.HasChildren() && n.Command.Kind == KindNone:
			b.diag(Diagnostic{Tab: t.Name, Key: n.Key, Source: n.Source, Message: "entry has nothing to run"})
		}
		return true
	})
	return err
}

// overwrite copies the declared data of src onto dst, keeping dst's place in
// the tree.
func overwrite(dst, src *Node) {
	dst.Name = src.Name
	dst.Description = src.Description
	dst.Key = src.Key
	dst.TaskList = src.TaskList
	dst.MultiSelect = src.MultiSelect
	dst.Env = src.Env
	dst.Dir = src.Dir
	dst.Source = src.Source
}

func copyEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Package source reads catalog definitions from a directory tree.
//
// Each directory directly below the root is a tab. Definition files
// (*.toml, *.yaml, *.yml) inside a tab declare records; a record's key is the
// file path relative to the tab directory without its extension, so
// "network/ping.toml" declares the record keyed "network/ping".
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// OrderFile optionally lists the tab directories, in order, at the root.
const OrderFile = "tabs.toml"

// TabDir is one tab directory found under the root.
type TabDir struct {
	Name string
	Dir  string
}

// Record is one raw node definition as found on disk. Tab and Key locate
// the record; Dir is the directory holding the defining file and anchors
// relative script paths.
type Record struct {
	Tab         string
	Key         string
	Name        string
	Description string
	Command     string
	Args        []string
	TaskList    string
	MultiSelect bool
	Env         map[string]string
	Dir         string
	Source      string
}

// Scan is a pass over one definition root.
type Scan struct {
	root string
	tabs []TabDir
	// metaErrs holds tab metadata files that failed to parse, reported from
	// Records so a bad tab.toml does not hide the whole root.
	metaErrs map[string]error
}

// Open resolves the tab directories under root. It fails with *SourceError
// when root is missing, not a directory, or unreadable.
func Open(root string) (*Scan, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &SourceError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &SourceError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &SourceError{Path: abs, Err: errors.New("not a directory")}
	}

	dirs, err := tabDirs(abs)
	if err != nil {
		return nil, err
	}
	s := &Scan{root: abs, metaErrs: map[string]error{}}
	for _, d := range dirs {
		name, merr := tabName(d)
		if merr != nil {
			s.metaErrs[d] = merr
		}
		if name == "" {
			name = filepath.Base(d)
		}
		s.tabs = append(s.tabs, TabDir{Name: name, Dir: d})
	}
	return s, nil
}

// Root returns the absolute definition root.
func (s *Scan) Root() string { return s.root }

// Tabs returns the tab directories in tab order.
func (s *Scan) Tabs() []TabDir {
	out := make([]TabDir, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// Records returns a lazy sequence over every record in every tab, parsing one
// definition file at a time in lexicographic path order. A malformed file
// yields a *ParseError and the sequence continues; a directory that cannot be
// read yields a *SourceError.
func (s *Scan) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, tab := range s.tabs {
			if err, ok := s.metaErrs[tab.Dir]; ok {
				if !yield(Record{Tab: tab.Name}, err) {
					return
				}
			}
			files, err := definitionFiles(tab.Dir)
			if err != nil {
				if !yield(Record{Tab: tab.Name}, err) {
					return
				}
				continue
			}
			for _, path := range files {
				recs, perr := parseFile(tab, path)
				if perr != nil {
					if !yield(Record{Tab: tab.Name, Source: path}, perr) {
						return
					}
					continue
				}
				for _, r := range recs {
					if !yield(r, nil) {
						return
					}
				}
			}
		}
	}
}

type orderDoc struct {
	Directories []string `toml:"directories"`
}

func tabDirs(root string) ([]string, error) {
	orderPath := filepath.Join(root, OrderFile)
	if _, err := os.Stat(orderPath); err == nil {
		var doc orderDoc
		if _, err := toml.DecodeFile(orderPath, &doc); err != nil {
			return nil, &SourceError{Path: orderPath, Err: err}
		}
		out := make([]string, 0, len(doc.Directories))
		for _, d := range doc.Directories {
			p := filepath.Join(root, filepath.FromSlash(d))
			info, err := os.Stat(p)
			if err != nil {
				return nil, &SourceError{Path: p, Err: err}
			}
			if !info.IsDir() {
				return nil, &SourceError{Path: p, Err: errors.New("not a directory")}
			}
			out = append(out, p)
		}
		return out, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &SourceError{Path: root, Err: err}
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || hidden(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(root, e.Name()))
	}
	return out, nil
}

// definitionFiles lists the definition files of one tab, sorted by their
// slash-separated relative path.
func definitionFiles(tabDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(tabDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &SourceError{Path: path, Err: err}
		}
		if path == tabDir {
			return nil
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isDefinition(d.Name()) {
			return nil
		}
		if filepath.Dir(path) == tabDir && isTabMeta(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &SourceError{Path: tabDir, Err: err}
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.ToSlash(files[i]) < filepath.ToSlash(files[j])
	})
	return files, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func isDefinition(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

func isTabMeta(name string) bool {
	switch strings.ToLower(name) {
	case "tab.toml", "tab.yaml", "tab.yml":
		return true
	}
	return false
}

func tabName(dir string) (string, error) {
	for _, n := range []string{"tab.toml", "tab.yaml", "tab.yml"} {
		p := filepath.Join(dir, n)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		var meta struct {
			Name string `toml:"name" yaml:"name"`
		}
		if err := decodeFile(p, &meta, false); err != nil {
			return "", &ParseError{Path: p, Err: err}
		}
		return strings.TrimSpace(meta.Name), nil
	}
	return "", nil
}

// fileKey derives the grouping key from a definition file path.
func fileKey(tabDir, path string) (string, error) {
	rel, err := filepath.Rel(tabDir, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	dir, stem := splitLast(rel)
	if stem != "index" {
		return rel, nil
	}
	if dir == "" {
		return "", fmt.Errorf("index file at the tab root has no key")
	}
	return dir, nil
}

func splitLast(p string) (string, string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

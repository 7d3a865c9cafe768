package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/VoxDroid/tabrun/internal/nameutil"
)

// document is the on-disk shape of a definition file and of each entry
// nested in it.
type document struct {
	Name        string            `toml:"name" yaml:"name"`
	Description string            `toml:"description" yaml:"description"`
	Command     string            `toml:"command" yaml:"command"`
	Args        []string          `toml:"args" yaml:"args"`
	TaskList    string            `toml:"task_list" yaml:"task_list"`
	MultiSelect bool              `toml:"multi_select" yaml:"multi_select"`
	Env         map[string]string `toml:"env" yaml:"env"`
	Entries     []document        `toml:"entries" yaml:"entries"`
}

func (d document) empty() bool {
	return d.Name == "" && d.Description == "" && d.Command == "" && len(d.Args) == 0 &&
		d.TaskList == "" && !d.MultiSelect && len(d.Env) == 0 && len(d.Entries) == 0
}

// decodeFile decodes a TOML or YAML file into v. In strict mode unknown keys
// are rejected. An empty YAML file decodes to the zero value.
func decodeFile(path string, v any, strict bool) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.DecodeFile(path, v)
		if err != nil {
			return err
		}
		if strict {
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, 0, len(undecoded))
				for _, k := range undecoded {
					keys = append(keys, k.String())
				}
				sort.Strings(keys)
				return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
			}
		}
		return nil
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(strict)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported definition format %q", filepath.Ext(path))
	}
}

// parseFile turns one definition file into its records, parents first.
func parseFile(tab TabDir, path string) ([]Record, error) {
	var doc document
	if err := decodeFile(path, &doc, true); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.empty() {
		return nil, nil
	}
	key, err := fileKey(tab.Dir, path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	base := Record{Tab: tab.Name, Dir: filepath.Dir(path), Source: path}
	var out []Record
	if strings.TrimSpace(doc.Name) != "" {
		if err := flatten(doc, key, base, &out); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		return out, nil
	}
	if doc.Command != "" || doc.Description != "" || doc.TaskList != "" {
		return nil, &ParseError{Path: path, Err: errors.New("record fields without a name")}
	}
	for i, e := range doc.Entries {
		k, err := entryKey(key, i, e)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		if err := flatten(e, k, base, &out); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}
	return out, nil
}

func flatten(d document, key string, base Record, out *[]Record) error {
	r := base
	r.Key = key
	r.Name = d.Name
	r.Description = d.Description
	r.Command = d.Command
	r.Args = d.Args
	r.TaskList = d.TaskList
	r.MultiSelect = d.MultiSelect
	r.Env = d.Env
	*out = append(*out, r)
	for i, e := range d.Entries {
		k, err := entryKey(key, i, e)
		if err != nil {
			return err
		}
		if err := flatten(e, k, base, out); err != nil {
			return err
		}
	}
	return nil
}

func entryKey(parent string, i int, e document) (string, error) {
	if strings.TrimSpace(e.Name) == "" {
		return "", fmt.Errorf("entry %d under %q: missing name", i, parent)
	}
	slug := nameutil.Slug(e.Name)
	if slug == "" {
		return "", fmt.Errorf("entry %q under %q: name yields an empty key", e.Name, parent)
	}
	return nameutil.JoinKey(parent, slug), nil
}

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/nameutil"
	"github.com/VoxDroid/tabrun/internal/source"
)

// ErrNoSnapshot is returned by Load when the database holds no catalog.
var ErrNoSnapshot = errors.New("no catalog snapshot stored")

// Snapshot is a stored catalog. It satisfies catalog.Source so it can be
// rebuilt with catalog.Build.
type Snapshot struct {
	RootDir   string
	Validated bool
	BuiltAt   time.Time
	SavedAt   time.Time

	tabs    []source.TabDir
	records []source.Record
}

// Root returns the definition root the snapshot was built from.
func (s *Snapshot) Root() string { return s.RootDir }

// Tabs returns the stored tabs in order.
func (s *Snapshot) Tabs() []source.TabDir {
	out := make([]source.TabDir, len(s.tabs))
	copy(out, s.tabs)
	return out
}

// Records yields the stored records in their saved order.
func (s *Snapshot) Records() iter.Seq2[source.Record, error] {
	return func(yield func(source.Record, error) bool) {
		for _, r := range s.records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored records.
func (s *Snapshot) Len() int { return len(s.records) }

// Save replaces the stored snapshot with cat in one transaction.
func Save(db *sql.DB, cat *catalog.Catalog) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{"DELETE FROM records", "DELETE FROM tabs", "DELETE FROM snapshot_meta"} {
		if _, err = tx.Exec(q); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}
	if _, err = tx.Exec("INSERT INTO snapshot_meta (id, root, validated, built_at, saved_at) VALUES (1, ?, ?, ?, ?)",
		cat.Root, boolInt(cat.Validated), cat.BuiltAt.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert snapshot meta: %w", err)
	}

	seq := 0
	for pos, tab := range cat.Tabs {
		if _, err = tx.Exec("INSERT INTO tabs (position, name, dir) VALUES (?, ?, ?)", pos, tab.Name, tab.Dir); err != nil {
			return fmt.Errorf("insert tab %q: %w", tab.Name, err)
		}
		keys := storedKeys(tab)
		var insert func(nodes []*catalog.Node) error
		insert = func(nodes []*catalog.Node) error {
			for _, n := range nodes {
				key := keys[n]
				text, args := n.Command.Declared()
				argsJSON, jerr := json.Marshal(nonNilArgs(args))
				if jerr != nil {
					return jerr
				}
				envJSON, jerr := json.Marshal(nonNilEnv(n.Env))
				if jerr != nil {
					return jerr
				}
				seq++
				if _, xerr := tx.Exec(`INSERT INTO records
					(seq, tab_position, key, name, description, command, args, task_list, multi_select, env, dir, source)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					seq, pos, key, n.Name, n.Description, text, string(argsJSON), n.TaskList,
					boolInt(n.MultiSelect), string(envJSON), n.Dir, n.Source); xerr != nil {
					return fmt.Errorf("insert record %q: %w", key, xerr)
				}
				if xerr := insert(n.Children()); xerr != nil {
					return xerr
				}
			}
			return nil
		}
		if err = insert(tab.Nodes); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// storedKeys assigns the key each node of a tab is stored under. A tab keeps
// its own keys when rebuilding from them reproduces the same tree; otherwise
// (a tolerant build merged colliding nodes) every key is derived from the
// names along the node's path.
func storedKeys(tab *catalog.Tab) map[*catalog.Node]string {
	all := map[string]int{}
	tab.Walk(func(n *catalog.Node) bool {
		all[n.Key]++
		return true
	})
	consistent := true
	tab.Walk(func(n *catalog.Node) bool {
		want := ""
		if p := n.Parent(); p != nil {
			want = p.Key
		}
		if n.Key == "" || all[n.Key] != 1 || longestPrefix(all, n.Key) != want {
			consistent = false
		}
		return consistent
	})

	out := map[*catalog.Node]string{}
	if consistent {
		tab.Walk(func(n *catalog.Node) bool {
			out[n] = n.Key
			return true
		})
		return out
	}
	var derive func(nodes []*catalog.Node, parentKey string)
	derive = func(nodes []*catalog.Node, parentKey string) {
		used := map[string]bool{}
		for _, n := range nodes {
			seg := nameutil.Slug(n.Name)
			if seg == "" {
				seg = "node"
			}
			key := seg
			for i := 2; used[key]; i++ {
				key = seg + "-" + strconv.Itoa(i)
			}
			used[key] = true
			out[n] = nameutil.JoinKey(parentKey, key)
			derive(n.Children(), out[n])
		}
	}
	derive(tab.Nodes, "")
	return out
}

func longestPrefix(keys map[string]int, key string) string {
	for i := strings.LastIndex(key, nameutil.PathSeparator); i > 0; i = strings.LastIndex(key[:i], nameutil.PathSeparator) {
		if keys[key[:i]] > 0 {
			return key[:i]
		}
	}
	return ""
}

// Load reads the stored snapshot.
func Load(db *sql.DB) (*Snapshot, error) {
	s := &Snapshot{}
	var validated int
	var builtAt, savedAt string
	err := db.QueryRow("SELECT root, validated, built_at, saved_at FROM snapshot_meta WHERE id = 1").
		Scan(&s.RootDir, &validated, &builtAt, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot meta: %w", err)
	}
	s.Validated = validated != 0
	s.BuiltAt, _ = time.Parse(time.RFC3339Nano, builtAt)
	s.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)

	tabRows, err := db.Query("SELECT position, name, dir FROM tabs ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("select tabs: %w", err)
	}
	names := map[int]string{}
	for tabRows.Next() {
		var pos int
		var td source.TabDir
		if err := tabRows.Scan(&pos, &td.Name, &td.Dir); err != nil {
			_ = tabRows.Close()
			return nil, err
		}
		names[pos] = td.Name
		s.tabs = append(s.tabs, td)
	}
	if err := tabRows.Close(); err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT tab_position, key, name, description, command, args, task_list, multi_select, env, dir, source
		FROM records ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var pos, multi int
		var argsJSON, envJSON string
		var r source.Record
		if err := rows.Scan(&pos, &r.Key, &r.Name, &r.Description, &r.Command, &argsJSON, &r.TaskList, &multi, &envJSON, &r.Dir, &r.Source); err != nil {
			return nil, err
		}
		r.Tab = names[pos]
		r.MultiSelect = multi != 0
		if err := json.Unmarshal([]byte(argsJSON), &r.Args); err != nil {
			return nil, fmt.Errorf("decode args of %q: %w", r.Key, err)
		}
		if len(r.Args) == 0 {
			r.Args = nil
		}
		if err := json.Unmarshal([]byte(envJSON), &r.Env); err != nil {
			return nil, fmt.Errorf("decode env of %q: %w", r.Key, err)
		}
		if len(r.Env) == 0 {
			r.Env = nil
		}
		s.records = append(s.records, r)
	}
	return s, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilArgs(a []string) []string {
	if a == nil {
		return []string{}
	}
	return a
}

func nonNilEnv(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

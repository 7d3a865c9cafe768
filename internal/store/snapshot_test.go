package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/source"
)

func writeDefs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func buildDir(t *testing.T, root string, validate bool) *catalog.Catalog {
	t.Helper()
	s, err := source.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cat, err := catalog.Build(s, catalog.BuildOptions{Validate: validate})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

func TestOpenCreatesSchema(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()
	var count int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('tabs','records','snapshot_meta')").Scan(&count); err != nil {
		t.Fatalf("query schema: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 tables, got %d", count)
	}
	if _, err := Load(db); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on an empty db, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeDefs(t, root, map[string]string{
		"system/tab.toml":       `name = "System"`,
		"system/update.toml":    "name = \"Update\"\ncommand = \"update.sh --yes\"\nargs = [\"--quiet\"]\ntask_list = \"I\"\n",
		"system/update.sh":      "#!/bin/sh\necho ok\n",
		"system/net/index.toml": "name = \"Network\"\ndescription = \"net tools\"\n",
		"system/net/more.yaml":  "entries:\n  - name: Ping\n    command: ping -c1 127.0.0.1\n    multi_select: true\n    env:\n      LANG: C\n  - name: Dig\n    command: dig\n    args: [example.com]\n",
		"apps/browsers/ff.toml": "name = \"Firefox\"\ncommand = \"echo firefox\"\n",
		"empty/.keep":           "",
	})
	orig := buildDir(t, root, false)

	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := Save(db, orig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := Load(db)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Root() != orig.Root || snap.Len() != orig.Count() {
		t.Fatalf("snapshot meta mismatch: root=%q len=%d", snap.Root(), snap.Len())
	}
	rebuilt, err := catalog.Build(snap, catalog.BuildOptions{})
	if err != nil {
		t.Fatalf("Build from snapshot: %v", err)
	}
	if !catalog.Equal(orig, rebuilt) {
		t.Fatalf("rebuilt catalog differs from the stored one")
	}

	// Saving again replaces the previous snapshot.
	if err := Save(db, rebuilt); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	again, err := Load(db)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Len() != snap.Len() {
		t.Fatalf("expected %d records after re-save, got %d", snap.Len(), again.Len())
	}
}

func TestSnapshotOfMergedTreeKeepsShape(t *testing.T) {
	root := t.TempDir()
	writeDefs(t, root, map[string]string{
		"t/tools.toml":    `name = "Tools"`,
		"t/tools/a.toml":  "name = \"A\"\ncommand = \"echo a\"\n",
		"t/tools2.toml":   `name = "Tools"`,
		"t/tools2/b.toml": "name = \"B\"\ncommand = \"echo b\"\n",
	})
	orig := buildDir(t, root, false)

	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := Save(db, orig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := Load(db)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rebuilt, err := catalog.Build(snap, catalog.BuildOptions{Validate: true})
	if err != nil {
		t.Fatalf("strict Build from snapshot: %v", err)
	}
	for _, path := range [][]string{{"Tools", "A"}, {"Tools", "B"}} {
		if _, err := rebuilt.Node("t", path); err != nil {
			t.Fatalf("missing %v after round trip: %v", path, err)
		}
	}
	if rebuilt.Count() != orig.Count() {
		t.Fatalf("node count changed: %d != %d", rebuilt.Count(), orig.Count())
	}
}

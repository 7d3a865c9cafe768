package adapters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/VoxDroid/tabrun/internal/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "net", "dns.toml"), "name = \"DNS\"\nmulti_select = true\n\n[[entries]]\nname = \"Dig\"\ncommand = \"dig example.com\"\n\n[[entries]]\nname = \"Flush\"\ncommand = \"scripts/flush.sh\"\n")
	writeFile(t, filepath.Join(root, "net", "scripts", "flush.sh"), "#!/bin/sh\necho flushed\n")
	return engine.New(engine.Options{Root: root})
}

func TestFlattenThroughAdapter(t *testing.T) {
	a := NewCatalogAdapter(newEngine(t), false)
	tabs, err := a.Tabs(context.Background())
	if err != nil {
		t.Fatalf("Tabs: %v", err)
	}
	if len(tabs) != 1 || tabs[0].Name != "net" || len(tabs[0].Entries) != 3 {
		t.Fatalf("unexpected tabs %+v", tabs)
	}
	dir, dig, flush := tabs[0].Entries[0], tabs[0].Entries[1], tabs[0].Entries[2]
	if dir.CommandType != TypeDirectory || !dir.HasChildren || dir.Runnable() || !dir.MultiSelect || dir.Depth != 0 {
		t.Fatalf("unexpected directory entry %+v", dir)
	}
	if dig.CommandType != TypeRaw || dig.Content != "dig example.com" || dig.Depth != 1 || dig.ID != "net/DNS/Dig" {
		t.Fatalf("unexpected raw entry %+v", dig)
	}
	if flush.CommandType != TypeScript || filepath.Base(flush.Content) != "flush.sh" {
		t.Fatalf("unexpected script entry %+v", flush)
	}
}

func TestPreviewNotFound(t *testing.T) {
	a := NewCatalogAdapter(newEngine(t), false)
	if _, err := a.Preview(context.Background(), "net", []string{"Nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, err := a.Preview(context.Background(), "net", []string{"DNS", "Dig"})
	if err != nil || p.Content != "dig example.com" {
		t.Fatalf("unexpected preview %+v %v", p, err)
	}
}

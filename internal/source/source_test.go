package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
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

func collect(t *testing.T, s *Scan) ([]Record, []error) {
	t.Helper()
	var recs []Record
	var errs []error
	for r, err := range s.Records() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recs = append(recs, r)
	}
	return recs, errs
}

func TestOpenMissingRoot(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestOpenRootIsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "file")
	writeFile(t, p, "x")
	_, err := Open(p)
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestTabsDefaultOrderAndMeta(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "system", "tab.toml"), `name = "System Setup"`)
	if err := os.MkdirAll(filepath.Join(root, "apps"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tabs := s.Tabs()
	if len(tabs) != 2 {
		t.Fatalf("expected 2 tabs, got %d: %+v", len(tabs), tabs)
	}
	if tabs[0].Name != "apps" || tabs[1].Name != "System Setup" {
		t.Fatalf("unexpected tab names: %+v", tabs)
	}
}

func TestTabsOrderFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, OrderFile), `directories = ["zeta", "alpha"]`)
	for _, d := range []string{"alpha", "zeta", "ignored"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tabs := s.Tabs()
	if len(tabs) != 2 || tabs[0].Name != "zeta" || tabs[1].Name != "alpha" {
		t.Fatalf("unexpected tabs: %+v", tabs)
	}
}

func TestTabsOrderFileMissingDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, OrderFile), `directories = ["gone"]`)
	_, err := Open(root)
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestRecordsKeysAndOrder(t *testing.T) {
	root := t.TempDir()
	tab := filepath.Join(root, "net")
	writeFile(t, filepath.Join(tab, "network.toml"), `
name = "Network"
description = "network tools"
`)
	writeFile(t, filepath.Join(tab, "network", "ping.toml"), `
name = "Ping"
command = "ping -c1 localhost"
args = ["-q"]
multi_select = true
[env]
LANG = "C"
`)
	writeFile(t, filepath.Join(tab, "network", "extras.yaml"), `
entries:
  - name: Trace Route
    command: traceroute example.com
  - name: DNS
    entries:
      - name: Dig
        command: dig example.com
`)
	writeFile(t, filepath.Join(tab, "network", "check.sh"), "#!/bin/sh\necho ok\n")

	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	recs, errs := collect(t, s)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var keys []string
	for _, r := range recs {
		keys = append(keys, r.Key)
	}
	want := []string{
		"network",
		"network/extras/trace-route",
		"network/extras/dns",
		"network/extras/dns/dig",
		"network/ping",
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	ping := recs[4]
	if ping.Tab != "net" || ping.Command != "ping -c1 localhost" || !ping.MultiSelect {
		t.Fatalf("unexpected ping record: %+v", ping)
	}
	if len(ping.Args) != 1 || ping.Args[0] != "-q" || ping.Env["LANG"] != "C" {
		t.Fatalf("unexpected ping args/env: %+v", ping)
	}
	if ping.Dir != filepath.Join(s.Root(), "net", "network") {
		t.Fatalf("unexpected dir %q", ping.Dir)
	}
}

func TestRecordsIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "t", "group", "index.toml"), `name = "Group"`)
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	recs, errs := collect(t, s)
	if len(errs) != 0 || len(recs) != 1 || recs[0].Key != "group" {
		t.Fatalf("unexpected result: %+v %v", recs, errs)
	}
}

func TestRecordsParseErrorContinues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "t", "a.toml"), `name = "A"`)
	writeFile(t, filepath.Join(root, "t", "b.toml"), `name = = broken`)
	writeFile(t, filepath.Join(root, "t", "c.yaml"), "name: C\nbogus: 1\n")
	writeFile(t, filepath.Join(root, "t", "d.toml"), `command = "echo orphan"`)
	writeFile(t, filepath.Join(root, "t", "index.toml"), `name = "Root"`)
	writeFile(t, filepath.Join(root, "t", "e.toml"), `name = "E"`)

	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	recs, errs := collect(t, s)
	if len(recs) != 2 || recs[0].Name != "A" || recs[1].Name != "E" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if len(errs) != 4 {
		t.Fatalf("expected 4 parse errors, got %d: %v", len(errs), errs)
	}
	for _, e := range errs {
		var pe *ParseError
		if !errors.As(e, &pe) {
			t.Fatalf("expected ParseError, got %T: %v", e, e)
		}
	}
}

func TestRecordsStopEarly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "t", "a.toml"), `name = "A"`)
	writeFile(t, filepath.Join(root, "t", "b.toml"), `name = "B"`)
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n := 0
	for range s.Records() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected to stop after one record, got %d", n)
	}
}

func TestWatcherReportsChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "t", "a.toml"), `name = "A"`)

	changed := make(chan string, 4)
	w := NewWatcher(root, 50*time.Millisecond, func(p string) { changed <- p }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "t", "b.toml"), `name = "B"`)
	select {
	case p := <-changed:
		if filepath.Base(p) != "b.toml" {
			t.Fatalf("unexpected changed path %q", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for change")
	}
}

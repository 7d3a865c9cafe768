package executor

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestShellInvocationOverride(t *testing.T) {
	shell, args := shellInvocation("echo hi", "pwsh")
	if shell != "pwsh" || len(args) < 1 || args[0] != "-Command" {
		t.Fatalf("expected pwsh -Command, got %s %v", shell, args)
	}

	shell, args = shellInvocation("echo hi", "bash")
	if shell != "bash" || len(args) != 2 || args[0] != "-c" || args[1] != "echo hi" {
		t.Fatalf("expected bash -c, got %s %v", shell, args)
	}

	shell, args = shellInvocation("dir", "cmd")
	if shell != "cmd" || args[0] != "/C" {
		t.Fatalf("expected cmd /C, got %s %v", shell, args)
	}
}

func TestShellInvocationDefault(t *testing.T) {
	shell, _ := shellInvocation("echo hi", "")
	if runtime.GOOS == "windows" {
		if shell != "cmd" {
			t.Fatalf("expected cmd on Windows, got %q", shell)
		}
		return
	}
	if shell != "sh" {
		t.Fatalf("expected sh, got %q", shell)
	}
}

func TestShellInvocationPowershellMapping(t *testing.T) {
	shell, _ := shellInvocation("echo hi", "powershell")
	if runtime.GOOS == "windows" {
		if !strings.Contains(strings.ToLower(shell), "powershell") && !strings.Contains(strings.ToLower(shell), "pwsh") {
			t.Fatalf("expected powershell on Windows, got: %q", shell)
		}
	} else if shell != "pwsh" {
		t.Fatalf("expected pwsh on non-Windows, got: %q", shell)
	}
}

func TestScriptInvocationShebang(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.sh")
	if err := os.WriteFile(p, []byte("#!/usr/bin/env bash -e\necho\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	name, args, err := scriptInvocation(p, []string{"x"}, "")
	if err != nil {
		t.Fatalf("scriptInvocation: %v", err)
	}
	want := []string{"bash", "-e", p, "x"}
	if name != "/usr/bin/env" || strings.Join(args, "|") != strings.Join(want, "|") {
		t.Fatalf("got %s %v, want /usr/bin/env %v", name, args, want)
	}
}

func TestScriptInvocationFallsBackToShell(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.sh")
	if err := os.WriteFile(p, []byte("echo plain\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	name, args, err := scriptInvocation(p, nil, "bash")
	if err != nil {
		t.Fatalf("scriptInvocation: %v", err)
	}
	if name != "bash" || len(args) != 1 || args[0] != p {
		t.Fatalf("expected bash <file>, got %s %v", name, args)
	}
}

func TestScriptInvocationExecutableBit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no executable bit on Windows")
	}
	p := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(p, []byte("binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	name, args, err := scriptInvocation(p, []string{"a"}, "")
	if err != nil {
		t.Fatalf("scriptInvocation: %v", err)
	}
	if name != p || len(args) != 1 || args[0] != "a" {
		t.Fatalf("expected the file itself, got %s %v", name, args)
	}
}

func TestUnescapeWriter(t *testing.T) {
	var buf bytes.Buffer
	uw := &unescapeWriter{w: &buf}
	in := []byte("\\\"HELLO\\\"\n")
	n, err := uw.Write(in)
	if err != nil || n != len(in) {
		t.Fatalf("write = %d, %v", n, err)
	}
	if buf.String() != "HELLO\n" {
		t.Fatalf("expected HELLO, got %q", buf.String())
	}
}

func TestUnescapeWriterPreservesANSI(t *testing.T) {
	var buf bytes.Buffer
	uw := &unescapeWriter{w: &buf}
	in := "\x1b[32m\"green\"\x1b[0m\n"
	if _, err := uw.Write([]byte(in)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != in {
		t.Fatalf("ANSI output should pass through unchanged, got %q", buf.String())
	}
}

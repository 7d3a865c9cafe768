package executor

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// defaultShell returns the shell used when none is configured.
func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

// shellInvocation returns the shell executable and arguments that run command
// as an inline program. Optional override lets callers request an alternate
// shell (e.g., pwsh).
func shellInvocation(command string, override string) (string, []string) {
	shell := override
	if shell == "" {
		shell = defaultShell()
	}
	switch shell {
	case "pwsh":
		return "pwsh", []string{"-Command", command}
	case "powershell":
		// Windows ships the legacy powershell; elsewhere only pwsh exists.
		if runtime.GOOS == "windows" {
			if p, err := exec.LookPath("powershell"); err == nil {
				return p, []string{"-Command", command}
			}
			if p, err := exec.LookPath("pwsh"); err == nil {
				return p, []string{"-Command", command}
			}
			return "powershell", []string{"-Command", command}
		}
		return "pwsh", []string{"-Command", command}
	case "cmd", "cmd.exe":
		return shell, []string{"/C", command}
	default:
		return shell, []string{"-c", command}
	}
}

// scriptInvocation returns the executable and arguments that run a local
// script: its shebang interpreter when it has one, the file itself when it
// is executable, and the shell otherwise.
func scriptInvocation(path string, args []string, override string) (string, []string, error) {
	interp, err := readShebang(path)
	if err != nil {
		return "", nil, err
	}
	if len(interp) > 0 {
		out := append(interp[1:len(interp):len(interp)], path)
		return interp[0], append(out, args...), nil
	}
	if runtime.GOOS != "windows" {
		if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o111 != 0 {
			return path, args, nil
		}
	}
	shell := override
	if shell == "" {
		shell = defaultShell()
	}
	switch shell {
	case "pwsh", "powershell":
		return shell, append([]string{"-File", path}, args...), nil
	case "cmd", "cmd.exe":
		return shell, append([]string{"/C", path}, args...), nil
	default:
		return shell, append([]string{path}, args...), nil
	}
}

// readShebang returns the interpreter words of a "#!" first line, or nil.
func readShebang(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	line, err := bufio.NewReaderSize(f, 256).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "#!") {
		return nil, nil
	}
	return strings.Fields(strings.TrimPrefix(line, "#!")), nil
}

// unescapeWriter wraps an io.Writer and normalizes output produced by some
// shells on Windows which can emit backslash-escaped quotes like \"HELLO\".
// It unescapes `\"` and, when a whole line is wrapped in quotes, strips the
// outer quotes. ANSI sequences pass through untouched.
type unescapeWriter struct {
	w io.Writer
}

func (u *unescapeWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s := string(p)
	if strings.Contains(s, "\x1b[") {
		if _, err := u.w.Write(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	s = strings.ReplaceAll(s, "\\\"", "\"")
	trimmed := strings.TrimRight(s, "\r\n")
	if len(trimmed) >= 2 && strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		s = trimmed[1:len(trimmed)-1] + s[len(trimmed):]
	}
	if _, err := u.w.Write([]byte(s)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// streamWriter returns the writer that live output is copied to, normalized
// on Windows.
func streamWriter(w io.Writer) io.Writer {
	if w == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return &unescapeWriter{w: w}
	}
	return w
}

// validateArgs rejects NUL bytes, which no process API can pass through.
func validateArgs(name string, args []string) error {
	if strings.ContainsRune(name, 0) {
		return errNUL
	}
	for _, a := range args {
		if strings.ContainsRune(a, 0) {
			return errNUL
		}
	}
	return nil
}

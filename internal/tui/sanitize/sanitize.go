// Package sanitize cleans streamed command output for display in the TUI
// viewport. Color (SGR) sequences survive; sequences that change global
// terminal state are removed, and horizontal cursor moves become spaces so
// side-by-side layouts stay readable.
package sanitize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// OSC ends with BEL or ST (ESC \).
	oscRe = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
	csiRe = regexp.MustCompile(`\x1b\[[0-9;?<=>]*[ -/]*[@-~]`)
	// Two-byte escapes such as ESC c (reset) or ESC 7/8 (save/restore).
	escRe = regexp.MustCompile(`\x1b[@-Z\\-_0-9a-z=>]`)
	sgrRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// RunOutput prepares a chunk of output for the viewport. CRLF and lone CR
// become LF; C0 controls other than tab and newline are dropped.
func RunOutput(in string) string {
	out := strings.ReplaceAll(in, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = oscRe.ReplaceAllString(out, "")
	out = csiRe.ReplaceAllStringFunc(out, csi)
	out = escRe.ReplaceAllString(out, "")
	return strings.Map(func(r rune) rune {
		if r == '\x1b' || r == '\t' || r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, out)
}

// Plain removes every escape sequence, colors included.
func Plain(in string) string {
	return sgrRe.ReplaceAllString(RunOutput(in), "")
}

func csi(seq string) string {
	switch seq[len(seq)-1] {
	case 'm':
		return seq
	case 'C':
		return strings.Repeat(" ", firstParam(seq, 1))
	case 'G':
		// The column is unknown while streaming; a fixed gap keeps the
		// neighbouring text apart.
		return "  "
	default:
		return ""
	}
}

func firstParam(seq string, def int) int {
	body := strings.TrimLeft(seq[2:len(seq)-1], "?<=>")
	if i := strings.IndexByte(body, ';'); i >= 0 {
		body = body[:i]
	}
	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return def
	}
	if n > 200 {
		n = 200
	}
	return n
}

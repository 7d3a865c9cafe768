package sanitize

import "testing"

func TestRunOutput(t *testing.T) {
	cases := []struct{ name, in, want string }{
		{"keeps sgr", "\x1b[1;32mGREEN\x1b[0m", "\x1b[1;32mGREEN\x1b[0m"},
		{"alt screen and clear", "\x1b[?1049h\x1b[2JHello\x1b[?1049l", "Hello"},
		{"carriage returns", "line1\rline2\r\nline3", "line1\nline2\nline3"},
		{"osc title bel", "\x1b]0;title\x07text", "text"},
		{"osc title st", "\x1b]0;title\x1b\\text", "text"},
		{"cursor forward", "a\x1b[3Cb", "a   b"},
		{"cursor column", "a\x1b[40Gb", "a  b"},
		{"reset escape", "\x1bcfresh", "fresh"},
		{"bell and backspace", "ding\x07\x08!", "ding!"},
		{"tabs kept", "a\tb", "a\tb"},
	}
	for _, c := range cases {
		if got := RunOutput(c.in); got != c.want {
			t.Fatalf("%s: RunOutput(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestPlain(t *testing.T) {
	if got := Plain("\x1b[31mred\x1b[0m \x1b[2Kdone"); got != "red done" {
		t.Fatalf("Plain = %q", got)
	}
}

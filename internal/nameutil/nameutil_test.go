package nameutil

import "testing"

func TestValidateName(t *testing.T) {
	if err := ValidateName("  "); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := ValidateName("ok name"); err != nil {
		t.Fatalf("unexpected error for valid name: %v", err)
	}
	// control char
	if err := ValidateName("bad\x00name"); err == nil {
		t.Fatalf("expected error for control bytes")
	}
	// invalid utf8 sequence
	if err := ValidateName(string([]byte{0xff, 0xff})); err == nil {
		t.Fatalf("expected error for invalid utf8")
	}
}

func TestSanitizeName(t *testing.T) {
	if s, changed := SanitizeName("hello\x00world"); s != "helloworld" || !changed {
		t.Fatalf("expected NUL removed: got %q changed=%v", s, changed)
	}
	if s, changed := SanitizeName(" a \u200B b "); s != "a  b" || !changed {
		t.Fatalf("expected zero-width removed and trimmed: got %q changed=%v", s, changed)
	}
}

func TestValidateNameRejectsSeparator(t *testing.T) {
	if err := ValidateName("a/b"); err == nil {
		t.Fatalf("expected error for name containing the path separator")
	}
	if s, changed := SanitizeName("a/b"); s != "a-b" || !changed {
		t.Fatalf("expected separator replaced: got %q changed=%v", s, changed)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Network Tools (beta)": "network-tools-beta",
		"  Ping  ":             "ping",
		"IPv6/IPv4":            "ipv6-ipv4",
		"---":                  "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsKeyPrefix(t *testing.T) {
	if !IsKeyPrefix("net", "net/ping") {
		t.Fatalf("expected net to prefix net/ping")
	}
	if IsKeyPrefix("net", "network") {
		t.Fatalf("net must not prefix network")
	}
	if IsKeyPrefix("net/ping", "net/ping") {
		t.Fatalf("a key is not its own proper prefix")
	}
	if got := JoinKey("a", "", "b"); got != "a/b" {
		t.Fatalf("JoinKey: got %q", got)
	}
}

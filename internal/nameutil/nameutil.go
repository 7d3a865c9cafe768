// Package nameutil validates and normalizes the names of tabs and catalog
// nodes, and derives the path segments used as grouping keys.
package nameutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PathSeparator separates node names in a display path and key segments in
// a grouping key. Names may therefore never contain it.
const PathSeparator = "/"

// ValidateName checks whether the provided name is acceptable for a tab or a
// node. It rejects empty names, invalid UTF-8, control characters and the
// path separator. It does NOT mutate the input; use SanitizeName first when
// a tolerant result is wanted.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid name: name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("invalid name: contains invalid encoding")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid name: contains control character U+%04X (%q)", r, r)
		}
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("invalid name %q: contains path separator %q", name, PathSeparator)
	}
	return nil
}

// SanitizeName removes control characters, zero-width runes and path
// separators, trims surrounding whitespace, and reports whether anything
// changed.
func SanitizeName(name string) (string, bool) {
	if name == "" {
		return name, false
	}
	clean := name
	if !utf8.ValidString(clean) {
		clean = strings.ToValidUTF8(clean, "")
	}
	out := make([]rune, 0, len(clean))
	for _, r := range clean {
		if unicode.IsControl(r) {
			continue
		}
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF':
			continue
		case '/':
			out = append(out, '-')
			continue
		}
		out = append(out, r)
	}
	res := strings.TrimSpace(string(out))
	return res, res != name
}

// Slug turns a display name into a single grouping-key segment: lower case,
// letters and digits kept, every other run collapsed into one dash.
// "Network Tools (beta)" becomes "network-tools-beta".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// JoinKey joins key segments with the path separator, skipping empty ones.
func JoinKey(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, PathSeparator)
}

// IsKeyPrefix reports whether prefix is a proper ancestor of key on segment
// boundaries: "net" is a prefix of "net/ping" but not of "network".
func IsKeyPrefix(prefix, key string) bool {
	if prefix == "" || len(prefix) >= len(key) {
		return false
	}
	return strings.HasPrefix(key, prefix) && key[len(prefix):len(prefix)+1] == PathSeparator
}

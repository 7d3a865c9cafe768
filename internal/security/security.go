// Package security flags commands that look destructive before a front-end
// runs them. It is a guard rail for people, not a sandbox.
package security

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/VoxDroid/tabrun/internal/catalog"
)

// ErrBlocked is returned for commands matching a destructive pattern.
var ErrBlocked = errors.New("command appears destructive or unsafe")

var dangerousPatterns = []*regexp.Regexp{
	// Destructive filesystem ops
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/?$`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bombs (e.g. :(){ :|:& };:)
	regexp.MustCompile(`:\(\)\s*\{`),
	// package managers removing packages
	regexp.MustCompile(`(?i)\bapt\-get\s+remove\s+`),
	regexp.MustCompile(`(?i)\byum\s+remove\s+`),
	// wipe disk
	regexp.MustCompile(`(?i)\bwipefs\b`),
}

// CheckAllowed returns nil if the command is allowed to run, or an error
// describing why it's blocked. Checking is conservative and not exhaustive.
func CheckAllowed(command string) error {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return errors.New("empty command")
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(cmd) {
			return ErrBlocked
		}
	}
	return nil
}

// CheckCommand applies CheckAllowed to a node's command. Local scripts are
// checked line by line; comment lines are skipped.
func CheckCommand(c catalog.Command) error {
	switch c.Kind {
	case catalog.KindRaw:
		return CheckAllowed(c.Text)
	case catalog.KindLocalFile:
		f, err := os.Open(c.Path)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		defer f.Close()
		sc := bufio.NewScanner(f)
		for line := 1; sc.Scan(); line++ {
			text := strings.TrimSpace(sc.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			if err := CheckAllowed(text); err != nil {
				return fmt.Errorf("%s:%d: %w", c.Path, line, err)
			}
		}
		return sc.Err()
	default:
		return nil
	}
}

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/kballard/go-shellquote"
)

// EditorCommand returns the editor argv from $VISUAL or $EDITOR, which may
// carry flags ("code --wait"). It falls back to notepad on Windows and vi
// elsewhere.
func EditorCommand() ([]string, error) {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		words, err := shellquote.Split(v)
		if err != nil {
			return nil, fmt.Errorf("parse $%s: %w", key, err)
		}
		if len(words) > 0 {
			return words, nil
		}
	}
	if runtime.GOOS == "windows" {
		return []string{"notepad"}, nil
	}
	return []string{"vi"}, nil
}

// OpenEditor opens path in the user's editor and waits for it to exit.
func OpenEditor(path string) error {
	argv, err := EditorCommand()
	if err != nil {
		return err
	}
	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("open editor: %w", err)
	}
	return nil
}

package catalog

import (
	"os"
	"path/filepath"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

// FileProbe reports whether path names an existing regular file.
type FileProbe func(path string) bool

// OSProbe checks the real filesystem.
func OSProbe(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// shellOperators make text a shell program rather than a single invocation.
const shellOperators = "|&;<>()$`\n"

// InferCommand decides how a node's command text runs. It never fails:
// text that cannot be classified is treated as a raw shell string.
//
//   - a node with children is a group and runs nothing
//   - empty text runs nothing
//   - a first word naming a file inside dir (checked with probe) is a local
//     script; remaining words and the declared args become its arguments
//   - anything else is raw shell text, with declared args appended quoted
func InferCommand(text string, args []string, hasChildren bool, dir string, probe FileProbe) Command {
	trimmed := strings.TrimSpace(text)
	if hasChildren || trimmed == "" {
		return Command{Kind: KindNone, Text: trimmed}
	}
	if probe == nil || strings.ContainsAny(trimmed, shellOperators) {
		return raw(trimmed, args)
	}
	words, err := shellquote.Split(trimmed)
	if err != nil || len(words) == 0 {
		return raw(trimmed, args)
	}
	first := filepath.FromSlash(words[0])
	if !filepath.IsLocal(first) {
		return raw(trimmed, args)
	}
	path := filepath.Join(dir, first)
	if !probe(path) {
		return raw(trimmed, args)
	}
	var rest []string
	rest = append(rest, words[1:]...)
	rest = append(rest, args...)
	return Command{Kind: KindLocalFile, Text: trimmed, Path: path, Args: rest}
}

func raw(text string, args []string) Command {
	if len(args) > 0 {
		text += " " + shellquote.Join(args...)
	}
	return Command{Kind: KindRaw, Text: text}
}

// Declared recovers the command text and declared args that InferCommand
// turned into c, so a stored catalog can be rebuilt to the same command.
func (c Command) Declared() (string, []string) {
	if c.Kind != KindLocalFile {
		return c.Text, nil
	}
	words, err := shellquote.Split(c.Text)
	if err != nil || len(words) == 0 || len(words)-1 > len(c.Args) {
		return c.Text, nil
	}
	declared := c.Args[len(words)-1:]
	if len(declared) == 0 {
		return c.Text, nil
	}
	return c.Text, append([]string(nil), declared...)
}

package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/executor"
)

// Preview kinds, as shown to users.
const (
	PreviewRaw       = "raw"
	PreviewScript    = "script"
	PreviewDirectory = "directory"
)

// maxPreviewBytes caps how much of a script is returned.
const maxPreviewBytes = 64 << 10

// Preview describes what running a node would do.
type Preview struct {
	Tab         string   `json:"tab"`
	Path        []string `json:"path"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Kind        string   `json:"kind"`
	// Content is the raw command, the script text, or the child list.
	Content     string   `json:"content"`
	CommandLine string   `json:"command_line,omitempty"`
	File        string   `json:"file,omitempty"`
	Args        []string `json:"args,omitempty"`
	TaskList    string   `json:"task_list,omitempty"`
	MultiSelect bool     `json:"multi_select"`
	Children    []string `json:"children,omitempty"`
	Truncated   bool     `json:"truncated,omitempty"`
	// Unreadable is set when the script file could not be read; Content
	// then holds a notice instead of the script.
	Unreadable bool `json:"unreadable,omitempty"`
}

// Preview builds the preview of a node in the current catalog.
func (e *Engine) Preview(ctx context.Context, tab string, path []string) (Preview, error) {
	n, err := e.Node(ctx, tab, path)
	if err != nil {
		return Preview{}, err
	}
	return e.PreviewNode(n)
}

// PreviewNode builds the preview of n.
func (e *Engine) PreviewNode(n *catalog.Node) (Preview, error) {
	p := Preview{
		Tab:         n.Tab(),
		Path:        n.Path(),
		Name:        n.Name,
		Description: n.Description,
		TaskList:    n.TaskList,
		MultiSelect: n.MultiSelect,
	}
	lineFor := (&executor.Executor{}).CommandLine
	if x, ok := e.runner.(*executor.Executor); ok {
		lineFor = x.CommandLine
	}

	switch n.Command.Kind {
	case catalog.KindRaw:
		p.Kind = PreviewRaw
		p.Content = n.Command.Text
		p.CommandLine, _ = lineFor(n.Command)
	case catalog.KindLocalFile:
		p.Kind = PreviewScript
		p.File = n.Command.Path
		p.Args = n.Command.Args
		p.CommandLine, _ = lineFor(n.Command)
		data, err := os.ReadFile(n.Command.Path)
		if err != nil {
			e.logger.Warn("script preview unavailable", "path", n.Command.Path, "error", err)
			p.Content = "Could not read script file: " + n.Command.Path
			p.Unreadable = true
			break
		}
		p.Content, p.Truncated = clip(data, maxPreviewBytes)
	default:
		p.Kind = PreviewDirectory
		for _, c := range n.Children() {
			p.Children = append(p.Children, c.Name)
		}
		p.Content = fmt.Sprintf("Directory with %d entries", len(p.Children))
		if len(p.Children) == 0 {
			p.Content = "Nothing to run"
		}
	}
	return p, nil
}

// clip cuts data to at most limit bytes without splitting a UTF-8 sequence.
func clip(data []byte, limit int) (string, bool) {
	if len(data) <= limit {
		return string(data), false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return string(data[:cut]), true
}

// Render formats the preview for a terminal.
func (p Preview) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s › %s\n", p.Tab, strings.Join(p.Path, " / "))
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n", p.Description)
	}
	b.WriteString("\n")
	switch p.Kind {
	case PreviewScript:
		b.WriteString(p.Content)
		if !strings.HasSuffix(p.Content, "\n") {
			b.WriteString("\n")
		}
		if p.Truncated {
			b.WriteString("… (truncated)\n")
		}
		b.WriteString("\nExecution info:\n")
		fmt.Fprintf(&b, "  file: %s\n", p.File)
		if len(p.Args) > 0 {
			fmt.Fprintf(&b, "  args: %s\n", strings.Join(p.Args, " "))
		}
		fmt.Fprintf(&b, "  runs: %s\n", p.CommandLine)
	case PreviewRaw:
		fmt.Fprintf(&b, "$ %s\n", p.Content)
	default:
		b.WriteString(p.Content + "\n")
		for _, c := range p.Children {
			fmt.Fprintf(&b, "  • %s\n", c)
		}
	}
	if p.TaskList != "" {
		fmt.Fprintf(&b, "\nTasks: %s\n", p.TaskList)
	}
	return b.String()
}

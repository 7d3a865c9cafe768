package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result describes one finished (or refused) execution.
type Result struct {
	RunID     string
	Tab       string
	Path      []string
	ExitCode  int
	Stdout    string
	Stderr    string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	// Err is set when the process could not be run at all.
	Err error
}

// Output summarizes the result for display: stdout, else stderr, else a
// generic success line.
func (r Result) Output() string {
	if out := strings.TrimSpace(r.Stdout); out != "" {
		return r.Stdout
	}
	if out := strings.TrimSpace(r.Stderr); out != "" {
		return r.Stderr
	}
	if r.Success {
		return "Command executed successfully"
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("Command failed with exit code %d", r.ExitCode)
}

// ErrorKind classifies execution failures. A nonzero exit status is not
// one of them.
type ErrorKind int

const (
	// SpawnFailed means the process could not be started, or was killed
	// because its context ended.
	SpawnFailed ErrorKind = iota + 1
	// NotExecutable means the node has no command, or may not join a
	// multi-node batch.
	NotExecutable
)

func (k ErrorKind) String() string {
	switch k {
	case SpawnFailed:
		return "spawn failed"
	case NotExecutable:
		return "not executable"
	default:
		return "execution error"
	}
}

var (
	ErrSpawnFailed   = errors.New("spawn failed")
	ErrNotExecutable = errors.New("not executable")
	// ErrNotBatchable is wrapped by the NotExecutable error of a batch
	// member without multi-select.
	ErrNotBatchable = errors.New("node does not allow multi-select batches")
)

// ExecutionError is returned when a node cannot be run.
type ExecutionError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ExecutionError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += fmt.Sprintf(" %q", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool {
	switch target {
	case ErrSpawnFailed:
		return e.Kind == SpawnFailed
	case ErrNotExecutable:
		return e.Kind == NotExecutable
	}
	return false
}

// Package executor runs catalog nodes as child processes and reports their
// outcome.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/logging"
)

// NonInteractiveEnv is added to every child environment so package tools do
// not stop to ask questions.
var NonInteractiveEnv = []string{
	"DEBIAN_FRONTEND=noninteractive",
	"NEEDRESTART_MODE=a",
}

// killGrace is how long a killed process may take to release its pipes.
const killGrace = 2 * time.Second

var errNUL = errors.New("argument contains NUL byte")

// Options adjust a single Execute or ExecuteBatch call.
type Options struct {
	// Dir overrides the working directory.
	Dir string
	// Env entries ("KEY=value") are applied last.
	Env             []string
	ContinueOnError bool
	Timeout         time.Duration
	// Stdout and Stderr, when set, receive output as it is produced in
	// addition to the captured copy in the Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes nodes. Front-ends depend on it so tests can inject fakes.
type Runner interface {
	Execute(ctx context.Context, node *catalog.Node, opts Options) (Result, error)
	ExecuteBatch(ctx context.Context, nodes []*catalog.Node, opts Options) ([]Result, error)
}

// Executor runs nodes on the host. The zero value is usable.
type Executor struct {
	// Shell runs raw commands and scripts without a shebang. Defaults to sh
	// (cmd on Windows).
	Shell string
	// WorkDir, when set, is used instead of the node's definition directory.
	WorkDir string
	// Env entries ("KEY=value") apply to every run.
	Env     []string
	DryRun  bool
	Timeout time.Duration
	Logger  *log.Logger
}

// New returns a Runner backed by the real Executor implementation.
func New(shell string, dry bool, logger *log.Logger) Runner {
	return &Executor{Shell: shell, DryRun: dry, Logger: logger}
}

func (e *Executor) logger() *log.Logger { return logging.OrDiscard(e.Logger) }

// Execute runs one node and waits for it. A nonzero exit status is reported
// through Result.Success and Result.ExitCode, not as an error. Grouping nodes
// fail with NotExecutable; processes that cannot be started or are killed by
// the timeout fail with SpawnFailed.
func (e *Executor) Execute(ctx context.Context, node *catalog.Node, opts Options) (Result, error) {
	if err := checkExecutable(node); err != nil {
		return Result{Success: false, Err: err}, err
	}
	res := Result{
		RunID:     uuid.NewString(),
		Tab:       node.Tab(),
		Path:      node.Path(),
		StartedAt: time.Now(),
		ExitCode:  -1,
	}
	pathStr := node.PathString()

	name, args, err := e.invocation(node.Command)
	if err != nil {
		return e.fail(res, pathStr, err)
	}
	if err := validateArgs(name, args); err != nil {
		return e.fail(res, pathStr, err)
	}

	if e.DryRun {
		res.ExitCode = 0
		res.Success = true
		res.Stdout = "dry-run: " + shellquote.Join(append([]string{name}, args...)...) + "\n"
		if w := streamWriter(opts.Stdout); w != nil {
			_, _ = io.WriteString(w, res.Stdout)
		}
		return res, nil
	}
	if _, err := exec.LookPath(name); err != nil {
		return e.fail(res, pathStr, fmt.Errorf("executable not found: %w", err))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.Timeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = e.workDir(node, opts)
	cmd.Env = e.environ(node, opts)
	cmd.WaitDelay = killGrace
	setProcessGroup(cmd)

	var bout, berr bytes.Buffer
	cmd.Stdout = tee(&bout, streamWriter(opts.Stdout))
	cmd.Stderr = tee(&berr, streamWriter(opts.Stderr))

	e.logger().Debug("executing", "run", res.RunID, "tab", res.Tab, "path", pathStr, "cmd", name, "dir", cmd.Dir)
	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = bout.String()
	res.Stderr = berr.String()

	if runErr != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return e.fail(res, pathStr, fmt.Errorf("killed: %w", ctxErr))
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return e.fail(res, pathStr, runErr)
		}
		res.ExitCode = exitErr.ExitCode()
		res.Success = false
		e.logger().Info("command finished", "run", res.RunID, "path", pathStr, "exit", res.ExitCode, "duration", res.Duration)
		return res, nil
	}
	res.ExitCode = 0
	res.Success = true
	e.logger().Info("command finished", "run", res.RunID, "path", pathStr, "exit", 0, "duration", res.Duration)
	return res, nil
}

// ExecuteBatch runs nodes one after another in the given order. Every node is
// checked with CheckBatch before any runs. Without ContinueOnError the batch
// stops after the first failed result or spawn error; with it every result is
// collected and spawn errors are recorded in Result.Err.
func (e *Executor) ExecuteBatch(ctx context.Context, nodes []*catalog.Node, opts Options) ([]Result, error) {
	if err := CheckBatch(nodes); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(nodes))
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return results, &ExecutionError{Kind: SpawnFailed, Path: n.PathString(), Err: err}
		}
		res, err := e.Execute(ctx, n, opts)
		results = append(results, res)
		if err == nil && res.Success {
			continue
		}
		if !opts.ContinueOnError {
			e.logger().Info("batch stopped", "path", n.PathString(), "ran", len(results), "of", len(nodes))
			return results, err
		}
	}
	return results, nil
}

// CheckBatch reports the first node that may not run as part of nodes. Every
// member needs a command, and a batch of more than one node may only hold
// multi-select nodes.
func CheckBatch(nodes []*catalog.Node) error {
	for _, n := range nodes {
		if err := checkExecutable(n); err != nil {
			return err
		}
		if len(nodes) > 1 && !n.MultiSelect {
			return &ExecutionError{Kind: NotExecutable, Path: n.PathString(), Err: ErrNotBatchable}
		}
	}
	return nil
}

func checkExecutable(node *catalog.Node) error {
	if node == nil {
		return &ExecutionError{Kind: NotExecutable, Err: errors.New("no node")}
	}
	if !node.Command.Executable() {
		return &ExecutionError{Kind: NotExecutable, Path: node.PathString(), Err: errors.New("node has no command")}
	}
	return nil
}

func (e *Executor) fail(res Result, path string, err error) (Result, error) {
	xerr := &ExecutionError{Kind: SpawnFailed, Path: path, Err: err}
	res.Success = false
	res.Err = xerr
	if res.Duration == 0 && !res.StartedAt.IsZero() {
		res.Duration = time.Since(res.StartedAt)
	}
	e.logger().Warn("command could not run", "run", res.RunID, "path", path, "error", err)
	return res, xerr
}

func (e *Executor) invocation(c catalog.Command) (string, []string, error) {
	switch c.Kind {
	case catalog.KindRaw:
		name, args := shellInvocation(c.Text, e.Shell)
		return name, args, nil
	case catalog.KindLocalFile:
		return scriptInvocation(c.Path, c.Args, e.Shell)
	default:
		return "", nil, fmt.Errorf("unsupported command kind %s", c.Kind)
	}
}

// workDir picks the directory a node runs in: the call option, then the
// executor's configured directory, then the node's definition directory.
func (e *Executor) workDir(node *catalog.Node, opts Options) string {
	switch {
	case opts.Dir != "":
		return opts.Dir
	case e.WorkDir != "":
		return e.WorkDir
	default:
		return node.Dir
	}
}

// environ layers the child environment; later entries win.
func (e *Executor) environ(node *catalog.Node, opts Options) []string {
	env := os.Environ()
	env = append(env, NonInteractiveEnv...)
	env = append(env, e.Env...)
	keys := make([]string, 0, len(node.Env))
	for k := range node.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+node.Env[k])
	}
	return append(env, opts.Env...)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// CommandLine renders the process a node would start, for previews.
func (e *Executor) CommandLine(c catalog.Command) (string, error) {
	name, args, err := e.invocation(c)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(shellquote.Join(append([]string{name}, args...)...)), nil
}

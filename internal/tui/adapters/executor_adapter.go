package adapters

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/tui/sanitize"
)

// BatchRunner is the slice of engine.Engine the executor adapter needs.
type BatchRunner interface {
	ExecuteBatch(ctx context.Context, tab string, paths [][]string, continueOnError bool, opts executor.Options) ([]executor.Result, error)
}

// executorAdapter implements ExecutorAdapter using an engine.
type executorAdapter struct{ runner BatchRunner }

// NewExecutorAdapter constructs an ExecutorAdapter backed by the provided runner.
func NewExecutorAdapter(r BatchRunner) ExecutorAdapter { return &executorAdapter{runner: r} }

func (e *executorAdapter) Run(ctx context.Context, tab string, paths [][]string, continueOnError bool) (RunHandle, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("nothing selected to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan RunEvent)
	lw := &lineWriter{ctx: ctx, ch: ch}

	go func() {
		defer close(ch)
		defer cancel()
		results, err := e.runner.ExecuteBatch(ctx, tab, paths, continueOnError, executor.Options{Stdout: lw, Stderr: lw})
		lw.flush()
		for i := range results {
			r := results[i]
			lw.send(RunEvent{Line: summary(r), Result: &r})
		}
		if err != nil {
			lw.send(RunEvent{Err: err})
		}
	}()

	return &runHandleImpl{ch: ch, cancel: cancel}, nil
}

func summary(r executor.Result) string {
	name := strings.Join(r.Path, " / ")
	if r.Success {
		return fmt.Sprintf("✓ %s (%s)", name, r.Duration.Round(time.Millisecond))
	}
	if r.Err != nil {
		return fmt.Sprintf("✗ %s: %v", name, r.Err)
	}
	return fmt.Sprintf("✗ %s (exit %d)", name, r.ExitCode)
}

// lineWriter turns the byte stream of a run into sanitized line events.
// Partial lines are held until their newline so escape sequences split
// across writes stay intact.
type lineWriter struct {
	ctx context.Context
	ch  chan<- RunEvent

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.send(RunEvent{Line: sanitize.RunOutput(strings.TrimSuffix(line, "\n"))})
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.send(RunEvent{Line: sanitize.RunOutput(w.buf.String())})
		w.buf.Reset()
	}
}

// send drops events once the run is canceled so a departed reader never
// blocks the command.
func (w *lineWriter) send(ev RunEvent) {
	select {
	case w.ch <- ev:
	case <-w.ctx.Done():
	}
}

type runHandleImpl struct {
	ch     <-chan RunEvent
	cancel context.CancelFunc
}

func (r *runHandleImpl) Events() <-chan RunEvent { return r.ch }
func (r *runHandleImpl) Cancel()                 { r.cancel() }

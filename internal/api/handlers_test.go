package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/sysinfo"
)

// Test helpers

type recordingRunner struct {
	mu   sync.Mutex
	ran  []string
	opts executor.Options
	fail string
}

func (f *recordingRunner) Execute(_ context.Context, n *catalog.Node, opts executor.Options) (executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !n.Command.Executable() {
		return executor.Result{}, &executor.ExecutionError{Kind: executor.NotExecutable, Path: n.PathString(), Err: errors.New("node has no command")}
	}
	f.ran = append(f.ran, n.PathString())
	f.opts = opts
	ok := n.Name != f.fail
	res := executor.Result{RunID: "run-1", Tab: n.Tab(), Path: n.Path(), Success: ok, Stdout: n.Command.Text + "\n"}
	if !ok {
		res.ExitCode = 1
		res.Stdout = ""
	}
	return res, nil
}

func (f *recordingRunner) ExecuteBatch(ctx context.Context, nodes []*catalog.Node, opts executor.Options) ([]executor.Result, error) {
	var out []executor.Result
	for _, n := range nodes {
		r, err := f.Execute(ctx, n, opts)
		if err != nil {
			return out, err
		}
		out = append(out, r)
		if !r.Success && !opts.ContinueOnError {
			break
		}
	}
	return out, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustNewTestHandlers(t *testing.T) (*Handlers, *recordingRunner) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "net", "ping.toml"), "name = \"Ping\"\ncommand = \"echo ping\"\n")
	writeFile(t, filepath.Join(root, "net", "dns.toml"),
		"name = \"DNS\"\n\n[[entries]]\nname = \"Dig\"\ncommand = \"dig example.com\"\nmulti_select = true\n\n[[entries]]\nname = \"Host\"\ncommand = \"host example.com\"\nmulti_select = true\n")
	writeFile(t, filepath.Join(root, "disk", "wipe.toml"), "name = \"Wipe\"\ncommand = \"dd if=/dev/zero of=/dev/null count=1\"\n")

	runner := &recordingRunner{}
	eng := engine.New(engine.Options{Root: root, Runner: runner})
	settings := config.NewStore(config.Settings{Definitions: root, Listen: "127.0.0.1:7878"}, filepath.Join(t.TempDir(), "config.toml"))
	sys := func(context.Context) (sysinfo.Info, error) {
		return sysinfo.Info{OS: "linux", Hostname: "box", CPUs: 4}, nil
	}
	return NewHandlers(eng, settings, sys, nil), runner
}

func do(t *testing.T, h *Handlers, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func Test_HandleHealth(t *testing.T) {
	h, _ := mustNewTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var response map[string]string
	decode(t, w, &response)
	if response["status"] != "healthy" {
		t.Fatalf("expected status 'healthy', got '%s'", response["status"])
	}
}

func Test_HandleTabs(t *testing.T) {
	h, _ := mustNewTestHandlers(t)

	w := do(t, h, http.MethodGet, "/tabs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TabsResponse
	decode(t, w, &resp)
	if len(resp.Tabs) != 2 || !resp.Validated {
		t.Fatalf("unexpected tabs response: %+v", resp)
	}
	var net engine.TabEntries
	for _, tab := range resp.Tabs {
		if tab.Name == "net" {
			net = tab
		}
	}
	if len(net.Entries) != 4 {
		t.Fatalf("expected 4 net entries, got %+v", net.Entries)
	}
}

func Test_HandleTabs_BadFlag(t *testing.T) {
	h, _ := mustNewTestHandlers(t)
	w := do(t, h, http.MethodGet, "/tabs?override_validation=maybe", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func Test_HandleTabs_Duplicate(t *testing.T) {
	h, _ := mustNewTestHandlers(t)
	root := h.eng.Root()
	writeFile(t, filepath.Join(root, "net", "ping2.toml"), "name = \"Ping\"\ncommand = \"echo again\"\n")

	w := do(t, h, http.MethodGet, "/tabs?override_validation=false", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var errResp ErrorResponse
	decode(t, w, &errResp)
	if errResp.Code != "BUILD_FAILED" {
		t.Fatalf("expected BUILD_FAILED, got %+v", errResp)
	}

	w = do(t, h, http.MethodGet, "/tabs?override_validation=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tolerant load should succeed, got %d", w.Code)
	}
	var resp TabsResponse
	decode(t, w, &resp)
	if resp.Validated || len(resp.Diagnostics) == 0 {
		t.Fatalf("expected tolerant catalog with diagnostics, got %+v", resp)
	}
}

func Test_HandlePreview(t *testing.T) {
	h, _ := mustNewTestHandlers(t)

	w := do(t, h, http.MethodGet, "/preview?tab=net&path=DNS/Dig", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var p engine.Preview
	decode(t, w, &p)
	if p.Kind != engine.PreviewRaw || p.Content != "dig example.com" {
		t.Fatalf("unexpected preview %+v", p)
	}

	tests := []struct {
		target string
		status int
	}{
		{"/preview?tab=net", http.StatusBadRequest},
		{"/preview?tab=net&path=Nope", http.StatusNotFound},
		{"/preview?tab=nope&path=Ping", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if w := do(t, h, http.MethodGet, tt.target, nil); w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func Test_HandleExecute(t *testing.T) {
	h, runner := mustNewTestHandlers(t)

	w := do(t, h, http.MethodPost, "/execute", ExecuteRequest{Tab: "net", Path: []string{"Ping"}, Env: map[string]string{"B": "2", "A": "1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ExecuteResponse
	decode(t, w, &resp)
	if !resp.Success || resp.Output != "echo ping\n" || resp.RunID != "run-1" {
		t.Fatalf("unexpected result %+v", resp)
	}
	if len(runner.opts.Env) != 2 || runner.opts.Env[0] != "A=1" {
		t.Fatalf("env not passed in order: %v", runner.opts.Env)
	}
}

func Test_HandleExecute_Errors(t *testing.T) {
	h, runner := mustNewTestHandlers(t)

	tests := []struct {
		name   string
		req    ExecuteRequest
		status int
		code   string
	}{
		{"missing path", ExecuteRequest{Tab: "net"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown node", ExecuteRequest{Tab: "net", Path: []string{"Nope"}}, http.StatusNotFound, "NOT_FOUND"},
		{"directory", ExecuteRequest{Tab: "net", Path: []string{"DNS"}}, http.StatusUnprocessableEntity, "NOT_EXECUTABLE"},
		{"destructive", ExecuteRequest{Tab: "disk", Path: []string{"Wipe"}}, http.StatusForbidden, "BLOCKED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/execute", tt.req)
			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}
			var errResp ErrorResponse
			decode(t, w, &errResp)
			if errResp.Code != tt.code {
				t.Fatalf("expected code %s, got %+v", tt.code, errResp)
			}
		})
	}
	if len(runner.ran) != 0 {
		t.Fatalf("nothing should have run, got %v", runner.ran)
	}

	w := do(t, h, http.MethodPost, "/execute", ExecuteRequest{Tab: "disk", Path: []string{"Wipe"}, Force: true})
	if w.Code != http.StatusOK || len(runner.ran) != 1 {
		t.Fatalf("force should run the command, got %d", w.Code)
	}
}

func Test_HandleExecute_InvalidMethod(t *testing.T) {
	h, _ := mustNewTestHandlers(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			if w := do(t, h, method, "/execute", nil); w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected status 405, got %d", w.Code)
			}
		})
	}
}

func Test_HandleExecuteBatch(t *testing.T) {
	h, runner := mustNewTestHandlers(t)
	runner.fail = "Dig"
	paths := [][]string{{"DNS", "Dig"}, {"DNS", "Host"}}

	w := do(t, h, http.MethodPost, "/execute/batch", BatchRequest{Tab: "net", Paths: paths})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp BatchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 1 || !resp.Stopped || resp.Results[0].Success {
		t.Fatalf("batch should stop after the failure: %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/execute/batch", BatchRequest{Tab: "net", Paths: paths, ContinueOnError: true})
	resp = BatchResponse{}
	decode(t, w, &resp)
	if len(resp.Results) != 2 || resp.Stopped || resp.Results[1].Path[1] != "Host" {
		t.Fatalf("batch should run both in order: %+v", resp)
	}
}

func Test_HandleExecuteBatch_NotMultiSelect(t *testing.T) {
	h, runner := mustNewTestHandlers(t)

	w := do(t, h, http.MethodPost, "/execute/batch", BatchRequest{Tab: "net", Paths: [][]string{{"DNS", "Dig"}, {"Ping"}}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}
	if len(runner.ran) != 0 {
		t.Fatalf("rejected batch must not run anything, ran %v", runner.ran)
	}
}

func Test_HandleRefreshAndClear(t *testing.T) {
	h, _ := mustNewTestHandlers(t)
	if w := do(t, h, http.MethodGet, "/tabs", nil); w.Code != http.StatusOK {
		t.Fatalf("initial load failed: %d", w.Code)
	}
	writeFile(t, filepath.Join(h.eng.Root(), "apps", "update.toml"), "name = \"Update\"\ncommand = \"true\"\n")

	w := do(t, h, http.MethodPost, "/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TabsResponse
	decode(t, w, &resp)
	if len(resp.Tabs) != 3 {
		t.Fatalf("refresh should pick up the new tab, got %d tabs", len(resp.Tabs))
	}

	if w := do(t, h, http.MethodPost, "/cache/clear", nil); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/cache/clear", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", w.Code)
	}
}

func Test_HandleConfig(t *testing.T) {
	h, _ := mustNewTestHandlers(t)

	w := do(t, h, http.MethodGet, "/config", nil)
	var got ConfigResponse
	decode(t, w, &got)
	if got.Listen != "127.0.0.1:7878" {
		t.Fatalf("unexpected config %+v", got)
	}

	body := got.ConfigBody
	body.SkipConfirmation = true
	body.Timeout = "30s"
	w = do(t, h, http.MethodPut, "/config", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated ConfigResponse
	decode(t, w, &updated)
	if !updated.SkipConfirmation || updated.Timeout != "30s" || !updated.RestartRequired {
		t.Fatalf("unexpected update response %+v", updated)
	}
	if !h.settings.Get().SkipConfirmation {
		t.Fatalf("store not updated")
	}

	body.Timeout = "soon"
	if w := do(t, h, http.MethodPut, "/config", body); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad timeout, got %d", w.Code)
	}
}

func Test_HandleSystem(t *testing.T) {
	h, _ := mustNewTestHandlers(t)
	w := do(t, h, http.MethodGet, "/system", nil)
	var info sysinfo.Info
	decode(t, w, &info)
	if info.Hostname != "box" || info.CPUs != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func Test_HandleSearch(t *testing.T) {
	h, _ := mustNewTestHandlers(t)
	w := do(t, h, http.MethodGet, "/search?q=dig", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var hits []SearchHit
	decode(t, w, &hits)
	if len(hits) == 0 || hits[0].Name != "Dig" {
		t.Fatalf("expected Dig first, got %+v", hits)
	}
}

// Package api exposes the engine over a small JSON HTTP interface for
// desktop front-ends.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/logging"
	"github.com/VoxDroid/tabrun/internal/security"
	"github.com/VoxDroid/tabrun/internal/source"
	"github.com/VoxDroid/tabrun/internal/sysinfo"
)

// Handlers contains HTTP handlers for the catalog API
type Handlers struct {
	eng      *engine.Engine
	settings *config.Store
	sys      sysinfo.Collector
	logger   *log.Logger
}

// NewHandlers creates a new handlers instance. sys defaults to
// sysinfo.Collect.
func NewHandlers(eng *engine.Engine, settings *config.Store, sys sysinfo.Collector, logger *log.Logger) *Handlers {
	if sys == nil {
		sys = sysinfo.Collect
	}
	return &Handlers{
		eng:      eng,
		settings: settings,
		sys:      sys,
		logger:   logging.OrDiscard(logger),
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/tabs", h.HandleTabs)
	mux.HandleFunc("/preview", h.HandlePreview)
	mux.HandleFunc("/execute", h.HandleExecute)
	mux.HandleFunc("/execute/batch", h.HandleExecuteBatch)
	mux.HandleFunc("/refresh", h.HandleRefresh)
	mux.HandleFunc("/cache/clear", h.HandleClearCache)
	mux.HandleFunc("/config", h.HandleConfig)
	mux.HandleFunc("/system", h.HandleSystem)
	mux.HandleFunc("/search", h.HandleSearch)
	return mux
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	h.json(w, map[string]string{"status": "healthy"})
}

// HandleTabs handles GET /tabs
func (h *Handlers) HandleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	skip := h.settings.Get().OverrideValidation
	if v := r.URL.Query().Get("override_validation"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.errorWithCode(w, "override_validation must be a boolean", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}
		skip = b
	}

	cat, err := h.eng.Load(r.Context(), skip)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.json(w, tabsResponse(cat))
}

// HandlePreview handles GET /preview?tab=&path=
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	q := r.URL.Query()
	tab, path := q.Get("tab"), catalog.SplitPath(q.Get("path"))
	if tab == "" || len(path) == 0 {
		h.errorWithCode(w, "tab and path are required", "INVALID_REQUEST", http.StatusBadRequest)
		return
	}
	p, err := h.eng.Preview(r.Context(), tab, path)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.json(w, p)
}

// HandleExecute handles POST /execute
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, err, http.StatusBadRequest)
		return
	}
	if req.Tab == "" || len(req.Path) == 0 {
		h.errorWithCode(w, "tab and path are required", "INVALID_REQUEST", http.StatusBadRequest)
		return
	}
	if !req.Force {
		if err := h.guard(r, req.Tab, req.Path); err != nil {
			h.fail(w, err)
			return
		}
	}

	res, err := h.eng.ExecuteNode(r.Context(), req.Tab, req.Path, executor.Options{Dir: req.Dir, Env: envList(req.Env)})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("executed", "tab", req.Tab, "path", res.Path, "exit", res.ExitCode, "run", res.RunID)
	h.json(w, resultResponse(res))
}

// HandleExecuteBatch handles POST /execute/batch
func (h *Handlers) HandleExecuteBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, err, http.StatusBadRequest)
		return
	}
	if req.Tab == "" || len(req.Paths) == 0 {
		h.errorWithCode(w, "tab and paths are required", "INVALID_REQUEST", http.StatusBadRequest)
		return
	}
	if !req.Force {
		for _, p := range req.Paths {
			if err := h.guard(r, req.Tab, p); err != nil {
				h.fail(w, err)
				return
			}
		}
	}

	results, err := h.eng.ExecuteBatch(r.Context(), req.Tab, req.Paths, req.ContinueOnError, executor.Options{Dir: req.Dir, Env: envList(req.Env)})
	if err != nil && len(results) == 0 {
		h.fail(w, err)
		return
	}
	resp := BatchResponse{Results: make([]ExecuteResponse, 0, len(results)), Stopped: len(results) < len(req.Paths)}
	for _, res := range results {
		resp.Results = append(resp.Results, resultResponse(res))
	}
	h.json(w, resp)
}

// HandleRefresh handles POST /refresh
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	if _, err := h.eng.Load(r.Context(), h.settings.Get().OverrideValidation); err != nil {
		h.fail(w, err)
		return
	}
	cat, err := h.eng.Refresh(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.json(w, tabsResponse(cat))
}

// HandleClearCache handles POST /cache/clear
func (h *Handlers) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	h.eng.ClearCache()
	h.json(w, map[string]string{"status": "cleared"})
}

// HandleConfig handles GET and PUT /config
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.json(w, ConfigResponse{ConfigBody: configBody(h.settings.Get())})
	case http.MethodPut:
		h.updateConfig(w, r)
	default:
		h.methodNotAllowed(w, r)
	}
}

func (h *Handlers) updateConfig(w http.ResponseWriter, r *http.Request) {
	var body ConfigBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.error(w, err, http.StatusBadRequest)
		return
	}
	next, err := body.settings()
	if err != nil {
		h.errorWithCode(w, "invalid timeout: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest)
		return
	}
	prev := h.settings.Get()
	if err := h.settings.Update(next); err != nil {
		h.error(w, err, http.StatusInternalServerError)
		return
	}
	// Validation mode or definitions may have changed.
	h.eng.ClearCache()
	h.logger.Info("settings updated")
	h.json(w, ConfigResponse{ConfigBody: configBody(next), RestartRequired: needsRestart(prev, next)})
}

// HandleSystem handles GET /system
func (h *Handlers) HandleSystem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	info, err := h.sys(r.Context())
	if err != nil {
		h.error(w, err, http.StatusInternalServerError)
		return
	}
	h.json(w, info)
}

// HandleSearch handles GET /search?q=
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	matches, err := h.eng.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, SearchHit{Entry: engine.EntryFor(m.Node), Score: m.Score})
	}
	h.json(w, hits)
}

// guard refuses commands that look destructive.
func (h *Handlers) guard(r *http.Request, tab string, path []string) error {
	n, err := h.eng.Node(r.Context(), tab, path)
	if err != nil {
		return err
	}
	return security.CheckCommand(n.Command)
}

func tabsResponse(cat *catalog.Catalog) TabsResponse {
	resp := TabsResponse{Tabs: engine.Flatten(cat), Validated: cat.Validated}
	for _, d := range cat.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, d.String())
	}
	return resp
}

func envList(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// needsRestart reports whether a field read only at startup changed.
func needsRestart(prev, next config.Settings) bool {
	if len(prev.Env) != len(next.Env) {
		return true
	}
	for i := range prev.Env {
		if prev.Env[i] != next.Env[i] {
			return true
		}
	}
	return prev.Definitions != next.Definitions || prev.ScriptsDir != next.ScriptsDir ||
		prev.Shell != next.Shell || prev.Timeout != next.Timeout ||
		prev.Listen != next.Listen || prev.LogLevel != next.LogLevel
}

// fail maps engine errors onto status codes.
func (h *Handlers) fail(w http.ResponseWriter, err error) {
	var buildErr *catalog.BuildError
	var srcErr *source.SourceError
	switch {
	case errors.Is(err, catalog.ErrTabNotFound), errors.Is(err, catalog.ErrNodeNotFound):
		h.errorWithCode(w, err, "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, executor.ErrNotExecutable):
		h.errorWithCode(w, err, "NOT_EXECUTABLE", http.StatusUnprocessableEntity)
	case errors.Is(err, security.ErrBlocked):
		h.errorWithCode(w, err, "BLOCKED", http.StatusForbidden)
	case errors.Is(err, executor.ErrSpawnFailed):
		h.errorWithCode(w, err, "SPAWN_FAILED", http.StatusInternalServerError)
	case errors.As(err, &buildErr):
		h.writeError(w, ErrorResponse{Error: err.Error(), Code: "BUILD_FAILED", Details: buildErr.Kind.String()}, http.StatusInternalServerError)
	case errors.As(err, &srcErr):
		h.errorWithCode(w, err, "SOURCE_UNREADABLE", http.StatusInternalServerError)
	default:
		h.error(w, err, http.StatusInternalServerError)
	}
}

// Helper methods

func (h *Handlers) json(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) error(w http.ResponseWriter, err interface{}, status int) {
	h.errorWithCode(w, err, "", status)
}

func (h *Handlers) errorWithCode(w http.ResponseWriter, err interface{}, code string, status int) {
	resp := ErrorResponse{Code: code}
	switch v := err.(type) {
	case string:
		resp.Error = v
	case error:
		resp.Error = v.Error()
	default:
		resp.Error = "unknown error"
	}
	h.writeError(w, resp, status)
}

func (h *Handlers) writeError(w http.ResponseWriter, resp ErrorResponse, status int) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", resp.Error)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.error(w, "method not allowed", http.StatusMethodNotAllowed)
}

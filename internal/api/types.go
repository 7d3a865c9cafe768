package api

import (
	"time"

	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/executor"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// TabsResponse is returned by GET /tabs
type TabsResponse struct {
	Tabs        []engine.TabEntries `json:"tabs"`
	Validated   bool                `json:"validated"`
	Diagnostics []string            `json:"diagnostics,omitempty"`
}

// ExecuteRequest represents a single execution request
type ExecuteRequest struct {
	Tab  string            `json:"tab"`
	Path []string          `json:"path"`
	Dir  string            `json:"dir,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
	// Force runs commands that look destructive.
	Force bool `json:"force,omitempty"`
}

// BatchRequest represents an ordered multi-entry execution of one tab
type BatchRequest struct {
	Tab             string            `json:"tab"`
	Paths           [][]string        `json:"paths"`
	ContinueOnError bool              `json:"continue_on_error"`
	Dir             string            `json:"dir,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	Force           bool              `json:"force,omitempty"`
}

// ExecuteResponse describes one finished execution
type ExecuteResponse struct {
	RunID      string    `json:"run_id"`
	Tab        string    `json:"tab"`
	Path       []string  `json:"path"`
	Success    bool      `json:"success"`
	ExitCode   int       `json:"exit_code"`
	Output     string    `json:"output"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// BatchResponse lists the results of a batch in execution order
type BatchResponse struct {
	Results []ExecuteResponse `json:"results"`
	// Stopped is set when a failure ended the batch early.
	Stopped bool `json:"stopped"`
}

// SearchHit is one fuzzy search match
type SearchHit struct {
	engine.Entry
	Score int `json:"score"`
}

// ConfigBody is the JSON shape of the persisted settings
type ConfigBody struct {
	Definitions        string   `json:"definitions"`
	ScriptsDir         string   `json:"scripts_dir"`
	Shell              string   `json:"shell"`
	Timeout            string   `json:"timeout"`
	OverrideValidation bool     `json:"override_validation"`
	SkipConfirmation   bool     `json:"skip_confirmation"`
	ContinueOnError    bool     `json:"continue_on_error"`
	Listen             string   `json:"listen"`
	LogLevel           string   `json:"log_level"`
	Env                []string `json:"env"`
}

// ConfigResponse is returned by GET and PUT /config
type ConfigResponse struct {
	ConfigBody
	// RestartRequired is set when a changed field is only read at startup.
	RestartRequired bool `json:"restart_required,omitempty"`
}

func resultResponse(r executor.Result) ExecuteResponse {
	out := ExecuteResponse{
		RunID:      r.RunID,
		Tab:        r.Tab,
		Path:       r.Path,
		Success:    r.Success,
		ExitCode:   r.ExitCode,
		Output:     r.Output(),
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func configBody(s config.Settings) ConfigBody {
	b := ConfigBody{
		Definitions:        s.Definitions,
		ScriptsDir:         s.ScriptsDir,
		Shell:              s.Shell,
		OverrideValidation: s.OverrideValidation,
		SkipConfirmation:   s.SkipConfirmation,
		ContinueOnError:    s.ContinueOnError,
		Listen:             s.Listen,
		LogLevel:           s.LogLevel,
		Env:                s.Env,
	}
	if s.Timeout > 0 {
		b.Timeout = s.Timeout.String()
	}
	if b.Env == nil {
		b.Env = []string{}
	}
	return b
}

func (b ConfigBody) settings() (config.Settings, error) {
	s := config.Settings{
		Definitions:        b.Definitions,
		ScriptsDir:         b.ScriptsDir,
		Shell:              b.Shell,
		OverrideValidation: b.OverrideValidation,
		SkipConfirmation:   b.SkipConfirmation,
		ContinueOnError:    b.ContinueOnError,
		Listen:             b.Listen,
		LogLevel:           b.LogLevel,
		Env:                b.Env,
	}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return config.Settings{}, err
		}
		s.Timeout = d
	}
	return s, nil
}

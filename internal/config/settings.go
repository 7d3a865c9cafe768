// Package config resolves tabrun's data paths and user settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TABRUN"

// Settings are the user-tunable options shared by every front-end.
type Settings struct {
	Definitions        string        `mapstructure:"definitions" json:"definitions"`
	ScriptsDir         string        `mapstructure:"scripts_dir" json:"scripts_dir"`
	Shell              string        `mapstructure:"shell" json:"shell"`
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout"`
	OverrideValidation bool          `mapstructure:"override_validation" json:"override_validation"`
	SkipConfirmation   bool          `mapstructure:"skip_confirmation" json:"skip_confirmation"`
	ContinueOnError    bool          `mapstructure:"continue_on_error" json:"continue_on_error"`
	Listen             string        `mapstructure:"listen" json:"listen"`
	LogLevel           string        `mapstructure:"log_level" json:"log_level"`
	Env                []string      `mapstructure:"env" json:"env"`
}

// fileSettings is the on-disk TOML shape; durations are kept as strings.
type fileSettings struct {
	Definitions        string   `toml:"definitions,omitempty"`
	ScriptsDir         string   `toml:"scripts_dir,omitempty"`
	Shell              string   `toml:"shell,omitempty"`
	Timeout            string   `toml:"timeout,omitempty"`
	OverrideValidation bool     `toml:"override_validation"`
	SkipConfirmation   bool     `toml:"skip_confirmation"`
	ContinueOnError    bool     `toml:"continue_on_error"`
	Listen             string   `toml:"listen,omitempty"`
	LogLevel           string   `toml:"log_level,omitempty"`
	Env                []string `toml:"env,omitempty"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	defs, err := DefaultDefinitionsDir()
	if err != nil {
		defs = "tabs"
	}
	return Settings{
		Definitions: defs,
		Listen:      "127.0.0.1:7878",
		LogLevel:    "warn",
	}
}

// NewViper returns a viper instance with defaults, the TABRUN_ environment
// binding and, when it exists, the settings file at path (or ConfigPath when
// path is empty). Callers may bind command-line flags on it before Load.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("definitions", d.Definitions)
	v.SetDefault("scripts_dir", d.ScriptsDir)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("override_validation", d.OverrideValidation)
	v.SetDefault("skip_confirmation", d.SkipConfirmation)
	v.SetDefault("continue_on_error", d.ContinueOnError)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("env", d.Env)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return v, nil
		}
		path = p
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return v, nil
}

// Load decodes settings from v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.Definitions = expandHome(s.Definitions)
	s.ScriptsDir = expandHome(s.ScriptsDir)
	return s, nil
}

// Save writes s as TOML to path (or ConfigPath when empty), creating the
// directory as needed.
func Save(s Settings, path string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer f.Close()
	return Write(f, s)
}

// Write encodes s in the settings file format.
func Write(w io.Writer, s Settings) error {
	fs := fileSettings{
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
		fs.Timeout = s.Timeout.String()
	}
	if err := toml.NewEncoder(w).Encode(fs); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return nil
}

// ReadFile returns the defaults overlaid with the settings file at path (or
// ConfigPath when empty), ignoring the environment. A missing file yields the
// defaults.
func ReadFile(path string) (Settings, error) {
	s := Defaults()
	path, err := resolvePath(path)
	if err != nil {
		return s, err
	}
	fs := fileSettings{
		Definitions: s.Definitions,
		Listen:      s.Listen,
		LogLevel:    s.LogLevel,
	}
	if _, err := toml.DecodeFile(path, &fs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	out := Settings{
		Definitions:        expandHome(fs.Definitions),
		ScriptsDir:         expandHome(fs.ScriptsDir),
		Shell:              fs.Shell,
		OverrideValidation: fs.OverrideValidation,
		SkipConfirmation:   fs.SkipConfirmation,
		ContinueOnError:    fs.ContinueOnError,
		Listen:             fs.Listen,
		LogLevel:           fs.LogLevel,
		Env:                fs.Env,
	}
	if fs.Timeout != "" {
		d, err := time.ParseDuration(fs.Timeout)
		if err != nil {
			return s, fmt.Errorf("read settings %s: timeout: %w", path, err)
		}
		out.Timeout = d
	}
	return out, nil
}

// Set assigns one settings key from its string form.
func (s *Settings) Set(key, value string) error {
	var err error
	switch key {
	case "definitions":
		s.Definitions = expandHome(value)
	case "scripts_dir":
		s.ScriptsDir = expandHome(value)
	case "shell":
		s.Shell = value
	case "timeout":
		s.Timeout, err = time.ParseDuration(value)
	case "override_validation":
		s.OverrideValidation, err = strconv.ParseBool(value)
	case "skip_confirmation":
		s.SkipConfirmation, err = strconv.ParseBool(value)
	case "continue_on_error":
		s.ContinueOnError, err = strconv.ParseBool(value)
	case "listen":
		s.Listen = value
	case "log_level":
		s.LogLevel = value
	case "env":
		s.Env = nil
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				s.Env = append(s.Env, e)
			}
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ConfigPath()
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/engine"
	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/logging"
	"github.com/VoxDroid/tabrun/internal/store"
)

var (
	// settings and logger are resolved before every command runs.
	settings config.Settings
	logger   = logging.Discard()

	configFile   string
	snapshotFile string
)

var rootCmd = &cobra.Command{
	Use:   "tabrun",
	Short: "tabrun runs commands from a catalog of definition files",
	Long: "tabrun builds a catalog of runnable commands from a directory of TOML or YAML\n" +
		"definitions (one subdirectory per tab) and runs them from the CLI, a terminal UI\n" +
		"or a local HTTP bridge.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v, err := config.NewViper(configFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		for key, flag := range map[string]string{
			"definitions":         "definitions",
			"log_level":           "log-level",
			"override_validation": "override-validation",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		s, err := config.Load(v)
		if err != nil {
			return err
		}
		settings = s
		logger = logging.New(os.Stderr, s.LogLevel)
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tabrun: run 'tabrun --help' to see available commands")
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Settings file (default $TABRUN_HOME/config.toml)")
	pf.StringP("definitions", "d", "", "Definition directory (one subdirectory per tab)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.Bool("override-validation", false, "Build tolerantly: skip duplicate and empty-tab checks")
	pf.StringVar(&snapshotFile, "snapshot", "", "Read the catalog from a SQLite snapshot instead of the definition directory")
}

// newRunner builds the executor configured by the current settings.
func newRunner(dry bool, l *log.Logger) executor.Runner {
	return &executor.Executor{
		Shell:   settings.Shell,
		WorkDir: settings.ScriptsDir,
		Env:     settings.Env,
		Timeout: settings.Timeout,
		DryRun:  dry,
		Logger:  l,
	}
}

// newEngine returns an engine over the configured definitions, or over the
// snapshot given with --snapshot.
func newEngine(dry bool, l *log.Logger) (*engine.Engine, func(), error) {
	opts := engine.Options{
		Root:   settings.Definitions,
		Runner: newRunner(dry, l),
		Logger: l,
	}
	if snapshotFile == "" {
		return engine.New(opts), func() {}, nil
	}
	db, err := store.Open(snapshotFile)
	if err != nil {
		return nil, nil, err
	}
	opts.Load = snapshotLoader(db, l)
	eng := engine.New(opts)
	return eng, func() { _ = db.Close() }, nil
}

func snapshotLoader(db *sql.DB, l *log.Logger) catalog.LoadFunc {
	return func(validate bool) (*catalog.Catalog, error) {
		snap, err := store.Load(db)
		if err != nil {
			return nil, err
		}
		return catalog.Build(snap, catalog.BuildOptions{Validate: validate, Logger: l})
	}
}

// skipValidation reports whether commands should build tolerantly.
func skipValidation() bool { return settings.OverrideValidation }

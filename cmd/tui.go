package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/cmd/tui/ui"
	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/logging"
	"github.com/VoxDroid/tabrun/internal/source"
	"github.com/VoxDroid/tabrun/internal/tui/adapters"
	modelpkg "github.com/VoxDroid/tabrun/internal/tui/model"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal UI",
	RunE: func(cmd *cobra.Command, _ []string) error {
		noWatch, _ := cmd.Flags().GetBool("no-watch")

		// Log lines would corrupt the alternate screen.
		quiet := logging.Discard()
		eng, closeFn, err := newEngine(false, quiet)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// A catalog that does not build refuses to start the UI.
		if _, err := eng.Load(ctx, skipValidation()); err != nil {
			return err
		}

		catAdapter := adapters.NewCatalogAdapter(eng, skipValidation())
		execAdapter := adapters.NewExecutorAdapter(eng)
		uiModel := modelpkg.New(catAdapter, execAdapter)
		uiModel.ContinueOnError = settings.ContinueOnError

		p := ui.NewProgram(uiModel, ui.Options{SkipConfirmation: settings.SkipConfirmation})
		if !noWatch && snapshotFile == "" {
			err := eng.Watch(ctx, source.DefaultDebounce, func(_ *catalog.Catalog, err error) {
				p.Send(ui.ExternalReloadMsg{Err: err})
			})
			if err != nil {
				logger.Warn("watching definitions failed", "error", err)
			}
			defer eng.StopWatching()
		}
		_, err = p.Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().Bool("no-watch", false, "Do not reload when definition files change")
	rootCmd.AddCommand(tuiCmd)
}

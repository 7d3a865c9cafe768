package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/api"
	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/source"
	"github.com/VoxDroid/tabrun/internal/sysinfo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over a local JSON HTTP API",
	Long:  "Serve the catalog to desktop front-ends. Example:\n  tabrun serve --listen 127.0.0.1:7878 --watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = settings.Listen
		}
		watch, _ := cmd.Flags().GetBool("watch")

		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Sets the validation mode later requests resolve nodes in. Build
		// errors are reported per request.
		if _, err := eng.Load(ctx, skipValidation()); err != nil {
			logger.Warn("initial catalog build failed", "error", err)
		}

		if watch && snapshotFile == "" {
			err := eng.Watch(ctx, source.DefaultDebounce, func(c *catalog.Catalog, err error) {
				if err == nil {
					logger.Info("catalog reloaded", "entries", c.Count())
				}
			})
			if err != nil {
				return err
			}
			defer eng.StopWatching()
		}

		h := api.NewHandlers(eng, config.NewStore(settings, configFile), sysinfo.Collect, logger)
		return api.Serve(ctx, listen, h.Routes(), logger)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default from settings, 127.0.0.1:7878)")
	serveCmd.Flags().Bool("watch", false, "Reload the catalog when definition files change")
	rootCmd.AddCommand(serveCmd)
}

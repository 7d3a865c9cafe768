package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/catalog"
)

var previewCmd = &cobra.Command{
	Use:   "preview <tab> <path>",
	Short: "Show what an entry would run",
	Long:  "Show the command, script content or children of an entry. Example:\n  tabrun preview network DNS/Dig",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := eng.Load(cmd.Context(), skipValidation()); err != nil {
			return err
		}
		p, err := eng.Preview(cmd.Context(), args[0], catalog.SplitPath(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), p.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

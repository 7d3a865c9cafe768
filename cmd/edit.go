package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/utils"
)

var editCmd = &cobra.Command{
	Use:   "edit <tab> <path>",
	Short: "Open the file defining an entry in your editor",
	Long:  "Open the definition file of an entry in $VISUAL or $EDITOR, then check that the\ncatalog still builds. Example:\n  tabrun edit network DNS/Dig",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotFile != "" {
			return fmt.Errorf("snapshots are read-only; edit the definition directory instead")
		}
		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		if _, err := eng.Load(ctx, skipValidation()); err != nil {
			return err
		}
		n, err := eng.Node(ctx, args[0], catalog.SplitPath(args[1]))
		if err != nil {
			return err
		}
		if n.Source == "" {
			return fmt.Errorf("%s has no definition file", n.PathString())
		}
		if err := utils.OpenEditor(n.Source); err != nil {
			return err
		}

		cat, err := eng.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("catalog no longer builds after editing %s: %w", n.Source, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s; catalog has %d entries\n", n.Source, cat.Count())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the definition directory",
	Long:  "Build the catalog with every check enabled and report problems. With\n--override-validation the tolerant build runs and its diagnostics are listed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		cat, err := eng.Load(cmd.Context(), skipValidation())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, t := range cat.Tabs {
			fmt.Fprintf(out, "%-20s %d entries\n", t.Name, t.Count())
		}
		for _, d := range cat.Diagnostics {
			fmt.Fprintf(out, "warning: %s\n", d)
		}
		mode := "strict"
		if !cat.Validated {
			mode = "tolerant"
		}
		fmt.Fprintf(out, "ok: %d tabs, %d entries (%s)\n", len(cat.Tabs), cat.Count(), mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

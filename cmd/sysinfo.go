package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/sysinfo"
)

// collectSysinfo is replaced in tests.
var collectSysinfo sysinfo.Collector = sysinfo.Collect

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show host information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info, err := collectSysinfo(cmd.Context())
		if err != nil {
			return err
		}
		for _, l := range info.Lines() {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sysinfoCmd)
}

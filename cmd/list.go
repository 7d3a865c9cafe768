package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/utils"
)

var listCmd = &cobra.Command{
	Use:   "list [tab]",
	Short: "List catalog entries",
	Long:  "List catalog entries as a tree, optionally for one tab. Example:\n  tabrun list network\n  tabrun list --filter dig",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		width := utils.TerminalWidth(100)
		filter, _ := cmd.Flags().GetString("filter")
		if filter != "" {
			if _, err := eng.Load(cmd.Context(), skipValidation()); err != nil {
				return err
			}
			matches, err := eng.Search(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if len(args) == 1 && m.Node.Tab() != args[0] {
					continue
				}
				line := fmt.Sprintf("%s/%s", m.Node.Tab(), m.Node.PathString())
				if m.Node.Description != "" {
					line += "  " + m.Node.Description
				}
				fmt.Fprintln(out, utils.Truncate(line, width))
			}
			return nil
		}

		cat, err := eng.Load(cmd.Context(), skipValidation())
		if err != nil {
			return err
		}
		tabs := cat.Tabs
		if len(args) == 1 {
			t, err := cat.Tab(args[0])
			if err != nil {
				return err
			}
			tabs = []*catalog.Tab{t}
		}
		for _, t := range tabs {
			fmt.Fprintf(out, "%s (%d)\n", t.Name, t.Count())
			t.Walk(func(n *catalog.Node) bool {
				depth := len(n.Path())
				marker := "-"
				if n.HasChildren() {
					marker = "+"
				}
				line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), marker, n.Name)
				if n.Description != "" {
					line += "  " + n.Description
				}
				fmt.Fprintln(out, utils.Truncate(line, width))
				return true
			})
		}
		for _, d := range cat.Diagnostics {
			logger.Warn(d.String())
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("filter", "", "Fuzzy filter on tab, path and description")
	rootCmd.AddCommand(listCmd)
}

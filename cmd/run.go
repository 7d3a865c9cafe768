package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/catalog"
	"github.com/VoxDroid/tabrun/internal/executor"
	"github.com/VoxDroid/tabrun/internal/security"
	"github.com/VoxDroid/tabrun/internal/utils"
)

var runCmd = &cobra.Command{
	Use:   "run <tab> <path> [path...]",
	Short: "Run one or more entries of a tab",
	Long: "Run entries of a tab in the given order. Paths join node names with '/'. Example:\n" +
		"  tabrun run network DNS/Dig\n  tabrun run system Update Cleanup --continue-on-error",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tab := args[0]
		dry, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		force, _ := cmd.Flags().GetBool("force")
		cont, _ := cmd.Flags().GetBool("continue-on-error")
		cont = cont || settings.ContinueOnError

		eng, closeFn, err := newEngine(dry, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		ctx := cmd.Context()
		if _, err := eng.Load(ctx, skipValidation()); err != nil {
			return err
		}

		paths := make([][]string, 0, len(args)-1)
		names := make([]string, 0, len(args)-1)
		nodes := make([]*catalog.Node, 0, len(args)-1)
		for _, a := range args[1:] {
			p := catalog.SplitPath(a)
			n, err := eng.Node(ctx, tab, p)
			if err != nil {
				return err
			}
			if err := security.CheckCommand(n.Command); err != nil && !force && !dry {
				return fmt.Errorf("refusing to run potentially dangerous command '%s': %v (use --force to override)", n.Command.Text, err)
			}
			paths = append(paths, p)
			names = append(names, n.PathString())
			nodes = append(nodes, n)
		}
		if err := executor.CheckBatch(nodes); err != nil {
			return err
		}

		if !yes && !dry && !settings.SkipConfirmation {
			if !utils.Confirm(fmt.Sprintf("Run %s in %s now?", strings.Join(names, ", "), tab)) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
		}

		out := cmd.OutOrStdout()
		results, err := eng.ExecuteBatch(ctx, tab, paths, cont, executor.Options{Stdout: out, Stderr: cmd.ErrOrStderr()})
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		if err != nil {
			return err
		}
		if failed > 0 {
			last := results[len(results)-1]
			if len(results) < len(paths) {
				return fmt.Errorf("%s failed with exit code %d; %d entries not run", strings.Join(last.Path, "/"), last.ExitCode, len(paths)-len(results))
			}
			return fmt.Errorf("%d of %d entries failed", failed, len(results))
		}
		return nil
	},
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, executor.ErrNotExecutable) {
		return 2
	}
	return 1
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "Print the command lines instead of running them")
	runCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	runCmd.Flags().Bool("force", false, "Override safety checks and force execution")
	runCmd.Flags().Bool("continue-on-error", false, "Keep running the remaining entries after a failure")
	rootCmd.AddCommand(runCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/VoxDroid/tabrun/internal/config"
	"github.com/VoxDroid/tabrun/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [destination]",
	Short: "Write the catalog to a SQLite snapshot",
	Long: "Build the catalog and store it in a SQLite snapshot that other machines can\n" +
		"read with --snapshot. The default destination is $TABRUN_HOME/catalog.db. Example:\n" +
		"  tabrun export ./catalog.db\n  tabrun --snapshot ./catalog.db list",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dst := ""
		if len(args) == 1 {
			dst = args[0]
		} else {
			p, err := config.SnapshotPath()
			if err != nil {
				return err
			}
			dst = p
		}
		if snapshotFile != "" && snapshotFile == dst {
			return errors.New("destination is the snapshot being read")
		}

		eng, closeFn, err := newEngine(false, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		cat, err := eng.Load(cmd.Context(), skipValidation())
		if err != nil {
			return err
		}

		db, err := store.Open(dst)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Save(db, cat); err != nil {
			return err
		}

		size := ""
		if fi, err := os.Stat(dst); err == nil {
			size = " (" + humanize.Bytes(uint64(fi.Size())) + ")"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries in %d tabs to %s%s\n", cat.Count(), len(cat.Tabs), dst, size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

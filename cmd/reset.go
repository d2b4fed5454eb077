package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the database with every assignment, session and LLM event",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to delete %s without --yes", dbPath)
		}

		// SQLite keeps WAL and shared-memory files beside the database.
		var removed int
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			err := os.Remove(p)
			switch {
			case err == nil:
				removed++
			case errors.Is(err, fs.ErrNotExist):
			default:
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}

		if removed == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing to delete at %s\n", dbPath)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", dbPath)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}

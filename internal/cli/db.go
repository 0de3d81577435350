package cli

import (
	"fmt"

	"github.com/lucasnoah/reviewloop/internal/db"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Event log database management",
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the event log database path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := db.DefaultDBPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the event log (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openBackends()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Event log reset.")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbResetCmd)
}

package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "reviewloop",
	Short: "reviewloop — an autonomous code review and fix loop",
	Long: `reviewloop runs analysis workers over a target codebase, aggregates and
prioritizes their findings, applies verified fixes, and iterates until the
codebase converges or a budget runs out.

Workers, the fixer, and the validation gate are plain shell commands declared
in reviewloop.yaml. All state is stored in ~/.reviewloop/ (SQLite for the
event log, JSON checkpoints for resumable runs).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
}

package cli

import (
	"github.com/lucasnoah/reviewloop/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local status server",
	Long: `Start a read-only HTTP API on localhost exposing checkpointed run state,
the event log, and a live progress stream (Server-Sent Events). The server
never mutates loop state; it only reads what run checkpoints and the event
log already hold.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		database, st, err := openBackends()
		if err != nil {
			return err
		}
		defer database.Close()

		return web.NewServer(st, database, port).ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
}

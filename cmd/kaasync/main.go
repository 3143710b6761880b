package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/a13xperi/kaa-notion-backend-sub005/cmd/kaasync/commands"
)

var rootCmd = &cobra.Command{
	Use:   "kaasync",
	Short: "kaasync - Notion synchronization queue",
	Long: `kaasync mirrors projects, milestones, deliverables, and leads into
Notion workspaces through a durable, rate-limited sync queue.

Available commands:
  serve   - Run the sync daemon (dispatch loop + janitor)
  jobs    - Inspect and administer sync jobs
  version - Print version information

Examples:
  kaasync serve                 # Run the daemon
  kaasync jobs ls               # List recent sync jobs
  kaasync jobs ls --status failed
  kaasync jobs retry <job-id>   # Re-queue a failed job
  kaasync jobs stats            # Queue depth by status`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (overrides discovery)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

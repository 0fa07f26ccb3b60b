package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// addr is the broker address used by the client subcommands.
var addr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collab",
	Short: "collab - local-first realtime collaboration broker",
	Long: `collab runs and talks to a local-first realtime collaboration broker.

The broker holds a shared in-memory state (chat, tasks, timeline, presence)
plus frames ingested from a watched observer directory, and fans every state
change out to WebSocket subscribers. Client subcommands post mutations and
follow the event stream from the shell.`,
	Version: version,
}

// Execute runs the root command; subcommands and flags are registered by the
// init functions of this package. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:7878", "Broker base URL")
}

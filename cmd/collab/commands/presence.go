package commands

import (
	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/client"
	"github.com/mremehr/collab-core/internal/printer"
	"github.com/mremehr/collab-core/pkg/collab"
)

var presenceCmd = &cobra.Command{
	Use:   "presence <user> <online|away|busy|offline>",
	Short: "Set a user's presence",
	Args:  cobra.ExactArgs(2),
	RunE:  runPresence,
}

func init() {
	rootCmd.AddCommand(presenceCmd)
}

func runPresence(cmd *cobra.Command, args []string) error {
	record, err := client.New(addr).SetPresence(cmd.Context(), args[0], collab.PresenceStatus(args[1]))
	if err != nil {
		return printer.Error("Could not update presence", err.Error())
	}
	printer.Success("%s is now %s", record.User, record.Status)
	return nil
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/client"
	"github.com/mremehr/collab-core/internal/printer"
)

var chatCmd = &cobra.Command{
	Use:   "chat <user> <text>",
	Short: "Post a chat message",
	Args:  cobra.ExactArgs(2),
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	message, err := client.New(addr).PostChat(cmd.Context(), args[0], args[1])
	if err != nil {
		return printer.Error("Could not post chat message", err.Error())
	}
	printer.Success("chat #%d posted as %s", message.ID, message.User)
	return nil
}

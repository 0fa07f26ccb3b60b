package commands

import (
	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/client"
	"github.com/mremehr/collab-core/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check broker health and summarize its state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := client.New(addr)

	if err := c.Health(cmd.Context()); err != nil {
		return printer.Error("Broker is unreachable", err.Error())
	}
	printer.Success("broker healthy at %s", addr)

	snapshot, err := c.State(cmd.Context())
	if err != nil {
		return printer.Error("Could not fetch state", err.Error())
	}

	printer.Info("chat messages:   %d", len(snapshot.Chat))
	printer.Info("tasks:           %d", len(snapshot.Tasks))
	printer.Info("timeline events: %d", len(snapshot.Timeline))
	printer.Info("presence users:  %d", len(snapshot.Presence))
	printer.Info("observer frames: %d", len(snapshot.Frames))
	return nil
}

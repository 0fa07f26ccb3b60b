package commands

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/client"
	"github.com/mremehr/collab-core/internal/printer"
	"github.com/mremehr/collab-core/pkg/collab"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the broker's live event stream",
	Long: `Attach to the broker's WebSocket endpoint and print every event as it
is published. The first line summarizes the snapshot the stream starts from.

Examples:
  # Follow the local broker
  collab watch

  # Follow a broker elsewhere
  collab watch --addr http://192.168.1.20:7878`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub, err := client.New(addr).Watch(ctx)
	if err != nil {
		return printer.Error("Could not attach to broker", err.Error())
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				select {
				case err := <-sub.Errors():
					return printer.Error("Event stream ended", err.Error())
				default:
					return nil
				}
			}
			printer.Event(event.Type, renderEvent(event))
		}
	}
}

// renderEvent produces the one-line detail shown next to the event type.
func renderEvent(event client.WireEvent) string {
	switch collab.EventType(event.Type) {
	case collab.EventSnapshot:
		var snapshot collab.Snapshot
		if err := json.Unmarshal(event.Data, &snapshot); err != nil {
			return "(undecodable snapshot)"
		}
		return fmt.Sprintf("chat=%d tasks=%d timeline=%d presence=%d frames=%d",
			len(snapshot.Chat), len(snapshot.Tasks), len(snapshot.Timeline),
			len(snapshot.Presence), len(snapshot.Frames))
	case collab.EventChatCreated:
		var message collab.ChatMessage
		if err := json.Unmarshal(event.Data, &message); err != nil {
			break
		}
		return fmt.Sprintf("#%d %s: %s", message.ID, message.User, message.Text)
	case collab.EventTaskCreated, collab.EventTaskUpdated:
		var task collab.TaskItem
		if err := json.Unmarshal(event.Data, &task); err != nil {
			break
		}
		assignee := "unassigned"
		if task.Assignee != nil {
			assignee = *task.Assignee
		}
		return fmt.Sprintf("#%d %q [%s] %s", task.ID, task.Title, task.Status, assignee)
	case collab.EventTimelineCreated:
		var entry collab.TimelineEvent
		if err := json.Unmarshal(event.Data, &entry); err != nil {
			break
		}
		return fmt.Sprintf("#%d (%s) %s", entry.ID, entry.Kind, entry.Text)
	case collab.EventPresenceUpdated:
		var record collab.Presence
		if err := json.Unmarshal(event.Data, &record); err != nil {
			break
		}
		return fmt.Sprintf("%s is %s", record.User, record.Status)
	case collab.EventObserverFrame:
		var frame collab.ObserverFrame
		if err := json.Unmarshal(event.Data, &frame); err != nil {
			break
		}
		return fmt.Sprintf("%s (%d bytes)", frame.Filename, frame.SizeBytes)
	}
	return string(event.Data)
}

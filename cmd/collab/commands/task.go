package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mremehr/collab-core/internal/client"
	"github.com/mremehr/collab-core/internal/printer"
	"github.com/mremehr/collab-core/pkg/collab"
)

var taskAssignee string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create tasks and move them between statuses",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a task (status starts at todo)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCreate,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <todo|in_progress|done>",
	Short: "Set a task's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskStatus,
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Assign the task to a user")
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskStatusCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	task, err := client.New(addr).CreateTask(cmd.Context(), args[0], taskAssignee)
	if err != nil {
		return printer.Error("Could not create task", err.Error())
	}
	printer.Success("task #%d created: %s", task.ID, task.Title)
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return printer.Error("Invalid task id", "task ids are positive integers")
	}

	task, err := client.New(addr).SetTaskStatus(cmd.Context(), id, collab.TaskStatus(args[1]))
	if err != nil {
		return printer.Error("Could not update task", err.Error())
	}
	printer.Success("task #%d is now %s", task.ID, task.Status)
	return nil
}

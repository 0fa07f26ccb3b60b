// Package printer formats CLI output. Long-running components log through
// the log package; everything a person sees from a subcommand goes through
// here.
package printer

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a green confirmation line.
func Success(format string, a ...any) {
	green.Printf("✓ "+format+"\n", a...)
}

// Info prints a plain informational line.
func Info(format string, a ...any) {
	fmt.Printf(format+"\n", a...)
}

// Warning prints a yellow warning line.
func Warning(format string, a ...any) {
	yellow.Printf("! "+format+"\n", a...)
}

// Step prints a cyan progress line for multi-step operations.
func Step(format string, a ...any) {
	cyan.Printf("→ "+format+"\n", a...)
}

// Error prints a red error title with an optional explanation to stderr
// and returns a plain error for cobra to propagate as the exit status.
func Error(title, explanation string) error {
	red.Fprintf(os.Stderr, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}
	return fmt.Errorf("%s", title)
}

// Event prints one event from the live stream: the event type colored by
// family, followed by a compact detail string.
func Event(eventType, detail string) {
	styleFor(eventType).Printf("%-17s", eventType)
	fmt.Printf(" %s\n", detail)
}

func styleFor(eventType string) *color.Color {
	switch eventType {
	case "chat.created":
		return green
	case "task.created", "task.updated":
		return cyan
	case "observer.frame":
		return yellow
	case "snapshot":
		return red
	default:
		return color.New(color.FgWhite)
	}
}

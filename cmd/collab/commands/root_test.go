package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubcommandsRegistered(t *testing.T) {
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range []string{"serve", "watch", "status", "chat", "task", "presence"} {
		assert.True(t, registered[name], "command %q not registered", name)
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	assert.Contains(t, rootCmd.Version, "1.2.3")
	assert.Contains(t, rootCmd.Version, "abc123")
}

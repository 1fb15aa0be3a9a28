package arquery

import (
	"strings"

	"github.com/mranv/agentARChecker/internal/config"
)

// Command is the fixed component/command/section triple sent after the agent
// identifier.
type Command struct {
	Component string
	Command   string
	Section   string
}

func DefaultCommand() Command {
	return Command{Component: "com", Command: "getconfig", Section: "active-response"}
}

// CommandFromConfig reads the request grammar from the [remote] section,
// falling back to the defaults for empty fields.
func CommandFromConfig(cfg *config.Config) Command {
	cmd := DefaultCommand()
	if cfg == nil {
		return cmd
	}
	if cfg.Remote.Component != "" {
		cmd.Component = cfg.Remote.Component
	}
	if cfg.Remote.Command != "" {
		cmd.Command = cfg.Remote.Command
	}
	if cfg.Remote.Section != "" {
		cmd.Section = cfg.Remote.Section
	}
	return cmd
}

// BuildRequest joins the identifier and the command fields with single
// spaces. No escaping is applied.
func BuildRequest(id string, cmd Command) []byte {
	return []byte(strings.Join([]string{id, cmd.Component, cmd.Command, cmd.Section}, " "))
}

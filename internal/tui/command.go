package tui

import (
	"fmt"
	"strings"

	"github.com/matheus3301/msana/internal/api"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// Validate checks a command's name and arguments before it is run.
func (c Command) Validate() error {
	switch c.Name {
	case "switch":
		if c.Args == "" {
			return fmt.Errorf("usage: switch <email>")
		}
	case "net":
		switch c.Args {
		case api.NetworkOnline, api.NetworkOffline, api.NetworkAuto:
		default:
			return fmt.Errorf("usage: net online|offline|auto")
		}
	case "logout", "sync", "help", "h", "quit", "q":
	default:
		return fmt.Errorf("unknown command %q", c.Name)
	}
	return nil
}

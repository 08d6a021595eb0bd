package models

import "strings"

// CommandType enumerates supervisor commands accepted over WhatsApp.
type CommandType string

const (
	CommandSchedule CommandType = "escala"
	CommandCash     CommandType = "caixa"
	CommandPayroll  CommandType = "folha"
	CommandHelp     CommandType = "ajuda"
	CommandUnknown  CommandType = "unknown"
)

// Command represents a parsed instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Raw: message, Type: CommandUnknown}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := CommandType(strings.TrimPrefix(tokens[0], "/")); head {
	case CommandSchedule, CommandCash, CommandPayroll, CommandHelp:
		cmd.Type = head
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}

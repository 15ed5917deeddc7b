package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for a control message the engine does not
// act on.
var ErrUnknownCommand = errors.New("unknown command")

// CommandFocus changes the focused metric.
const CommandFocus = "focus"

// Command is a control message.
type Command struct {
	Name   string `json:"command"`
	Metric string `json:"metric"`
}

// ParseCommand decodes a control message. Three shapes are accepted:
// {"command": "focus", "metric": "age"}, a JSON string "age" and the bare
// text age. An object without a command but with a metric is a focus
// command.
func ParseCommand(data []byte) (Command, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Command{}, fmt.Errorf("%w: empty message", ErrUnknownCommand)
	}

	switch trimmed[0] {
	case '{':
		var c Command
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return Command{}, fmt.Errorf("decoding command: %w", err)
		}
		c.Name = strings.ToLower(strings.TrimSpace(c.Name))
		c.Metric = strings.TrimSpace(c.Metric)
		if c.Name == "" && c.Metric != "" {
			c.Name = CommandFocus
		}
		if c.Name != CommandFocus {
			return c, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name)
		}
		if c.Metric == "" {
			return c, fmt.Errorf("focus command without a metric")
		}
		return c, nil
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return Command{}, fmt.Errorf("decoding command: %w", err)
		}
		return bareFocus(name)
	}
	return bareFocus(string(trimmed))
}

func bareFocus(name string) (Command, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t\n{}[]\"") {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return Command{Name: CommandFocus, Metric: name}, nil
}

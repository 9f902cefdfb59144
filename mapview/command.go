package mapview

import (
	"errors"
	"fmt"
)

// Command is a parameterless control exposed next to the map.
type Command string

const (
	CommandZoomIn            Command = "zoom-in"
	CommandZoomOut           Command = "zoom-out"
	CommandReset             Command = "reset"
	CommandToggleClustering  Command = "toggle-clustering"
	CommandToggleDarkOverlay Command = "toggle-dark-overlay"
)

var ErrUnknownCommand = errors.New("unknown command")

// Commands lists every command a view accepts.
func Commands() []Command {
	return []Command{
		CommandZoomIn,
		CommandZoomOut,
		CommandReset,
		CommandToggleClustering,
		CommandToggleDarkOverlay,
	}
}

func ParseCommand(s string) (Command, error) {
	if s == "reset-view" {
		return CommandReset, nil
	}
	for _, c := range Commands() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

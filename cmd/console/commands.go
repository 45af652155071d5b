package main

import (
	"strconv"
	"strings"
)

type inputKind int

const (
	inputNone inputKind = iota
	inputChoice
	inputAction
	inputCommand
)

type parsedInput struct {
	kind    inputKind
	choice  int // zero-based
	text    string
	command string
}

// parseInput reads what the player typed: a choice number, a slash
// command, or a free-text action.
func parseInput(raw string) parsedInput {
	input := strings.TrimSpace(raw)
	if input == "" {
		return parsedInput{kind: inputNone}
	}
	if strings.HasPrefix(input, "/") {
		fields := strings.Fields(strings.ToLower(input))
		return parsedInput{kind: inputCommand, command: fields[0], text: strings.TrimSpace(input[len(fields[0]):])}
	}
	if n, err := strconv.Atoi(input); err == nil && n > 0 {
		return parsedInput{kind: inputChoice, choice: n - 1}
	}
	return parsedInput{kind: inputAction, text: input}
}

const helpText = `
Commands:
• 1, 2, 3... - Pick a choice
• any other text - Try your own action
• /examine - Look closer at the scene
• /dismiss - Close the examination
• /retry - Retry the failed request
• /continue - Continue without the illustration
• /retry-image - Retry the illustration
• /inventory - Show your items
• /journal - Show the adventure journal
• /image - Save the current illustration to disk
• /copy - Copy the scene text to the clipboard
• /restart - Start a new adventure
• Ctrl+C - Quit
`

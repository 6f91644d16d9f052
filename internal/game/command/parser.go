package command

import "strings"

// Prefix marks chat text that is a command rather than speech.
const Prefix = "/"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the text after the command with inner spacing preserved.
	RawArgs string
}

// IsCommand reports whether chat text should be executed as a command.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, Prefix)
}

// Parse splits a command line, with or without its leading Prefix, into a
// command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), Prefix))
	if line == "" {
		return ParseResult{}
	}

	word, rest, found := strings.Cut(line, " ")
	res := ParseResult{Command: strings.ToLower(word)}
	if !found {
		return res
	}
	res.RawArgs = strings.TrimSpace(rest)
	if res.RawArgs != "" {
		res.Args = strings.Fields(res.RawArgs)
	}
	return res
}

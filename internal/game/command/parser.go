package command

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseResult is one line of player input split into a command word and its
// arguments.
type ParseResult struct {
	// Command is the lowercased command word, or "" for a blank line.
	Command string
	// Args holds the whitespace-separated words after the command, case kept.
	Args []string
	// RawArgs is the text after the command with inner spacing intact.
	RawArgs string
}

// Arg returns the i-th argument, or "" when there are fewer arguments.
func (p ParseResult) Arg(i int) string {
	if i < 0 || i >= len(p.Args) {
		return ""
	}
	return p.Args[i]
}

// Parse splits a line of input into a ParseResult.
//
// Two shortcuts are recognised: a line that is only a number n reads as
// "move n", and a line starting with ' or " reads as "say <rest>".
//
// Postcondition: Command is empty only for a blank line.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	switch line[0] {
	case '\'', '"':
		rest := strings.TrimSpace(line[1:])
		return ParseResult{Command: "say", Args: fields(rest), RawArgs: rest}
	}
	if _, err := strconv.Atoi(line); err == nil {
		return ParseResult{Command: "move", Args: []string{line}, RawArgs: line}
	}

	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	return ParseResult{
		Command: strings.ToLower(word),
		Args:    fields(rest),
		RawArgs: rest,
	}
}

func fields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

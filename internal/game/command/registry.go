package command

import (
	"fmt"
	"slices"
	"strings"
)

// minPrefix is the shortest abbreviation Resolve will expand.
const minPrefix = 2

// Registry maps command names, aliases and unambiguous abbreviations to
// Command definitions.
type Registry struct {
	byName  map[string]*Command
	aliases map[string]string
	names   []string // sorted canonical names
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error naming the first collision.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]*Command, len(cmds)),
		aliases: make(map[string]string),
	}
	for i := range cmds {
		cmd := &cmds[i]
		if _, taken := r.byName[cmd.Name]; taken {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if owner, taken := r.aliases[cmd.Name]; taken {
			return nil, fmt.Errorf("command name %q is already an alias of %q", cmd.Name, owner)
		}
		r.byName[cmd.Name] = cmd
		r.names = append(r.names, cmd.Name)
	}
	for name, cmd := range r.byName {
		for _, alias := range cmd.Aliases {
			if _, taken := r.byName[alias]; taken {
				return nil, fmt.Errorf("alias %q of %q shadows a command name", alias, name)
			}
			if owner, taken := r.aliases[alias]; taken {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, owner, name)
			}
			r.aliases[alias] = name
		}
	}
	slices.Sort(r.names)
	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Panics only if the built-in table itself collides.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name, alias, or an abbreviation of at least
// two letters that prefixes exactly one command name.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	if cmd, ok := r.byName[input]; ok {
		return cmd, true
	}
	if name, ok := r.aliases[input]; ok {
		return r.byName[name], true
	}
	if len(input) < minPrefix {
		return nil, false
	}
	var match *Command
	for _, name := range r.names {
		if !strings.HasPrefix(name, input) {
			continue
		}
		if match != nil {
			return nil, false
		}
		match = r.byName[name]
	}
	return match, match != nil
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, len(r.names))
	for i, name := range r.names {
		out[i] = r.byName[name]
	}
	return out
}

// Available returns the commands usable in context where, grouped in
// Categories order and sorted by name within each group.
func (r *Registry) Available(where Scope) []*Command {
	var out []*Command
	for _, cat := range Categories {
		for _, cmd := range r.Commands() {
			if cmd.Category == cat && cmd.Scope.Allows(where) {
				out = append(out, cmd)
			}
		}
	}
	return out
}

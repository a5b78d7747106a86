package scpi

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoMatch signals that no registered command's path matches.
	ErrNoMatch = errors.New("scpidev: no match found")

	// ErrParamMismatch signals a path match with unacceptable parameters.
	ErrParamMismatch = errors.New("scpidev: parameter mismatch")
)

// An ActionError wraps a failure inside a command's action.
type ActionError struct {
	Label string // from Command.Label
	Err   error
}

// Error implements the builtin.error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("scpidev: execution of %q failed: %s", e.Label, e.Err)
}

// Unwrap provides errors.Is and errors.As support.
func (e *ActionError) Unwrap() error { return e.Err }

// A Registry holds all commands of a device in registration order.
// The registry grows monotonically; commands are never removed. Lookup
// returns the first match, so users must avoid ambiguous overlaps.
// A Registry must not be modified once matching starts.
type Registry struct {
	commands []*Command
}

// Add appends a command.
func (r *Registry) Add(c *Command) {
	r.commands = append(r.commands, c)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.commands) }

// Commands returns the commands in registration order.
// The slice is shared; callers must not modify it.
func (r *Registry) Commands() []*Command { return r.commands }

// Specs returns the canonical specification of each registered command in
// lexical order, for help listings.
func (r *Registry) Specs() []string {
	specs := make([]string, len(r.commands))
	for i, c := range r.commands {
		specs[i] = c.String()
	}
	sort.Strings(specs)
	return specs
}

// Find locates the first command whose path matches the line. With
// matchParams the parameter list must match too.
func (r *Registry) Find(line string, matchParams bool) *Command {
	for _, c := range r.commands {
		if matchParams {
			if c.Match(line) {
				return c
			}
		} else if c.MatchHeader(line) {
			return c
		}
	}
	return nil
}

// Execute locates the matching command and runs its action. The error is
// ErrNoMatch when no path matches, ErrParamMismatch when a path matches but
// the parameters do not, or an *ActionError when the action fails or panics.
func (r *Registry) Execute(line string) (resp string, err error) {
	line = Sanitize(line, false)
	cmd := r.Find(line, false)
	if cmd == nil {
		return "", ErrNoMatch
	}
	cmd = r.Find(line, true)
	if cmd == nil {
		return "", ErrParamMismatch
	}

	defer func() {
		if p := recover(); p != nil {
			resp = ""
			err = &ActionError{cmd.Label, fmt.Errorf("panic: %v", p)}
		}
	}()
	resp, err = cmd.Execute(line)
	if err != nil {
		return "", &ActionError{cmd.Label, err}
	}
	return resp, nil
}

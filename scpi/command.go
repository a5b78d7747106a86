package scpi

import (
	"strings"
)

// A Request carries one matched command line into an action.
type Request struct {
	// Line is the full sanitized command line.
	Line string

	// Args holds the literal parameter tokens in order of appearance,
	// from splitting the parameter tail on commas. An optional parameter
	// omitted with an empty token, as in ",MAX", appears as an empty
	// string; parameters left off at the end do not appear. Args is nil
	// when the line carries no parameters.
	Args []string
}

// An Action is the host callable behind a command. The return value is sent
// on the wire with a newline appended when missing. An empty return with a
// nil error sends no reply, which is the normal case for setters. Errors are
// recorded as alarms by the dispatcher; no reply is sent then.
type Action interface {
	Call(req Request) (string, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(req Request) (string, error)

// Call implements the Action interface.
func (f ActionFunc) Call(req Request) (string, error) { return f(req) }

// A Command ties one keyword path and one parameter list to an action.
// Commands are compiled once with Parse and are immutable thereafter.
type Command struct {
	Path   Path
	Params Params
	Action Action

	// Label names the command in alarm messages. It defaults to the
	// rendered keyword path.
	Label string

	// Description is free text for help listings.
	Description string
}

// Parse compiles a command specification like
//
//	MEASure[:VOLTage][:DC]? [{<range>|AUTO|MIN|MAX|DEF}[,{<resolution>|MIN|MAX|DEF}]]
//
// into a Command. The keyword part runs up to the first space; the remainder
// is the parameter list. A trailing "?" on the keyword part marks a query.
func Parse(spec string, action Action) (*Command, error) {
	header, tail := SplitLine(Sanitize(spec, false))
	path, err := ParsePath(header)
	if err != nil {
		return nil, err
	}
	params, err := ParseParams(tail)
	if err != nil {
		return nil, err
	}
	c := &Command{
		Path:   path,
		Params: params,
		Action: action,
	}
	c.Label = path.String()
	return c, nil
}

// IsQuery tells whether the command returns a value.
func (c *Command) IsQuery() bool { return c.Path.Query }

// String renders the canonical specification form.
func (c *Command) String() string {
	if len(c.Params) == 0 {
		return c.Path.String()
	}
	return c.Path.String() + " " + c.Params.String()
}

// Match tests a raw command line against both the keyword path and the
// parameter list.
func (c *Command) Match(line string) bool {
	header, tail := SplitLine(Sanitize(line, false))
	return c.Path.Match(header) && c.Params.Match(tail)
}

// MatchHeader tests only the keyword part of a raw command line.
func (c *Command) MatchHeader(line string) bool {
	header, _ := SplitLine(Sanitize(line, false))
	return c.Path.Match(header)
}

// Execute invokes the action with the sanitized line and its parameter
// tokens. Matching is the caller's responsibility. A non-empty response gets
// a newline appended when missing.
func (c *Command) Execute(line string) (string, error) {
	line = Sanitize(line, false)
	_, tail := SplitLine(line)
	var args []string
	if tail != "" {
		args = strings.Split(tail, ",")
	}
	resp, err := c.Action.Call(Request{Line: line, Args: args})
	if err != nil {
		return "", err
	}
	if resp != "" && !strings.HasSuffix(resp, "\n") {
		resp += "\n"
	}
	return resp, nil
}

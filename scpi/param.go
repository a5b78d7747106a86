package scpi

import "strings"

// A Parameter is one compiled position of a parameter list.
type Parameter struct {
	Values   Values
	Optional bool // enclosed in square brackets
}

// String renders the specification form without separators.
func (p Parameter) String() string {
	if p.Optional {
		return "[" + p.Values.String() + "]"
	}
	return p.Values.String()
}

// Match tests a single input token against the parameter's alternatives.
func (p Parameter) Match(token string) bool {
	return p.Values.Match(token)
}

// Params is the compiled parameter list of a command specification.
// The order is positional. Params are immutable once compiled.
type Params []Parameter

// ParseParams compiles a parameter list like
// "[{<range>|AUTO|MIN|MAX|DEF}[,{<resolution>|MIN|MAX|DEF}]]". A square
// bracket opens an optional group; a comma directly after the opening bracket
// is the separator to the preceding parameter and is stripped. Commas
// separate parameters otherwise. Whitespace is ignored entirely.
func ParseParams(spec string) (Params, error) {
	spec = Sanitize(spec, true)
	if spec == "" {
		return nil, nil
	}

	var ps Params
	var cur strings.Builder
	depth := 0
	groupStart := false
	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		vs, err := ParseValues(cur.String())
		if err != nil {
			return err
		}
		ps = append(ps, Parameter{Values: vs, Optional: depth > 0})
		cur.Reset()
		return nil
	}

	brace := 0
	for _, c := range spec {
		if brace > 0 || c == '{' {
			// value alternations pass through verbatim
			switch c {
			case '{':
				brace++
			case '}':
				brace--
				if brace < 0 {
					return nil, &CompileError{spec, "unbalanced brace in parameter list"}
				}
			}
			cur.WriteRune(c)
			groupStart = false
			continue
		}

		switch c {
		case '[':
			if err := flush(); err != nil {
				return nil, err
			}
			depth++
			groupStart = true

		case ']':
			if depth == 0 {
				return nil, &CompileError{spec, "unbalanced bracket in parameter list"}
			}
			if err := flush(); err != nil {
				return nil, err
			}
			depth--
			groupStart = false

		case ',':
			if groupStart {
				// separator to the preceding parameter
				groupStart = false
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}

		default:
			cur.WriteRune(c)
			groupStart = false
		}
	}
	if depth != 0 {
		return nil, &CompileError{spec, "unterminated bracket in parameter list"}
	}
	if brace != 0 {
		return nil, &CompileError{spec, "unterminated brace in parameter list"}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return ps, nil
}

// String renders the specification form of the parameter list.
func (ps Params) String() string {
	var b strings.Builder
	for i, p := range ps {
		switch {
		case p.Optional && i > 0:
			b.WriteString("[," + p.Values.String() + "]")
		case p.Optional:
			b.WriteString("[" + p.Values.String() + "]")
		case i > 0:
			b.WriteString("," + p.Values.String())
		default:
			b.WriteString(p.Values.String())
		}
	}
	return b.String()
}

// Match tests a sanitized parameter tail against the list. Input tokens come
// from splitting the tail on commas. Declared parameters consume input tokens
// in order. An empty input token satisfies only an optional parameter, which
// permits omitting a leading optional as in "? ,MAX". The match succeeds only
// when all input tokens are consumed and every required parameter was
// satisfied.
func (ps Params) Match(tail string) bool {
	var tokens []string
	if tail != "" {
		tokens = strings.Split(tail, ",")
	}

	i := 0
	for _, p := range ps {
		if i >= len(tokens) {
			if !p.Optional {
				return false
			}
			continue
		}
		t := tokens[i]
		if t == "" {
			if !p.Optional {
				return false
			}
			i++
			continue
		}
		if !p.Match(t) {
			return false
		}
		i++
	}
	return i == len(tokens)
}

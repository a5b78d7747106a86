package scpi

import "strings"

// A Keyword is one element of a colon-separated command path. Req holds the
// short form and Req+Opt the long form. Input matches case-insensitively when
// it starts with the short form and is a prefix of the long form. Common
// commands like "*IDN" carry the asterisk as part of Req.
type Keyword struct {
	Req      string
	Opt      string
	Optional bool // enclosed in square brackets
}

// String returns the specification form.
func (k Keyword) String() string {
	if k.Optional {
		return "[" + k.Req + k.Opt + "]"
	}
	return k.Req + k.Opt
}

// A Path is the compiled keyword part of a command specification.
// Paths are immutable once compiled.
type Path struct {
	Keywords []Keyword
	Query    bool // trailing "?" on the specification
}

// ParsePath compiles the keyword part of a command specification, like
// "MEASure[:VOLTage][:DC]?". An upper-case run extends the short form of the
// current keyword and a lower-case run extends the long-form tail. Digits
// extend whichever form is active. A colon or bracket terminates the keyword.
func ParsePath(spec string) (Path, error) {
	var p Path
	var req, opt strings.Builder
	inOptional := false
	emit := func() {
		if req.Len() == 0 && opt.Len() == 0 {
			return
		}
		p.Keywords = append(p.Keywords, Keyword{
			Req:      req.String(),
			Opt:      opt.String(),
			Optional: inOptional,
		})
		req.Reset()
		opt.Reset()
	}

	for i, c := range spec {
		switch {
		case c >= 'A' && c <= 'Z':
			if opt.Len() != 0 {
				return Path{}, &CompileError{spec, "upper case after lower-case tail"}
			}
			req.WriteRune(c)

		case c >= 'a' && c <= 'z':
			opt.WriteRune(c)

		case c >= '0' && c <= '9':
			if opt.Len() != 0 {
				opt.WriteRune(c)
			} else {
				req.WriteRune(c)
			}

		case c == '*':
			if i != 0 {
				return Path{}, &CompileError{spec, "asterisk only allowed as first character"}
			}
			req.WriteRune(c)

		case c == ':':
			emit()

		case c == '[':
			if inOptional {
				return Path{}, &CompileError{spec, "nested bracket in keyword path"}
			}
			emit()
			inOptional = true

		case c == ']':
			if !inOptional {
				return Path{}, &CompileError{spec, "unbalanced bracket in keyword path"}
			}
			emit()
			inOptional = false

		case c == '?':
			if i != len(spec)-1 {
				return Path{}, &CompileError{spec, "question mark before end of path"}
			}
			p.Query = true

		default:
			return Path{}, &CompileError{spec, "illegal character '" + string(c) + "'"}
		}
	}
	if inOptional {
		return Path{}, &CompileError{spec, "unterminated bracket in keyword path"}
	}
	emit()

	if len(p.Keywords) == 0 {
		return Path{}, &CompileError{spec, "empty keyword path"}
	}
	return p, nil
}

// String renders the specification form of the path.
func (p Path) String() string {
	var b strings.Builder
	for i, k := range p.Keywords {
		sep := ""
		if i > 0 {
			sep = ":"
		}
		if k.Optional {
			b.WriteString("[" + sep + k.Req + k.Opt + "]")
		} else {
			b.WriteString(sep + k.Req + k.Opt)
		}
	}
	if p.Query {
		b.WriteByte('?')
	}
	return b.String()
}

// Match tests a keyword header from the wire against the path. A query header
// (trailing "?") matches only query paths and vice versa. Registered keywords
// consume input tokens left to right; an optional keyword is skipped when the
// input token does not begin with its short form. The match succeeds only
// when every input token was consumed and every required keyword matched.
func (p Path) Match(header string) bool {
	h := strings.ToLower(header)
	if strings.HasSuffix(h, "?") {
		if !p.Query {
			return false
		}
		h = h[:len(h)-1]
	} else if p.Query {
		return false
	}
	h = strings.TrimPrefix(h, ":")
	if h == "" {
		return false
	}
	tokens := strings.Split(h, ":")

	i := 0
	for _, k := range p.Keywords {
		if i >= len(tokens) {
			if !k.Optional {
				return false
			}
			continue
		}
		req := strings.ToLower(k.Req)
		long := req + strings.ToLower(k.Opt)
		t := tokens[i]
		if !strings.HasPrefix(t, req) {
			if k.Optional {
				continue
			}
			return false
		}
		if !strings.HasPrefix(long, t) {
			return false
		}
		i++
	}
	return i == len(tokens)
}

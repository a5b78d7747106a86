package scpi

import (
	"strings"
)

// Kind tags the variant of a Value.
type Kind int

// The value kinds of a parameter specification.
const (
	Numeric   Kind = iota + 1 // placeholder <name>, matches NRf tokens
	Boolean                   // literal ON, OFF, 1 or 0
	Discrete                  // literal word with short and long form
	DiscreteN                 // discrete with a trailing integer suffix, like CHANnel<n>
	Text                      // placeholder <...string...>, not supported
)

// String returns a name.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Boolean:
		return "boolean"
	case Discrete:
		return "discrete"
	case DiscreteN:
		return "discrete-n"
	case Text:
		return "string"
	default:
		return "unknown"
	}
}

// A Value is one compiled alternative of a parameter specification.
type Value struct {
	Kind Kind
	Name string // placeholder name, without the angle brackets
	Req  string // short form of a discrete word
	Opt  string // long-form tail of a discrete word
}

// ParseValue compiles a single value alternative. A "<name>" placeholder
// becomes Numeric, or Text when the name contains the word "string". A bare
// word becomes Discrete with the leading upper-case and digit run as short
// form, Boolean when that run is ON, OFF, 1 or 0, or DiscreteN when a
// "<name>" placeholder trails the word.
func ParseValue(spec string) (Value, error) {
	if spec == "" {
		return Value{}, &CompileError{spec, "empty value"}
	}

	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") && len(spec) > 2 {
		name := spec[1 : len(spec)-1]
		if strings.Contains(name, "string") {
			return Value{Kind: Text, Name: name}, nil
		}
		return Value{Kind: Numeric, Name: name}, nil
	}

	v := Value{Kind: Discrete}
	rest := spec
	for len(rest) > 0 && (rest[0] >= 'A' && rest[0] <= 'Z' || rest[0] >= '0' && rest[0] <= '9') {
		v.Req += rest[:1]
		rest = rest[1:]
	}
	for len(rest) > 0 && (rest[0] >= 'a' && rest[0] <= 'z' || rest[0] >= '0' && rest[0] <= '9') {
		v.Opt += rest[:1]
		rest = rest[1:]
	}
	if v.Req == "" {
		return Value{}, &CompileError{spec, "value must start with an upper-case short form"}
	}
	switch v.Req {
	case "ON", "OFF", "1", "0":
		if rest == "" && v.Opt == "" {
			return Value{Kind: Boolean, Req: v.Req}, nil
		}
	}
	if rest != "" {
		if !strings.HasPrefix(rest, "<") || !strings.HasSuffix(rest, ">") || len(rest) <= 2 {
			return Value{}, &CompileError{spec, "trailing characters after value word"}
		}
		v.Kind = DiscreteN
		v.Name = rest[1 : len(rest)-1]
	}
	return v, nil
}

// String renders the specification form of the value.
func (v Value) String() string {
	switch v.Kind {
	case Numeric, Text:
		return "<" + v.Name + ">"
	case DiscreteN:
		return v.Req + v.Opt + "<" + v.Name + ">"
	default:
		return v.Req + v.Opt
	}
}

// Match tests an input token against the value. Discrete words compare
// case-insensitively with short/long form rules. DiscreteN accepts an
// optional positive integer after the matched word. Text never matches since
// quoted string values are not supported.
func (v Value) Match(token string) bool {
	t := strings.ToLower(token)
	switch v.Kind {
	case Numeric:
		return IsNRf(t)

	case Boolean:
		return t == "on" || t == "off" || t == "1" || t == "0"

	case Discrete:
		return v.matchWord(t)

	case DiscreteN:
		if v.matchWord(t) {
			return true
		}
		i := len(t)
		for i > 0 && t[i-1] >= '0' && t[i-1] <= '9' {
			i--
		}
		if i == len(t) || i == 0 {
			return false
		}
		return t[i:] != "0" && v.matchWord(t[:i])

	default:
		return false
	}
}

func (v Value) matchWord(t string) bool {
	req := strings.ToLower(v.Req)
	long := req + strings.ToLower(v.Opt)
	return strings.HasPrefix(t, req) && strings.HasPrefix(long, t)
}

// Values holds the alternatives of one parameter. A braced specification like
// "{A|B|C}" compiles to one Value per alternative.
type Values []Value

// ParseValues compiles a value-alternatives block.
func ParseValues(spec string) (Values, error) {
	if strings.HasPrefix(spec, "{") && strings.HasSuffix(spec, "}") {
		inner := spec[1 : len(spec)-1]
		if inner == "" {
			return nil, &CompileError{spec, "empty alternation"}
		}
		var vs Values
		for _, alt := range strings.Split(inner, "|") {
			v, err := ParseValue(alt)
			if err != nil {
				return nil, err
			}
			vs = append(vs, v)
		}
		return vs, nil
	}
	v, err := ParseValue(spec)
	if err != nil {
		return nil, err
	}
	return Values{v}, nil
}

// String renders the specification form of the alternatives.
func (vs Values) String() string {
	if len(vs) == 1 {
		return vs[0].String()
	}
	alts := make([]string, len(vs))
	for i, v := range vs {
		alts[i] = v.String()
	}
	return "{" + strings.Join(alts, "|") + "}"
}

// Match tests an input token against each alternative in order.
func (vs Values) Match(token string) bool {
	for _, v := range vs {
		if v.Match(token) {
			return true
		}
	}
	return false
}

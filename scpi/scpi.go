// Package scpi provides the SCPI command grammar: the specification language
// for commands, the compiler that turns a specification string into a matcher,
// and the runtime matcher that decides which registered command an incoming
// line belongs to.
//
// Command specifications follow the IEEE 488.2 conventions. Keywords carry a
// short form in upper case and a long form with a lower-case tail, as in
// "MEASure". Both "MEAS" and "MEASURE" match, as does anything in between.
// Square brackets enclose optional keywords and optional parameters, and
// braces enclose value alternatives, as in:
//
//	MEASure[:VOLTage][:DC]? [{<range>|AUTO|MIN|MAX|DEF}[,{<resolution>|MIN|MAX|DEF}]]
//
// Matching is case-insensitive throughout.
package scpi

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrBadEncoding rejects input lines with ill-formed UTF-8.
var ErrBadEncoding = errors.New("scpidev: input is not valid UTF-8")

// A CompileError rejects a malformed command specification at registration.
type CompileError struct {
	Spec   string // offending specification text
	Reason string
}

// Error implements the builtin.error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("scpidev: cannot compile spec %q: %s", e.Spec, e.Reason)
}

// The numeric formats of IEEE 488.2: NR1 integers, NR2 explicit decimal
// points, and NR3 floating point with an exponent. NRf accepts a decimal
// mantissa with or without a decimal point, followed by an optional exponent,
// which covers all three plus the common "1E9" notation.
var (
	regexpNR1 = regexp.MustCompile(`^[+-]?[0-9]+$`)
	regexpNR2 = regexp.MustCompile(`^[+-]?([0-9]*\.[0-9]+|[0-9]+\.[0-9]*)$`)
	regexpNR3 = regexp.MustCompile(`^[+-]?([0-9]*\.[0-9]+|[0-9]+\.[0-9]*)[eE][+-]?[0-9]+$`)
	regexpNRf = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// IsNR1 matches integer numbers like "42".
func IsNR1(s string) bool { return regexpNR1.MatchString(s) }

// IsNR2 matches numbers with an explicit decimal point like "3.141".
func IsNR2(s string) bool { return regexpNR2.MatchString(s) }

// IsNR3 matches floating point numbers with an exponent like "1.0e-6".
func IsNR3(s string) bool { return regexpNR3.MatchString(s) }

// IsNRf matches any numeric token acceptable to a numeric placeholder.
func IsNRf(s string) bool { return regexpNRf.MatchString(s) }

// Sanitize normalizes a command line before any matching. Non-printable
// characters are dropped, leading and trailing whitespace is trimmed, and
// interior whitespace runs collapse to a single space. With removeAllSpaces
// every space is dropped instead, which is the treatment for parameter tails.
func Sanitize(s string, removeAllSpaces bool) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true
		case r < 0x20 || r == 0x7f:
			// drop other control characters
		default:
			if space && b.Len() > 0 && !removeAllSpaces {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitLine separates a sanitized command line into the keyword header and
// the parameter tail at the first space. The tail loses all interior
// whitespace. The tail is empty when the line has no parameters.
func SplitLine(line string) (header, tail string) {
	header, tail, found := strings.Cut(line, " ")
	if !found {
		return header, ""
	}
	return header, strings.ReplaceAll(tail, " ", "")
}

// Decode validates raw input as UTF-8 and returns it as text.
// Ill-formed sequences get ErrBadEncoding.
func Decode(p []byte) (string, error) {
	if !utf8.Valid(p) {
		return "", ErrBadEncoding
	}
	return string(p), nil
}

// Block encodes s as an IEEE 488.2 definite-length block: "#" followed by the
// digit count of the byte length, the byte length in decimal, and the bytes.
// Block("abcdefghijk") is "#211abcdefghijk".
func Block(s string) string {
	n := strconv.Itoa(len(s))
	return "#" + strconv.Itoa(len(n)) + n + s
}

// ParseInt reads an integer token, honoring the IEEE 488.2 radix prefixes
// "#B" for binary, "#Q" for octal and "#H" for hexadecimal, each in either
// case. Tokens without a prefix read as decimal.
func ParseInt(s string) (int64, error) {
	if len(s) >= 2 && s[0] == '#' {
		var base int
		switch s[1] {
		case 'b', 'B':
			base = 2
		case 'q', 'Q':
			base = 8
		case 'h', 'H':
			base = 16
		default:
			return 0, fmt.Errorf("scpidev: unknown radix prefix in %q", s)
		}
		return strconv.ParseInt(s[2:], base, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

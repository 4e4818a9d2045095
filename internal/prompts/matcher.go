package prompts

import (
	"bytes"
	"fmt"
	"regexp"
)

// Matcher recognizes a prompt in the child's output. It is either a literal
// substring or a regular expression.
type Matcher struct {
	literal string
	re      *regexp.Regexp
}

// Literal matches the exact substring s.
func Literal(s string) Matcher {
	return Matcher{literal: s}
}

// Regexp compiles expr into a matcher.
func Regexp(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Matcher{}, fmt.Errorf("compiling prompt pattern %q: %w", expr, err)
	}
	return Matcher{re: re}, nil
}

// MustRegexp is like Regexp but panics if expr does not compile.
func MustRegexp(expr string) Matcher {
	m, err := Regexp(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// IsPattern reports whether the matcher is a regular expression.
func (m Matcher) IsPattern() bool {
	return m.re != nil
}

// IsZero reports whether the matcher was never set.
func (m Matcher) IsZero() bool {
	return m.re == nil && m.literal == ""
}

// Match returns the [start, end) offsets of the first occurrence in b, or nil.
func (m Matcher) Match(b []byte) []int {
	if m.re != nil {
		return m.re.FindIndex(b)
	}
	if m.literal == "" {
		return nil
	}
	i := bytes.Index(b, []byte(m.literal))
	if i < 0 {
		return nil
	}
	return []int{i, i + len(m.literal)}
}

// String returns the literal text or the pattern source.
func (m Matcher) String() string {
	if m.re != nil {
		return m.re.String()
	}
	return m.literal
}

// Package toolchain parses the version banners reported by the compiler and
// the documentation tool inside the build sandbox.
package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedVersion is the kind of every ParseError.
var ErrMalformedVersion = errors.New("malformed toolchain version")

// ParseError reports where a banner deviates from
// "<name> <version> (<hash> <YYYY-MM-DD>)".
type ParseError struct {
	Input    string
	Offset   int
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: expected %s at offset %d in %q", ErrMalformedVersion, e.Expected, e.Offset, e.Input)
}

func (e *ParseError) Unwrap() error { return ErrMalformedVersion }

// Version is a parsed toolchain banner such as
// "rustc 1.10.0-nightly (57ef01513 2016-05-23)".
type Version struct {
	Name    string
	Release string
	Commit  string
	Year    string
	Month   string
	Day     string
}

// Tag returns the canonical YYYYMMDD-name-commit form used to tag
// documentation output.
func (v Version) Tag() string {
	return v.Year + v.Month + v.Day + "-" + v.Name + "-" + v.Commit
}

// Date returns the commit date as YYYY-MM-DD.
func (v Version) Date() string {
	return v.Year + "-" + v.Month + "-" + v.Day
}

// Parse parses a toolchain banner. Leading and trailing whitespace is ignored;
// anything else outside the expected shape is rejected.
func Parse(banner string) (Version, error) {
	s := strings.TrimSpace(banner)
	sc := &scanner{src: s, orig: banner}

	var v Version
	var err error
	if v.Name, err = sc.run(isTokenChar, "name"); err != nil {
		return Version{}, err
	}
	if err = sc.spaces(); err != nil {
		return Version{}, err
	}
	if v.Release, err = sc.run(isTokenChar, "version"); err != nil {
		return Version{}, err
	}
	if err = sc.spaces(); err != nil {
		return Version{}, err
	}
	if err = sc.literal('('); err != nil {
		return Version{}, err
	}
	if v.Commit, err = sc.run(isHashChar, "commit hash"); err != nil {
		return Version{}, err
	}
	if err = sc.spaces(); err != nil {
		return Version{}, err
	}
	if v.Year, err = sc.digits(4, "year"); err != nil {
		return Version{}, err
	}
	if err = sc.literal('-'); err != nil {
		return Version{}, err
	}
	if v.Month, err = sc.digits(2, "month"); err != nil {
		return Version{}, err
	}
	if err = sc.literal('-'); err != nil {
		return Version{}, err
	}
	if v.Day, err = sc.digits(2, "day"); err != nil {
		return Version{}, err
	}
	if err = sc.literal(')'); err != nil {
		return Version{}, err
	}
	if sc.pos != len(sc.src) {
		return Version{}, sc.fail("end of input")
	}
	return v, nil
}

// Tag parses banner and returns its canonical tag.
func Tag(banner string) (string, error) {
	v, err := Parse(banner)
	if err != nil {
		return "", err
	}
	return v.Tag(), nil
}

type scanner struct {
	src  string
	orig string
	pos  int
}

func (s *scanner) fail(expected string) error {
	return &ParseError{Input: s.orig, Offset: s.pos, Expected: expected}
}

func (s *scanner) run(accept func(byte) bool, what string) (string, error) {
	start := s.pos
	for s.pos < len(s.src) && accept(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", s.fail(what)
	}
	return s.src[start:s.pos], nil
}

func (s *scanner) spaces() error {
	_, err := s.run(func(c byte) bool { return c == ' ' || c == '\t' }, "whitespace")
	return err
}

func (s *scanner) literal(c byte) error {
	if s.pos >= len(s.src) || s.src[s.pos] != c {
		return s.fail(fmt.Sprintf("%q", c))
	}
	s.pos++
	return nil
}

func (s *scanner) digits(n int, what string) (string, error) {
	if s.pos+n > len(s.src) {
		return "", s.fail(what)
	}
	for i := s.pos; i < s.pos+n; i++ {
		if !isDigit(s.src[i]) {
			return "", s.fail(what)
		}
	}
	out := s.src[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHashChar(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isTokenChar(c byte) bool {
	return isHashChar(c) || c == '.' || c == '-'
}

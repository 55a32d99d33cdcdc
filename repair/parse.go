package repair

import (
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind is the compile error taxonomy the fixers dispatch on.
type ErrorKind string

const (
	ErrSyntax            ErrorKind = "syntax_error"
	ErrUndefinedVariable ErrorKind = "undefined_variable"
	ErrUndefinedMixin    ErrorKind = "undefined_mixin"
	ErrInvalidCSS        ErrorKind = "invalid_css"
)

// CompilationError is one classified occurrence from the log tail.
type CompilationError struct {
	Kind ErrorKind
	Raw  string // full matched log line
	Name string // variable or mixin name when the pattern captures one
	File string
	Line int // 1-based, 0 when the log gives none
}

// matcher classifies one log line. Matchers are applied in order and the
// first match wins, so the more specific patterns come first.
type matcher struct {
	kind ErrorKind
	re   *regexp.Regexp
}

var errorMatchers = []matcher{
	{ErrUndefinedMixin, regexp.MustCompile(`(?i)(?:undefined mixin|no mixin named)\s+'?"?([\w-]+)'?"?`)},
	{ErrUndefinedVariable, regexp.MustCompile(`(?i)undefined variable[:.]?\s+"?\$?([\w-]+)"?`)},
	{ErrSyntax, regexp.MustCompile(`(?i)(?:syntax error|invalid css after|expected "[^"]*", was|unterminated|unclosed)`)},
	{ErrInvalidCSS, regexp.MustCompile(`(?i)(?:invalid (?:css|property|value)|error:)`)},
}

var logLocationPattern = regexp.MustCompile(`(?i)(?:on line (\d+)(?: of ([\w./ -]+?\.s?css))?|([\w./-]+\.s?css)[: ](\d+))`)

// known error substrings whose absence, together with a finished marker,
// confirms a clean compile
var errorSubstrings = []string{
	"Error",
	"error:",
	"Undefined",
	"Invalid CSS",
	"Syntax error",
}

var finishedMarkers = []string{
	"Compilation finished",
	"compiled successfully",
	"Finished 'sass'",
	"watching for changes",
}

// ParseErrors classifies every error occurrence in the log tail. Lines that
// match no pattern are ignored; one line yields at most one error.
func ParseErrors(lines []string) []CompilationError {
	var errs []CompilationError
	for _, line := range lines {
		for _, m := range errorMatchers {
			sub := m.re.FindStringSubmatch(line)
			if sub == nil {
				continue
			}
			e := CompilationError{Kind: m.kind, Raw: line}
			if len(sub) > 1 {
				e.Name = sub[1]
			}
			e.File, e.Line = parseLocation(line)
			errs = append(errs, e)
			break
		}
	}
	return errs
}

func parseLocation(line string) (string, int) {
	m := logLocationPattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0
	}
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		return strings.TrimSpace(m[2]), n
	}
	n, _ := strconv.Atoi(m[4])
	return m[3], n
}

// logsLookClean reports whether the tail carries a finished marker and none
// of the known error substrings. Used as the secondary compile-success
// confirmation next to compiled-file existence.
func logsLookClean(lines []string) bool {
	finished := false
	for _, line := range lines {
		for _, s := range errorSubstrings {
			if strings.Contains(line, s) {
				return false
			}
		}
		for _, m := range finishedMarkers {
			if strings.Contains(line, m) {
				finished = true
			}
		}
	}
	return finished
}

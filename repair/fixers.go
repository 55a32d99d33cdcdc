package repair

import (
	"fmt"
	"regexp"
	"strings"
)

// Removal records one line that a fixer commented out, kept for the final
// human review report.
type Removal struct {
	File    string
	Line    int // 1-based
	Content string
}

// fixResult is what one fixer did to one candidate.
type fixResult struct {
	changed      bool
	descriptions []string
	removals     []Removal
}

func (f *fixResult) describe(format string, args ...any) {
	f.changed = true
	f.descriptions = append(f.descriptions, fmt.Sprintf(format, args...))
}

// applyFix dispatches one classified error to its fixer and rewrites the
// candidate content. A fixer that cannot help leaves the content untouched;
// that is not an error.
func applyFix(file, content string, e CompilationError) (string, fixResult) {
	switch e.Kind {
	case ErrUndefinedVariable:
		return fixUndefinedVariable(file, content, e.Name)
	case ErrUndefinedMixin:
		return fixUndefinedMixin(file, content, e.Name)
	case ErrSyntax:
		return fixSyntax(file, content, e.Line)
	case ErrInvalidCSS:
		return fixInvalidCSS(file, content, e.Line)
	}
	return content, fixResult{}
}

// fixUndefinedVariable rewrites remaining $name references to custom property
// references.
func fixUndefinedVariable(file, content, name string) (string, fixResult) {
	var res fixResult
	if name == "" {
		return content, res
	}
	// a trailing [\w-] would mean a longer variable name
	pat := regexp.MustCompile(`\$` + regexp.QuoteMeta(name) + `([^\w-]|$)`)
	if !pat.MatchString(content) {
		return content, res
	}
	content = pat.ReplaceAllString(content, "var(--"+name+")${1}")
	res.describe("%s: replaced $%s with var(--%s)", file, name, name)
	return content, res
}

// fixUndefinedMixin comments out every line invoking the mixin.
func fixUndefinedMixin(file, content, name string) (string, fixResult) {
	var res fixResult
	if name == "" {
		return content, res
	}
	pat := regexp.MustCompile(`@include\s+` + regexp.QuoteMeta(name) + `([^\w-]|$)`)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !pat.MatchString(line) || isCommentedOut(line) {
			continue
		}
		lines[i] = commentOut(line)
		res.removals = append(res.removals, Removal{File: file, Line: i + 1, Content: strings.TrimSpace(line)})
		res.describe("%s:%d: commented out @include %s", file, i+1, name)
	}
	return strings.Join(lines, "\n"), res
}

// fixSyntax applies small heuristic repairs to the reported line: a missing
// statement terminator is appended, an unbalanced function call is collapsed
// to its content before the opening parenthesis.
func fixSyntax(file, content string, lineNo int) (string, fixResult) {
	var res fixResult
	lines := strings.Split(content, "\n")
	if lineNo < 1 || lineNo > len(lines) {
		return content, res
	}
	i := lineNo - 1
	line := lines[i]
	trimmed := strings.TrimRight(line, " \t")

	switch {
	case needsTerminator(trimmed):
		lines[i] = trimmed + ";"
		res.describe("%s:%d: appended missing ';'", file, lineNo)
	case parenBalance(trimmed) != 0:
		open := strings.IndexByte(trimmed, '(')
		lines[i] = strings.TrimRight(trimmed[:open], " \t(") + ";"
		res.describe("%s:%d: collapsed unbalanced call", file, lineNo)
	default:
		return content, res
	}
	return strings.Join(lines, "\n"), res
}

// fixInvalidCSS comments out the offending line when the log names one.
func fixInvalidCSS(file, content string, lineNo int) (string, fixResult) {
	var res fixResult
	lines := strings.Split(content, "\n")
	if lineNo < 1 || lineNo > len(lines) {
		return content, res
	}
	i := lineNo - 1
	if isCommentedOut(lines[i]) || strings.TrimSpace(lines[i]) == "" {
		return content, res
	}
	res.removals = append(res.removals, Removal{File: file, Line: lineNo, Content: strings.TrimSpace(lines[i])})
	res.describe("%s:%d: commented out invalid declaration", file, lineNo)
	lines[i] = commentOut(lines[i])
	return strings.Join(lines, "\n"), res
}

// riskyPatterns drive the aggressive fallback: constructs that a strict
// compiler may reject, sacrificed wholesale to get a compiling stylesheet.
var riskyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`@include\s+[\w-]+`),
	regexp.MustCompile(`\b(?:darken|lighten|saturate|desaturate|adjust-hue|fade-in|fade-out|mix|shade|tint)\s*\(`),
	regexp.MustCompile(`\$[a-zA-Z_][a-zA-Z0-9_-]*`),
}

// applyAggressiveFixes comments out every line matching a risky construct.
func applyAggressiveFixes(file, content string) (string, fixResult) {
	var res fixResult
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if isCommentedOut(line) || strings.TrimSpace(line) == "" {
			continue
		}
		for _, pat := range riskyPatterns {
			if !pat.MatchString(line) {
				continue
			}
			res.removals = append(res.removals, Removal{File: file, Line: i + 1, Content: strings.TrimSpace(line)})
			res.describe("%s:%d: commented out risky construct", file, i+1)
			lines[i] = commentOut(line)
			break
		}
	}
	return strings.Join(lines, "\n"), res
}

func commentOut(line string) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	body := strings.TrimSpace(line)
	// nested comment markers would not survive recompilation
	body = strings.ReplaceAll(body, "/*", "")
	body = strings.ReplaceAll(body, "*/", "")
	return indent + "/* removed: " + strings.TrimSpace(body) + " */"
}

func isCommentedOut(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/*")
}

func needsTerminator(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case ';', '{', '}', ',':
		return false
	}
	// only declarations take a terminator
	return strings.Contains(t, ":") && !strings.HasPrefix(t, "/*")
}

func parenBalance(line string) int {
	depth := 0
	for _, r := range line {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}

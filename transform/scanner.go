package transform

import (
	"regexp"
	"strings"
)

// scanState tracks which preprocessor-only construct the scanner is currently
// inside. An explicit state enum transitioned by recognizer functions replaces
// the ad hoc boolean flags the legacy rules used - only one construct can be
// open at a time at the granularity we care about.
type scanState int

const (
	scanTopLevel scanState = iota
	scanMixinBody
	scanFunctionBody
	scanMapLiteral
)

var (
	mixinDefPattern    = regexp.MustCompile(`^\s*@mixin\s+[\w-]+`)
	functionDefPattern = regexp.MustCompile(`^\s*@function\s+[\w-]+`)
	mapOpenPattern     = regexp.MustCompile(`^\s*\$[\w-]+\s*:\s*\(`)
)

// lineContext describes the environment of one source line as seen by the
// rewriting passes.
type lineContext struct {
	InMixinBody   bool // inside a @mixin or @function definition body
	InMapLiteral  bool // inside a parenthesized multi-entry value
	Directive     bool // line begins with a preprocessor directive
	VarDecl       bool // line is a top-level variable declaration
	SelectorDepth int  // brace depth outside preprocessor constructs
}

// lineScanner feeds lines one at a time and reports the context each line was
// found in. State transitions happen per line; context-sensitive rewrites use
// the pre-transition state so a "@mixin foo {" header itself already counts as
// inside the definition.
type lineScanner struct {
	state      scanState
	braceDepth int // depth inside the construct that owns the current state
	parenDepth int // map literal tracking
	selDepth   int // plain selector nesting depth
}

func newLineScanner() *lineScanner {
	return &lineScanner{state: scanTopLevel}
}

// advance consumes one line and returns its context.
func (s *lineScanner) advance(line string) lineContext {
	trimmed := strings.TrimSpace(line)

	switch s.state {
	case scanTopLevel:
		return s.advanceTopLevel(line, trimmed)
	case scanMixinBody, scanFunctionBody:
		return s.advanceDefinitionBody(line, trimmed)
	case scanMapLiteral:
		return s.advanceMapLiteral(line, trimmed)
	}
	// this should never happen
	return lineContext{}
}

func (s *lineScanner) advanceTopLevel(line, trimmed string) lineContext {
	ctx := lineContext{
		Directive:     strings.HasPrefix(trimmed, "@"),
		SelectorDepth: s.selDepth,
	}

	switch {
	case mixinDefPattern.MatchString(line):
		s.state = scanMixinBody
		s.braceDepth = braceDelta(line)
		if s.braceDepth <= 0 {
			// single-line definition, stay at top level
			s.state = scanTopLevel
			s.braceDepth = 0
		}
		ctx.InMixinBody = true
		return ctx

	case functionDefPattern.MatchString(line):
		s.state = scanFunctionBody
		s.braceDepth = braceDelta(line)
		if s.braceDepth <= 0 {
			s.state = scanTopLevel
			s.braceDepth = 0
		}
		ctx.InMixinBody = true
		return ctx

	case mapOpenPattern.MatchString(line):
		ctx.InMapLiteral = true
		ctx.VarDecl = s.selDepth == 0
		if d := parenDelta(line); d > 0 {
			s.state = scanMapLiteral
			s.parenDepth = d
		}
		return ctx
	}

	if varDeclPattern.MatchString(line) && s.selDepth == 0 {
		ctx.VarDecl = true
	}

	s.selDepth += braceDelta(line)
	if s.selDepth < 0 {
		s.selDepth = 0
	}
	return ctx
}

func (s *lineScanner) advanceDefinitionBody(line, trimmed string) lineContext {
	ctx := lineContext{
		InMixinBody: true,
		Directive:   strings.HasPrefix(trimmed, "@"),
	}
	s.braceDepth += braceDelta(line)
	if s.braceDepth <= 0 {
		s.state = scanTopLevel
		s.braceDepth = 0
	}
	return ctx
}

func (s *lineScanner) advanceMapLiteral(line, trimmed string) lineContext {
	ctx := lineContext{InMapLiteral: true}
	s.parenDepth += parenDelta(line)
	if s.parenDepth <= 0 {
		s.state = scanTopLevel
		s.parenDepth = 0
	}
	return ctx
}

// braceDelta counts net curly brace nesting on a line, ignoring braces inside
// quoted strings and interpolation markers.
func braceDelta(line string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '#':
			if i+1 < len(line) && line[i+1] == '{' {
				// interpolation opener, skip span
				if end := strings.IndexByte(line[i:], '}'); end >= 0 {
					i += end
				}
			}
		case '{':
			depth++
		case '}':
			depth--
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return depth
			}
		}
	}
	return depth
}

func parenDelta(line string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return depth
			}
		}
	}
	return depth
}

// interpolationSpans returns [start,end) byte ranges of #{...} spans in a line.
func interpolationSpans(line string) [][2]int {
	var spans [][2]int
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '#' && line[i+1] == '{' {
			end := strings.IndexByte(line[i:], '}')
			if end < 0 {
				spans = append(spans, [2]int{i, len(line)})
				break
			}
			spans = append(spans, [2]int{i, i + end + 1})
			i += end
		}
	}
	return spans
}

func insideSpan(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

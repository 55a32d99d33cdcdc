package validate

import (
	"fmt"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// pseudo-elements the target framework understands
var knownPseudoElements = map[string]struct{}{
	"before":       {},
	"after":        {},
	"first-line":   {},
	"first-letter": {},
	"selection":    {},
	"placeholder":  {},
	"marker":       {},
	"backdrop":     {},
}

var (
	pseudoElementPattern = regexp.MustCompile(`::([\w-]+)`)
	remainingVarPattern  = regexp.MustCompile(`\$[a-zA-Z_][a-zA-Z0-9_-]*`)
	remainingAtPattern   = regexp.MustCompile(`@(?:include|mixin|function|extend)\b`)
	remainingFnPattern   = regexp.MustCompile(`\b(darken|lighten|saturate|desaturate|adjust-hue|fade-in|fade-out|mix|shade|tint)\s*\(`)
)

// SyntaxCheck runs the token-level checks: brace balance, string termination,
// declaration shape, pseudo-element spelling and a scan for preprocessor
// leftovers. Leftovers set HasRemainingSCSS without invalidating the result.
func (v *Validator) SyntaxCheck(content string, r *Result) {
	l := css.NewLexer(parse.NewInput(strings.NewReader(content)))

	depth := 0
	line := 1

	// tokens of the statement being collected, reset at each ; { }
	var seg segment

	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			break
		}

		switch tt {
		case css.BadStringToken, css.BadURLToken:
			r.addError(KindUnterminatedString,
				"unterminated string or url", line, clip(string(text)))

		case css.LeftBraceToken:
			depth++
			seg.checkSelector(r)
			seg.reset()

		case css.RightBraceToken:
			depth--
			if depth < 0 {
				r.addError(KindUnbalancedBraces, "unexpected closing brace", line, "")
				depth = 0
			}
			seg.checkDeclaration(r, depth+1)
			seg.reset()

		case css.SemicolonToken:
			seg.checkDeclaration(r, depth)
			seg.reset()

		case css.CommentToken:
			// not part of any statement

		case css.WhitespaceToken:
			seg.addSpace()

		default:
			seg.add(tt, string(text), line)
		}

		line += strings.Count(string(text), "\n")
	}

	r.BalancedBraces = depth == 0
	if depth > 0 {
		r.addError(KindUnbalancedBraces,
			fmt.Sprintf("%d unclosed brace(s) at end of input", depth), line, "")
	}

	v.scanRemaining(content, r)
	r.IsValid = len(r.Errors) == 0
}

// scanRemaining looks for preprocessor tokens that survived transformation.
func (v *Validator) scanRemaining(content string, r *Result) {
	seen := make(map[string]struct{})
	record := func(tok string) {
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		r.RemainingTokens = append(r.RemainingTokens, tok)
	}

	for i, rawLine := range strings.Split(content, "\n") {
		// comments may legitimately mention stripped constructs
		code := rawLine
		if idx := strings.Index(code, "/*"); idx >= 0 {
			code = code[:idx]
		}
		if idx := strings.Index(code, "//"); idx >= 0 {
			code = code[:idx]
		}

		for _, m := range remainingVarPattern.FindAllString(code, -1) {
			record(m)
			r.addWarning(KindRemainingSCSS, "unconverted variable reference "+m, i+1, clip(rawLine))
		}
		for _, m := range remainingAtPattern.FindAllString(code, -1) {
			record(m)
			r.addWarning(KindRemainingSCSS, "unconverted directive "+m, i+1, clip(rawLine))
		}
		for _, m := range remainingFnPattern.FindAllStringSubmatch(code, -1) {
			record(m[1] + "(")
			r.addWarning(KindRemainingSCSS, "unconverted helper call "+m[1], i+1, clip(rawLine))
		}
	}
	r.HasRemainingSCSS = len(r.RemainingTokens) > 0
}

// segment accumulates the tokens of one statement between structural
// delimiters and classifies it when the delimiter arrives.
type segment struct {
	tokens []css.TokenType
	texts  []string
	line   int // line the statement started on
}

func (s *segment) add(tt css.TokenType, text string, line int) {
	if len(s.tokens) == 0 {
		s.line = line
	}
	s.tokens = append(s.tokens, tt)
	s.texts = append(s.texts, text)
}

// addSpace keeps snippets readable without affecting token classification.
func (s *segment) addSpace() {
	if len(s.texts) > 0 {
		s.texts = append(s.texts, " ")
	}
}

func (s *segment) reset() {
	s.tokens = s.tokens[:0]
	s.texts = s.texts[:0]
}

func (s *segment) raw() string {
	return strings.TrimSpace(strings.Join(s.texts, ""))
}

// checkSelector validates the statement that opened a block.
func (s *segment) checkSelector(r *Result) {
	raw := s.raw()
	for _, m := range pseudoElementPattern.FindAllStringSubmatch(raw, -1) {
		if _, ok := knownPseudoElements[strings.ToLower(m[1])]; !ok {
			r.addWarning(KindUnknownPseudoElement,
				fmt.Sprintf("unknown pseudo-element ::%s", m[1]), s.line, clip(raw))
		}
	}
}

// checkDeclaration validates a statement terminated inside a block. A
// declaration needs a name, a colon and a value; at-rules are exempt.
func (s *segment) checkDeclaration(r *Result, depth int) {
	if len(s.tokens) == 0 || depth <= 0 {
		return
	}
	if s.tokens[0] == css.AtKeywordToken {
		return
	}

	colon := -1
	for i, tt := range s.tokens {
		if tt == css.ColonToken {
			colon = i
			break
		}
	}
	switch {
	case colon < 0:
		r.addError(KindMalformedDeclaration,
			"declaration has no ':' separator", s.line, clip(s.raw()))
	case colon == 0:
		r.addError(KindMalformedDeclaration,
			"declaration has no property name", s.line, clip(s.raw()))
	case colon == len(s.tokens)-1:
		r.addError(KindMalformedDeclaration,
			"declaration has no value", s.line, clip(s.raw()))
	}
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

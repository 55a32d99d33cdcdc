package transform

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	// matched up to the first top-level ';' - minified sources put selectors
	// and further declarations on the same line
	varDeclPattern = regexp.MustCompile(`^\s*\$([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*([^;]+?)\s*(!default\s*)?;`)
	mapGetPattern  = regexp.MustCompile(`map-get\s*\(`)
)

// VariablesPass extracts top-level variable declarations, hoists them into a
// single custom property block at the top of the stylesheet and rewrites
// usage sites to var() references. Rewriting is skipped inside mixin bodies,
// map literals, interpolation spans, map-get calls and directive lines.
func (p *Pipeline) VariablesPass(c *Context) {
	c.ProcessingStep = "variables"

	c.Variables = extractVariables(c.CurrentContent)
	if len(c.Variables) == 0 {
		return
	}

	declared := make(map[string]Variable, len(c.Variables))
	for _, v := range c.Variables {
		declared[v.Name] = v
	}
	for _, v := range c.Variables {
		for _, dep := range v.Dependencies {
			if _, ok := declared[dep]; !ok {
				c.Warn(fmt.Sprintf("variable $%s references undeclared $%s (left unresolved)", v.Name, dep))
			}
		}
	}

	lines := strings.Split(c.CurrentContent, "\n")
	out := make([]string, 0, len(lines))
	scanner := newLineScanner()

	// tracks a hoisted multi-line map declaration whose continuation
	// lines must be dropped along with the opener
	droppingMap := false

	for _, line := range lines {
		lc := scanner.advance(line)

		switch {
		case lc.VarDecl:
			// declarations are hoisted; content sharing the line survives
			droppingMap = lc.InMapLiteral && scanner.state == scanMapLiteral
			if !lc.InMapLiteral {
				if rest := stripLeadingVarDecls(line); strings.TrimSpace(rest) != "" {
					out = append(out, rewriteVariableRefs(rest))
				}
			}
			continue
		case lc.InMapLiteral:
			if droppingMap {
				if scanner.state != scanMapLiteral {
					droppingMap = false
				}
				continue
			}
			// map literal in selector scope stays unconverted
			out = append(out, line)
			continue
		case lc.InMixinBody, lc.Directive:
			out = append(out, line)
			continue
		case varDeclPattern.MatchString(line):
			// selector-scoped declaration, left for manual review
			out = append(out, line)
			continue
		default:
			out = append(out, rewriteVariableRefs(line))
		}
	}

	block := customPropertyBlock(c.Variables)
	c.CurrentContent = block + "\n" + strings.Join(out, "\n")

	p.log.Debug("Variables hoisted",
		zap.String("stylesheet", c.Name), zap.Int("count", len(c.Variables)))
	c.RecordTransformation("variables")
}

// extractVariables collects top-level declarations in source order. Multi-line
// map values are captured until their parentheses balance.
func extractVariables(content string) []Variable {
	var vars []Variable

	lines := strings.Split(content, "\n")
	scanner := newLineScanner()

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		lc := scanner.advance(line)
		if !lc.VarDecl {
			continue
		}

		if lc.InMapLiteral {
			// gather the full literal
			name := strings.TrimSpace(strings.SplitN(strings.TrimSpace(line), ":", 2)[0])
			name = strings.TrimPrefix(name, "$")
			raw := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			start := i
			for parensUnbalanced(raw) && i+1 < len(lines) {
				i++
				scanner.advance(lines[i])
				raw += "\n" + lines[i]
			}
			raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
			vars = append(vars, Variable{
				Name:           name,
				RawValue:       raw,
				Type:           ValueTypeMap,
				CustomProperty: CustomPropertyName(name),
				Dependencies:   referencedVariables(raw),
				SourceLine:     start + 1,
			})
			continue
		}

		// several declarations may share one line in minified sources
		rest := line
		for {
			name, raw, r, ok := leadingVarDecl(rest)
			if !ok {
				break
			}
			vars = append(vars, Variable{
				Name:           name,
				RawValue:       raw,
				Type:           InferType(raw),
				CustomProperty: CustomPropertyName(name),
				Dependencies:   referencedVariables(raw),
				SourceLine:     i + 1,
			})
			rest = r
		}
	}
	return vars
}

// leadingVarDecl matches a declaration at the start of s and returns its parts
// together with whatever follows on the same line.
func leadingVarDecl(s string) (name, raw, rest string, ok bool) {
	m := varDeclPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return "", "", s, false
	}
	return s[m[2]:m[3]], strings.TrimSpace(s[m[4]:m[5]]), s[m[1]:], true
}

// stripLeadingVarDecls peels declarations off the front of a line and returns
// the remaining content.
func stripLeadingVarDecls(line string) string {
	for {
		_, _, rest, ok := leadingVarDecl(line)
		if !ok {
			return line
		}
		line = strings.TrimLeft(rest, " \t")
	}
}

func parensUnbalanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}

// customPropertyBlock renders the hoisted :root block. Nested variable
// references inside values are themselves converted to var() references.
// Map-typed values have no custom property equivalent and are emitted as a
// review comment instead.
func customPropertyBlock(vars []Variable) string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, v := range vars {
		if v.Type == ValueTypeMap {
			b.WriteString(fmt.Sprintf("  /* map $%s has no custom property equivalent */\n", v.Name))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s;\n", v.CustomProperty, rewriteVariableRefs(v.RawValue)))
	}
	b.WriteString("}\n")
	return b.String()
}

// rewriteVariableRefs converts $name references on a line to var() references,
// leaving interpolation spans and map-get arguments untouched.
func rewriteVariableRefs(line string) string {
	if !strings.Contains(line, "$") {
		return line
	}

	skip := interpolationSpans(line)
	for _, loc := range mapGetPattern.FindAllStringIndex(line, -1) {
		if end := matchingParen(line, loc[1]-1); end > loc[0] {
			skip = append(skip, [2]int{loc[0], end + 1})
		}
	}

	var b strings.Builder
	last := 0
	for _, loc := range varRefPattern.FindAllStringSubmatchIndex(line, -1) {
		if insideSpan(skip, loc[0]) {
			continue
		}
		name := line[loc[2]:loc[3]]
		b.WriteString(line[last:loc[0]])
		b.WriteString("var(" + CustomPropertyName(name) + ")")
		last = loc[1]
	}
	b.WriteString(line[last:])
	return b.String()
}

// matchingParen returns the index of the closing parenthesis matching the
// opener at pos, or -1 when the line ends first.
func matchingParen(line string, pos int) int {
	depth := 0
	for i := pos; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

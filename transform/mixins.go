package transform

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	includePattern  = regexp.MustCompile(`@include\s+([\w-]+)\s*(?:\(\s*([^()]*(?:\([^()]*\)[^()]*)*)\s*\))?\s*;`)
	defStartPattern = regexp.MustCompile(`@(?:mixin|function)\s+[\w-]+`)
)

// mixinExpansions is the fixed table of recognized invocations. Every entry
// produces literal CSS declarations with the arguments already substituted.
// Anything outside this table is left as a visible review marker.
var mixinExpansions = map[string]func(args []string) string{
	"flexbox":       func([]string) string { return "display: flex;" },
	"flex":          func([]string) string { return "display: flex;" },
	"inline-flex":   func([]string) string { return "display: inline-flex;" },
	"box-sizing":    one("box-sizing: %s;", "border-box"),
	"border-radius": one("border-radius: %s;", "0"),
	"opacity":       one("opacity: %s;", "1"),
	"transition": func(args []string) string {
		if len(args) == 0 {
			return "transition: all 0.3s ease;"
		}
		return fmt.Sprintf("transition: %s;", strings.Join(args, ", "))
	},
	"transform":   one("transform: %s;", "none"),
	"user-select": one("user-select: %s;", "none"),
	"appearance":  one("appearance: %s;", "none"),
	"clearfix": func([]string) string {
		return `content: "";
display: table;
clear: both;`
	},
	"visually-hidden": func([]string) string {
		return `position: absolute;
width: 1px;
height: 1px;
margin: -1px;
padding: 0;
overflow: hidden;
clip: rect(0, 0, 0, 0);
border: 0;`
	},
	"placeholder-color": one("color: %s;", "inherit"),
	"centered": func([]string) string {
		return `position: absolute;
top: 50%;
left: 50%;
transform: translate(-50%, -50%);`
	},
}

// one builds an expansion that substitutes a single argument with a default.
func one(format, def string) func([]string) string {
	return func(args []string) string {
		v := def
		if len(args) > 0 && args[0] != "" {
			v = args[0]
		}
		return fmt.Sprintf(format, v)
	}
}

// MixinsPass expands recognized invocations to literal CSS, marks unknown ones
// for manual follow-up and deletes every mixin definition - the target format
// has no mixin facility.
func (p *Pipeline) MixinsPass(c *Context) {
	c.ProcessingStep = "mixins"

	// definitions go first so invocation rewriting never touches their bodies
	content := removeMixinDefinitions(c.CurrentContent)

	c.Mixins = extractMixinReferences(content)

	resolved, flagged := 0, 0
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if !strings.Contains(line, "@include") {
			out = append(out, line)
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		alone := includePattern.MatchString(line) && strings.TrimSpace(includePattern.ReplaceAllString(line, "")) == ""

		line = includePattern.ReplaceAllStringFunc(line, func(match string) string {
			m := includePattern.FindStringSubmatch(match)
			name := m[1]
			expand, ok := mixinExpansions[name]
			if !ok {
				flagged++
				return fmt.Sprintf("/* FIXME: manual conversion required for mixin %q */", name)
			}
			resolved++
			// arguments may carry variable references the variable pass
			// skipped on the directive line
			decls := strings.Split(rewriteVariableRefs(expand(splitArgs(m[2]))), "\n")
			if alone {
				return strings.Join(decls, "\n"+indent)
			}
			// inline context is minified code, keep the expansion minified too
			return strings.ReplaceAll(strings.Join(decls, " "), ": ", ":")
		})
		out = append(out, line)
	}

	c.CurrentContent = strings.Join(out, "\n")
	c.mixinsResolved, c.mixinsFlagged = resolved, flagged

	p.log.Debug("Mixins processed",
		zap.String("stylesheet", c.Name), zap.Int("resolved", resolved), zap.Int("flagged", flagged))
	c.RecordTransformation("mixins")
}

// extractMixinReferences collects every invocation with source positions.
func extractMixinReferences(content string) []MixinReference {
	var refs []MixinReference
	for i, line := range strings.Split(content, "\n") {
		for _, m := range includePattern.FindAllStringSubmatch(line, -1) {
			_, known := mixinExpansions[m[1]]
			refs = append(refs, MixinReference{
				Name:       m[1],
				Args:       splitArgs(m[2]),
				SourceLine: i + 1,
				Known:      known,
			})
		}
	}
	return refs
}

// removeMixinDefinitions deletes @mixin and @function definitions together
// with their brace-balanced bodies, wherever they sit in the content.
func removeMixinDefinitions(content string) string {
	var b strings.Builder
	i := 0
	for i < len(content) {
		loc := defStartPattern.FindStringIndex(content[i:])
		if loc == nil {
			b.WriteString(content[i:])
			break
		}
		start := i + loc[0]
		b.WriteString(content[i:start])

		open := strings.IndexByte(content[start:], '{')
		if open < 0 {
			// malformed definition, keep the rest as is
			b.WriteString(content[start:])
			break
		}
		end := matchingBrace(content, start+open)
		if end < 0 {
			b.WriteString(content[start:])
			break
		}
		i = end + 1
	}
	return b.String()
}

// matchingBrace returns the index of the brace closing the one at pos,
// ignoring braces inside quoted strings. Returns -1 when unbalanced.
func matchingBrace(content string, pos int) int {
	depth := 0
	var quote byte
	for i := pos; i < len(content); i++ {
		c := content[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits an argument list on top-level commas.
func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var args []string
	depth, start := 0, 0
	for i, r := range raw {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(raw[start:]))
	return args
}

package transform

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Color math helpers the target format cannot evaluate. Each call is replaced
// with its first argument - losing the adjustment but keeping a valid color.
var helperFunctions = []string{
	"darken",
	"lighten",
	"saturate",
	"desaturate",
	"adjust-hue",
	"fade-in",
	"fade-out",
	"mix",
	"shade",
	"tint",
}

var helperCallPattern = regexp.MustCompile(`\b(` + strings.Join(helperFunctions, "|") + `)\s*\(`)

// FunctionsPass strips calls to color math helpers, substituting the first
// argument as a literal. Nested calls are reduced innermost-first until no
// helper call remains.
func (p *Pipeline) FunctionsPass(c *Context) {
	c.ProcessingStep = "functions"

	c.Functions = extractFunctionCalls(c.CurrentContent)
	if len(c.Functions) == 0 {
		return
	}

	content := c.CurrentContent
	// bounded: every substitution removes one call
	for range c.Functions {
		next, changed := stripOneHelperCall(content)
		if !changed {
			break
		}
		content = next
	}
	c.CurrentContent = content

	p.log.Debug("Helper functions stripped",
		zap.String("stylesheet", c.Name), zap.Int("count", len(c.Functions)))
	c.RecordTransformation("functions")
}

func extractFunctionCalls(content string) []FunctionCall {
	var calls []FunctionCall
	for i, line := range strings.Split(content, "\n") {
		for _, loc := range helperCallPattern.FindAllStringSubmatchIndex(line, -1) {
			end := matchingParen(line, loc[1]-1)
			raw := line[loc[0]:]
			if end >= 0 {
				raw = line[loc[0] : end+1]
			}
			calls = append(calls, FunctionCall{
				Name:       line[loc[2]:loc[3]],
				Raw:        raw,
				SourceLine: i + 1,
			})
		}
	}
	return calls
}

// stripOneHelperCall replaces the first helper call found with its first
// argument. Reports whether a substitution happened.
func stripOneHelperCall(content string) (string, bool) {
	loc := helperCallPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, false
	}
	end := matchingParen(content, loc[1]-1)
	if end < 0 {
		return content, false
	}

	args := splitArgs(content[loc[1]:end])
	replacement := "inherit /* was " + content[loc[2]:loc[3]] + " call */"
	if len(args) > 0 && args[0] != "" {
		replacement = args[0]
	}
	return content[:loc[0]] + replacement + content[end+1:], true
}

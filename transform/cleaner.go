package transform

import (
	"regexp"
	"strings"
)

var multiBlankPattern = regexp.MustCompile(`\n{3,}`)

// CleanupPass normalizes whitespace: trailing space removal, collapsed blank
// runs, a single final newline. Always the last pass so output is stable and
// the pipeline stays idempotent.
func (p *Pipeline) CleanupPass(c *Context) {
	c.ProcessingStep = "cleanup"

	lines := strings.Split(c.CurrentContent, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content := strings.Join(lines, "\n")
	content = multiBlankPattern.ReplaceAllString(content, "\n\n")
	content = strings.TrimLeft(content, "\n")
	content = strings.TrimRight(content, "\n") + "\n"

	c.CurrentContent = content
	c.RecordTransformation("cleanup")
}

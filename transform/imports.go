package transform

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var importPattern = regexp.MustCompile(`@import\s+([^;]+);`)

// ImportsPass deletes every import directive - the generated stylesheet is
// self contained. Removed statements are recorded for the final summary.
func (p *Pipeline) ImportsPass(c *Context) {
	c.ProcessingStep = "imports"

	c.Imports = nil
	for i, line := range strings.Split(c.CurrentContent, "\n") {
		for _, m := range importPattern.FindAllStringSubmatch(line, -1) {
			c.Imports = append(c.Imports, ImportStatement{
				Path:       strings.Trim(strings.TrimSpace(m[1]), `"'`),
				SourceLine: i + 1,
			})
		}
	}
	if len(c.Imports) == 0 {
		return
	}

	c.CurrentContent = importPattern.ReplaceAllString(c.CurrentContent, "")

	p.log.Debug("Imports removed", zap.String("stylesheet", c.Name), zap.Int("count", len(c.Imports)))
	c.RecordTransformation("imports")
}

package transform

import "strings"

// Context carries one stylesheet through the pipeline. SourceContent is never
// mutated, CurrentContent is rewritten in place by each pass. A Context lives
// for exactly one file's pipeline run.
type Context struct {
	Name           string // identifies the stylesheet in logs and warnings
	SourceContent  string
	CurrentContent string

	Variables []Variable
	Mixins    []MixinReference
	Functions []FunctionCall
	Imports   []ImportStatement

	ProcessingStep string
	Warnings       []string

	transformations []string
	applied         map[string]struct{}

	mixinsResolved int
	mixinsFlagged  int
}

// MixinCounts reports how many invocations were expanded vs left as markers.
func (c *Context) MixinCounts() (resolved, flagged int) {
	return c.mixinsResolved, c.mixinsFlagged
}

// NewContext prepares a transformation context for a single stylesheet.
func NewContext(name, source string) *Context {
	return &Context{
		Name:           name,
		SourceContent:  source,
		CurrentContent: source,
		applied:        make(map[string]struct{}),
	}
}

// RecordTransformation appends a transformation name to the applied log.
// Insertion is idempotent - recording the same name twice keeps one entry.
func (c *Context) RecordTransformation(name string) {
	if _, ok := c.applied[name]; ok {
		return
	}
	c.applied[name] = struct{}{}
	c.transformations = append(c.transformations, name)
}

// TransformationsApplied returns recorded transformation names in order.
func (c *Context) TransformationsApplied() []string {
	out := make([]string, len(c.transformations))
	copy(out, c.transformations)
	return out
}

// Warn records a human readable warning tied to this stylesheet.
func (c *Context) Warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// SourceLines returns the number of lines in the original content.
func (c *Context) SourceLines() int {
	return countLines(c.SourceContent)
}

// CurrentLines returns the number of lines in the rewritten content.
func (c *Context) CurrentLines() int {
	return countLines(c.CurrentContent)
}

func countLines(s string) int {
	if len(s) == 0 {
		return 0
	}
	return strings.Count(s, "\n") + boolToInt(!strings.HasSuffix(s, "\n"))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

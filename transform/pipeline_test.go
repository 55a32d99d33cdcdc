package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const pipelineFixture = `@import "variables";
@import 'colors';

$primary: #ff0000;
$gap: 8px;

@mixin flexbox() {
  display: flex;
}

.header {
  @include flexbox();
  color: $primary;
  margin: $gap;
  background: url(../images/header-bg.png);
  border-color: darken($primary, 10%);
}
`

func TestPipelineRun(t *testing.T) {
	p := NewPipeline(Options{AssetBaseURL: testBaseURL}, zap.NewNop())
	c := NewContext("style.scss", pipelineFixture)
	s := p.Run(c)

	out := c.CurrentContent

	assert.True(t, strings.HasPrefix(out, ":root {"))
	assert.Contains(t, out, "--primary: #ff0000;")
	assert.Contains(t, out, "--gap: 8px;")
	assert.Contains(t, out, "color: var(--primary);")
	assert.Contains(t, out, "display: flex;")
	assert.Contains(t, out, "border-color: var(--primary);")
	assert.Contains(t, out, "url('"+testBaseURL+"/header-bg.png')")

	// nothing preprocessor-flavored survives
	assert.NotContains(t, out, "@import")
	assert.NotContains(t, out, "@mixin")
	assert.NotContains(t, out, "@include")
	assert.NotContains(t, out, "$primary")
	assert.NotContains(t, out, "darken(")

	assert.Equal(t, 2, s.VariablesConverted)
	assert.Equal(t, 1, s.MixinsConverted)
	assert.Equal(t, 0, s.MixinsFlagged)
	assert.Equal(t, 1, s.FunctionsConverted)
	assert.Equal(t, 2, s.ImportsRemoved)
	assert.Equal(t, strings.Count(pipelineFixture, "\n"), s.SourceLines)
	assert.Positive(t, s.OutputLines)

	assert.Equal(t,
		[]string{"variables", "paths", "functions", "mixins", "imports", "cleanup"},
		c.TransformationsApplied())
}

func TestPipelineRunSingleLineStylesheet(t *testing.T) {
	src := "$primary: #ff0000; .a { color: $primary; }"

	p := NewPipeline(Options{}, nil)
	c := NewContext("mini.scss", src)
	s := p.Run(c)

	out := c.CurrentContent
	assert.True(t, strings.HasPrefix(out, ":root {"))
	assert.Contains(t, out, "--primary: #ff0000;")
	assert.Contains(t, out, "color: var(--primary);")
	assert.NotContains(t, out, "$")
	assert.Equal(t, 1, s.VariablesConverted)

	c2 := NewContext("mini.scss", out)
	p.Run(c2)
	assert.Equal(t, out, c2.CurrentContent)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	p := NewPipeline(Options{AssetBaseURL: testBaseURL}, nil)

	c1 := NewContext("style.scss", pipelineFixture)
	p.Run(c1)

	c2 := NewContext("style.scss", c1.CurrentContent)
	s2 := p.Run(c2)

	require.Equal(t, c1.CurrentContent, c2.CurrentContent)
	assert.Zero(t, s2.VariablesConverted)
}

func TestPipelineRunPlainCSSPassesThrough(t *testing.T) {
	src := ".a {\n  color: red;\n}\n"

	p := NewPipeline(Options{AssetBaseURL: testBaseURL}, nil)
	c := NewContext("plain.css", src)
	s := p.Run(c)

	assert.Equal(t, src, c.CurrentContent)
	assert.Zero(t, s.VariablesConverted)
	assert.Zero(t, s.ImportsRemoved)
}

func TestPipelineRecordsImports(t *testing.T) {
	src := "@import \"foo\";\n@import 'bar/baz';\n.c { color: red; }\n"

	p := NewPipeline(Options{}, nil)
	c := NewContext("c.scss", src)
	p.Run(c)

	require.Len(t, c.Imports, 2)
	assert.Equal(t, "foo", c.Imports[0].Path)
	assert.Equal(t, "bar/baz", c.Imports[1].Path)
	assert.NotContains(t, c.CurrentContent, "@import")
}

func TestPipelineSourceContentIsPreserved(t *testing.T) {
	p := NewPipeline(Options{}, nil)
	c := NewContext("style.scss", pipelineFixture)
	p.Run(c)

	assert.Equal(t, pipelineFixture, c.SourceContent)
	assert.NotEqual(t, c.SourceContent, c.CurrentContent)
}

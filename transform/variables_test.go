package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariablesPassHoistsAndRewrites(t *testing.T) {
	src := strings.Join([]string{
		"$primary: #ff0000;",
		"",
		".a {",
		"  color: $primary;",
		"}",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Variables, 1)
	assert.Equal(t, "primary", c.Variables[0].Name)
	assert.Equal(t, ValueTypeColor, c.Variables[0].Type)

	assert.Contains(t, c.CurrentContent, ":root {")
	assert.Contains(t, c.CurrentContent, "--primary: #ff0000;")
	assert.Contains(t, c.CurrentContent, "color: var(--primary);")
	assert.NotContains(t, c.CurrentContent, "$primary")
}

func TestVariablesPassSingleLineStylesheet(t *testing.T) {
	src := "$primary: #ff0000; .a { color: $primary; }"

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Variables, 1)
	assert.Contains(t, c.CurrentContent, "--primary: #ff0000;")
	assert.Contains(t, c.CurrentContent, ".a { color: var(--primary); }")
	assert.NotContains(t, c.CurrentContent, "$primary")
}

func TestVariablesPassSeveralDeclarationsPerLine(t *testing.T) {
	src := "$a: 1px; $b: 2px;\n.x { margin: $a $b; }"

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Variables, 2)
	assert.Contains(t, c.CurrentContent, "--a: 1px;")
	assert.Contains(t, c.CurrentContent, "--b: 2px;")
	assert.Contains(t, c.CurrentContent, "margin: var(--a) var(--b);")
}

func TestVariablesPassResolvesNestedReferences(t *testing.T) {
	src := strings.Join([]string{
		"$base: #336699;",
		"$border: 1px solid $base;",
		".a { border: $border; }",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	assert.Contains(t, c.CurrentContent, "--border: 1px solid var(--base);")
	assert.Contains(t, c.CurrentContent, "border: var(--border);")
	assert.Empty(t, c.Warnings)
}

func TestVariablesPassWarnsOnUndeclaredDependency(t *testing.T) {
	src := "$border: 1px solid $missing;\n.a { border: $border; }"

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Warnings, 1)
	assert.Contains(t, c.Warnings[0], "$missing")
}

func TestVariablesPassSkipsProtectedContexts(t *testing.T) {
	src := strings.Join([]string{
		"$c: #fff;",
		"@mixin glow() {",
		"  color: $c;",
		"}",
		".x {",
		`  content: "#{$c}";`,
		"  color: map-get($theme, $c);",
		"}",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	// mixin bodies, interpolation and map-get arguments stay untouched
	assert.Contains(t, c.CurrentContent, "  color: $c;")
	assert.Contains(t, c.CurrentContent, `content: "#{$c}";`)
	assert.Contains(t, c.CurrentContent, "map-get($theme, $c);")
	assert.Contains(t, c.CurrentContent, "--c: #fff;")
}

func TestVariablesPassHoistsMapAsReviewComment(t *testing.T) {
	src := strings.Join([]string{
		"$breakpoints: (",
		"  small: 576px,",
		"  large: 992px,",
		");",
		"$primary: #ff0000;",
		".a { color: $primary; }",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Variables, 2)
	assert.Equal(t, ValueTypeMap, c.Variables[0].Type)
	assert.Contains(t, c.CurrentContent, "/* map $breakpoints has no custom property equivalent */")
	assert.NotContains(t, c.CurrentContent, "small: 576px")
	assert.Contains(t, c.CurrentContent, "color: var(--primary);")
}

func TestVariablesPassKeepsSelectorScopedMapLiteral(t *testing.T) {
	src := strings.Join([]string{
		".a {",
		"  $local: (x: 1, y: 2);",
		"  width: 10px;",
		"}",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	// no top-level declarations, nothing to hoist or rewrite
	assert.Equal(t, src, c.CurrentContent)
}

func TestVariablesPassHandlesDefaultFlag(t *testing.T) {
	src := "$gap: 8px !default;\n.a { margin: $gap; }"

	p := NewPipeline(Options{}, nil)
	c := NewContext("a.scss", src)
	p.VariablesPass(c)

	require.Len(t, c.Variables, 1)
	assert.Equal(t, "8px", c.Variables[0].RawValue)
	assert.Contains(t, c.CurrentContent, "--gap: 8px;")
}

func TestRewriteVariableRefs(t *testing.T) {
	assert.Equal(t, "color: var(--a) var(--b);", rewriteVariableRefs("color: $a $b;"))
	assert.Equal(t, "width: 10px;", rewriteVariableRefs("width: 10px;"))
	assert.Equal(t, `content: "#{$a}";`, rewriteVariableRefs(`content: "#{$a}";`))
}

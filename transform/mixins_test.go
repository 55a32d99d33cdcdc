package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixinsPassExpandsKnownInvocation(t *testing.T) {
	src := strings.Join([]string{
		"@mixin flexbox() {",
		"  display: flex;",
		"}",
		".b {",
		"  @include flexbox();",
		"}",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, "  display: flex;")
	assert.NotContains(t, c.CurrentContent, "@mixin")
	assert.NotContains(t, c.CurrentContent, "@include")

	resolved, flagged := c.MixinCounts()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, flagged)
}

func TestMixinsPassExpandsMinifiedInput(t *testing.T) {
	src := "@mixin flexbox(){display:flex;} .b{@include flexbox();}"

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, ".b{display:flex;}")
	assert.NotContains(t, c.CurrentContent, "@mixin")
	assert.NotContains(t, c.CurrentContent, "@include")
}

func TestMixinsPassSubstitutesArguments(t *testing.T) {
	src := strings.Join([]string{
		".b {",
		"  @include border-radius(4px);",
		"  @include transition(color 0.2s ease, background 0.3s linear);",
		"}",
	}, "\n")

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, "border-radius: 4px;")
	assert.Contains(t, c.CurrentContent, "transition: color 0.2s ease, background 0.3s linear;")
}

func TestMixinsPassRewritesVariableArguments(t *testing.T) {
	src := ".b {\n  @include transition($speed);\n  @include border-radius($corner);\n}"

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, "transition: var(--speed);")
	assert.Contains(t, c.CurrentContent, "border-radius: var(--corner);")
	assert.NotContains(t, c.CurrentContent, "$speed")
	assert.NotContains(t, c.CurrentContent, "$corner")
}

func TestMixinsPassFlagsUnknownInvocation(t *testing.T) {
	src := ".b {\n  @include bespoke-shadow(2px);\n}"

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, `/* FIXME: manual conversion required for mixin "bespoke-shadow" */`)
	assert.NotContains(t, c.CurrentContent, "@include")

	resolved, flagged := c.MixinCounts()
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, flagged)

	require.Len(t, c.Mixins, 1)
	assert.False(t, c.Mixins[0].Known)
}

func TestMixinsPassIndentsMultiDeclarationExpansion(t *testing.T) {
	src := ".b {\n    @include clearfix();\n}"

	p := NewPipeline(Options{}, nil)
	c := NewContext("b.scss", src)
	p.MixinsPass(c)

	assert.Contains(t, c.CurrentContent, `    content: "";`)
	assert.Contains(t, c.CurrentContent, "    display: table;")
	assert.Contains(t, c.CurrentContent, "    clear: both;")
}

func TestRemoveMixinDefinitions(t *testing.T) {
	src := strings.Join([]string{
		"@mixin a($x) {",
		"  width: $x;",
		"  .nested { height: $x; }",
		"}",
		".keep { color: red; }",
		"@function b() { @return 1; }",
		".also-keep { color: blue; }",
	}, "\n")

	got := removeMixinDefinitions(src)
	assert.NotContains(t, got, "@mixin")
	assert.NotContains(t, got, "@function")
	assert.NotContains(t, got, "width:")
	assert.Contains(t, got, ".keep { color: red; }")
	assert.Contains(t, got, ".also-keep { color: blue; }")
}

func TestSplitArgs(t *testing.T) {
	assert.Nil(t, splitArgs(""))
	assert.Equal(t, []string{"4px"}, splitArgs("4px"))
	assert.Equal(t, []string{"a 1s ease", "b 2s"}, splitArgs("a 1s ease, b 2s"))
	assert.Equal(t, []string{"rgba(0, 0, 0, 0.5)", "10px"}, splitArgs("rgba(0, 0, 0, 0.5), 10px"))
}

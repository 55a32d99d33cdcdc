package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScannerTracksDefinitionBodies(t *testing.T) {
	s := newLineScanner()

	assert.True(t, s.advance("@mixin shadow($c) {").InMixinBody)
	assert.True(t, s.advance("  box-shadow: 0 0 2px $c;").InMixinBody)
	assert.True(t, s.advance("}").InMixinBody)
	assert.False(t, s.advance(".a { color: red; }").InMixinBody)
}

func TestScannerSingleLineDefinition(t *testing.T) {
	s := newLineScanner()

	assert.True(t, s.advance("@mixin flexbox() { display: flex; }").InMixinBody)
	// balanced on one line, next line is back at top level
	assert.False(t, s.advance(".b { color: red; }").InMixinBody)
}

func TestScannerTracksMapLiterals(t *testing.T) {
	s := newLineScanner()

	lc := s.advance("$breakpoints: (")
	assert.True(t, lc.InMapLiteral)
	assert.True(t, lc.VarDecl)
	assert.True(t, s.advance("  small: 576px,").InMapLiteral)
	assert.True(t, s.advance(");").InMapLiteral)
	assert.False(t, s.advance("$plain: 1px;").InMapLiteral)
}

func TestScannerSelectorScopedMapIsNotADeclaration(t *testing.T) {
	s := newLineScanner()

	s.advance(".a {")
	lc := s.advance("  $local: (x: 1);")
	assert.True(t, lc.InMapLiteral)
	assert.False(t, lc.VarDecl)
}

func TestBraceDelta(t *testing.T) {
	assert.Equal(t, 1, braceDelta(".a {"))
	assert.Equal(t, 0, braceDelta(".a { color: red; }"))
	assert.Equal(t, -1, braceDelta("}"))
	assert.Equal(t, 0, braceDelta(`content: "{";`))
	assert.Equal(t, 0, braceDelta("// { comment"))
	assert.Equal(t, 1, braceDelta(`.a-#{$n} {`))
}

func TestInterpolationSpans(t *testing.T) {
	spans := interpolationSpans(`content: "#{$a}" url(#{$b});`)
	assert.Len(t, spans, 2)
	assert.True(t, insideSpan(spans, spans[0][0]+2))
	assert.False(t, insideSpan(spans, 0))
}

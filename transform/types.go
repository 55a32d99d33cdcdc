// Package transform implements the stylesheet transformation pipeline: it
// rewrites a legacy SCSS dialect (variables, mixins, helper functions,
// relative asset paths, import chains) into flat CSS built around custom
// properties.
package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/mazznoer/csscolorparser"
)

// ValueType classifies a variable declaration by its inferred value shape.
type ValueType int

const (
	ValueTypeUnknown ValueType = iota
	ValueTypeColor
	ValueTypeSize
	ValueTypeString
	ValueTypeNumber
	ValueTypeBoolean
	ValueTypeList
	ValueTypeMap
)

var valueTypeNames = map[ValueType]string{
	ValueTypeUnknown: "unknown",
	ValueTypeColor:   "color",
	ValueTypeSize:    "size",
	ValueTypeString:  "string",
	ValueTypeNumber:  "number",
	ValueTypeBoolean: "boolean",
	ValueTypeList:    "list",
	ValueTypeMap:     "map",
}

func (v ValueType) String() string {
	if n, ok := valueTypeNames[v]; ok {
		return n
	}
	return "unknown"
}

// Variable is a single extracted preprocessor variable declaration.
type Variable struct {
	Name           string
	RawValue       string
	Type           ValueType
	CustomProperty string   // always a pure function of Name
	Dependencies   []string // other variable names referenced in RawValue
	SourceLine     int
}

// MixinReference is an extracted mixin invocation. Created during extraction,
// consumed during the mixin pass, never mutated afterwards.
type MixinReference struct {
	Name       string
	Args       []string
	SourceLine int
	Known      bool // true when a fixed expansion exists
}

// FunctionCall is an extracted helper function invocation.
type FunctionCall struct {
	Name       string
	Raw        string
	SourceLine int
}

// ImportStatement is an extracted import directive.
type ImportStatement struct {
	Path       string
	SourceLine int
}

var identNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// CustomPropertyName derives the custom property name for a variable. Names
// that are already valid identifiers are kept verbatim (preserving case),
// anything else is slug-sanitized so the output always parses.
func CustomPropertyName(name string) string {
	if identNamePattern.MatchString(name) {
		return "--" + name
	}
	return "--" + slug.Make(name)
}

var (
	dimensionPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)(px|em|rem|ex|ch|vw|vh|vmin|vmax|cm|mm|in|pt|pc|%|s|ms|deg|fr)$`)
	varRefPattern    = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_-]*)`)
)

// InferType pattern-matches a raw variable value against known value shapes.
func InferType(raw string) ValueType {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "!default"))
	if len(v) == 0 {
		return ValueTypeUnknown
	}

	switch v {
	case "true", "false":
		return ValueTypeBoolean
	}

	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return ValueTypeString
	}

	// parenthesized key:value entries make a map
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") && strings.Contains(v, ":") {
		return ValueTypeMap
	}

	// colors before lists - rgb()/hsl() notations carry commas of their own
	if _, err := csscolorparser.Parse(v); err == nil {
		return ValueTypeColor
	}

	if hasTopLevelComma(v) {
		return ValueTypeList
	}

	if dimensionPattern.MatchString(v) {
		return ValueTypeSize
	}

	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return ValueTypeNumber
	}

	return ValueTypeUnknown
}

func hasTopLevelComma(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// referencedVariables lists names of variables used inside a value, in order,
// without duplicates.
func referencedVariables(value string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range varRefPattern.FindAllStringSubmatch(value, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

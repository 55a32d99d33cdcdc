// Package validate checks generated stylesheets: token-aware syntax checks
// that need no external tooling, plus an optional round trip through a real
// compiler binary when one is configured.
package validate

import "time"

// IssueKind classifies a single validation finding.
type IssueKind string

const (
	KindUnbalancedBraces     IssueKind = "unbalanced_braces"
	KindUnterminatedString   IssueKind = "unterminated_string"
	KindMalformedDeclaration IssueKind = "malformed_declaration"
	KindUnknownPseudoElement IssueKind = "unknown_pseudo_element"
	KindRemainingSCSS        IssueKind = "remaining_scss"
	KindCompilationFailed    IssueKind = "compilation_failed"
)

// Issue is one structured validation finding.
type Issue struct {
	Kind    IssueKind
	Message string
	Line    int    // 1-based, 0 when unknown
	Snippet string // offending source excerpt, may be empty
}

// Result is the outcome of validating one stylesheet.
//
// CompilationSuccessful is nil when the compile check did not run (no binary
// configured or none found). A skipped check is never reported as a failure.
type Result struct {
	IsValid               bool
	Errors                []Issue
	Warnings              []Issue
	BalancedBraces        bool
	HasRemainingSCSS      bool
	RemainingTokens       []string
	CompilationSuccessful *bool
	CompilationTime       time.Duration
}

func (r *Result) addError(kind IssueKind, msg string, line int, snippet string) {
	r.Errors = append(r.Errors, Issue{Kind: kind, Message: msg, Line: line, Snippet: snippet})
}

func (r *Result) addWarning(kind IssueKind, msg string, line int, snippet string) {
	r.Warnings = append(r.Warnings, Issue{Kind: kind, Message: msg, Line: line, Snippet: snippet})
}

package validate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Options configures a Validator.
type Options struct {
	CompilerPath string        // sass binary, empty disables the compile check
	Timeout      time.Duration // per-invocation budget for the compile check
}

// Validator runs the syntax check and, when a compiler binary is configured
// and present, the compilation round trip.
type Validator struct {
	opts Options
	log  *zap.Logger
}

// NewValidator creates a validator.
func NewValidator(opts Options, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Validator{opts: opts, log: log.Named("validate")}
}

// Validate runs all applicable checks over one stylesheet.
func (v *Validator) Validate(ctx context.Context, name, content string) *Result {
	r := &Result{}

	v.SyntaxCheck(content, r)
	v.CompileCheck(ctx, name, content, r)

	v.log.Debug("Validation finished",
		zap.String("stylesheet", name),
		zap.Bool("valid", r.IsValid),
		zap.Int("errors", len(r.Errors)),
		zap.Int("warnings", len(r.Warnings)),
		zap.Bool("remaining_scss", r.HasRemainingSCSS))
	return r
}

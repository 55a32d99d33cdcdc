package validate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CompileCheck runs the configured compiler binary over the content with a
// bounded timeout. When no binary is configured or the binary cannot be found
// the check is skipped and CompilationSuccessful stays nil. A skipped check
// never invalidates the result.
func (v *Validator) CompileCheck(ctx context.Context, name, content string, r *Result) {
	if v.opts.CompilerPath == "" {
		return
	}
	bin, err := exec.LookPath(v.opts.CompilerPath)
	if err != nil {
		v.log.Debug("Compiler binary not found, skipping compile check",
			zap.String("binary", v.opts.CompilerPath))
		return
	}

	dir, err := os.MkdirTemp("", "sbm-compile-*")
	if err != nil {
		v.log.Warn("Unable to create temporary directory, skipping compile check", zap.Error(err))
		return
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "check.scss")
	out := filepath.Join(dir, "check.css")
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		v.log.Warn("Unable to write temporary stylesheet, skipping compile check", zap.Error(err))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	start := time.Now()
	output, err := exec.CommandContext(cctx, bin, "--no-source-map", src, out).CombinedOutput()
	r.CompilationTime = time.Since(start)

	ok := err == nil
	r.CompilationSuccessful = &ok
	if !ok {
		r.IsValid = false
		r.addError(KindCompilationFailed, compileErrMessage(cctx, err), 0, clip(string(output)))
	}

	v.log.Debug("Compile check finished",
		zap.String("stylesheet", name),
		zap.Bool("success", ok),
		zap.Duration("elapsed", r.CompilationTime))
}

func compileErrMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "compiler timed out: " + ctx.Err().Error()
	}
	return "compiler rejected stylesheet: " + err.Error()
}

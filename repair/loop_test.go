package repair

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClock struct {
	now    time.Time
	sleeps int
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.now = f.now.Add(d)
	f.sleeps++
	return nil
}

// scriptedLogs replays one tail per call and sticks at the last one.
type scriptedLogs struct {
	tails [][]string
	calls int
}

func (s *scriptedLogs) Tail(ctx context.Context, n int) ([]string, error) {
	i := s.calls
	if i >= len(s.tails) {
		i = len(s.tails) - 1
	}
	s.calls++
	return s.tails[i], nil
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func candidateLeftovers(t *testing.T, watched string) []string {
	t.Helper()
	entries, err := os.ReadDir(watched)
	if err != nil {
		t.Fatal(err)
	}
	var left []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), candidatePrefix) {
			left = append(left, e.Name())
		}
	}
	return left
}

func newTestLoop(watched string, logs LogSource) *Loop {
	return NewLoop(Options{
		WatchedDir:     watched,
		MaxRetries:     3,
		MaxEscalations: 3,
		PollInterval:   time.Second,
		CompileWait:    5 * time.Second,
		CleanupWait:    3 * time.Second,
		LogTail:        50,
	}, &fakeClock{now: time.Unix(1700000000, 0)}, logs, zap.NewNop())
}

func TestLoopSucceedsAfterUndefinedVariableFix(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	file := writeTestFile(t, srcDir, "sb-inside.scss", ".a {\n  color: $brand;\n}\n")

	logs := &scriptedLogs{tails: [][]string{
		{"Error: Undefined variable: $brand on line 2 of sbmtest-x-sb-inside.scss"},
		{"Compilation finished in 0.4s"},
	}}

	out, err := newTestLoop(watched, logs).Run(context.Background(), []string{file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Succeeded || out.State != StateSucceeded {
		t.Fatalf("expected success, got %+v", out)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "color: var(--brand);") {
		t.Errorf("expected repaired content written back, got:\n%s", data)
	}

	if len(out.Attempts) != 1 {
		t.Fatalf("expected one attempt, got %+v", out.Attempts)
	}
	a := out.Attempts[0]
	if a.Outcome != OutcomeSuccess || a.FixesApplied != 1 || a.Aggressive {
		t.Errorf("unexpected attempt record: %+v", a)
	}
	if len(a.Errors) != 1 || a.Errors[0].Kind != ErrUndefinedVariable {
		t.Errorf("expected the undefined_variable error in the transcript, got %+v", a.Errors)
	}

	if left := candidateLeftovers(t, watched); len(left) != 0 {
		t.Errorf("expected cleanup to remove candidates, found %v", left)
	}
}

func TestLoopUndefinedMixinCommentsOutAndReports(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	file := writeTestFile(t, srcDir, "sb-vrp.scss", ".b {\n  @include foo();\n  color: red;\n}\n")

	logs := &scriptedLogs{tails: [][]string{
		{"Error: undefined mixin 'foo' on line 2 of sbmtest-x-sb-vrp.scss"},
		{"Compilation finished in 0.3s"},
	}}

	out, err := newTestLoop(watched, logs).Run(context.Background(), []string{file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Succeeded {
		t.Fatalf("expected success, got %+v", out)
	}

	data, _ := os.ReadFile(file)
	if strings.Contains(string(data), "@include foo") && !strings.Contains(string(data), "/* removed:") {
		t.Errorf("expected foo invocation commented out, got:\n%s", data)
	}
	if len(out.Removed) != 1 {
		t.Fatalf("expected one removal, got %+v", out.Removed)
	}
	if out.Report == "" || !strings.Contains(out.Report, "sb-vrp.scss") {
		t.Errorf("expected review report naming the file, got:\n%s", out.Report)
	}
}

func TestLoopBoundedTermination(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	original := ".a {\n  color: red;\n}\n"
	file := writeTestFile(t, srcDir, "sb-vdp.scss", original)

	// an error generator that never resolves and names no line to fix
	logs := &scriptedLogs{tails: [][]string{
		{"Syntax error: something is deeply wrong"},
	}}

	loop := newTestLoop(watched, logs)
	out, err := loop.Run(context.Background(), []string{file})
	if err == nil {
		t.Fatal("expected a hard failure")
	}
	if out.Succeeded || out.State != StateFailed {
		t.Fatalf("expected failed outcome, got %+v", out)
	}

	maxCycles := loop.opts.MaxRetries + loop.opts.MaxEscalations
	if len(out.Attempts) > maxCycles {
		t.Errorf("expected at most %d cycles, got %d", maxCycles, len(out.Attempts))
	}
	if last := out.Attempts[len(out.Attempts)-1]; last.Outcome != OutcomeExhausted {
		t.Errorf("expected exhausted final attempt, got %+v", last)
	}

	// originals are never touched on failure
	data, _ := os.ReadFile(file)
	if string(data) != original {
		t.Errorf("expected original content untouched, got:\n%s", data)
	}
	if left := candidateLeftovers(t, watched); len(left) != 0 {
		t.Errorf("expected cleanup to remove candidates, found %v", left)
	}
}

func TestLoopFailureStillReportsRemovals(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	file := writeTestFile(t, srcDir, "sb-vrp.scss", ".menu {\n  @include foo();\n}\n")

	// the invocation gets commented out on the first cycle, yet the error
	// never clears - the run must fail AND still hand over the removals
	logs := &scriptedLogs{tails: [][]string{
		{"Error: undefined mixin 'foo' on line 2 of sbmtest-x-sb-vrp.scss"},
	}}

	out, err := newTestLoop(watched, logs).Run(context.Background(), []string{file})
	if err == nil {
		t.Fatal("expected a hard failure")
	}
	if out.Succeeded || out.State != StateFailed {
		t.Fatalf("expected failed outcome, got %+v", out)
	}
	if len(out.Removed) != 1 {
		t.Fatalf("expected the removal recorded, got %+v", out.Removed)
	}
	if out.Report == "" || !strings.Contains(out.Report, "sb-vrp.scss") {
		t.Errorf("expected review report naming the file on failure, got:\n%s", out.Report)
	}
	if !strings.Contains(out.Report, "@include foo();") {
		t.Errorf("expected the removed line listed, got:\n%s", out.Report)
	}

	// originals are never touched on failure
	data, _ := os.ReadFile(file)
	if string(data) != ".menu {\n  @include foo();\n}\n" {
		t.Errorf("expected original content untouched, got:\n%s", data)
	}
}

func TestLoopCancelledContextStillCleansUp(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	file := writeTestFile(t, srcDir, "sb-home.scss", ".a { color: red; }\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logs := &scriptedLogs{tails: [][]string{{"Compilation finished"}}}
	out, err := newTestLoop(watched, logs).Run(ctx, []string{file})
	if err == nil {
		t.Fatal("expected the cancellation to surface")
	}
	if out.Succeeded {
		t.Error("expected no success on cancellation")
	}
	if left := candidateLeftovers(t, watched); len(left) != 0 {
		t.Errorf("expected cleanup despite cancellation, found %v", left)
	}
}

// hookLogs runs a callback on every tail, standing in for the watcher's side
// effects, and always reports the same lines.
type hookLogs struct {
	lines []string
	hook  func()
}

func (h *hookLogs) Tail(ctx context.Context, n int) ([]string, error) {
	if h.hook != nil {
		h.hook()
	}
	return h.lines, nil
}

func TestLoopCompiledFileIsPrimarySignal(t *testing.T) {
	srcDir, watched := t.TempDir(), t.TempDir()
	file := writeTestFile(t, srcDir, "sb-inside.scss", ".a { color: red; }\n")

	// logs never confirm anything; the watcher stand-in drops the compiled
	// css next to any submitted candidate
	logs := &hookLogs{lines: []string{"still building"}}
	logs.hook = func() {
		entries, _ := os.ReadDir(watched)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), candidatePrefix) && strings.HasSuffix(e.Name(), ".scss") {
				css := strings.TrimSuffix(e.Name(), ".scss") + ".css"
				os.WriteFile(filepath.Join(watched, css), []byte(".a{color:red}"), 0o644)
			}
		}
	}

	out, err := newTestLoop(watched, logs).Run(context.Background(), []string{file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Succeeded {
		t.Fatalf("expected success via compiled-file signal, got %+v", out)
	}
	if len(out.Attempts) != 0 {
		t.Errorf("expected no repair attempts, got %+v", out.Attempts)
	}
	if left := candidateLeftovers(t, watched); len(left) != 0 {
		t.Errorf("expected compiled artifact removed too, found %v", left)
	}
}

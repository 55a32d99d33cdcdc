package repair

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// State identifies a position in the verification state machine.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateSuccess
	StateErrorsFound
	StateFixing
	StateAggressiveFixing
	StateSucceeded
	StateFailed
)

var stateNames = map[State]string{
	StateSubmitted:        "submitted",
	StatePolling:          "polling",
	StateSuccess:          "success",
	StateErrorsFound:      "errors-found",
	StateFixing:           "fixing",
	StateAggressiveFixing: "aggressive-fixing",
	StateSucceeded:        "succeeded",
	StateFailed:           "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// AttemptOutcome is how one repair cycle ended.
type AttemptOutcome string

const (
	OutcomeRetry     AttemptOutcome = "retry"
	OutcomeEscalate  AttemptOutcome = "escalate"
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeExhausted AttemptOutcome = "exhausted"
)

// Attempt is the transcript record of one repair cycle. Individual errors are
// never surfaced to the user mid-run, only collected here.
type Attempt struct {
	Index        int
	Aggressive   bool
	Errors       []CompilationError
	FixesApplied int
	Descriptions []string
	Outcome      AttemptOutcome
}

// Outcome is the final result of one verification run.
type Outcome struct {
	Succeeded bool
	State     State
	Attempts  []Attempt
	Removed   []Removal
	Report    string // human review report, non-empty when lines were removed
}

// Options bounds the loop. Zero values fall back to safe defaults.
type Options struct {
	WatchedDir     string
	MaxRetries     int
	MaxEscalations int
	PollInterval   time.Duration // between poll probes
	CompileWait    time.Duration // per-compilation-cycle budget
	CleanupWait    time.Duration // watcher cleanup observation budget
	LogTail        int           // log lines per probe
}

func (o *Options) setDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.MaxEscalations <= 0 {
		o.MaxEscalations = 3
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.CompileWait <= 0 {
		o.CompileWait = 45 * time.Second
	}
	if o.CleanupWait <= 0 {
		o.CleanupWait = 20 * time.Second
	}
	if o.LogTail <= 0 {
		o.LogTail = 200
	}
}

// Loop owns one verification run over a set of already written output files.
type Loop struct {
	opts  Options
	clock Clock
	logs  LogSource
	log   *zap.Logger
}

// NewLoop creates a verification loop. clock and log may be nil.
func NewLoop(opts Options, clock Clock, logs LogSource, log *zap.Logger) *Loop {
	opts.setDefaults()
	if clock == nil {
		clock = NewClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{opts: opts, clock: clock, logs: logs, log: log.Named("repair")}
}

// Run executes the state machine over the given output files. The watched
// directory is always returned to its prior state: candidates and compiled
// artifacts are removed and incidental tracked changes reverted, even on
// cancellation or failure. Repaired content is copied back onto the real
// files only on success.
func (l *Loop) Run(ctx context.Context, files []string) (*Outcome, error) {
	runID := newRunID()
	cands, err := buildCandidates(files, l.opts.WatchedDir, runID)
	if err != nil {
		return nil, err
	}
	l.log.Info("Verification started",
		zap.String("run", runID), zap.Int("files", len(cands)))

	out := &Outcome{}
	defer l.cleanup(ctx, cands)
	// on failure the report is the only record of what the fixers altered,
	// so it is rendered on every exit
	defer func() { out.Report = renderReport(out.Removed) }()

	var lastErrors []CompilationError
	retries, escalations := 0, 0
	aggressive := false
	state := StateSubmitted

	for {
		l.log.Debug("State transition", zap.Stringer("state", state))

		switch state {
		case StateSubmitted:
			if err := submitAll(cands); err != nil {
				out.State = StateFailed
				return out, err
			}
			state = StatePolling

		case StatePolling:
			ok, errs, pollErr := l.poll(ctx, cands)
			if pollErr != nil {
				// cancelled mid-poll, proceed straight to cleanup
				out.State = StateFailed
				return out, pollErr
			}
			lastErrors = errs
			if ok {
				state = StateSuccess
			} else {
				state = StateErrorsFound
			}

		case StateErrorsFound:
			if aggressive {
				state = StateAggressiveFixing
			} else {
				state = StateFixing
			}

		case StateFixing:
			retries++
			attempt := Attempt{Index: len(out.Attempts) + 1, Errors: lastErrors}
			for _, e := range lastErrors {
				for _, c := range cands {
					content, res := applyFix(c.Name, c.Content, e)
					if !res.changed {
						continue
					}
					c.Content = content
					attempt.FixesApplied++
					attempt.Descriptions = append(attempt.Descriptions, res.descriptions...)
					out.Removed = append(out.Removed, res.removals...)
				}
			}
			switch {
			case attempt.FixesApplied == 0:
				// unproductive cycle, no point repeating the tier
				attempt.Outcome = OutcomeEscalate
				aggressive = true
				state = StateAggressiveFixing
			case retries >= l.opts.MaxRetries:
				attempt.Outcome = OutcomeEscalate
				aggressive = true
				state = StateSubmitted
			default:
				attempt.Outcome = OutcomeRetry
				state = StateSubmitted
			}
			out.Attempts = append(out.Attempts, attempt)

		case StateAggressiveFixing:
			if escalations >= l.opts.MaxEscalations {
				if n := len(out.Attempts); n > 0 {
					out.Attempts[n-1].Outcome = OutcomeExhausted
				}
				out.State = StateFailed
				return out, fmt.Errorf("verification failed after %d retries and %d escalations",
					retries, escalations)
			}
			escalations++
			attempt := Attempt{Index: len(out.Attempts) + 1, Aggressive: true, Errors: lastErrors}
			for _, c := range cands {
				content, res := applyAggressiveFixes(c.Name, c.Content)
				if !res.changed {
					continue
				}
				c.Content = content
				attempt.FixesApplied++
				attempt.Descriptions = append(attempt.Descriptions, res.descriptions...)
				out.Removed = append(out.Removed, res.removals...)
			}
			attempt.Outcome = OutcomeRetry
			out.Attempts = append(out.Attempts, attempt)
			state = StateSubmitted

		case StateSuccess:
			if n := len(out.Attempts); n > 0 {
				out.Attempts[n-1].Outcome = OutcomeSuccess
			}
			if err := l.writeBackAll(cands); err != nil {
				out.State = StateFailed
				return out, err
			}
			out.Succeeded = true
			out.State = StateSucceeded
			l.log.Info("Verification succeeded",
				zap.Int("attempts", len(out.Attempts)),
				zap.Int("lines_removed", len(out.Removed)))
			return out, nil
		}
	}
}

func submitAll(cands []*Candidate) error {
	for _, c := range cands {
		if err := c.submit(); err != nil {
			return err
		}
	}
	return nil
}

// poll watches for compile completion within the cycle budget. Compiled file
// existence is the primary signal; a finished log tail free of error
// substrings is accepted as secondary confirmation. Classified errors end the
// cycle early.
func (l *Loop) poll(ctx context.Context, cands []*Candidate) (bool, []CompilationError, error) {
	deadline := l.clock.Now().Add(l.opts.CompileWait)

	for {
		if err := l.clock.Sleep(ctx, l.opts.PollInterval); err != nil {
			return false, nil, err
		}

		if allCompiled(cands) {
			return true, nil, nil
		}

		lines, err := l.logs.Tail(ctx, l.opts.LogTail)
		if err != nil {
			l.log.Debug("Log tail unavailable", zap.Error(err))
		} else {
			if errs := ParseErrors(lines); len(errs) > 0 {
				return false, errs, nil
			}
			if logsLookClean(lines) {
				return true, nil, nil
			}
		}

		if l.clock.Now().After(deadline) {
			l.log.Warn("Compile wait budget exhausted")
			return false, nil, nil
		}
	}
}

func allCompiled(cands []*Candidate) bool {
	for _, c := range cands {
		if !c.compiledExists() {
			return false
		}
	}
	return len(cands) > 0
}

// writeBackAll copies repaired candidate content onto the real files when it
// differs from what was read at the start.
func (l *Loop) writeBackAll(cands []*Candidate) error {
	var errs error
	for _, c := range cands {
		data, err := readSource(c.Source)
		if err == nil && data == c.Content {
			continue
		}
		if err := c.writeBack(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// cleanup returns the watched directory to its prior state. It runs even when
// the caller's context is already cancelled: candidates and compiled
// artifacts are deleted, the watcher's own cleanup cycle is awaited via the
// log tail, and incidental tracked changes are reverted.
func (l *Loop) cleanup(ctx context.Context, cands []*Candidate) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.CleanupWait)
	defer cancel()

	var errs error
	for _, c := range cands {
		errs = multierr.Append(errs, c.remove())
	}

	deadline := l.clock.Now().Add(l.opts.CleanupWait)
	for {
		lines, err := l.logs.Tail(cctx, l.opts.LogTail)
		if err == nil && logsLookClean(lines) {
			break
		}
		if l.clock.Now().After(deadline) {
			l.log.Debug("Watcher cleanup not confirmed within budget")
			break
		}
		if l.clock.Sleep(cctx, l.opts.PollInterval) != nil {
			break
		}
	}

	if out, err := exec.CommandContext(cctx,
		"git", "-C", l.opts.WatchedDir, "checkout", "--", ".").CombinedOutput(); err != nil {
		l.log.Debug("Git revert skipped",
			zap.Error(err), zap.ByteString("output", out))
	}

	if errs != nil {
		l.log.Warn("Candidate cleanup incomplete", zap.Error(errs))
	}
}

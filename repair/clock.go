// Package repair drives the compile-verify-repair loop: it submits candidate
// stylesheets into a directory observed by an external watch-compiler, polls
// for compiled output, parses the compiler's log stream for errors and
// patches the candidates until they compile or the retry budgets run out.
package repair

import (
	"context"
	"time"
)

// Clock abstracts time for the polling loops so tests can run without real
// timers.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is cancelled, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

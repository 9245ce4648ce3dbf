// Package poll runs fixed-interval polling under an explicit, injectable policy.
package poll

//go:generate mockgen -destination=mock_poll.go -package=poll github.com/mil-ad/budsmic/internal/poll Clock

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when a policy gives up without fn reporting done.
var ErrExhausted = errors.New("poll attempts exhausted")

// Clock abstracts time so polling can run against simulated time.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Policy bounds a polling loop. Deadline of zero means no wall-clock bound.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	Deadline    time.Duration
}

// Run sleeps Interval and then calls fn, at most MaxAttempts times. It stops
// early when fn reports done, returns an error, ctx ends, or Deadline passes.
// The returned count is the number of fn calls made.
func (p Policy) Run(ctx context.Context, clock Clock, fn func(attempt int) (bool, error)) (int, error) {
	start := clock.Now()

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := clock.Sleep(ctx, p.Interval); err != nil {
			return attempt - 1, err
		}

		done, err := fn(attempt)
		if err != nil {
			return attempt, err
		}

		if done {
			return attempt, nil
		}

		if p.Deadline > 0 && clock.Now().Sub(start) >= p.Deadline {
			return attempt, ErrExhausted
		}
	}

	return p.MaxAttempts, ErrExhausted
}

// RealClock uses the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

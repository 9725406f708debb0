// Package retry holds the fixed-delay retry policy shared by the remote
// configuration fetch and the telemetry writes.
package retry

import (
	"context"
	"errors"
	"time"
)

// Three attempts, 100 ms apart.
const (
	DefaultAttempts = 3
	DefaultDelay    = 100 * time.Millisecond
)

// Policy retries an operation a bounded number of times with a fixed delay
// between attempts. There is no backoff.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Default returns the policy used when nothing is configured.
func Default() Policy {
	return Policy{MaxAttempts: DefaultAttempts, Delay: DefaultDelay}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, returns a permanent error, or the attempts are
// exhausted. The last error is returned. A canceled ctx stops waiting between
// attempts and is reported together with the last failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}
		if werr := p.wait(ctx); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

func (p Policy) wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

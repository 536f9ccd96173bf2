// Package resilience retries failed network calls with capped exponential
// backoff, deferring to the server's Retry-After when it sends one.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how often and how patiently a call is retried.
type Policy struct {
	Attempts int           // total tries, including the first
	Base     time.Duration // delay before the first retry
	Cap      time.Duration // longest single delay, Retry-After included
	Jitter   float64       // ±fraction applied to computed delays
}

// DefaultPolicy is used for scraping and odds requests.
var DefaultPolicy = Policy{Attempts: 3, Base: time.Second, Cap: 30 * time.Second, Jitter: 0.25}

// WithRetries returns p allowing n retries after the first try. Unset
// fields fall back to DefaultPolicy.
func (p Policy) WithRetries(n int) Policy {
	if p.Base <= 0 {
		p.Base = DefaultPolicy.Base
	}
	if p.Cap <= 0 {
		p.Cap = DefaultPolicy.Cap
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	p.Attempts = max(n, 0) + 1
	return p
}

// delay is the wait before retry number attempt (1-based). A positive
// server hint wins over the computed backoff.
func (p Policy) delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, p.Cap)
	}
	d := p.Cap
	if attempt <= 30 {
		d = min(p.Base<<(attempt-1), p.Cap)
	}
	if p.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * p.Jitter * float64(d))
	}
	return max(d, 0)
}

// RetryableError marks err as worth another try, optionally no sooner than
// After.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so Retry tries again.
func Retryable(err error, after time.Duration) error {
	return &RetryableError{Err: err, After: after}
}

var flakyMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// ShouldRetry reports whether err is marked Retryable or looks like a
// dropped or timed-out connection.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range flakyMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether a response code is worth retrying.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || (code >= 500 && code != http.StatusNotImplemented)
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Missing or unparseable values yield zero.
func RetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// Retry calls fn until it succeeds, fails permanently, runs out of
// attempts, or ctx ends. The last error is returned as is.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p = p.WithRetries(DefaultPolicy.Attempts - 1)
	}

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if attempt >= p.Attempts || ctx.Err() != nil || !ShouldRetry(err) {
			return zero, err
		}

		var hint time.Duration
		var re *RetryableError
		if errors.As(err, &re) {
			hint = re.After
		}
		wait := p.delay(attempt, hint)
		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}

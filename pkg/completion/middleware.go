package completion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// RateLimited paces calls to the wrapped Completer
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with the given burst. A
// non-positive rps disables pacing.
func NewRateLimited(next Completer, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Name implements Completer
func (r *RateLimited) Name() string { return r.next.Name() }

// Complete waits for a token, then delegates
func (r *RateLimited) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Complete(ctx, messages)
}

// WithTimeout bounds each call
type WithTimeout struct {
	next    Completer
	timeout time.Duration
}

// NewWithTimeout wraps next. A non-positive timeout returns next unchanged.
func NewWithTimeout(next Completer, timeout time.Duration) Completer {
	if timeout <= 0 {
		return next
	}
	return &WithTimeout{next: next, timeout: timeout}
}

// Name implements Completer
func (w *WithTimeout) Name() string { return w.next.Name() }

// Complete implements Completer
func (w *WithTimeout) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.next.Complete(ctx, messages)
}

// Retrying retries transient failures with exponential backoff
type Retrying struct {
	next     Completer
	maxTries uint
	initial  time.Duration
	logger   *slog.Logger
}

// NewRetrying wraps next. maxTries counts the first attempt.
func NewRetrying(next Completer, maxTries uint, initial time.Duration, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxTries < 1 {
		maxTries = 1
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return &Retrying{next: next, maxTries: maxTries, initial: initial, logger: logger}
}

// Name implements Completer
func (r *Retrying) Name() string { return r.next.Name() }

// Complete implements Completer. Permanent errors stop immediately.
func (r *Retrying) Complete(ctx context.Context, messages []Message) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = 30 * time.Second

	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := r.next.Complete(ctx, messages)
		if err == nil {
			return out, nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		r.logger.Debug("completion attempt failed", "provider", r.next.Name(), "attempt", attempt, "error", err)
		return "", err
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxTries))
}

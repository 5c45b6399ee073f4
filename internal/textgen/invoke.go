package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultAttempts    = 3
	defaultBackoff     = 500 * time.Millisecond
)

// Invoker wraps a Generator with a per-call timeout, bounded retries with
// exponential backoff for transient failures, and optional throttling.
type Invoker struct {
	gen      Generator
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// InvokerOption customizes an Invoker.
type InvokerOption func(*Invoker)

// WithTimeout bounds every single call.
func WithTimeout(d time.Duration) InvokerOption {
	return func(v *Invoker) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithRetry sets the attempt budget and the base backoff between attempts.
func WithRetry(attempts int, backoff time.Duration) InvokerOption {
	return func(v *Invoker) {
		if attempts > 0 {
			v.attempts = attempts
		}
		if backoff >= 0 {
			v.backoff = backoff
		}
	}
}

// WithRateLimit throttles calls to rps with the given burst; rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) InvokerOption {
	return func(v *Invoker) {
		if rps <= 0 {
			v.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(l *slog.Logger) InvokerOption {
	return func(v *Invoker) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewInvoker builds an Invoker around gen.
func NewInvoker(gen Generator, opts ...InvokerOption) *Invoker {
	v := &Invoker{
		gen:      gen,
		timeout:  defaultCallTimeout,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   slog.New(slog.DiscardHandler),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Ping checks reachability when the generator supports it.
func (v *Invoker) Ping(ctx context.Context) error {
	if v == nil || v.gen == nil {
		return fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}
	p, ok := v.gen.(Pinger)
	if !ok {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	if err := p.Ping(callCtx); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Text performs the call and returns the raw model text.
func (v *Invoker) Text(ctx context.Context, req Request) (string, error) {
	return v.call(ctx, req, nil)
}

// call runs the attempt loop. When decode is set, a reply it rejects as
// malformed counts as a failed attempt.
func (v *Invoker) call(ctx context.Context, req Request, decode func(string) error) (string, error) {
	if v == nil || v.gen == nil {
		return "", fmt.Errorf("%w: no generator configured", ErrUnavailable)
	}

	var lastErr error
	for attempt := 1; attempt <= v.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := v.once(ctx, req)
		if err == nil && decode != nil {
			err = decode(text)
		}
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < v.attempts {
			wait := v.backoff << (attempt - 1)
			v.logger.Warn("text generation retry", "task", req.Task, "attempt", attempt, "wait", wait, "error", err)
			if err := v.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

func (v *Invoker) once(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	text, err := v.gen.Generate(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: call exceeded %s", ErrTransient, v.timeout)
		}
		return "", err
	}
	return text, nil
}

// Invoke performs the call and decodes the response into T. A reply that
// stays malformed after sanitizing is retried like a transient failure.
func Invoke[T any](ctx context.Context, v *Invoker, req Request) (T, error) {
	var out T
	_, err := v.call(ctx, req, func(text string) error {
		decoded, err := Decode[T](text)
		if err != nil {
			return err
		}
		out = decoded
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

package textgen

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestInvokerRetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		if calls.Add(1) < 3 {
			return "", Transient(errors.New("503 service unavailable"))
		}
		return `["ok"]`, nil
	})

	inv := NewInvoker(gen, WithRetry(3, 0))
	got, err := Invoke[[]string](context.Background(), inv, Request{Task: "test"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("unexpected result %v", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestInvokerStopsAfterAttemptBudget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return "", Transient(errors.New("throttled"))
	})

	inv := NewInvoker(gen, WithRetry(2, 0))
	_, err := inv.Text(context.Background(), Request{})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestInvokerDoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return "", errors.New("401 unauthorized")
	})

	inv := NewInvoker(gen, WithRetry(5, 0))
	if _, err := inv.Text(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent error retried: %d calls", calls.Load())
	}
}

func TestInvokerTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	inv := NewInvoker(gen, WithTimeout(10*time.Millisecond), WithRetry(2, 0))
	_, err := inv.Text(context.Background(), Request{})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected timeout classified transient, got %v", err)
	}
}

func TestInvokerMalformedResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return "no structure at all", nil
	})
	_, err := Invoke[[]string](context.Background(), NewInvoker(gen, WithRetry(2, 0)), Request{})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected the malformed reply to use the attempt budget, got %d calls", calls.Load())
	}
}

func TestInvokerRetriesMalformedReply(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	gen := GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		if calls.Add(1) == 1 {
			return "sorry, I cannot", nil
		}
		return `["ok"]`, nil
	})

	got, err := Invoke[[]string](context.Background(), NewInvoker(gen, WithRetry(3, 0)), Request{Task: "test"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(got) != 1 || got[0] != "ok" || calls.Load() != 2 {
		t.Fatalf("expected recovery on second call, got %v after %d calls", got, calls.Load())
	}
}

type pingGenerator struct {
	GeneratorFunc
	err error
}

func (p pingGenerator) Ping(context.Context) error { return p.err }

func TestInvokerPing(t *testing.T) {
	t.Parallel()

	down := pingGenerator{err: errors.New("dial tcp: connection refused")}
	if err := NewInvoker(down).Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := NewInvoker(pingGenerator{}).Ping(context.Background()); err != nil {
		t.Fatalf("healthy ping failed: %v", err)
	}
	if err := NewInvoker(nil).Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("nil generator should be unavailable, got %v", err)
	}
}

func TestRequestPrompt(t *testing.T) {
	t.Parallel()

	prompt, err := Request{
		Context: "Total: 2",
		Items:   []Payload{{ID: "0", Title: "A"}},
	}.Prompt()
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	want := "Total: 2\n\nItems:\n[\n  {\n    \"id\": \"0\",\n    \"title\": \"A\"\n  }\n]"
	if prompt != want {
		t.Fatalf("Prompt = %q", prompt)
	}
}

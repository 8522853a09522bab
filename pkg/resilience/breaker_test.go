package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func succeeding(context.Context) error { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	if err := b.Call(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatal("one failure should not trip")
	}
	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("expected open after threshold")
	}
	if err := b.Call(ctx, succeeding); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Cooldown: time.Minute})
	ctx := context.Background()
	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("expected open")
	}

	clock = clock.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatal("expected half-open after cooldown")
	}

	// Failed probe re-opens immediately.
	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("failed probe should re-open")
	}

	// Successful probe closes.
	clock = clock.Add(2 * time.Minute)
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe should run: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatal("successful probe should close")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	b.Call(ctx, failing)
	b.Call(ctx, succeeding)
	b.Call(ctx, failing)
	if b.State() != StateClosed {
		t.Fatal("interleaved success should reset the failure count")
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != DefaultBreakerOpts.FailThreshold {
		t.Fatal("zero threshold should fall back to default")
	}
	if b.opts.Cooldown != DefaultBreakerOpts.Cooldown {
		t.Fatal("zero cooldown should fall back to default")
	}
}

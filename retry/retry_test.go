package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var (
	errUnavailable = errors.New("upstream unavailable")
	errBadRequest  = errors.New("bad request")
)

func isUnavailable(err error) bool { return errors.Is(err, errUnavailable) }

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		retryIf   func(error) bool
		failures  []error // returned by successive calls before succeeding
		wantCalls int
		wantErr   error
	}{
		{"first call succeeds", 3, isUnavailable, nil, 1, nil},
		{"transient then success", 4, isUnavailable, []error{errUnavailable, errUnavailable}, 3, nil},
		{"permanent error stops", 5, isUnavailable, []error{errBadRequest, errUnavailable}, 1, errBadRequest},
		{"nil RetryIf never retries", 3, nil, []error{errUnavailable}, 1, errUnavailable},
		{"attempts exhausted", 3, isUnavailable, []error{errUnavailable, errUnavailable, errUnavailable, errUnavailable}, 3, errUnavailable},
		{"zero attempts still calls once", 0, isUnavailable, []error{errUnavailable}, 1, errUnavailable},
		{"retryable then permanent", 5, isUnavailable, []error{errUnavailable, errBadRequest}, 2, errBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var retried []int
			cfg := Config{
				MaxAttempts: tt.attempts,
				BaseDelay:   time.Millisecond,
				MaxDelay:    5 * time.Millisecond,
				RetryIf:     tt.retryIf,
				OnRetry:     func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
			}

			calls := 0
			got, err := Do(t.Context(), cfg, func(context.Context) (string, error) {
				calls++
				if calls <= len(tt.failures) {
					return "", tt.failures[calls-1]
				}
				return "ok", nil
			})

			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != "ok" {
				t.Fatalf("result = %q", got)
			}
			if calls != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(retried) != calls-1 {
				t.Fatalf("OnRetry ran %d times for %d calls", len(retried), calls)
			}
			for i, a := range retried {
				if a != i+1 {
					t.Fatalf("OnRetry attempts = %v", retried)
				}
			}
		})
	}
}

func TestDo_RespectsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	cfg := Config{MaxAttempts: 100, BaseDelay: 50 * time.Millisecond, RetryIf: isUnavailable}
	start := time.Now()
	_, err := Do(ctx, cfg, func(context.Context) (int, error) { return 0, errUnavailable })

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 45*time.Millisecond {
		t.Fatal("Do kept sleeping after the deadline")
	}
}

func TestFromRetries(t *testing.T) {
	cfg := FromRetries(2, isUnavailable)
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts: got %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryIf == nil {
		t.Fatal("RetryIf not set")
	}
	if FromRetries(0, nil).MaxAttempts != 1 {
		t.Fatal("zero retries must mean a single attempt")
	}
}

func TestBackoff_ExponentialWithCap(t *testing.T) {
	cfg := Config{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
	}

	d0 := backoff(cfg, 0) // 100ms
	d1 := backoff(cfg, 1) // 200ms
	d2 := backoff(cfg, 2) // 400ms
	d3 := backoff(cfg, 3) // 800ms → capped at 500ms

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 500 * time.Millisecond}
	for i, got := range []time.Duration{d0, d1, d2, d3} {
		if got != want[i] {
			t.Errorf("attempt %d: got %v, want %v", i, got, want[i])
		}
	}
}

type hintedErr struct{ after time.Duration }

func (e hintedErr) Error() string             { return "slow down" }
func (e hintedErr) RetryAfter() time.Duration { return e.after }

func TestDelayFor_PrefersHint(t *testing.T) {
	cfg := Config{
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  2 * time.Second,
	}

	if d := delayFor(cfg, 0, hintedErr{after: time.Second}); d != time.Second {
		t.Fatalf("expected hinted 1s, got %v", d)
	}
	if d := delayFor(cfg, 0, hintedErr{after: time.Minute}); d != 2*time.Second {
		t.Fatalf("expected hint capped at 2s, got %v", d)
	}
	if d := delayFor(cfg, 1, hintedErr{}); d != 20*time.Millisecond {
		t.Fatalf("expected back-off 20ms for empty hint, got %v", d)
	}
	wrapped := fmt.Errorf("clinvar: %w", hintedErr{after: 300 * time.Millisecond})
	if d := delayFor(cfg, 0, wrapped); d != 300*time.Millisecond {
		t.Fatalf("expected hint through wrapping, got %v", d)
	}
}

func TestDo_HonoursHint(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		MaxDelay:    time.Second,
		RetryIf:     func(error) bool { return true },
		OnRetry:     func(_ int, _ error, d time.Duration) { delays = append(delays, d) },
	}

	calls := 0
	_, err := Do(t.Context(), cfg, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, hintedErr{after: 5 * time.Millisecond}
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 5*time.Millisecond {
		t.Fatalf("expected one 5ms delay, got %v", delays)
	}
}

func TestBackoff_ZeroMaxDelayMeansUncapped(t *testing.T) {
	if d := backoff(Config{BaseDelay: time.Second}, 3); d != 8*time.Second {
		t.Fatalf("expected 8s, got %v", d)
	}
}

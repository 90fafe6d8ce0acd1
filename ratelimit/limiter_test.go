package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Keksclan/oncoannot/ratelimit"
)

func TestLimiterBurst(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 3)
	for i := range 3 {
		if !l.Allow() {
			t.Fatalf("request %d refused inside the burst", i)
		}
	}
	if l.Allow() {
		t.Fatal("request allowed after the burst was spent")
	}
}

func TestTakeReportsWait(t *testing.T) {
	// one token every 10s
	l := ratelimit.NewLimiter(0.1, 1)
	if ok, d := l.Take(); !ok || d != 0 {
		t.Fatalf("first Take = (%v, %v)", ok, d)
	}

	ok, d := l.Take()
	if ok {
		t.Fatal("second Take allowed")
	}
	if d <= 9*time.Second || d > 10*time.Second {
		t.Fatalf("wait = %v, want about 10s", d)
	}

	// a refused Take must not consume the next token
	ok, d2 := l.Take()
	if ok || d2 > d {
		t.Fatalf("refusal consumed a token: (%v, %v) after %v", ok, d2, d)
	}
}

func TestTakeZeroBurst(t *testing.T) {
	ok, d := ratelimit.NewLimiter(5, 0).Take()
	if ok || d != 0 {
		t.Fatalf("Take = (%v, %v), want (false, 0)", ok, d)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := ratelimit.NewLimiter(0.001, 1)
	if err := l.Wait(t.Context()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait succeeded with an empty bucket and a short deadline")
	}
}

func TestLimit(t *testing.T) {
	if got := ratelimit.NewLimiter(10, 1).Limit(); got != 10 {
		t.Fatalf("Limit() = %v", got)
	}
}

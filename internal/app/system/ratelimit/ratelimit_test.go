package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowWithinWindow(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two events should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third event should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own window")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Fatalf("Remaining(a) = %d, want 0", got)
	}
	if got := l.Remaining("c"); got != 2 {
		t.Fatalf("Remaining(c) = %d, want 2", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("k") {
		t.Fatal("first event should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second event should be limited")
	}

	now = now.Add(2 * time.Minute)
	if !l.Allow("k") {
		t.Fatal("event after the window should be allowed")
	}
}

func TestLimiter_ResetAndSweep(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("k")
	l.Reset("k")
	if !l.Allow("k") {
		t.Fatal("Reset should clear the window")
	}

	now = now.Add(5 * time.Minute)
	l.sweep()
	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("sweep left %d windows, want 0", n)
	}
	l.Stop()
}

package retry

import (
	"testing"
	"time"
)

var testDelays = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
}

func TestPolicyWalksSchedule(t *testing.T) {
	p := NewPolicy(testDelays, 3, 3*time.Second)
	now := time.Now()

	for i, want := range testDelays {
		delay, ok := p.NoteClosed(now)
		if !ok {
			t.Fatalf("attempt %d: NoteClosed ok = false, want true", i)
		}
		if delay != want {
			t.Errorf("attempt %d: delay = %v, want %v", i, delay, want)
		}
	}

	if _, ok := p.NoteClosed(now); ok {
		t.Error("4th close should exhaust the schedule")
	}
	if !p.Exhausted() {
		t.Error("Exhausted() = false after schedule spent")
	}
}

func TestPolicyExactlyNAttempts(t *testing.T) {
	// N consecutive immediate closes yield exactly N attempts.
	p := NewPolicy(testDelays, len(testDelays), 3*time.Second)
	now := time.Now()

	attempts := 0
	for {
		if _, ok := p.NoteClosed(now); !ok {
			break
		}
		attempts++
		// Simulate accept-then-immediate-close: open for less than the
		// stability window.
		p.NoteOpen(now)
		now = now.Add(10 * time.Millisecond)
	}

	if attempts != len(testDelays) {
		t.Errorf("attempts = %d, want %d", attempts, len(testDelays))
	}
}

func TestPolicyStabilityResetsCounter(t *testing.T) {
	p := NewPolicy(testDelays, 3, 3*time.Second)
	now := time.Now()

	// Burn two attempts.
	p.NoteClosed(now)
	p.NoteClosed(now)
	if p.Attempts() != 2 {
		t.Fatalf("Attempts() = %d, want 2", p.Attempts())
	}

	// Connection stays open past the stability window, then closes: the
	// next delay restarts from index 0.
	p.NoteOpen(now)
	delay, ok := p.NoteClosed(now.Add(3 * time.Second))
	if !ok {
		t.Fatal("NoteClosed ok = false after stable open")
	}
	if delay != testDelays[0] {
		t.Errorf("delay after stable open = %v, want %v", delay, testDelays[0])
	}
}

func TestPolicyShortOpenDoesNotReset(t *testing.T) {
	p := NewPolicy(testDelays, 3, 3*time.Second)
	now := time.Now()

	p.NoteClosed(now)
	p.NoteOpen(now)
	delay, ok := p.NoteClosed(now.Add(time.Second))
	if !ok {
		t.Fatal("NoteClosed ok = false, want true")
	}
	if delay != testDelays[1] {
		t.Errorf("delay = %v, want %v (counter must not reset on short open)", delay, testDelays[1])
	}
}

func TestPolicyStableOpenClearsExhaustion(t *testing.T) {
	p := NewPolicy(testDelays, 3, 3*time.Second)
	now := time.Now()

	for range [4]int{} {
		p.NoteClosed(now)
	}
	if !p.Exhausted() {
		t.Fatal("policy should be exhausted")
	}

	// A manual reconnect that stays stable restores the schedule.
	p.NoteOpen(now)
	if _, ok := p.NoteClosed(now.Add(5 * time.Second)); !ok {
		t.Error("stable open should clear exhaustion and allow retries")
	}
	if p.Exhausted() {
		t.Error("Exhausted() = true after stable open")
	}
}

func TestPolicyCapRepeatsLastDelay(t *testing.T) {
	p := NewPolicy(testDelays, 5, 3*time.Second)
	now := time.Now()

	var last time.Duration
	for i := 0; i < 5; i++ {
		d, ok := p.NoteClosed(now)
		if !ok {
			t.Fatalf("attempt %d unexpectedly exhausted", i)
		}
		last = d
	}
	if last != testDelays[len(testDelays)-1] {
		t.Errorf("overflow delay = %v, want last schedule entry %v", last, testDelays[len(testDelays)-1])
	}
	if _, ok := p.NoteClosed(now); ok {
		t.Error("6th attempt should be refused")
	}
}

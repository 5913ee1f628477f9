// Package retry implements the bounded reconnection policy shared by the
// chat and terminal stream clients.
package retry

import "time"

// Policy tracks reconnect attempts against a finite delay schedule.
//
// The policy is pure: callers feed it open/close timestamps and it answers
// with delays. It never owns a timer, which keeps the stream clients in
// charge of cancellation and makes the policy testable without sleeping.
//
// The attempt counter resets only after a connection has stayed open for the
// stability window. A server that accepts and immediately closes therefore
// burns through the schedule and stops, instead of looping forever.
type Policy struct {
	delays      []time.Duration
	maxAttempts int
	stability   time.Duration

	attempts  int
	exhausted bool
	openedAt  time.Time
	open      bool
}

// NewPolicy creates a policy from a delay schedule, attempt cap, and
// stability window. An attempt cap above the schedule length repeats the
// last delay for the extra attempts.
func NewPolicy(delays []time.Duration, maxAttempts int, stability time.Duration) *Policy {
	ds := make([]time.Duration, len(delays))
	copy(ds, delays)
	if maxAttempts <= 0 {
		maxAttempts = len(ds)
	}
	return &Policy{
		delays:      ds,
		maxAttempts: maxAttempts,
		stability:   stability,
	}
}

// NoteOpen records that a connection opened at now.
func (p *Policy) NoteOpen(now time.Time) {
	p.open = true
	p.openedAt = now
}

// NoteClosed records that the connection closed at now and returns the delay
// before the next automatic attempt. ok is false when the schedule is
// exhausted; the caller must then wait for an explicit trigger.
//
// If the connection had been open for at least the stability window, the
// attempt counter (and any exhaustion) is cleared first, so the next delay
// restarts from the front of the schedule.
func (p *Policy) NoteClosed(now time.Time) (delay time.Duration, ok bool) {
	if p.open && now.Sub(p.openedAt) >= p.stability {
		p.attempts = 0
		p.exhausted = false
	}
	p.open = false

	if p.exhausted || p.attempts >= p.maxAttempts {
		p.exhausted = true
		return 0, false
	}

	idx := p.attempts
	if idx >= len(p.delays) {
		idx = len(p.delays) - 1
	}
	p.attempts++
	return p.delays[idx], true
}

// Exhausted reports whether automatic retries are spent.
func (p *Policy) Exhausted() bool {
	return p.exhausted
}

// Attempts returns the attempts used since the last reset.
func (p *Policy) Attempts() int {
	return p.attempts
}

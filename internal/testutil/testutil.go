// Package testutil provides shared test utilities and mocks for crewdeck
// tests: scripted stream servers, a fake orchestration REST server, and
// capability mocks.
package testutil

import (
	"testing"
	"time"
)

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// FastRetryDelays is a short schedule for tests.
var FastRetryDelays = []time.Duration{
	2 * time.Millisecond,
	4 * time.Millisecond,
	8 * time.Millisecond,
}

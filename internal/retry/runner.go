package retry

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Decision is the outcome of a connection close.
type Decision int

const (
	// DecisionRetry means an attempt timer was armed.
	DecisionRetry Decision = iota
	// DecisionExhausted means the schedule is spent; only an explicit
	// trigger reconnects now.
	DecisionExhausted
	// DecisionFinished means the owning session reached a terminal status;
	// the close is expected and nothing will be retried.
	DecisionFinished
	// DecisionStopped means the runner was stopped (client disposed).
	DecisionStopped
)

// Runner drives a Policy with real timers on behalf of one stream client.
//
// finished gates every retry on the owning session's last-known status: a
// completed session's transport closing is not a failure. attempt always runs
// on its own goroutine, whether a timer or a manual trigger fired it; the
// caller is responsible for its own generation checks.
type Runner struct {
	mu       sync.Mutex
	policy   *Policy
	finished func() bool
	attempt  func()
	timer    *time.Timer
	stopped  bool
}

// NewRunner creates a runner around policy. finished may be nil when no
// session gates the stream (e.g. a scope-level terminal).
func NewRunner(policy *Policy, finished func() bool, attempt func()) *Runner {
	return &Runner{
		policy:   policy,
		finished: finished,
		attempt:  attempt,
	}
}

// Opened records a successful connect.
func (r *Runner) Opened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy.NoteOpen(time.Now())
}

// Closed records a connection close and, when the policy allows, arms the
// next attempt timer. Returns what was decided and the armed delay.
func (r *Runner) Closed() (Decision, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return DecisionStopped, 0
	}
	if r.finished != nil && r.finished() {
		return DecisionFinished, 0
	}

	delay, ok := r.policy.NoteClosed(time.Now())
	if !ok {
		log.Debug().Int("attempts", r.policy.Attempts()).Msg("retry schedule exhausted")
		return DecisionExhausted, 0
	}

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(delay, r.attempt)
	return DecisionRetry, delay
}

// TriggerManual fires one attempt immediately if the schedule is exhausted.
// Returns false when nothing fired (not exhausted, finished, or stopped).
func (r *Runner) TriggerManual() bool {
	r.mu.Lock()
	if r.stopped || !r.policy.Exhausted() || (r.finished != nil && r.finished()) {
		r.mu.Unlock()
		return false
	}
	attempt := r.attempt
	r.mu.Unlock()

	// Off the caller's goroutine: the attempt may block for the life of the
	// reopened stream, and manual triggers come from UI input handlers.
	go attempt()
	return true
}

// Exhausted reports whether automatic retries are spent.
func (r *Runner) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy.Exhausted()
}

// Stop cancels any pending attempt timer. Safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

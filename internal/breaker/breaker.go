// Package breaker guards the job-creation paths with named in-process
// circuit breakers.
package breaker

import (
	"sync"
	"time"
)

// Names of the job-creation paths guarded by the orchestrator.
const (
	OCRJobCreation     = "ocr_job_creation"
	BankingJobCreation = "banking_job_creation"
)

// State is the externally visible breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Observer is notified on every state change. It must not call back into the breaker.
type Observer func(name string, from, to State)

// Breaker counts consecutive failures. Reaching the threshold opens it for
// the cooldown; after the cooldown exactly one trial call is let through.
// The trial's success closes the breaker, its failure reopens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	observer  Observer

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// New returns a closed breaker. threshold below 1 is treated as 1.
func New(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

// CanRequest reports whether a call may proceed. In the half-open state only
// the first caller gets true until that trial is recorded.
func (b *Breaker) CanRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return true
	default:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
}

// RecordSuccess closes the breaker and resets the failure run.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.trialInFlight = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// Release ends a call that says nothing about the dependency's health. A
// half-open trial slot is freed for the next caller; state and the failure
// run are left as they are.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
}

// RecordFailure extends the failure run and opens the breaker when the run
// reaches the threshold, or immediately when the failed call was the trial.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		if b.failures >= b.threshold {
			b.trip()
		}
	case StateOpen:
		// a call admitted before the trip finished late; restart the cooldown
		b.openedAt = b.now()
	}
}

// State returns the current state without advancing it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the length of the current failure run.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.trialInFlight = false
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.observer != nil && from != to {
		b.observer(b.name, from, to)
	}
}

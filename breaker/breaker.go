// Package breaker implements the per-provider circuit breaker of the HTTP
// client. A provider that keeps failing is skipped for OpenTimeout instead
// of costing every variant a full timeout and retry budget.
//
// Closed counts consecutive failures and trips to Open at
// FailureThreshold. Open refuses work until OpenTimeout has passed, then
// becomes HalfOpen. HalfOpen hands out at most HalfOpenMaxSuccess probe
// slots; enough successes close the breaker and a single failure reopens
// it.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by callers that refuse work while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker's position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Config holds the breaker parameters. Thresholds below one are treated as
// one.
type Config struct {
	FailureThreshold   int
	OpenTimeout        time.Duration
	HalfOpenMaxSuccess int

	// OnStateChange runs with the breaker lock held after every
	// transition and must not call back into the breaker.
	OnStateChange func(from, to State)
}

// DefaultConfig trips after five consecutive failures and probes again
// after thirty seconds.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, OpenTimeout: 30 * time.Second, HalfOpenMaxSuccess: 1}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg   Config
	clock func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int // slots handed out since entering HalfOpen
	openedAt  time.Time
}

// New returns a closed Breaker.
func New(cfg Config) *Breaker {
	cfg.FailureThreshold = max(cfg.FailureThreshold, 1)
	cfg.HalfOpenMaxSuccess = max(cfg.HalfOpenMaxSuccess, 1)
	return &Breaker{cfg: cfg, clock: time.Now}
}

// State returns the current state, moving Open to HalfOpen once the open
// timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()
	return b.state
}

// Allow reports whether a call may proceed. In HalfOpen each true result
// consumes a probe slot.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expire()

	switch b.state {
	case Closed:
		return true
	case HalfOpen:
		if b.probes >= b.cfg.HalfOpenMaxSuccess {
			return false
		}
		b.probes++
		return true
	}
	return false
}

// OnSuccess records a call that reached the provider.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		if b.successes++; b.successes >= b.cfg.HalfOpenMaxSuccess {
			b.moveTo(Closed)
		}
	}
}

// OnFailure records a transient provider failure.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		if b.failures++; b.failures >= b.cfg.FailureThreshold {
			b.moveTo(Open)
		}
	case HalfOpen:
		b.moveTo(Open)
	}
}

// Release returns a HalfOpen probe slot for a call that ended without an
// answer, e.g. because the caller gave up. It changes nothing else.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen && b.probes > 0 {
		b.probes--
	}
}

// expire requires b.mu.
func (b *Breaker) expire() {
	if b.state == Open && b.clock().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.moveTo(HalfOpen)
	}
}

// moveTo resets the counters of the state being entered. Requires b.mu.
func (b *Breaker) moveTo(to State) {
	from := b.state
	b.state = to
	b.failures, b.successes, b.probes = 0, 0, 0
	if to == Open {
		b.openedAt = b.clock()
	}
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds breaker thresholds
type Config struct {
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state counter reset period; 0 keeps counts forever
	Timeout          time.Duration // open duration before probing
	FailureThreshold uint32        // consecutive failures that open the breaker
	SuccessThreshold uint32        // consecutive half-open successes that close it
	OnStateChange    func(name string, from, to State)
}

// DefaultConfig suits a best-effort cache backend
func DefaultConfig() Config {
	return Config{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	}
}

type counts struct {
	requests             uint32
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
}

// Breaker stops calling a failing dependency for a while. Calls made while it
// is open fail fast with ErrOpen.
type Breaker struct {
	name   string
	config Config
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	counts     counts
	expiry     time.Time
	now        func() time.Time
}

func New(name string, config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Breaker{name: name, config: config, logger: logger, now: time.Now}
	b.newGeneration(b.now())
	return b
}

func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the breaker is open. fn's error counts as a failure.
func (b *Breaker) Execute(fn func() error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			b.after(gen, false)
			panic(r)
		}
	}()
	err = fn()
	b.after(gen, err == nil)
	return err
}

// State returns the current state, advancing open → half-open when due
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, _ := b.current(b.now())
	return st
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, gen := b.current(b.now())
	switch {
	case st == StateOpen:
		return gen, ErrOpen
	case st == StateHalfOpen && b.counts.requests >= b.config.MaxRequests:
		return gen, ErrTooManyRequests
	}
	b.counts.requests++
	return gen, nil
}

func (b *Breaker) after(gen uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, cur := b.current(now)
	if cur != gen {
		return
	}
	if ok {
		b.counts.consecutiveFailures = 0
		b.counts.consecutiveSuccesses++
		if st == StateHalfOpen && b.counts.consecutiveSuccesses >= b.config.SuccessThreshold {
			b.setState(StateClosed, now)
		}
		return
	}
	b.counts.consecutiveSuccesses = 0
	b.counts.consecutiveFailures++
	if st == StateHalfOpen || b.counts.consecutiveFailures >= b.config.FailureThreshold {
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) current(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.newGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) setState(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.newGeneration(now)

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, from, to)
	}
	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = counts{}
	switch b.state {
	case StateClosed:
		if b.config.Interval > 0 {
			b.expiry = now.Add(b.config.Interval)
		} else {
			b.expiry = time.Time{}
		}
	case StateOpen:
		b.expiry = now.Add(b.config.Timeout)
	default:
		b.expiry = time.Time{}
	}
}

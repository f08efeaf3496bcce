package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a provider breaker.
type BreakerState int

const (
	// StateClosed lets fetches through.
	StateClosed BreakerState = iota
	// StateOpen rejects fetches until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets probe fetches through to test recovery.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrBreakerOpen is returned, wrapped with the provider name, when a fetch is
// rejected by an open breaker.
var ErrBreakerOpen = eris.New("breaker open")

// BreakerConfig controls a provider breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	Threshold int

	// Cooldown is how long an open breaker rejects fetches before letting a
	// probe through. Default: 30s.
	Cooldown time.Duration

	// Probes is the number of successful half-open fetches needed to close
	// again. Default: 1.
	Probes int

	// Trips decides whether an error counts as a provider failure. If nil,
	// every error except caller cancellation counts.
	Trips func(err error) bool

	// OnTransition is called with the provider name on every state change.
	OnTransition func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns the breaker settings used for fetch providers.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second, Probes: 1}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.Probes <= 0 {
		c.Probes = d.Probes
	}
	if c.Trips == nil {
		c.Trips = providerFault
	}
	return c
}

// providerFault reports whether err reflects on the provider. A fetch the
// caller abandoned says nothing about the provider's health.
func providerFault(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Breaker tracks consecutive failures of one fetch provider.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probes   int
}

// NewBreaker creates a closed breaker for the named provider.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// Name returns the provider the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state. An open breaker whose cooldown has
// elapsed reports half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooled() {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Allow returns ErrBreakerOpen while the breaker is open and cooling down.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return nil
	}
	if !b.cooled() {
		return eris.Wrapf(ErrBreakerOpen, "provider %s", b.name)
	}
	b.moveTo(StateHalfOpen)
	return nil
}

// Record updates the breaker with the outcome of one fetch.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cfg.Trips(err) {
		switch b.state {
		case StateHalfOpen:
			b.probes++
			if b.probes >= b.cfg.Probes {
				b.failures = 0
				b.moveTo(StateClosed)
			}
		case StateClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.Threshold {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

func (b *Breaker) cooled() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.moveTo(StateOpen)
}

func (b *Breaker) moveTo(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.probes = 0

	log := zap.L().With(zap.String("provider", b.name), zap.Stringer("from", from), zap.Stringer("to", to))
	if to == StateOpen {
		log.Warn("resilience: provider breaker opened", zap.Int("failures", b.failures), zap.Duration("cooldown", b.cfg.Cooldown))
	} else {
		log.Info("resilience: provider breaker state changed")
	}
	if b.cfg.OnTransition != nil {
		b.cfg.OnTransition(b.name, from, to)
	}
}

// Guard runs fn if the breaker allows it and records the outcome.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := b.Allow(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn(ctx)
	b.Record(err)
	return v, err
}

// Breakers hands out one breaker per provider name.
type Breakers struct {
	cfg BreakerConfig

	mu     sync.Mutex
	byName map[string]*Breaker
}

// NewBreakers creates a breaker set sharing cfg.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, byName: make(map[string]*Breaker)}
}

// For returns the breaker for provider, creating it on first use.
func (bs *Breakers) For(provider string) *Breaker {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b, ok := bs.byName[provider]
	if !ok {
		b = NewBreaker(provider, bs.cfg)
		bs.byName[provider] = b
	}
	return b
}

// States returns the state of every breaker handed out so far.
func (bs *Breakers) States() map[string]BreakerState {
	bs.mu.Lock()
	all := make([]*Breaker, 0, len(bs.byName))
	for _, b := range bs.byName {
		all = append(all, b)
	}
	bs.mu.Unlock()

	out := make(map[string]BreakerState, len(all))
	for _, b := range all {
		out[b.name] = b.State()
	}
	return out
}

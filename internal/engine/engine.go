package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/gpures/internal/reservation"
	"github.com/roach88/gpures/internal/store"
)

// DefaultMaxAttempts bounds how many times an admission or negotiation is
// re-run after observing a stale conflict set.
const DefaultMaxAttempts = 3

// ErrInconsistent marks stored negotiation state that breaks an engine
// invariant, such as a need_confirm reservation without exactly one open
// displace record. It is never retried.
var ErrInconsistent = errors.New("engine: inconsistent negotiation state")

// Store is the persistence surface the engine needs. Implemented by
// *store.Store.
type Store interface {
	InTx(ctx context.Context, fn func(*store.Tx) error) error
	Get(ctx context.Context, id string) (reservation.Reservation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]reservation.Reservation, error)
	Events(ctx context.Context, reservationID string) ([]reservation.Event, error)
}

// Catalog answers whether a resource exists and accepts reservations.
// Implemented by *catalog.Catalog.
type Catalog interface {
	Exists(resourceID string) bool
}

// Engine admits reservations and runs the accept/dispute negotiation.
//
// Every mutating operation is one store transaction. Operations on the same
// resource are also serialized in-process by a per-resource lock, so the
// conflict set read at the start of a transaction is still current when it
// commits. Version checks on every update catch anything that slips past.
//
// Thread-safety: all exported methods are safe for concurrent use.
type Engine struct {
	store         Store
	catalog       Catalog
	clock         Clock
	keys          KeyGenerator
	policy        Policy
	maxAttempts   int
	pastTolerance time.Duration
	locks         *resourceLocks
	logger        *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithKeyGenerator sets the generator used when a caller omits the
// idempotency key. Default: UUIDv7Generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(e *Engine) {
		e.keys = g
	}
}

// WithPolicy sets the conflict policy. Default: ElderPolicy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithMaxAttempts sets how many times a transaction that observed a stale
// conflict set is re-run. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// WithPastTolerance allows intervals that started at most d ago, to absorb
// clock skew between the caller and the engine.
func WithPastTolerance(d time.Duration) Option {
	return func(e *Engine) {
		e.pastTolerance = d
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over the given store and resource catalog.
func New(s Store, c Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		catalog:     c,
		clock:       SystemClock{},
		keys:        UUIDv7Generator{},
		policy:      ElderPolicy{},
		maxAttempts: DefaultMaxAttempts,
		locks:       newResourceLocks(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the configured conflict policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

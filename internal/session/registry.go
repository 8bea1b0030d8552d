package session

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

const defaultIdleTimeout = 30 * time.Minute

// DiscardHook is called with the final snapshot of a session that was dropped
// by idle expiry, Reset or Remove. It is where held reservations get released.
type DiscardHook func(s Session)

// Registry owns every live conversation session. Calls for one user are
// serialized; calls for different users never wait on each other beyond the
// brief map lookup.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	clock     clock.Clock
	idle      time.Duration
	onDiscard DiscardHook
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
}

type entry struct {
	mu      sync.Mutex
	sess    *Session
	fresh   bool
	removed bool
}

type Option func(*Registry)

func WithDiscardHook(fn DiscardHook) Option {
	return func(r *Registry) {
		r.onDiscard = fn
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(clk clock.Clock, idleTimeout time.Duration, opts ...Option) *Registry {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	r := &Registry{
		entries: make(map[string]*entry),
		clock:   clk,
		idle:    idleTimeout,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn with exclusive access to the user's session, creating it on the
// first interaction. created is true for a brand new session, including one
// that replaced an idle-expired session. A session left in a terminal state
// is destroyed when fn returns.
//
// fn must not call back into the registry for the same user.
func (r *Registry) Do(ctx context.Context, userID string, fn func(s *Session, created bool) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := r.acquire(userID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		created := e.fresh
		e.fresh = false

		now := r.clock.Now()
		if !created && now.Sub(e.sess.LastActivity) >= r.idle {
			r.discard(e.sess, "idle")
			e.sess = newSession(userID, now)
			created = true
		}

		err := fn(e.sess, created)
		e.sess.LastActivity = r.clock.Now()

		if e.sess.State.Terminal() {
			r.drop(userID, e)
		}
		e.mu.Unlock()
		return err
	}
}

// Get returns a snapshot of the user's session, creating it if absent.
func (r *Registry) Get(userID string) Session {
	for {
		e := r.acquire(userID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		snap := e.sess.Snapshot()
		e.mu.Unlock()
		return snap
	}
}

// Peek returns a snapshot without creating or touching the session.
func (r *Registry) Peek(userID string) (Session, bool) {
	r.mu.Lock()
	e, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return Session{}, false
	}
	return e.sess.Snapshot(), true
}

// Reset replaces the user's session with a fresh one at the initial state.
// The next message is treated as the first interaction.
func (r *Registry) Reset(userID string) Session {
	for {
		e := r.acquire(userID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		if !e.fresh {
			r.discard(e.sess, "reset")
			e.sess = newSession(userID, r.clock.Now())
			e.fresh = true
		}
		snap := e.sess.Snapshot()
		e.mu.Unlock()
		return snap
	}
}

// Remove destroys the user's session. It reports whether one existed.
func (r *Registry) Remove(userID string) bool {
	r.mu.Lock()
	e, ok := r.entries[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	r.discard(e.sess, "removed")
	r.drop(userID, e)
	return true
}

// SweepExpired destroys sessions idle for at least the timeout at now.
// Sessions currently being processed are skipped. Returns how many were
// destroyed.
func (r *Registry) SweepExpired(now time.Time) int {
	var expired []*Session

	r.mu.Lock()
	for userID, e := range r.entries {
		if !e.mu.TryLock() {
			continue
		}
		if !e.removed && now.Sub(e.sess.LastActivity) >= r.idle {
			e.removed = true
			delete(r.entries, userID)
			expired = append(expired, e.sess)
		}
		e.mu.Unlock()
	}
	active := len(r.entries)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(active)
	for _, s := range expired {
		r.discard(s, "idle")
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) acquire(userID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[userID]; ok {
		return e
	}
	e := &entry{sess: newSession(userID, r.clock.Now()), fresh: true}
	r.entries[userID] = e
	r.metrics.SetActiveSessions(len(r.entries))
	return e
}

// drop unlinks e; the caller holds e.mu.
func (r *Registry) drop(userID string, e *entry) {
	e.removed = true
	r.mu.Lock()
	if current, ok := r.entries[userID]; ok && current == e {
		delete(r.entries, userID)
	}
	r.metrics.SetActiveSessions(len(r.entries))
	r.mu.Unlock()
}

func (r *Registry) discard(s *Session, reason string) {
	r.logger.Info("session discarded", "user_id", s.UserID, "state", s.State.String(), "reason", reason)
	if r.onDiscard != nil {
		r.onDiscard(s.Snapshot())
	}
}

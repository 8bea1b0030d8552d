package availability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

const defaultGracePeriod = 5 * time.Minute

// SlotKey identifies one bookable slot.
type SlotKey struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DoctorID, k.Date, k.Time)
}

// Token is an exclusive, time-limited hold on a slot.
type Token struct {
	ID        string    `json:"id"`
	Key       SlotKey   `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the hold lapsed at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SlotSource yields the ordered slot template for a doctor and date.
type SlotSource interface {
	SlotTemplate(doctorID, date string) ([]string, error)
}

type slotState struct {
	tokenID   string
	expiresAt time.Time
	confirmed bool
	bookingID string
}

func (s *slotState) live(now time.Time) bool {
	return s.confirmed || now.Before(s.expiresAt)
}

// Engine tracks held and confirmed slots. All mutations go through one lock so
// two callers can never both win the same SlotKey.
type Engine struct {
	mu      sync.RWMutex
	slots   map[SlotKey]*slotState
	source  SlotSource
	clock   clock.Clock
	grace   time.Duration
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

type Option func(*Engine)

// WithGracePeriod overrides the default reservation lifetime.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.grace = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(source SlotSource, clk clock.Clock, opts ...Option) *Engine {
	if source == nil {
		panic("availability: slot source cannot be nil")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	e := &Engine{
		slots:  make(map[SlotKey]*slotState),
		source: source,
		clock:  clk,
		grace:  defaultGracePeriod,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GracePeriod is the lifetime given to new tokens.
func (e *Engine) GracePeriod() time.Duration {
	return e.grace
}

// FreeSlots returns the template for doctorID on date minus live holds and
// confirmed bookings. Holds past their expiry count as free even before the
// sweeper removes them.
func (e *Engine) FreeSlots(doctorID, date string) ([]string, error) {
	template, err := e.source.SlotTemplate(doctorID, date)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	free := make([]string, 0, len(template))
	for _, label := range template {
		st, ok := e.slots[SlotKey{DoctorID: doctorID, Date: date, Time: label}]
		if ok && st.live(now) {
			continue
		}
		free = append(free, label)
	}
	return free, nil
}

// TryReserve places an exclusive hold on key.
func (e *Engine) TryReserve(key SlotKey) (Token, error) {
	template, err := e.source.SlotTemplate(key.DoctorID, key.Date)
	if err != nil {
		return Token{}, err
	}
	if !contains(template, key.Time) {
		return Token{}, fmt.Errorf("%w: %s", ErrUnknownSlot, key)
	}

	now := e.clock.Now()

	e.mu.Lock()
	if st, ok := e.slots[key]; ok && st.live(now) {
		e.mu.Unlock()
		e.metrics.ObserveReservation("taken")
		return Token{}, ErrAlreadyTaken
	}
	tok := Token{
		ID:        uuid.NewString(),
		Key:       key,
		ExpiresAt: now.Add(e.grace),
	}
	e.slots[key] = &slotState{tokenID: tok.ID, expiresAt: tok.ExpiresAt}
	e.mu.Unlock()

	e.metrics.ObserveReservation("reserved")
	e.logger.Debug("slot reserved", "doctor_id", key.DoctorID, "date", key.Date, "time", key.Time, "token_id", tok.ID)
	return tok, nil
}

// Release drops the hold owned by tok. Releasing twice, or releasing a token
// whose hold already expired or was finalized, is a no-op.
func (e *Engine) Release(tok Token) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.slots[tok.Key]
	if !ok || st.confirmed || st.tokenID != tok.ID {
		return
	}
	delete(e.slots, tok.Key)
	e.logger.Debug("slot released", "doctor_id", tok.Key.DoctorID, "date", tok.Key.Date, "time", tok.Key.Time, "token_id", tok.ID)
}

// Validate reports whether tok still holds its slot.
func (e *Engine) Validate(tok Token) error {
	now := e.clock.Now()
	if tok.Expired(now) {
		return ErrTokenExpired
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.slots[tok.Key]
	if !ok || st.tokenID != tok.ID {
		return ErrTokenNotFound
	}
	return nil
}

// Finalize converts the hold owned by tok into a confirmed booking. A token at
// or past its expiry fails with ErrTokenExpired whether or not it was swept.
func (e *Engine) Finalize(tok Token, bookingID string) error {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.slots[tok.Key]
	if ok && st.confirmed && st.tokenID == tok.ID {
		if st.bookingID == bookingID {
			return nil
		}
		return fmt.Errorf("%w: token already finalized as %s", ErrAlreadyTaken, st.bookingID)
	}
	if tok.Expired(now) {
		return ErrTokenExpired
	}
	if !ok || st.tokenID != tok.ID {
		return ErrTokenNotFound
	}

	st.confirmed = true
	st.bookingID = bookingID
	return nil
}

// Revert frees a slot finalized under bookingID. It reports whether anything
// was released.
func (e *Engine) Revert(key SlotKey, bookingID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.slots[key]
	if !ok || !st.confirmed || st.bookingID != bookingID {
		return false
	}
	delete(e.slots, key)
	e.logger.Info("slot reverted", "doctor_id", key.DoctorID, "date", key.Date, "time", key.Time, "booking_id", bookingID)
	return true
}

// Seed marks slots that the appointment store already holds as confirmed.
func (e *Engine) Seed(keys []SlotKey) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, key := range keys {
		e.slots[key] = &slotState{confirmed: true}
	}
}

// SweepExpired removes holds whose grace period lapsed and returns how many.
func (e *Engine) SweepExpired(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for key, st := range e.slots {
		if st.confirmed || now.Before(st.expiresAt) {
			continue
		}
		delete(e.slots, key)
		removed++
	}
	return removed
}

// Stats returns the number of live holds and confirmed slots.
func (e *Engine) Stats() (held, confirmed int) {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, st := range e.slots {
		switch {
		case st.confirmed:
			confirmed++
		case now.Before(st.expiresAt):
			held++
		}
	}
	return held, confirmed
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

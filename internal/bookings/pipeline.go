package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

var bookingsTracer = otel.Tracer("clinic.internal.bookings")

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 200 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	recordRetention    = time.Hour
)

// Pipeline turns a live reservation into a confirmed, persisted booking.
//
// On a store write that still fails after the retry budget the pipeline rolls
// back: the finalized slot is reverted to free, the booking is marked Failed
// and a *CommitError is returned. The caller may reserve again and retry.
type Pipeline struct {
	engine      *availability.Engine
	store       Store
	clock       clock.Clock
	ids         *IDGenerator
	loc         *time.Location
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	dispatcher  Dispatcher
	logger      *logging.Logger
	metrics     *metrics.BookingMetrics

	mu      sync.Mutex
	records map[string]*commitRecord
}

type commitRecord struct {
	mu        sync.Mutex
	expiresAt time.Time
	booking   *Booking
}

type PipelineOption func(*Pipeline)

// WithRetry sets the number of store attempts and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			p.baseDelay = baseDelay
		}
	}
}

func WithDispatcher(d Dispatcher) PipelineOption {
	return func(p *Pipeline) {
		p.dispatcher = d
	}
}

func WithLogger(logger *logging.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithIDGenerator(ids *IDGenerator) PipelineOption {
	return func(p *Pipeline) {
		if ids != nil {
			p.ids = ids
		}
	}
}

// WithLocation sets the clinic timezone used to compute Booking.StartsAt.
func WithLocation(loc *time.Location) PipelineOption {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func NewPipeline(engine *availability.Engine, store Store, clk clock.Clock, opts ...PipelineOption) *Pipeline {
	if engine == nil {
		panic("bookings: availability engine required")
	}
	if store == nil {
		panic("bookings: appointment store required")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	p := &Pipeline{
		engine:      engine,
		store:       store,
		clock:       clk,
		loc:         time.UTC,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		logger:      logging.Default(),
		records:     make(map[string]*commitRecord),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ids == nil {
		p.ids = NewIDGenerator(clk)
	}
	return p
}

// Commit finalizes tok and persists the booking described by req. A repeated
// Commit for a token that already produced a confirmed booking returns that
// booking without writing again.
func (p *Pipeline) Commit(ctx context.Context, req AppointmentRequest, tok availability.Token) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", tok.Key.DoctorID),
		attribute.String("clinic.slot", tok.Key.String()),
	)

	if req.Slot != tok.Key {
		return nil, fmt.Errorf("%w: request %s, token %s", ErrSlotMismatch, req.Slot, tok.Key)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec := p.record(tok)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.booking != nil {
		p.metrics.ObserveCommit("duplicate")
		out := rec.booking.clone()
		return &out, nil
	}

	id := req.BookingID
	if id == "" {
		id = p.ids.Next()
	}
	now := p.clock.Now()
	booking := Booking{
		ID:         id,
		UserID:     req.UserID,
		Status:     StatusPending,
		Slot:       req.Slot,
		DoctorName: req.Doctor.Name,
		Specialty:  req.Doctor.Specialty,
		Fee:        req.Doctor.Fee,
		Patient:    req.Patient,
		CreatedAt:  now,
	}
	if starts, err := catalog.SlotStart(req.Slot.Date, req.Slot.Time, p.loc); err == nil {
		booking.StartsAt = starts
	}
	span.SetAttributes(attribute.String("clinic.booking_id", booking.ID))

	if err := p.engine.Finalize(tok, booking.ID); err != nil {
		booking.Status = StatusFailed
		p.forget(tok.ID)
		outcome := "rejected"
		if errors.Is(err, availability.ErrTokenExpired) {
			outcome = "expired"
		}
		p.metrics.ObserveCommit(outcome)
		span.RecordError(err)
		p.logger.Warn("booking finalize failed", "booking_id", booking.ID, "token_id", tok.ID, "error", err)
		return nil, &CommitError{Booking: &booking, Err: err}
	}

	if err := p.appendWithRetry(ctx, booking); err != nil {
		p.engine.Revert(tok.Key, booking.ID)
		booking.Status = StatusFailed
		p.forget(tok.ID)
		p.metrics.ObserveCommit("store_failed")
		span.RecordError(err)
		p.logger.Error("booking rolled back after store failure", "booking_id", booking.ID, "user_id", req.UserID, "error", err)
		return nil, &CommitError{Booking: &booking, Err: err}
	}

	booking.Status = StatusConfirmed
	stored := booking.clone()
	rec.booking = &stored

	p.metrics.ObserveCommit("confirmed")
	p.logger.Info("booking confirmed",
		"booking_id", booking.ID,
		"user_id", req.UserID,
		"doctor_id", req.Slot.DoctorID,
		"date", req.Slot.Date,
		"time", req.Slot.Time,
	)

	if p.dispatcher != nil {
		p.dispatcher.Dispatch(booking.clone())
	}
	return &booking, nil
}

func (p *Pipeline) appendWithRetry(ctx context.Context, b Booking) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.store_append")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(p.nextDelay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %w (last error: %v)", ErrStore, ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := p.store.Append(ctx, b)
		if err == nil {
			p.metrics.ObserveStoreAttempt("ok")
			return nil
		}
		lastErr = err
		p.metrics.ObserveStoreAttempt("error")
		span.RecordError(err)
		p.logger.Warn("appointment store append failed",
			"booking_id", b.ID,
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"error", err,
		)
		if errors.Is(err, ErrSlotConflict) {
			break
		}
	}
	if errors.Is(lastErr, ErrStore) {
		return lastErr
	}
	return fmt.Errorf("%w: %w", ErrStore, lastErr)
}

func (p *Pipeline) nextDelay(retry int) time.Duration {
	if retry > 16 {
		retry = 16
	}
	delay := p.baseDelay * time.Duration(1<<uint(retry-1))
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return delay
}

func (p *Pipeline) record(tok availability.Token) *commitRecord {
	now := p.clock.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for id, rec := range p.records {
		if now.After(rec.expiresAt) {
			delete(p.records, id)
		}
	}
	rec, ok := p.records[tok.ID]
	if !ok {
		rec = &commitRecord{expiresAt: tok.ExpiresAt.Add(recordRetention)}
		p.records[tok.ID] = rec
	}
	return rec
}

func (p *Pipeline) forget(tokenID string) {
	p.mu.Lock()
	delete(p.records, tokenID)
	p.mu.Unlock()
}

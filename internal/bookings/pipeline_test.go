package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
)

var testStart = time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC)

type flakyStore struct {
	*MemoryStore
	mu       sync.Mutex
	failures int
	err      error
	attempts int
}

func (s *flakyStore) Append(ctx context.Context, b Booking) error {
	s.mu.Lock()
	s.attempts++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		err := s.err
		s.mu.Unlock()
		if err == nil {
			err = errors.New("sheet quota exceeded")
		}
		return err
	}
	s.mu.Unlock()
	return s.MemoryStore.Append(ctx, b)
}

func (s *flakyStore) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

type recordingDispatcher struct {
	mu       sync.Mutex
	bookings []Booking
}

func (d *recordingDispatcher) Dispatch(b Booking) {
	d.mu.Lock()
	d.bookings = append(d.bookings, b)
	d.mu.Unlock()
}

func (d *recordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bookings)
}

type harness struct {
	clock      *clock.Fake
	engine     *availability.Engine
	store      *flakyStore
	dispatcher *recordingDispatcher
	pipeline   *Pipeline
}

func newHarness(t *testing.T, failures int) *harness {
	t.Helper()
	clk := clock.NewFake(testStart)
	engine := availability.NewEngine(catalog.Default(), clk, availability.WithGracePeriod(5*time.Minute))
	store := &flakyStore{MemoryStore: NewMemoryStore(), failures: failures}
	dispatcher := &recordingDispatcher{}
	pipeline := NewPipeline(engine, store, clk,
		WithRetry(3, time.Millisecond),
		WithDispatcher(dispatcher),
	)
	return &harness{clock: clk, engine: engine, store: store, dispatcher: dispatcher, pipeline: pipeline}
}

func sarahRequest(t *testing.T, label string) AppointmentRequest {
	t.Helper()
	doctor, err := catalog.Default().Doctor("1")
	require.NoError(t, err)
	return AppointmentRequest{
		UserID: "user-1",
		Patient: Patient{
			Name:      "Jane Doe",
			Age:       45,
			Gender:    "Female",
			Phone:     "+15551234567",
			Email:     "jane@example.com",
			Complaint: "Recurring headaches",
		},
		Doctor: doctor,
		Slot:   availability.SlotKey{DoctorID: "1", Date: "2025-08-20", Time: label},
	}
}

func TestCommitConfirmsAndPersists(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	req := sarahRequest(t, "10:00 AM")

	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	booking, err := h.pipeline.Commit(context.Background(), req, tok)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.True(t, strings.HasPrefix(booking.ID, "APT-"), booking.ID)
	assert.Equal(t, "Dr. Sarah Smith", booking.DoctorName)
	assert.Equal(t, time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC), booking.StartsAt)
	assert.Equal(t, testStart, booking.CreatedAt)

	stored, err := h.store.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Patient, stored.Patient)
	assert.Equal(t, 1, h.dispatcher.Count())

	_, err = h.engine.TryReserve(req.Slot)
	assert.ErrorIs(t, err, availability.ErrAlreadyTaken)
}

func TestCommitIsIdempotentUnderRedelivery(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	req := sarahRequest(t, "11:00 AM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	const deliveries = 8
	ids := make([]string, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := h.pipeline.Commit(context.Background(), req, tok)
			if err != nil {
				t.Errorf("delivery %d: %v", i, err)
				return
			}
			ids[i] = b.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, h.store.All(), 1)
	assert.Equal(t, 1, h.store.Attempts())
	assert.Equal(t, 1, h.dispatcher.Count())
}

func TestCommitRetriesTransientStoreErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)
	req := sarahRequest(t, "02:00 PM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	booking, err := h.pipeline.Commit(context.Background(), req, tok)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, 3, h.store.Attempts())
}

func TestCommitRollsBackWhenStoreStaysDown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, -1)
	req := sarahRequest(t, "03:00 PM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	booking, err := h.pipeline.Commit(context.Background(), req, tok)
	require.Error(t, err)
	assert.Nil(t, booking)
	assert.ErrorIs(t, err, ErrStore)

	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	require.NotNil(t, commitErr.Booking)
	assert.Equal(t, StatusFailed, commitErr.Booking.Status)
	assert.Equal(t, 3, h.store.Attempts())
	assert.Zero(t, h.dispatcher.Count())

	free, err := h.engine.FreeSlots("1", "2025-08-20")
	require.NoError(t, err)
	assert.Contains(t, free, "03:00 PM", "rolled back slot must be free again")

	// Store recovers; a fresh reservation commits normally.
	h.store.mu.Lock()
	h.store.failures = 0
	h.store.mu.Unlock()

	retryTok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)
	retried, err := h.pipeline.Commit(context.Background(), req, retryTok)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, retried.Status)
	assert.NotEqual(t, commitErr.Booking.ID, retried.ID)
}

// lostAckStore writes the row and then reports a timeout, the way a store
// call cut off by a deadline can.
type lostAckStore struct {
	*MemoryStore
	mu      sync.Mutex
	lostAck bool
}

func (s *lostAckStore) Append(ctx context.Context, b Booking) error {
	if err := s.MemoryStore.Append(ctx, b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lostAck {
		s.lostAck = false
		return context.DeadlineExceeded
	}
	return nil
}

func TestRetryWithFailedBookingIDAbsorbsLandedWrite(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(testStart)
	engine := availability.NewEngine(catalog.Default(), clk)
	store := &lostAckStore{MemoryStore: NewMemoryStore(), lostAck: true}
	pipeline := NewPipeline(engine, store, clk, WithRetry(1, time.Millisecond))

	req := sarahRequest(t, "11:00 AM")
	tok, err := engine.TryReserve(req.Slot)
	require.NoError(t, err)

	_, err = pipeline.Commit(context.Background(), req, tok)
	require.ErrorIs(t, err, ErrStore)
	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	failedID := commitErr.Booking.ID
	require.Len(t, store.All(), 1, "the write landed even though the caller saw an error")

	retryTok, err := engine.TryReserve(req.Slot)
	require.NoError(t, err)

	// A fresh id would collide with the landed row.
	_, err = pipeline.Commit(context.Background(), req, retryTok)
	require.ErrorIs(t, err, ErrSlotConflict)

	retryTok, err = engine.TryReserve(req.Slot)
	require.NoError(t, err)
	req.BookingID = failedID
	booking, err := pipeline.Commit(context.Background(), req, retryTok)
	require.NoError(t, err)
	assert.Equal(t, failedID, booking.ID)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Len(t, store.All(), 1)

	free, err := engine.FreeSlots("1", "2025-08-20")
	require.NoError(t, err)
	assert.NotContains(t, free, "11:00 AM")
}

func TestCommitWithExpiredTokenFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	req := sarahRequest(t, "04:00 PM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)

	_, err = h.pipeline.Commit(context.Background(), req, tok)
	require.Error(t, err)
	assert.ErrorIs(t, err, availability.ErrTokenExpired)

	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	assert.Equal(t, StatusFailed, commitErr.Booking.Status)
	assert.Empty(t, h.store.All())
	assert.Zero(t, h.store.Attempts())
}

func TestCommitStopsRetryingOnSlotConflict(t *testing.T) {
	t.Parallel()
	h := newHarness(t, -1)
	h.store.err = fmt.Errorf("%w: held elsewhere", ErrSlotConflict)
	req := sarahRequest(t, "09:00 AM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	_, err = h.pipeline.Commit(context.Background(), req, tok)
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 1, h.store.Attempts())
}

func TestCommitValidatesRequest(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	req := sarahRequest(t, "10:00 AM")
	tok, err := h.engine.TryReserve(req.Slot)
	require.NoError(t, err)

	mismatched := req
	mismatched.Slot.Time = "11:00 AM"
	_, err = h.pipeline.Commit(context.Background(), mismatched, tok)
	assert.ErrorIs(t, err, ErrSlotMismatch)

	incomplete := req
	incomplete.Patient.Email = ""
	_, err = h.pipeline.Commit(context.Background(), incomplete, tok)
	assert.ErrorIs(t, err, ErrIncompleteRequest)

	// The hold survives rejected requests.
	assert.NoError(t, h.engine.Validate(tok))
}

func TestCommitHonoursCancelledContextDuringBackoff(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(testStart)
	engine := availability.NewEngine(catalog.Default(), clk)
	store := &flakyStore{MemoryStore: NewMemoryStore(), failures: -1}
	pipeline := NewPipeline(engine, store, clk, WithRetry(5, time.Hour))

	req := sarahRequest(t, "10:00 AM")
	tok, err := engine.TryReserve(req.Slot)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = pipeline.Commit(ctx, req, tok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, store.Attempts())

	free, err := engine.FreeSlots("1", "2025-08-20")
	require.NoError(t, err)
	assert.Contains(t, free, "10:00 AM")
}

func TestNextDelayIsCapped(t *testing.T) {
	p := &Pipeline{baseDelay: time.Second, maxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.nextDelay(1))
	assert.Equal(t, 2*time.Second, p.nextDelay(2))
	assert.Equal(t, 4*time.Second, p.nextDelay(3))
	assert.Equal(t, 5*time.Second, p.nextDelay(4))
	assert.Equal(t, 5*time.Second, p.nextDelay(40))
}

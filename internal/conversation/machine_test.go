package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/session"
)

// Monday 2025-08-18, 09:00 UTC.
var monday = time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC)

type toggleStore struct {
	*bookings.MemoryStore
	mu      sync.Mutex
	down    bool
	lostAck bool
}

func (s *toggleStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *toggleStore) Append(ctx context.Context, b bookings.Booking) error {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return errors.New("sheet unavailable")
	}
	if err := s.MemoryStore.Append(ctx, b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lostAck {
		return context.DeadlineExceeded
	}
	return nil
}

type fixture struct {
	clock       *clock.Fake
	engine      *availability.Engine
	store       *toggleStore
	registry    *session.Registry
	transcripts *MemoryTranscripts
	service     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(monday)
	cat := catalog.Default()
	engine := availability.NewEngine(cat, clk, availability.WithGracePeriod(5*time.Minute))
	store := &toggleStore{MemoryStore: bookings.NewMemoryStore()}
	pipeline := bookings.NewPipeline(engine, store, clk, bookings.WithRetry(2, time.Millisecond))
	registry := session.NewRegistry(clk, 30*time.Minute, session.WithDiscardHook(ReleaseOnDiscard(engine)))
	transcripts := NewMemoryTranscripts()
	machine := NewMachine(cat, engine, pipeline, clk)
	service := NewService(registry, machine, WithTranscripts(transcripts))
	return &fixture{clock: clk, engine: engine, store: store, registry: registry, transcripts: transcripts, service: service}
}

func (f *fixture) send(t *testing.T, userID, text string) Reply {
	t.Helper()
	reply, err := f.service.HandleMessage(context.Background(), userID, text)
	require.NoError(t, err)
	return reply
}

// intake answers the patient questions and stops at the doctor step.
func (f *fixture) intake(t *testing.T, userID, name string) {
	t.Helper()
	reply := f.send(t, userID, "hi")
	require.Equal(t, session.StateAwaitingName, reply.State)
	for _, input := range []string{name, "45", "Female", "+1 555 123 4567", name[:1] + "@example.com", "Recurring headaches"} {
		reply = f.send(t, userID, input)
		require.Equal(t, ReplyPrompt, reply.Kind, "input %q: %v", input, reply.Messages)
	}
	require.Equal(t, session.StateAwaitingDoctor, reply.State)
}

// toConfirmation books through to the summary for Dr. Smith on 2025-08-20.
func (f *fixture) toConfirmation(t *testing.T, userID, name, label string) {
	t.Helper()
	f.intake(t, userID, name)
	f.send(t, userID, "1")
	reply := f.send(t, userID, "2025-08-20")
	require.Equal(t, session.StateAwaitingTime, reply.State)
	reply = f.send(t, userID, label)
	require.Equal(t, session.StateAwaitingNotes, reply.State, reply.Messages)
	reply = f.send(t, userID, "None")
	require.Equal(t, session.StateAwaitingConfirmation, reply.State)
}

func (f *fixture) free(t *testing.T) []string {
	t.Helper()
	free, err := f.engine.FreeSlots("1", "2025-08-20")
	require.NoError(t, err)
	return free
}

func TestFirstMessageGreets(t *testing.T) {
	f := newFixture(t)
	reply := f.send(t, "u1", "hello")
	assert.Equal(t, ReplyPrompt, reply.Kind)
	assert.Equal(t, session.StateAwaitingName, reply.State)
	require.Len(t, reply.Messages, 2)
	assert.Equal(t, say(LangEnglish, msgWelcome, "City Clinic"), reply.Messages[0])
}

func TestInvalidAgeKeepsState(t *testing.T) {
	f := newFixture(t)
	f.send(t, "u1", "hi")
	f.send(t, "u1", "Jane Doe")

	for _, bad := range []string{"0", "121", "abc"} {
		reply := f.send(t, "u1", bad)
		assert.Equal(t, ReplyValidationError, reply.Kind, bad)
		assert.Equal(t, session.StateAwaitingAge, reply.State, bad)
		assert.ErrorIs(t, reply.Err, ErrValidation)
	}
	reply := f.send(t, "u1", "45")
	assert.Equal(t, session.StateAwaitingGender, reply.State)
	assert.Equal(t, GenderOptions, reply.Options)
}

func TestTwoPatientsBookSameDoctorSameDay(t *testing.T) {
	f := newFixture(t)

	f.toConfirmation(t, "alice", "Alice Brown", "10:00 AM")
	reply := f.send(t, "alice", "yes")
	require.Equal(t, ReplyBooked, reply.Kind, reply.Messages)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, bookings.StatusConfirmed, reply.Booking.Status)
	assert.Equal(t, availability.SlotKey{DoctorID: "1", Date: "2025-08-20", Time: "10:00 AM"}, reply.Booking.Slot)
	assert.Equal(t, "Dr. Sarah Smith", reply.Booking.DoctorName)

	f.intake(t, "bob", "Bob Green")
	f.send(t, "bob", "Dr. Sarah Smith")
	reply = f.send(t, "bob", "2025-08-20")
	require.Equal(t, session.StateAwaitingTime, reply.State)
	assert.NotContains(t, reply.Options, "10:00 AM")
	assert.Contains(t, reply.Options, "11:00 AM")

	reply = f.send(t, "bob", "10:00 AM")
	assert.Equal(t, ReplyAlreadyTaken, reply.Kind)
	assert.Equal(t, session.StateAwaitingTime, reply.State)

	reply = f.send(t, "bob", "11:00 AM")
	require.Equal(t, session.StateAwaitingNotes, reply.State)
	f.send(t, "bob", "none")
	reply = f.send(t, "bob", "YES")
	require.Equal(t, ReplyBooked, reply.Kind, reply.Messages)

	all := f.store.All()
	require.Len(t, all, 2)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.Equal(t, []string{"09:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"}, f.free(t))
	assert.Equal(t, 0, f.registry.Len())
}

func TestConcurrentPatientsRaceForOneSlot(t *testing.T) {
	f := newFixture(t)
	for _, user := range []string{"alice", "bob"} {
		f.intake(t, user, map[string]string{"alice": "Alice Brown", "bob": "Bob Green"}[user])
		f.send(t, user, "1")
		f.send(t, user, "2025-08-20")
	}

	var wg sync.WaitGroup
	replies := make([]Reply, 2)
	for i, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			r, err := f.service.HandleMessage(context.Background(), user, "10:00 AM")
			assert.NoError(t, err)
			replies[i] = r
		}(i, user)
	}
	wg.Wait()

	kinds := []ReplyKind{replies[0].Kind, replies[1].Kind}
	assert.ElementsMatch(t, []ReplyKind{ReplyPrompt, ReplyAlreadyTaken}, kinds)
}

func TestSelectTimeByOptionNumber(t *testing.T) {
	f := newFixture(t)
	f.intake(t, "u1", "Jane Doe")
	f.send(t, "u1", "1")
	f.send(t, "u1", "2025-08-20")

	reply := f.send(t, "u1", "2")
	require.Equal(t, session.StateAwaitingNotes, reply.State)
	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Equal(t, "10:00 AM", s.Request.Slot.Time)
	require.NotNil(t, s.Token)

	assert.NotContains(t, f.free(t), "10:00 AM")
}

func TestDateValidation(t *testing.T) {
	f := newFixture(t)
	f.intake(t, "u1", "Jane Doe")
	reply := f.send(t, "u1", "4")
	require.Equal(t, session.StateAwaitingDate, reply.State)
	assert.Equal(t, []string{"2025-08-19 (Tuesday)", "2025-08-21 (Thursday)", "2025-08-22 (Friday)"}, reply.Options)

	cases := map[string]ValidationCode{
		"2025-08-20": CodeUnavailableDate,
		"2025-08-17": CodePastDate,
		"next week":  CodeInvalidDate,
	}
	for input, code := range cases {
		reply := f.send(t, "u1", input)
		require.Equal(t, ReplyValidationError, reply.Kind, input)
		assert.Equal(t, code, validationCode(t, reply.Err), input)
		assert.Equal(t, session.StateAwaitingDate, reply.State)
	}
}

func TestFullyBookedDate(t *testing.T) {
	f := newFixture(t)
	var keys []availability.SlotKey
	for _, label := range catalog.DefaultDoctors()[0].Slots {
		keys = append(keys, availability.SlotKey{DoctorID: "1", Date: "2025-08-20", Time: label})
	}
	f.engine.Seed(keys)

	f.intake(t, "u1", "Jane Doe")
	f.send(t, "u1", "1")
	reply := f.send(t, "u1", "2025-08-20")
	assert.Equal(t, CodeFullyBooked, validationCode(t, reply.Err))
	assert.Equal(t, session.StateAwaitingDate, reply.State)
}

func TestUnknownDoctorAndSlot(t *testing.T) {
	f := newFixture(t)
	f.intake(t, "u1", "Jane Doe")
	reply := f.send(t, "u1", "Dr. Who")
	assert.Equal(t, CodeUnknownDoctor, validationCode(t, reply.Err))

	f.send(t, "u1", "1")
	f.send(t, "u1", "2025-08-20")
	reply = f.send(t, "u1", "12:00 PM")
	assert.Equal(t, CodeUnknownSlot, validationCode(t, reply.Err))
	reply = f.send(t, "u1", "9")
	assert.Equal(t, CodeUnknownSlot, validationCode(t, reply.Err))
	assert.Equal(t, session.StateAwaitingTime, reply.State)
}

func TestExpiredHoldRestartsSlotSelection(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")

	f.clock.Advance(6 * time.Minute)
	reply := f.send(t, "u1", "yes")
	assert.Equal(t, ReplySlotRestart, reply.Kind)
	assert.Equal(t, session.StateAwaitingDoctor, reply.State)
	assert.ErrorIs(t, reply.Err, availability.ErrTokenExpired)
	assert.Contains(t, f.free(t), "10:00 AM")
	assert.Empty(t, f.store.All())

	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Nil(t, s.Token)
	assert.Equal(t, "Jane Doe", s.Request.Patient.Name)
	assert.Empty(t, s.Request.Doctor.ID)
}

func TestCancelReleasesHeldSlot(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")
	require.NotContains(t, f.free(t), "10:00 AM")

	reply := f.send(t, "u1", "/cancel")
	assert.Equal(t, ReplyCancelled, reply.Kind)
	assert.Equal(t, session.StateCancelled, reply.State)
	assert.Contains(t, f.free(t), "10:00 AM")
	assert.Equal(t, 0, f.registry.Len())

	reply = f.send(t, "u1", "hi")
	assert.Equal(t, session.StateAwaitingName, reply.State)
}

func TestDecliningConfirmationReleasesSlot(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")

	reply := f.send(t, "u1", "Change Details")
	assert.Equal(t, ReplyPrompt, reply.Kind)
	assert.Equal(t, session.StateAwaitingDoctor, reply.State)
	assert.Contains(t, f.free(t), "10:00 AM")

	reply = f.send(t, "u1", "maybe")
	assert.Equal(t, session.StateAwaitingDoctor, reply.State)
}

func TestUnrecognisedConfirmationAnswer(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")
	reply := f.send(t, "u1", "perhaps")
	assert.Equal(t, CodeInvalidChoice, validationCode(t, reply.Err))
	assert.Equal(t, session.StateAwaitingConfirmation, reply.State)
}

func TestCommitFailureCanBeRetried(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")

	f.store.setDown(true)
	reply := f.send(t, "u1", "yes")
	assert.Equal(t, ReplyCommitFailed, reply.Kind)
	assert.Equal(t, session.StateAwaitingConfirmation, reply.State)
	assert.ErrorIs(t, reply.Err, bookings.ErrStore)
	require.NotNil(t, reply.Booking)
	assert.Equal(t, bookings.StatusFailed, reply.Booking.Status)
	assert.Contains(t, f.free(t), "10:00 AM")

	f.store.setDown(false)
	reply = f.send(t, "u1", "yes")
	require.Equal(t, ReplyBooked, reply.Kind, reply.Messages)
	assert.NotContains(t, f.free(t), "10:00 AM")
	assert.Len(t, f.store.All(), 1)
}

func TestRestartCommandClearsProgress(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")
	reply := f.send(t, "u1", "/book")
	assert.Equal(t, session.StateAwaitingName, reply.State)
	assert.Contains(t, f.free(t), "10:00 AM")

	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Empty(t, s.Request.Patient.Name)
}

func TestHelpAndDoctorsKeepState(t *testing.T) {
	f := newFixture(t)
	f.send(t, "u1", "hi")
	f.send(t, "u1", "Jane Doe")

	reply := f.send(t, "u1", "/help")
	assert.Equal(t, session.StateAwaitingAge, reply.State)
	assert.Equal(t, say(LangEnglish, msgHelp), reply.Messages[0])

	reply = f.send(t, "u1", "/doctors")
	assert.Equal(t, session.StateAwaitingAge, reply.State)
	assert.Contains(t, reply.Messages[0], "1. Dr. Sarah Smith - General Medicine ($50)")
}

func TestTodayOffersOnlyUpcomingTimes(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2025, 8, 18, 10, 30, 0, 0, time.UTC))
	f.intake(t, "u1", "Jane Doe")
	f.send(t, "u1", "1")

	reply := f.send(t, "u1", "today")
	require.Equal(t, session.StateAwaitingTime, reply.State, reply.Messages)
	assert.Equal(t, []string{"11:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"}, reply.Options)

	reply = f.send(t, "u1", "09:00 AM")
	assert.Equal(t, ReplyValidationError, reply.Kind)
	assert.Equal(t, CodePastSlot, validationCode(t, reply.Err))
	assert.Equal(t, session.StateAwaitingTime, reply.State)

	// 11:00 AM starts while the patient is still deciding.
	f.clock.Set(time.Date(2025, 8, 18, 11, 5, 0, 0, time.UTC))
	reply = f.send(t, "u1", "1")
	assert.Equal(t, CodePastSlot, validationCode(t, reply.Err))
	assert.Equal(t, []string{"02:00 PM", "03:00 PM", "04:00 PM"}, reply.Options)

	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Nil(t, s.Token)
	free, err := f.engine.FreeSlots("1", "2025-08-18")
	require.NoError(t, err)
	assert.Contains(t, free, "09:00 AM", "nothing was reserved")
}

func TestTodayAfterLastSlotIsRejected(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2025, 8, 18, 16, 30, 0, 0, time.UTC))
	f.intake(t, "u1", "Jane Doe")
	f.send(t, "u1", "1")

	reply := f.send(t, "u1", "today")
	assert.Equal(t, ReplyValidationError, reply.Kind)
	assert.Equal(t, CodeFullyBooked, validationCode(t, reply.Err))
	assert.Equal(t, session.StateAwaitingDate, reply.State)

	reply = f.send(t, "u1", "tomorrow")
	assert.Equal(t, session.StateAwaitingTime, reply.State)
	assert.Len(t, reply.Options, 6)
}

func TestCommitRetryReusesBookingIDAfterLostAck(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")

	f.store.mu.Lock()
	f.store.lostAck = true
	f.store.mu.Unlock()

	reply := f.send(t, "u1", "yes")
	require.Equal(t, ReplyCommitFailed, reply.Kind)
	require.NotNil(t, reply.Booking)
	failedID := reply.Booking.ID
	f.store.mu.Lock()
	f.store.lostAck = false
	f.store.mu.Unlock()

	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Equal(t, failedID, s.Request.BookingID)

	reply = f.send(t, "u1", "yes")
	require.Equal(t, ReplyBooked, reply.Kind, reply.Messages)
	assert.Equal(t, failedID, reply.Booking.ID)
	require.Len(t, f.store.All(), 1)
	assert.Equal(t, failedID, f.store.All()[0].ID)
}

func TestChangingSlotDropsFailedBookingID(t *testing.T) {
	f := newFixture(t)
	f.toConfirmation(t, "u1", "Jane Doe", "10:00 AM")

	f.store.setDown(true)
	reply := f.send(t, "u1", "yes")
	require.Equal(t, ReplyCommitFailed, reply.Kind)
	f.store.setDown(false)

	reply = f.send(t, "u1", "no")
	require.Equal(t, session.StateAwaitingDoctor, reply.State)
	s, ok := f.service.Session("u1")
	require.True(t, ok)
	assert.Empty(t, s.Request.BookingID)
}

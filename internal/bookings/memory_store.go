package bookings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
)

// MemoryStore keeps bookings in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]Booking
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]Booking)}
}

func (s *MemoryStore) ListActiveBookings(ctx context.Context) ([]availability.SlotKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]availability.SlotKey, 0, len(s.order))
	for _, id := range s.order {
		b := s.bookings[id]
		if b.Status == StatusConfirmed {
			keys = append(keys, b.Slot)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Append(ctx context.Context, b Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID]; exists {
		return nil
	}
	for _, id := range s.order {
		existing := s.bookings[id]
		if existing.Status == StatusConfirmed && existing.Slot == b.Slot {
			return fmt.Errorf("%w: %s held by %s", ErrSlotConflict, b.Slot, existing.ID)
		}
	}
	stored := b.clone()
	stored.Status = StatusConfirmed
	s.bookings[b.ID] = stored
	s.order = append(s.order, b.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b.clone(), nil
}

func (s *MemoryStore) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Booking
	for _, id := range s.order {
		b := s.bookings[id]
		if b.Status != StatusConfirmed || b.StartsAt.Before(from) || !b.StartsAt.Before(to) {
			continue
		}
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *MemoryStore) RecordNotifications(ctx context.Context, bookingID string, statuses []NotificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	b.Notifications = append(b.Notifications, statuses...)
	s.bookings[bookingID] = b
	return nil
}

// All returns every stored booking in append order.
func (s *MemoryStore) All() []Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Booking, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.bookings[id].clone())
	}
	return out
}

var (
	_ Store                = (*MemoryStore)(nil)
	_ NotificationRecorder = (*MemoryStore)(nil)
	_ UpcomingLister       = (*MemoryStore)(nil)
	_ Finder               = (*MemoryStore)(nil)
)

package session

import (
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
)

// Session is one user's in-progress booking conversation.
type Session struct {
	UserID       string
	State        State
	Request      bookings.AppointmentRequest
	Token        *availability.Token
	OfferedSlots []string
	BookingID    string
	Language     string
	CreatedAt    time.Time
	LastActivity time.Time
}

func newSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:       userID,
		State:        StateAwaitingName,
		Request:      bookings.AppointmentRequest{UserID: userID},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// ClearSlot drops the doctor, date and time choices, any held token and the
// id of a failed commit for that slot. The caller is responsible for
// releasing the token first.
func (s *Session) ClearSlot() {
	s.Token = nil
	s.OfferedSlots = nil
	s.Request.Doctor = catalog.Doctor{}
	s.Request.Slot = availability.SlotKey{}
	s.Request.BookingID = ""
}

// Snapshot returns a copy safe to read outside the registry lock.
func (s *Session) Snapshot() Session {
	out := *s
	if s.Token != nil {
		tok := *s.Token
		out.Token = &tok
	}
	out.OfferedSlots = append([]string(nil), s.OfferedSlots...)
	return out
}

package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
)

var (
	// ErrStore marks appointment store failures; the pipeline retries them.
	ErrStore             = errors.New("bookings: appointment store unavailable")
	ErrSlotConflict      = errors.New("bookings: slot already booked in store")
	ErrSlotMismatch      = errors.New("bookings: token does not match requested slot")
	ErrIncompleteRequest = errors.New("bookings: appointment request incomplete")
	ErrBookingNotFound   = errors.New("bookings: booking not found")
)

// Status is the lifecycle state of a Booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Patient holds the details collected during the conversation.
type Patient struct {
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Complaint string `json:"complaint"`
	Notes     string `json:"notes,omitempty"`
}

// AppointmentRequest is the draft a conversation accumulates before commit.
//
// BookingID is empty for a first attempt. A retry after a failed store write
// carries the failed booking's id, so a write that landed despite the error
// is absorbed by the store's idempotent Append instead of conflicting.
type AppointmentRequest struct {
	UserID    string               `json:"user_id"`
	Patient   Patient              `json:"patient"`
	Doctor    catalog.Doctor       `json:"doctor"`
	Slot      availability.SlotKey `json:"slot"`
	BookingID string               `json:"booking_id,omitempty"`
}

// Validate checks that every field needed for a booking is present.
func (r AppointmentRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Patient.Name) == "" {
		missing = append(missing, "name")
	}
	if r.Patient.Age <= 0 {
		missing = append(missing, "age")
	}
	if strings.TrimSpace(r.Patient.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(r.Patient.Email) == "" {
		missing = append(missing, "email")
	}
	if r.Doctor.ID == "" || r.Slot.DoctorID != r.Doctor.ID {
		missing = append(missing, "doctor")
	}
	if r.Slot.Date == "" || r.Slot.Time == "" {
		missing = append(missing, "slot")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}
	return nil
}

// NotificationStatus records one sink's delivery attempt.
type NotificationStatus struct {
	Channel string    `json:"channel"`
	Sent    bool      `json:"sent"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Booking is the committed record of an appointment.
type Booking struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	Status        Status               `json:"status"`
	Slot          availability.SlotKey `json:"slot"`
	DoctorName    string               `json:"doctor_name"`
	Specialty     string               `json:"specialty"`
	Fee           string               `json:"fee"`
	Patient       Patient              `json:"patient"`
	StartsAt      time.Time            `json:"starts_at"`
	CreatedAt     time.Time            `json:"created_at"`
	Notifications []NotificationStatus `json:"notifications,omitempty"`
}

func (b Booking) clone() Booking {
	out := b
	out.Notifications = append([]NotificationStatus(nil), b.Notifications...)
	return out
}

// CommitError reports a failed commit. Booking carries the Failed record.
type CommitError struct {
	Booking *Booking
	Err     error
}

func (e *CommitError) Error() string {
	id := ""
	if e.Booking != nil {
		id = e.Booking.ID
	}
	return fmt.Sprintf("bookings: commit %s: %v", id, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Store is the external appointment ledger.
type Store interface {
	// ListActiveBookings returns the slots of every confirmed booking.
	ListActiveBookings(ctx context.Context) ([]availability.SlotKey, error)
	// Append writes a booking. Appending an id that already exists is a no-op.
	Append(ctx context.Context, b Booking) error
}

// NotificationRecorder is implemented by stores that keep delivery statuses.
type NotificationRecorder interface {
	RecordNotifications(ctx context.Context, bookingID string, statuses []NotificationStatus) error
}

// UpcomingLister is implemented by stores that can answer time-window queries.
type UpcomingLister interface {
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Booking, error)
}

// Finder is implemented by stores that support lookup by id.
type Finder interface {
	Get(ctx context.Context, id string) (Booking, error)
}

// Notifier is a best-effort notification sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, b Booking) NotificationStatus
}

// Dispatcher hands confirmed bookings to notification sinks without blocking.
type Dispatcher interface {
	Dispatch(b Booking)
}

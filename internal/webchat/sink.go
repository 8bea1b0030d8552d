package webchat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// Sink pushes a booking confirmation to the patient's open web chat. Bookings
// made over other channels are skipped.
type Sink struct {
	hub    *Hub
	loc    *time.Location
	logger *logging.Logger
}

func NewSink(hub *Hub, loc *time.Location, logger *logging.Logger) *Sink {
	if hub == nil {
		panic("webchat: hub cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sink{hub: hub, loc: loc, logger: logger.WithComponent("webchat")}
}

func (s *Sink) Name() string { return "webchat" }

func (s *Sink) Notify(ctx context.Context, b bookings.Booking) bookings.NotificationStatus {
	status := bookings.NotificationStatus{Channel: s.Name(), At: time.Now().UTC()}
	if !strings.HasPrefix(b.UserID, UserID("")) {
		status.Detail = "not a web chat session"
		return status
	}
	if err := ctx.Err(); err != nil {
		status.Detail = err.Error()
		return status
	}
	if !s.hub.Push(b.UserID, confirmationMessage(b, s.loc)) {
		s.logger.Debug("webchat: no open connection for confirmation", "booking_id", b.ID, "user_id", b.UserID)
		status.Detail = "no open connection"
		return status
	}
	status.Sent = true
	status.Detail = strings.TrimPrefix(b.UserID, UserID(""))
	return status
}

func confirmationMessage(b bookings.Booking, loc *time.Location) OutboundMessage {
	when := fmt.Sprintf("%s at %s", b.Slot.Date, b.Slot.Time)
	if !b.StartsAt.IsZero() {
		when = b.StartsAt.In(loc).Format("Monday, January 2 at 3:04 PM")
	}
	text := fmt.Sprintf("Appointment %s with %s on %s is confirmed.", b.ID, b.DoctorName, when)
	if b.Patient.Email != "" {
		text += " A confirmation email is on its way to " + b.Patient.Email + "."
	}
	return OutboundMessage{
		Type:      "notification",
		Role:      "assistant",
		Text:      text,
		Kind:      "booking_confirmed",
		BookingID: b.ID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

var _ bookings.Notifier = (*Sink)(nil)

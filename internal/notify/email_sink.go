package notify

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// EmailSink sends the patient a confirmation email.
type EmailSink struct {
	sender EmailSender
	clinic ClinicInfo
	logger *logging.Logger
}

// NewEmailSink wraps an EmailSender as a booking notifier.
func NewEmailSink(sender EmailSender, clinic ClinicInfo, logger *logging.Logger) *EmailSink {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailSink{sender: sender, clinic: clinic.withDefaults(), logger: logger}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Notify(ctx context.Context, b bookings.Booking) bookings.NotificationStatus {
	status := bookings.NotificationStatus{Channel: s.Name(), At: time.Now().UTC()}
	if b.Patient.Email == "" {
		status.Detail = "no email address"
		return status
	}
	if err := s.sender.Send(ctx, ConfirmationEmail(b, s.clinic)); err != nil {
		s.logger.Warn("confirmation email failed", "booking_id", b.ID, "error", err)
		status.Detail = err.Error()
		return status
	}
	status.Sent = true
	status.Detail = b.Patient.Email
	return status
}

var _ bookings.Notifier = (*EmailSink)(nil)

package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

const defaultFromName = "City Clinic Appointments"

// Keys under which the booking id and message kind travel with a message, so
// provider delivery and bounce events can be joined back to the booking.
const (
	trackingBookingID = "booking_id"
	trackingKind      = "message_kind"
)

// MessageKind says which patient email a message is.
type MessageKind string

const (
	KindConfirmation MessageKind = "confirmation"
	KindReminder     MessageKind = "reminder"
)

// EmailSender delivers patient emails. SendGrid, SES and the stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one patient email about a booking.
type EmailMessage struct {
	To        string
	ToName    string
	Subject   string
	Body      string // plain text
	HTML      string // optional
	BookingID string
	Kind      MessageKind
}

// SendGridSender delivers through the SendGrid v3 API. The booking id and
// kind are attached as custom args, and the kind as a category.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	replyTo   string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ReplyTo   string
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		replyTo:   cfg.ReplyTo,
		logger:    logger,
	}
}

func (s *SendGridSender) message(msg EmailMessage) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = msg.Body
	}
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, htmlBody)
	if s.replyTo != "" {
		m.SetReplyTo(mail.NewEmail(s.fromName, s.replyTo))
	}
	if msg.BookingID != "" {
		m.SetCustomArg(trackingBookingID, msg.BookingID)
	}
	if msg.Kind != "" {
		m.SetCustomArg(trackingKind, string(msg.Kind))
		m.AddCategories("appointment-" + string(msg.Kind))
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.message(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "booking_id", msg.BookingID, "kind", msg.Kind, "error", err)
		return fmt.Errorf("notify: sendgrid send %s for %s: %w", msg.Kind, msg.BookingID, err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "booking_id", msg.BookingID, "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("notify: sendgrid returned status %d for %s", response.StatusCode, msg.BookingID)
	}

	s.logger.Info("booking email sent via sendgrid", "booking_id", msg.BookingID, "kind", msg.Kind, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending. Used in development and chatsim.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send booking email", "booking_id", msg.BookingID, "kind", msg.Kind, "to", msg.To, "subject", msg.Subject)
	return nil
}

// SelectSender picks the sender for provider ("sendgrid", "ses", "stub" or
// "auto"). Auto prefers SES, then SendGrid, then the stub. A requested
// provider that is not configured falls back to the stub with a warning.
func SelectSender(provider string, sendgridSender *SendGridSender, sesSender *SESSender, logger *logging.Logger) EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch provider {
	case "sendgrid":
		if sendgridSender != nil {
			return sendgridSender
		}
	case "ses":
		if sesSender != nil {
			return sesSender
		}
	case "stub":
		return NewStubEmailSender(logger)
	default:
		if sesSender != nil {
			return sesSender
		}
		if sendgridSender != nil {
			return sendgridSender
		}
		return NewStubEmailSender(logger)
	}
	logger.Warn("email provider not configured, using stub sender", "provider", provider)
	return NewStubEmailSender(logger)
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)

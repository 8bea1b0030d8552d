package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// sesAPI is the part of *sesv2.Client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers through Amazon SES v2. Messages carry the booking id
// and kind as SES message tags; with a configuration set those tags show up
// on the delivery, bounce and complaint events it publishes.
type SESSender struct {
	client           sesAPI
	fromEmail        string
	fromName         string
	replyTo          string
	configurationSet string
	logger           *logging.Logger
}

type SESConfig struct {
	FromEmail        string
	FromName         string
	ReplyTo          string
	ConfigurationSet string
}

// NewSESSender returns nil without a client.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return newSESSender(client, cfg, logger)
}

func newSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SESSender{
		client:           client,
		fromEmail:        cfg.FromEmail,
		fromName:         cfg.FromName,
		replyTo:          cfg.ReplyTo,
		configurationSet: cfg.ConfigurationSet,
		logger:           logger,
	}
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

func (s *SESSender) input(msg EmailMessage) *sesv2.SendEmailInput {
	body := &types.Body{}
	if msg.Body != "" {
		body.Text = utf8Content(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}
	if msg.BookingID != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(trackingBookingID),
			Value: aws.String(sesTagValue(msg.BookingID)),
		})
	}
	if msg.Kind != "" {
		input.EmailTags = append(input.EmailTags, types.MessageTag{
			Name:  aws.String(trackingKind),
			Value: aws.String(sesTagValue(string(msg.Kind))),
		})
	}
	return input
}

// sesTagValue keeps the characters SES allows in tag values (ASCII letters,
// digits, '_', '-', '.', '@') and replaces the rest with '_'.
func sesTagValue(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.' || r == '@':
			return r
		}
		return '_'
	}, v)
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: SES client not configured")
	}

	output, err := s.client.SendEmail(ctx, s.input(msg))
	if err != nil {
		s.logger.Error("SES send failed", "booking_id", msg.BookingID, "kind", msg.Kind, "error", err)
		return fmt.Errorf("notify: SES send %s for %s: %w", msg.Kind, msg.BookingID, err)
	}

	s.logger.Info("booking email sent via SES", "booking_id", msg.BookingID, "kind", msg.Kind, "message_id", aws.ToString(output.MessageId))
	return nil
}

var _ EmailSender = (*SESSender)(nil)

package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"google.golang.org/api/calendar/v3"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/internal/notify"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// BuildEmailSender picks the email provider from config. awsCfg may be nil
// when SES is not in use.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	sendgridSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		ReplyTo:   cfg.EmailReplyTo,
	}, logger)

	var sesSender *notify.SESSender
	if awsCfg != nil && cfg.SESFromEmail != "" {
		sesSender = notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail:        cfg.SESFromEmail,
			FromName:         cfg.SESFromName,
			ReplyTo:          cfg.EmailReplyTo,
			ConfigurationSet: cfg.SESConfigSet,
		}, logger)
	}
	return notify.SelectSender(cfg.EmailProvider, sendgridSender, sesSender, logger)
}

// BuildDispatcher wires the confirmation sinks into a worker pool. Statuses
// are written back when the store records them. extra sinks run after email
// and calendar.
func BuildDispatcher(cfg *appconfig.Config, sender notify.EmailSender, calendarSvc *calendar.Service, clinic notify.ClinicInfo, store bookings.Store, m *metrics.BookingMetrics, logger *logging.Logger, extra ...bookings.Notifier) *notify.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	sinks := []bookings.Notifier{notify.NewEmailSink(sender, clinic, logger)}
	if sink := notify.NewCalendarSink(calendarSvc, cfg.GoogleCalendarID, clinic, cfg.AppointmentDuration, logger); sink != nil {
		sinks = append(sinks, sink)
		logger.Info("google calendar notifications enabled")
	}
	for _, sink := range extra {
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}

	opts := []notify.DispatcherOption{
		notify.WithWorkers(cfg.NotifyWorkers),
		notify.WithTimeout(cfg.NotifyTimeout),
		notify.WithLogger(logger),
		notify.WithMetrics(m),
	}
	if recorder, ok := store.(bookings.NotificationRecorder); ok {
		opts = append(opts, notify.WithRecorder(recorder))
	}
	return notify.NewDispatcher(sinks, opts...)
}

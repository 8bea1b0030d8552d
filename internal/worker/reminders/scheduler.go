package reminderworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/notify"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// Scheduler emails patients ahead of their confirmed appointments.
type Scheduler struct {
	bookings bookings.UpcomingLister
	sender   notify.EmailSender
	dedupe   Deduper
	clinic   notify.ClinicInfo
	clock    clock.Clock
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	lead     time.Duration
	spec     string

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(upcoming bookings.UpcomingLister, sender notify.EmailSender, clk clock.Clock, logger *logging.Logger) *Scheduler {
	if upcoming == nil {
		panic("reminders: upcoming booking lister cannot be nil")
	}
	if sender == nil {
		panic("reminders: email sender cannot be nil")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		bookings: upcoming,
		sender:   sender,
		dedupe:   NewMemoryDeduper(clk),
		clock:    clk,
		logger:   logger.WithComponent("reminders"),
		lead:     24 * time.Hour,
		spec:     "@every 15m",
	}
}

func (s *Scheduler) WithDeduper(d Deduper) *Scheduler {
	if d != nil {
		s.dedupe = d
	}
	return s
}

func (s *Scheduler) WithClinic(c notify.ClinicInfo) *Scheduler {
	s.clinic = c
	return s
}

// WithLeadTime sets how far ahead of an appointment reminders go out.
func (s *Scheduler) WithLeadTime(d time.Duration) *Scheduler {
	if d > 0 {
		s.lead = d
	}
	return s
}

// WithSchedule sets the cron spec, e.g. "@every 15m" or "0 * * * *".
func (s *Scheduler) WithSchedule(spec string) *Scheduler {
	if spec != "" {
		s.spec = spec
	}
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.BookingMetrics) *Scheduler {
	s.metrics = m
	return s
}

// RunOnce reminds every confirmed booking starting within the lead time that
// has not been reminded yet. It returns the number of emails sent.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	upcoming, err := s.bookings.ListConfirmedBetween(ctx, now, now.Add(s.lead))
	if err != nil {
		return 0, fmt.Errorf("reminders: list upcoming: %w", err)
	}

	sent := 0
	for _, b := range upcoming {
		if b.Patient.Email == "" {
			continue
		}
		ttl := b.StartsAt.Sub(now) + time.Hour
		claimed, err := s.dedupe.Claim(ctx, b.ID, ttl)
		if err != nil {
			s.logger.Warn("reminder claim failed", "booking_id", b.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		if err := s.sender.Send(ctx, notify.ReminderEmail(b, s.clinic)); err != nil {
			s.metrics.ObserveNotification("reminder", false)
			s.logger.Warn("reminder email failed", "booking_id", b.ID, "error", err)
			if err := s.dedupe.Unclaim(ctx, b.ID); err != nil {
				s.logger.Warn("reminder unclaim failed", "booking_id", b.ID, "error", err)
			}
			continue
		}
		s.metrics.ObserveNotification("reminder", true)
		sent++
	}
	if sent > 0 {
		s.logger.Info("reminders sent", "count", sent)
	}
	return sent, nil
}

// Start schedules RunOnce on the cron spec until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	loc := s.clinic.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("reminder run failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("reminders: invalid schedule %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.logger.Info("reminder scheduler started", "schedule", s.spec, "lead_time", s.lead.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

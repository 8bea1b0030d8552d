package sweeperworker

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/clock"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

type slotSweeper interface {
	SweepExpired(now time.Time) int
	Stats() (held, confirmed int)
}

type sessionSweeper interface {
	SweepExpired(now time.Time) int
	Len() int
}

// Sweeper periodically frees lapsed slot holds and idle sessions.
type Sweeper struct {
	slots    slotSweeper
	sessions sessionSweeper
	clock    clock.Clock
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics
	interval time.Duration
}

func NewSweeper(slots slotSweeper, sessions sessionSweeper, clk clock.Clock, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Sweeper{
		slots:    slots,
		sessions: sessions,
		clock:    clk,
		logger:   logger.WithComponent("sweeper"),
		interval: 30 * time.Second,
	}
}

func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Sweeper) WithMetrics(m *metrics.BookingMetrics) *Sweeper {
	s.metrics = m
	return s
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.SweepOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce expires sessions first so the holds they release are not
// counted twice, then clears any holds that lapsed on their own.
func (s *Sweeper) SweepOnce() (sessions, holds int) {
	now := s.clock.Now()
	if s.sessions != nil {
		sessions = s.sessions.SweepExpired(now)
		s.metrics.ObserveSweep("session", sessions)
		s.metrics.SetActiveSessions(s.sessions.Len())
	}
	if s.slots != nil {
		holds = s.slots.SweepExpired(now)
		s.metrics.ObserveSweep("hold", holds)
	}
	if sessions > 0 || holds > 0 {
		s.logger.Info("sweep completed", "expired_sessions", sessions, "expired_holds", holds)
	}
	return sessions, holds
}

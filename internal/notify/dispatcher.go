package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/observability/metrics"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 256
	defaultTimeout   = 10 * time.Second
)

// Dispatcher fans confirmed bookings out to notification sinks on a small
// worker pool. Sink failures are recorded on the booking and never reach the
// caller.
type Dispatcher struct {
	sinks    []bookings.Notifier
	recorder bookings.NotificationRecorder
	queue    chan bookings.Booking
	workers  int
	timeout  time.Duration
	logger   *logging.Logger
	metrics  *metrics.BookingMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan bookings.Booking, n)
		}
	}
}

// WithTimeout bounds each sink call.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithRecorder persists delivery outcomes on the booking.
func WithRecorder(r bookings.NotificationRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

func WithLogger(logger *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher starts the worker pool. Call Close to drain it.
func NewDispatcher(sinks []bookings.Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		workers: defaultWorkers,
		timeout: defaultTimeout,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.queue == nil {
		d.queue = make(chan bookings.Booking, defaultQueueSize)
	}
	d.logger = d.logger.WithComponent("notify")

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Dispatch queues b for delivery without blocking. A full queue drops the
// notification with a warning.
func (d *Dispatcher) Dispatch(b bookings.Booking) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped after shutdown", "booking_id", b.ID)
		return
	}
	select {
	case d.queue <- b:
	default:
		d.logger.Warn("notification queue full, dropping", "booking_id", b.ID)
		for _, sink := range d.sinks {
			d.metrics.ObserveNotification(sink.Name(), false)
		}
	}
}

// Deliver runs every sink for b and records the outcome.
func (d *Dispatcher) Deliver(b bookings.Booking) []bookings.NotificationStatus {
	statuses := make([]bookings.NotificationStatus, 0, len(d.sinks))
	for _, sink := range d.sinks {
		st := d.notify(sink, b)
		d.metrics.ObserveNotification(sink.Name(), st.Sent)
		if st.Sent {
			d.logger.Info("notification sent", "booking_id", b.ID, "channel", st.Channel)
		} else {
			d.logger.Warn("notification failed", "booking_id", b.ID, "channel", st.Channel, "detail", st.Detail)
		}
		statuses = append(statuses, st)
	}

	if d.recorder != nil && len(statuses) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.recorder.RecordNotifications(ctx, b.ID, statuses); err != nil {
			d.logger.Warn("failed to record notification status", "booking_id", b.ID, "error", err)
		}
	}
	return statuses
}

func (d *Dispatcher) notify(sink bookings.Notifier, b bookings.Booking) (st bookings.NotificationStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			st = bookings.NotificationStatus{Channel: sink.Name(), Detail: fmt.Sprintf("panic: %v", r), At: time.Now().UTC()}
		}
	}()
	st = sink.Notify(ctx, b)
	if st.Channel == "" {
		st.Channel = sink.Name()
	}
	return st
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for b := range d.queue {
		d.Deliver(b)
	}
}

// Close stops accepting bookings and waits for queued deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

var _ bookings.Dispatcher = (*Dispatcher)(nil)

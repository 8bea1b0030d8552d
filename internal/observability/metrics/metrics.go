package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking core.
type BookingMetrics struct {
	reservations   *prometheus.CounterVec
	commits        *prometheus.CounterVec
	storeAttempts  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	activeSessions prometheus.Gauge
	messages       *prometheus.CounterVec
	messageLatency *prometheus.HistogramVec
	sweeps         *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Slot reservation attempts by outcome",
		}, []string{"outcome"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "commits_total",
			Help:      "Booking commit attempts by outcome",
		}, []string{"outcome"}),
		storeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "store_attempts_total",
			Help:      "Appointment store append attempts by status",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and status",
		}, []string{"channel", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "sessions_active",
			Help:      "Conversation sessions currently held in memory",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Inbound messages by resulting state and outcome",
		}, []string{"state", "outcome"}),
		messageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "message_seconds",
			Help:      "Latency of inbound message processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "sweeper",
			Name:      "expired_total",
			Help:      "Expired sessions and reservation holds removed",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.reservations,
		m.commits,
		m.storeAttempts,
		m.notifications,
		m.activeSessions,
		m.messages,
		m.messageLatency,
		m.sweeps,
	)
	return m
}

func (m *BookingMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveCommit(outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveStoreAttempt(status string) {
	if m == nil {
		return
	}
	m.storeAttempts.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveNotification(channel string, sent bool) {
	if m == nil {
		return
	}
	status := "failed"
	if sent {
		status = "sent"
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *BookingMetrics) ObserveMessage(state, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(state, outcome).Inc()
	m.messageLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BookingMetrics) ObserveSweep(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweeps.WithLabelValues(kind).Add(float64(n))
}

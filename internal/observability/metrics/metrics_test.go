package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestBookingMetricsObserve(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())
	m.ObserveReservation("reserved")
	m.ObserveCommit("confirmed")
	m.ObserveStoreAttempt("ok")
	m.ObserveNotification("email", true)
	m.SetActiveSessions(3)
	m.ObserveMessage("awaiting_age", "prompt", 0.01)
	m.ObserveSweep("session", 2)
}

func TestBookingMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveReservation("taken")
	m.ObserveReservation("taken")
	m.ObserveNotification("calendar", false)
	m.ObserveSweep("hold", 0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	res := byName["clinic_booking_reservations_total"]
	if res == nil || len(res.GetMetric()) != 1 {
		t.Fatalf("expected one reservation series, got %v", res)
	}
	if got := res.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 reservations, got %v", got)
	}

	notif := byName["clinic_booking_notifications_total"]
	if notif == nil {
		t.Fatalf("expected notifications family")
	}
	labels := notif.GetMetric()[0].GetLabel()
	found := false
	for _, l := range labels {
		if l.GetName() == "status" && l.GetValue() == "failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected failed status label, got %v", labels)
	}

	if _, ok := byName["clinic_sweeper_expired_total"]; ok {
		t.Fatalf("expected zero sweep count to be skipped")
	}
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveReservation("reserved")
	m.ObserveCommit("failed")
	m.ObserveStoreAttempt("error")
	m.ObserveNotification("email", false)
	m.SetActiveSessions(1)
	m.ObserveMessage("completed", "booked", 0.2)
	m.ObserveSweep("session", 1)
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type fakeCalendar struct {
	mu     sync.Mutex
	events []calendar.Event
	paths  []string
	fail   bool
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
		return
	}
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/events") {
		http.Error(w, "unexpected request", http.StatusNotFound)
		return
	}
	var ev calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.events = append(f.events, ev)
	f.paths = append(f.paths, r.URL.Path)
	ev.Id = "evt-1"
	_ = json.NewEncoder(w).Encode(ev)
}

func newCalendarTestSink(t *testing.T, fake *fakeCalendar, loc *time.Location) *CalendarSink {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("calendar service: %v", err)
	}
	return NewCalendarSink(svc, "clinic@group.calendar.google.com", ClinicInfo{Address: "123 Health Street", Location: loc}, 30*time.Minute, nil)
}

func TestCalendarSinkCreatesEvent(t *testing.T) {
	fake := &fakeCalendar{}
	sink := newCalendarTestSink(t, fake, time.UTC)

	st := sink.Notify(context.Background(), sampleBooking())
	if !st.Sent || st.Detail != "evt-1" {
		t.Fatalf("expected created event, got %+v", st)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.events) != 1 {
		t.Fatalf("expected one event, got %d", len(fake.events))
	}
	ev := fake.events[0]
	if ev.Summary != "Appointment: Jane Doe with Dr. Sarah Smith" {
		t.Errorf("unexpected summary %q", ev.Summary)
	}
	if ev.Start.DateTime != "2025-08-20T10:00:00Z" || ev.End.DateTime != "2025-08-20T10:30:00Z" {
		t.Errorf("unexpected times %s - %s", ev.Start.DateTime, ev.End.DateTime)
	}
	if ev.Reminders == nil || ev.Reminders.UseDefault || len(ev.Reminders.Overrides) != 2 {
		t.Fatalf("unexpected reminders %+v", ev.Reminders)
	}
	if ev.Reminders.Overrides[0].Minutes != 1440 || ev.Reminders.Overrides[1].Method != "popup" {
		t.Errorf("unexpected reminder overrides %+v %+v", ev.Reminders.Overrides[0], ev.Reminders.Overrides[1])
	}
	if !strings.Contains(ev.Description, "Notes: None") {
		t.Errorf("description missing notes: %s", ev.Description)
	}
	if !strings.Contains(fake.paths[0], "clinic@group.calendar.google.com") {
		t.Errorf("unexpected path %s", fake.paths[0])
	}
}

func TestCalendarSinkUsesClinicTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	fake := &fakeCalendar{}
	sink := newCalendarTestSink(t, fake, loc)

	b := sampleBooking()
	b.StartsAt = time.Time{}
	if st := sink.Notify(context.Background(), b); !st.Sent {
		t.Fatalf("expected sent, got %+v", st)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if got := fake.events[0].Start.DateTime; got != "2025-08-20T10:00:00-04:00" {
		t.Errorf("unexpected start %s", got)
	}
	if got := fake.events[0].Start.TimeZone; got != "America/New_York" {
		t.Errorf("unexpected zone %s", got)
	}
}

func TestCalendarSinkReportsFailure(t *testing.T) {
	fake := &fakeCalendar{fail: true}
	sink := newCalendarTestSink(t, fake, time.UTC)
	st := sink.Notify(context.Background(), sampleBooking())
	if st.Sent || st.Detail == "" {
		t.Fatalf("expected failure status, got %+v", st)
	}
}

func TestNewCalendarSinkRequiresCalendar(t *testing.T) {
	if NewCalendarSink(nil, "id", ClinicInfo{}, 0, nil) != nil {
		t.Error("expected nil sink without service")
	}
}

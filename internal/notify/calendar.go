package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	"github.com/wolfman30/clinic-appointment-bot/internal/catalog"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
	"google.golang.org/api/calendar/v3"
)

const defaultAppointmentDuration = 30 * time.Minute

// CalendarSink adds confirmed appointments to a shared Google Calendar.
type CalendarSink struct {
	events     *calendar.EventsService
	calendarID string
	clinic     ClinicInfo
	duration   time.Duration
	logger     *logging.Logger
}

// NewCalendarSink returns nil when svc is nil or no calendar id is set.
func NewCalendarSink(svc *calendar.Service, calendarID string, clinic ClinicInfo, duration time.Duration, logger *logging.Logger) *CalendarSink {
	if svc == nil || strings.TrimSpace(calendarID) == "" {
		return nil
	}
	if duration <= 0 {
		duration = defaultAppointmentDuration
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarSink{
		events:     svc.Events,
		calendarID: calendarID,
		clinic:     clinic.withDefaults(),
		duration:   duration,
		logger:     logger,
	}
}

func (s *CalendarSink) Name() string { return "calendar" }

func (s *CalendarSink) Notify(ctx context.Context, b bookings.Booking) bookings.NotificationStatus {
	status := bookings.NotificationStatus{Channel: s.Name(), At: time.Now().UTC()}
	event, err := s.event(b)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	created, err := s.events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		s.logger.Warn("calendar event insert failed", "booking_id", b.ID, "error", err)
		status.Detail = fmt.Sprintf("notify: calendar insert: %v", err)
		return status
	}
	status.Sent = true
	status.Detail = created.Id
	return status
}

func (s *CalendarSink) event(b bookings.Booking) (*calendar.Event, error) {
	start := b.StartsAt
	if start.IsZero() {
		var err error
		start, err = catalog.SlotStart(b.Slot.Date, b.Slot.Time, s.clinic.Location)
		if err != nil {
			return nil, err
		}
	}
	start = start.In(s.clinic.Location)
	end := start.Add(s.duration)
	zone := s.clinic.Location.String()

	description := strings.Join([]string{
		"Appointment ID: " + b.ID,
		"Patient: " + b.Patient.Name,
		fmt.Sprintf("Age: %d", b.Patient.Age),
		"Gender: " + b.Patient.Gender,
		"Phone: " + b.Patient.Phone,
		"Email: " + b.Patient.Email,
		"Reason for visit: " + b.Patient.Complaint,
		"Notes: " + orNone(b.Patient.Notes),
	}, "\n")

	return &calendar.Event{
		Summary:     fmt.Sprintf("Appointment: %s with %s", b.Patient.Name, b.DoctorName),
		Description: description,
		Location:    s.clinic.Address,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: zone},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: zone},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}, nil
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

var _ bookings.Notifier = (*CalendarSink)(nil)

package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
)

// ClinicInfo is the practice information printed on patient emails.
type ClinicInfo struct {
	Name     string
	Address  string
	Location *time.Location
}

func (c ClinicInfo) withDefaults() ClinicInfo {
	if c.Name == "" {
		c.Name = "City Clinic"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

func appointmentWhen(b bookings.Booking, loc *time.Location) string {
	if b.StartsAt.IsZero() {
		return fmt.Sprintf("%s at %s", b.Slot.Date, b.Slot.Time)
	}
	return b.StartsAt.In(loc).Format("Monday, January 2, 2006 at 3:04 PM")
}

func detailRows(b bookings.Booking, clinic ClinicInfo) [][2]string {
	rows := [][2]string{
		{"Appointment ID", b.ID},
		{"Patient", b.Patient.Name},
		{"Doctor", fmt.Sprintf("%s (%s)", b.DoctorName, b.Specialty)},
		{"When", appointmentWhen(b, clinic.Location)},
		{"Consultation fee", b.Fee},
	}
	if clinic.Address != "" {
		rows = append(rows, [2]string{"Location", clinic.Address})
	}
	return rows
}

func textTable(rows [][2]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s: %s", r[0], r[1]))
	}
	return strings.Join(lines, "\n")
}

func htmlTable(rows [][2]string) string {
	var b strings.Builder
	b.WriteString(`<table style="border-collapse: collapse; margin: 20px 0;">`)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
			html.EscapeString(r[0]), html.EscapeString(r[1]))
	}
	b.WriteString(`</table>`)
	return b.String()
}

// ConfirmationEmail is sent to the patient once a booking is confirmed.
func ConfirmationEmail(b bookings.Booking, clinic ClinicInfo) EmailMessage {
	clinic = clinic.withDefaults()
	rows := detailRows(b, clinic)

	body := fmt.Sprintf(`Dear %s,

Your appointment has been confirmed.

%s

Please arrive 15 minutes early and bring a photo ID. If you need to reschedule, reply to this email with your appointment ID.

%s`, b.Patient.Name, textTable(rows), clinic.Name)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">Appointment Confirmed</h2>
<p>Dear %s, your appointment has been confirmed.</p>
%s
<p>Please arrive 15 minutes early and bring a photo ID.</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">%s</p>
</div>`, html.EscapeString(b.Patient.Name), htmlTable(rows), html.EscapeString(clinic.Name))

	return EmailMessage{
		To:        b.Patient.Email,
		ToName:    b.Patient.Name,
		Subject:   "Appointment Confirmation - " + b.ID,
		Body:      body,
		HTML:      htmlBody,
		BookingID: b.ID,
		Kind:      KindConfirmation,
	}
}

// ReminderEmail is sent ahead of an upcoming appointment.
func ReminderEmail(b bookings.Booking, clinic ClinicInfo) EmailMessage {
	clinic = clinic.withDefaults()
	rows := detailRows(b, clinic)

	body := fmt.Sprintf(`Dear %s,

This is a reminder of your upcoming appointment.

%s

Please arrive 15 minutes early.

%s`, b.Patient.Name, textTable(rows), clinic.Name)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">Appointment Reminder</h2>
<p>Dear %s, this is a reminder of your upcoming appointment.</p>
%s
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">%s</p>
</div>`, html.EscapeString(b.Patient.Name), htmlTable(rows), html.EscapeString(clinic.Name))

	return EmailMessage{
		To:        b.Patient.Email,
		ToName:    b.Patient.Name,
		Subject:   "Appointment Reminder - " + b.ID,
		Body:      body,
		HTML:      htmlBody,
		BookingID: b.ID,
		Kind:      KindReminder,
	}
}

package bookings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// SheetHeader is the column layout of the appointment worksheet.
var SheetHeader = []string{
	"Timestamp",
	"Appointment ID",
	"Status",
	"Doctor ID",
	"Doctor Name",
	"Specialization",
	"Consultation Fee",
	"Patient Name",
	"Age",
	"Gender",
	"Number",
	"Email-ID",
	"Chief Complaint",
	"Preferred Date",
	"Preferred Time",
	"Additional Notes",
	"Notifications",
}

const (
	colID     = 1
	colStatus = 2
	colDoctor = 3
	colDate   = 13
	colTime   = 14
	colNotify = 16

	sheetTimestampLayout = "2006-01-02 15:04:05"
)

// SheetsStore keeps the appointment ledger in a Google Sheets worksheet, one
// row per booking. Delivery outcomes are appended to the Notifications column.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	logger        *logging.Logger

	// appends are check-then-write; serialize them within the process.
	mu sync.Mutex
}

func NewSheetsStore(svc *sheets.Service, spreadsheetID, worksheet string, logger *logging.Logger) *SheetsStore {
	if svc == nil {
		panic("bookings: sheets service required")
	}
	if worksheet == "" {
		worksheet = "Appointments"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		logger:        logger,
	}
}

func (s *SheetsStore) rng(cells string) string {
	return fmt.Sprintf("%s!%s", s.worksheet, cells)
}

// EnsureHeader writes the header row when the worksheet is empty.
func (s *SheetsStore) EnsureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A1:Q1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: read sheet header: %w", ErrStore, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]interface{}, len(SheetHeader))
	for i, h := range SheetHeader {
		header[i] = h
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rng("A1:Q1"), &sheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: write sheet header: %w", ErrStore, err)
	}
	s.logger.Info("appointment sheet header created", "spreadsheet_id", s.spreadsheetID, "worksheet", s.worksheet)
	return nil
}

func (s *SheetsStore) ListActiveBookings(ctx context.Context) ([]availability.SlotKey, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var keys []availability.SlotKey
	for _, row := range rows {
		if !rowConfirmed(row) {
			continue
		}
		key := rowSlot(row)
		if key.DoctorID == "" || key.Date == "" || key.Time == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Append adds a row unless the booking id is already present in the sheet.
// A different booking for a slot that already has a confirmed row yields
// ErrSlotConflict.
func (s *SheetsStore) Append(ctx context.Context, b Booking) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.sheets.append")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	for _, row := range rows {
		if cell(row, colID) == b.ID {
			return nil
		}
	}
	for _, row := range rows {
		if rowConfirmed(row) && rowSlot(row) == b.Slot {
			return fmt.Errorf("%w: %s held by %s", ErrSlotConflict, b.Slot, cell(row, colID))
		}
	}

	notes := b.Patient.Notes
	if notes == "" {
		notes = "None"
	}
	row := []interface{}{
		b.CreatedAt.UTC().Format(sheetTimestampLayout),
		b.ID,
		"Confirmed",
		b.Slot.DoctorID,
		b.DoctorName,
		b.Specialty,
		b.Fee,
		b.Patient.Name,
		strconv.Itoa(b.Patient.Age),
		b.Patient.Gender,
		b.Patient.Phone,
		b.Patient.Email,
		b.Patient.Complaint,
		b.Slot.Date,
		b.Slot.Time,
		notes,
		"",
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng("A:Q"), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: append booking row: %w", ErrStore, err)
	}
	return nil
}

// RecordNotifications appends delivery outcomes to the booking's
// Notifications cell, e.g. "email: sent; calendar: failed (quota)".
func (s *SheetsStore) RecordNotifications(ctx context.Context, bookingID string, statuses []NotificationStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	ctx, span := bookingsTracer.Start(ctx, "bookings.sheets.record_notifications")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	for i, row := range rows {
		if cell(row, colID) != bookingID {
			continue
		}
		parts := make([]string, 0, len(statuses)+1)
		if existing := cell(row, colNotify); existing != "" {
			parts = append(parts, existing)
		}
		for _, st := range statuses {
			parts = append(parts, formatNotification(st))
		}
		// Data starts on sheet row 2.
		target := s.rng(fmt.Sprintf("Q%d", i+2))
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, target, &sheets.ValueRange{
			Values: [][]interface{}{{strings.Join(parts, "; ")}},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: record notifications for %s: %w", ErrStore, bookingID, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
}

func formatNotification(st NotificationStatus) string {
	outcome := "sent"
	if !st.Sent {
		outcome = "failed"
	}
	if st.Detail != "" && !st.Sent {
		return fmt.Sprintf("%s: %s (%s)", st.Channel, outcome, st.Detail)
	}
	return fmt.Sprintf("%s: %s", st.Channel, outcome)
}

func rowConfirmed(row []interface{}) bool {
	return strings.EqualFold(cell(row, colStatus), string(StatusConfirmed))
}

func rowSlot(row []interface{}) availability.SlotKey {
	return availability.SlotKey{DoctorID: cell(row, colDoctor), Date: cell(row, colDate), Time: cell(row, colTime)}
}

// ListConfirmedBetween parses confirmed rows whose slot starts in [from, to).
func (s *SheetsStore) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	loc := from.Location()
	var out []Booking
	for _, row := range rows {
		if !rowConfirmed(row) {
			continue
		}
		b := bookingFromRow(row)
		starts, err := time.ParseInLocation("2006-01-02 03:04 PM", b.Slot.Date+" "+b.Slot.Time, loc)
		if err != nil {
			continue
		}
		b.StartsAt = starts
		if starts.Before(from) || !starts.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *SheetsStore) readRows(ctx context.Context) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng("A2:Q")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet rows: %w", ErrStore, err)
	}
	return resp.Values, nil
}

func bookingFromRow(row []interface{}) Booking {
	age, _ := strconv.Atoi(cell(row, 8))
	notes := cell(row, 15)
	if strings.EqualFold(notes, "none") {
		notes = ""
	}
	created, _ := time.Parse(sheetTimestampLayout, cell(row, 0))
	return Booking{
		ID:         cell(row, colID),
		Status:     StatusConfirmed,
		Slot:       rowSlot(row),
		DoctorName: cell(row, 4),
		Specialty:  cell(row, 5),
		Fee:        cell(row, 6),
		Patient: Patient{
			Name:      cell(row, 7),
			Age:       age,
			Gender:    cell(row, 9),
			Phone:     cell(row, 10),
			Email:     cell(row, 11),
			Complaint: cell(row, 12),
			Notes:     notes,
		},
		CreatedAt: created,
	}
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

var (
	_ Store                = (*SheetsStore)(nil)
	_ UpcomingLister       = (*SheetsStore)(nil)
	_ NotificationRecorder = (*SheetsStore)(nil)
)

package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-appointment-bot/internal/availability"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists bookings in the appointments table.
type PostgresStore struct {
	db querier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("bookings: querier required")
	}
	return &PostgresStore{db: db}
}

const bookingColumns = `id, user_id, status, doctor_id, doctor_name, specialty, fee,
	to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, starts_at,
	patient_name, patient_age, patient_gender, patient_phone, patient_email,
	chief_complaint, notes, notifications, created_at`

func (s *PostgresStore) ListActiveBookings(ctx context.Context) ([]availability.SlotKey, error) {
	query := `
		SELECT doctor_id, to_char(appointment_date, 'YYYY-MM-DD'), appointment_time
		FROM appointments
		WHERE status = 'confirmed'
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list active: %w", ErrStore, err)
	}
	defer rows.Close()

	var keys []availability.SlotKey
	for rows.Next() {
		var key availability.SlotKey
		if err := rows.Scan(&key.DoctorID, &key.Date, &key.Time); err != nil {
			return nil, fmt.Errorf("%w: scan active: %w", ErrStore, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list active: %w", ErrStore, err)
	}
	return keys, nil
}

// Append inserts the booking as confirmed. Re-inserting the same id is a no-op;
// a different booking for an already confirmed slot yields ErrSlotConflict.
func (s *PostgresStore) Append(ctx context.Context, b Booking) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.postgres.append")
	defer span.End()

	query := `
		INSERT INTO appointments (
			id, user_id, status, doctor_id, doctor_name, specialty, fee,
			appointment_date, appointment_time, starts_at,
			patient_name, patient_age, patient_gender, patient_phone, patient_email,
			chief_complaint, notes, created_at
		)
		VALUES ($1, $2, 'confirmed', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.Exec(ctx, query,
		b.ID, b.UserID, b.Slot.DoctorID, b.DoctorName, b.Specialty, b.Fee,
		b.Slot.Date, b.Slot.Time, b.StartsAt,
		b.Patient.Name, b.Patient.Age, b.Patient.Gender, b.Patient.Phone, b.Patient.Email,
		b.Patient.Complaint, b.Patient.Notes, b.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrSlotConflict, b.Slot)
		}
		return fmt.Errorf("%w: insert booking: %w", ErrStore, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM appointments WHERE id = $1`
	b, err := scanBooking(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
		}
		return Booking{}, fmt.Errorf("%w: get booking: %w", ErrStore, err)
	}
	return b, nil
}

func (s *PostgresStore) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM appointments
		WHERE status = 'confirmed' AND starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: list upcoming: %w", ErrStore, err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan upcoming: %w", ErrStore, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list upcoming: %w", ErrStore, err)
	}
	return out, nil
}

func (s *PostgresStore) RecordNotifications(ctx context.Context, bookingID string, statuses []NotificationStatus) error {
	payload, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("bookings: marshal notifications: %w", err)
	}
	query := `UPDATE appointments SET notifications = notifications || $2::jsonb WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, bookingID, payload)
	if err != nil {
		return fmt.Errorf("%w: record notifications: %w", ErrStore, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	return nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		b             Booking
		status        string
		notifications []byte
	)
	err := row.Scan(
		&b.ID, &b.UserID, &status, &b.Slot.DoctorID, &b.DoctorName, &b.Specialty, &b.Fee,
		&b.Slot.Date, &b.Slot.Time, &b.StartsAt,
		&b.Patient.Name, &b.Patient.Age, &b.Patient.Gender, &b.Patient.Phone, &b.Patient.Email,
		&b.Patient.Complaint, &b.Patient.Notes, &notifications, &b.CreatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	b.Status = Status(status)
	if len(notifications) > 0 {
		if err := json.Unmarshal(notifications, &b.Notifications); err != nil {
			return Booking{}, fmt.Errorf("decode notifications: %w", err)
		}
	}
	return b, nil
}

var (
	_ Store                = (*PostgresStore)(nil)
	_ NotificationRecorder = (*PostgresStore)(nil)
	_ UpcomingLister       = (*PostgresStore)(nil)
	_ Finder               = (*PostgresStore)(nil)
)

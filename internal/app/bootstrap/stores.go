package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/clinic-appointment-bot/internal/bookings"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

// BuildBookingStore selects the appointment ledger named by BOOKING_STORE:
// "memory", "postgres" or "sheets".
func BuildBookingStore(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, sheetsSvc *sheets.Service, logger *logging.Logger) (bookings.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.BookingStore {
	case "", "memory":
		logger.Warn("using in-memory booking store; appointments are lost on restart")
		return bookings.NewMemoryStore(), nil
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: BOOKING_STORE=postgres requires DATABASE_URL")
		}
		logger.Info("using postgres booking store")
		return bookings.NewPostgresStore(pool), nil
	case "sheets":
		if sheetsSvc == nil {
			return nil, fmt.Errorf("bootstrap: BOOKING_STORE=sheets requires GOOGLE_SHEETS_ID and Google credentials")
		}
		store := bookings.NewSheetsStore(sheetsSvc, cfg.GoogleSheetsID, cfg.GoogleSheetsWorksheet, logger)
		if err := store.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: prepare worksheet: %w", err)
		}
		logger.Info("using google sheets booking store", "worksheet", cfg.GoogleSheetsWorksheet)
		return store, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown booking store %q", cfg.BookingStore)
	}
}

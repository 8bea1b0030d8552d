package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
)

// googleClientOptions returns the service account credentials for Google
// APIs. Inline JSON wins over a file path.
func googleClientOptions(cfg *appconfig.Config, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(scopes...)}
	if raw := strings.TrimSpace(cfg.GoogleCredentialsJSON); raw != "" {
		return append(opts, option.WithCredentialsJSON([]byte(raw)))
	}
	return append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
}

// BuildSheetsService returns a Sheets client, or nil when Google credentials
// or the spreadsheet id are missing.
func BuildSheetsService(ctx context.Context, cfg *appconfig.Config) (*sheets.Service, error) {
	if cfg == nil || !cfg.GoogleEnabled() || strings.TrimSpace(cfg.GoogleSheetsID) == "" {
		return nil, nil
	}
	svc, err := sheets.NewService(ctx, googleClientOptions(cfg, sheets.SpreadsheetsScope)...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: sheets client: %w", err)
	}
	return svc, nil
}

// BuildCalendarService returns a Calendar client, or nil when Google
// credentials or the calendar id are missing.
func BuildCalendarService(ctx context.Context, cfg *appconfig.Config) (*calendar.Service, error) {
	if cfg == nil || !cfg.GoogleEnabled() || strings.TrimSpace(cfg.GoogleCalendarID) == "" {
		return nil, nil
	}
	svc, err := calendar.NewService(ctx, googleClientOptions(cfg, calendar.CalendarEventsScope)...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: calendar client: %w", err)
	}
	return svc, nil
}

package main

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

func TestUsesSES(t *testing.T) {
	cases := []struct {
		provider, from string
		want           bool
	}{
		{"ses", "", true},
		{"auto", "clinic@example.com", true},
		{"auto", "", false},
		{"sendgrid", "clinic@example.com", false},
		{"stub", "", false},
	}
	for _, tc := range cases {
		cfg := &appconfig.Config{EmailProvider: tc.provider, SESFromEmail: tc.from}
		if got := usesSES(cfg); got != tc.want {
			t.Errorf("usesSES(%q, %q) = %v, want %v", tc.provider, tc.from, got, tc.want)
		}
	}
}

func TestConnectDependenciesWithNothingConfigured(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "stub"}
	deps, cleanup, err := connectDependencies(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	if deps.AWS != nil || deps.Redis != nil || deps.Postgres != nil || deps.Sheets != nil || deps.Calendar != nil {
		t.Fatalf("expected no external clients, got %+v", deps)
	}
}

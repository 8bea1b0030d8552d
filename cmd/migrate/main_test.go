package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"

	appmigrations "github.com/wolfman30/clinic-appointment-bot/migrations"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	forced  int
	upErr   error
	version uint
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return nil
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, false, nil
}

func TestRunDefaultsToUp(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	if err := run(m, nil); err != nil {
		t.Fatalf("expected no-change to be ignored, got %v", err)
	}
	if len(m.calls) != 1 || m.calls[0] != "up" {
		t.Fatalf("expected up, got %v", m.calls)
	}
}

func TestRunUpPropagatesErrors(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("boom")}
	if err := run(m, []string{"up"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunDownSteps(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, []string{"down", "2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.steps != -2 {
		t.Fatalf("expected -2 steps, got %d", m.steps)
	}
	if err := run(m, []string{"down", "zero"}); err == nil {
		t.Fatalf("expected error for invalid steps")
	}
}

func TestRunForceAndUsage(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, []string{"force", "1"}); err != nil || m.forced != 1 {
		t.Fatalf("expected force to version 1, got %d %v", m.forced, err)
	}
	if err := run(m, []string{"force"}); err == nil {
		t.Fatalf("expected usage error without version")
	}
	if err := run(m, []string{"sideways"}); err == nil || !strings.HasPrefix(err.Error(), "usage") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(appmigrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	ups, downs := 0, 0
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups++
		case strings.HasSuffix(name, ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up / %d down", ups, downs)
	}
}

package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		t.Parallel()

		cfg, err := load(map[string]string{"RAIDCTL_ADMIN_TOKEN_HASH": " $argon2id$hash "})
		if err != nil {
			t.Fatalf("load returned error: %v", err)
		}
		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "raidctl.db" || cfg.RulesPath != "rules.yaml" {
			t.Fatalf("unexpected default paths: %q %q", cfg.SQLitePath, cfg.RulesPath)
		}
		if cfg.TickInterval != time.Second {
			t.Fatalf("expected default tick 1s, got %s", cfg.TickInterval)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC location, got %v", cfg.Location)
		}
		if cfg.AdminTokenHash != "$argon2id$hash" {
			t.Fatalf("expected trimmed token hash, got %q", cfg.AdminTokenHash)
		}
		if !cfg.LastWipe.IsZero() {
			t.Fatalf("expected no wipe override, got %v", cfg.LastWipe)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		t.Parallel()

		_, err := load(map[string]string{})
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		if !strings.Contains(err.Error(), "RAIDCTL_ADMIN_TOKEN_HASH") {
			t.Fatalf("expected error to name the missing variable, got %q", err.Error())
		}
	})

	t.Run("parses typed fields", func(t *testing.T) {
		t.Parallel()

		cfg, err := load(map[string]string{
			"RAIDCTL_ADMIN_TOKEN_HASH": "hash",
			"RAIDCTL_HTTP_PORT":        "9090",
			"RAIDCTL_SQLITE_PATH":      "/var/lib/raidctl/raid.db",
			"RAIDCTL_TICK_INTERVAL":    "250ms",
			"RAIDCTL_TIMEZONE":         "+2",
			"RAIDCTL_LAST_WIPE":        "2024-03-01T18:00:00Z",
		})
		if err != nil {
			t.Fatalf("load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.TickInterval != 250*time.Millisecond {
			t.Fatalf("unexpected parsed values: %+v", cfg)
		}
		if _, offset := time.Date(2024, 3, 1, 0, 0, 0, 0, cfg.Location).Zone(); offset != 2*3600 {
			t.Fatalf("expected +2h offset, got %d", offset)
		}
		if want := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC); !cfg.LastWipe.Equal(want) {
			t.Fatalf("expected last wipe %v, got %v", want, cfg.LastWipe)
		}
	})

	t.Run("aggregates invalid values", func(t *testing.T) {
		t.Parallel()

		_, err := load(map[string]string{
			"RAIDCTL_ADMIN_TOKEN_HASH": "hash",
			"RAIDCTL_HTTP_PORT":        "0",
			"RAIDCTL_TICK_INTERVAL":    "-1s",
			"RAIDCTL_TIMEZONE":         "Mars/Olympus",
		})
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid environment variable values: RAIDCTL_HTTP_PORT, RAIDCTL_TICK_INTERVAL, RAIDCTL_TIMEZONE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rejects unparsable numbers", func(t *testing.T) {
		t.Parallel()

		_, err := load(map[string]string{"RAIDCTL_ADMIN_TOKEN_HASH": "hash", "RAIDCTL_HTTP_PORT": "eighty"})
		if err == nil || !strings.HasPrefix(err.Error(), "parse env:") {
			t.Fatalf("expected parse env error, got %v", err)
		}
	})
}

func TestParseLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value  string
		offset int
		err    bool
	}{
		{value: "", offset: 0},
		{value: "UTC", offset: 0},
		{value: "+2", offset: 2 * 3600},
		{value: "-5", offset: -5 * 3600},
		{value: "+5:30", offset: 5*3600 + 30*60},
		{value: "+15", err: true},
		{value: "+2:7", err: true},
		{value: "+x", err: true},
		{value: "Nowhere/Special", err: true},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Parallel()

			loc, err := ParseLocation(tc.value)
			if tc.err {
				if !errors.Is(err, ErrInvalidTimezone) {
					t.Fatalf("expected ErrInvalidTimezone, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) error = %v", tc.value, err)
			}
			if _, offset := time.Date(2024, 1, 15, 12, 0, 0, 0, loc).Zone(); offset != tc.offset {
				t.Fatalf("expected offset %d, got %d", tc.offset, offset)
			}
		})
	}
}

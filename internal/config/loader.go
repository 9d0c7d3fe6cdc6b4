package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "RAIDCTL_"

// ErrInvalidTimezone is returned for a timezone that is neither an IANA name
// nor a signed hour offset.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Config captures environment driven configuration values for the raid controller.
type Config struct {
	HTTPPort       int           `env:"HTTP_PORT" envDefault:"8080"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"raidctl.db"`
	RulesPath      string        `env:"RULES_PATH" envDefault:"rules.yaml"`
	Timezone       string        `env:"TIMEZONE" envDefault:"UTC"`
	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	AdminTokenHash string        `env:"ADMIN_TOKEN_HASH,required,notEmpty"`
	// LastWipe overrides the stored wipe history when set (RFC3339).
	LastWipe time.Time `env:"LAST_WIPE"`

	// Location is Timezone resolved by Load.
	Location *time.Location `env:"-"`
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return load(nil)
}

// load parses environ, or the process environment when environ is nil.
func load(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	cfg.RulesPath = strings.TrimSpace(cfg.RulesPath)
	cfg.AdminTokenHash = strings.TrimSpace(cfg.AdminTokenHash)

	invalid := make([]string, 0, 3)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, Prefix+"HTTP_PORT")
	}
	if cfg.SQLitePath == "" {
		invalid = append(invalid, Prefix+"SQLITE_PATH")
	}
	if cfg.TickInterval <= 0 {
		invalid = append(invalid, Prefix+"TICK_INTERVAL")
	}
	loc, err := ParseLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, Prefix+"TIMEZONE")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	cfg.Location = loc
	return cfg, nil
}

// ParseLocation resolves an IANA zone name or a signed hour offset such as
// "+2", "-5" or "+5:30".
func ParseLocation(value string) (*time.Location, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.UTC, nil
	}
	if value[0] != '+' && value[0] != '-' {
		loc, err := time.LoadLocation(value)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, value, err)
		}
		return loc, nil
	}

	sign := 1
	if value[0] == '-' {
		sign = -1
	}
	hoursPart, minutesPart, hasMinutes := strings.Cut(value[1:], ":")
	hours, err := strconv.Atoi(hoursPart)
	if err != nil || hours < 0 || hours > 14 {
		return nil, fmt.Errorf("%w %q", ErrInvalidTimezone, value)
	}
	minutes := 0
	if hasMinutes {
		minutes, err = strconv.Atoi(minutesPart)
		if err != nil || minutes < 0 || minutes >= 60 || len(minutesPart) != 2 {
			return nil, fmt.Errorf("%w %q", ErrInvalidTimezone, value)
		}
	}
	offset := sign * (hours*3600 + minutes*60)
	name := fmt.Sprintf("UTC%c%02d:%02d", value[0], hours, minutes)
	return time.FixedZone(name, offset), nil
}

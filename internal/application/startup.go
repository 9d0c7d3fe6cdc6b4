package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/raid-controller/internal/persistence"
	"github.com/example/raid-controller/internal/rules"
)

// StartupParams select where the initial rules and wipe time come from.
type StartupParams struct {
	// RulesPath is preferred when the file exists.
	RulesPath string
	// LastWipe overrides the stored wipe history when non-zero.
	LastWipe    time.Time
	Now         func() time.Time
	IDGenerator func() string
	Logger      *slog.Logger
}

// StartupState is the state a RaidService starts from.
type StartupState struct {
	Rules    *rules.Rules
	RulesID  string
	LastWipe time.Time
}

// ResolveStartup loads the initial rules and wipe time. Rules come from the
// rules file when it exists, else the latest stored rule set. A rules file
// whose content differs from the latest stored rule set is stored. The wipe
// time comes from the override, else the latest stored wipe, else now, which
// is then recorded as the first wipe.
func ResolveStartup(ctx context.Context, params StartupParams, wipes WipeRepository, ruleSets RuleSetRepository) (state StartupState, err error) {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	newID := params.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	logger := serviceLogger(ctx, defaultLogger(params.Logger), "Startup", "ResolveStartup")

	state.Rules, state.RulesID, err = startupRules(ctx, params.RulesPath, ruleSets, now, newID, logger)
	if err != nil {
		return StartupState{}, err
	}
	state.LastWipe, err = startupWipe(ctx, params.LastWipe, wipes, now, newID, logger)
	if err != nil {
		return StartupState{}, err
	}
	return state, nil
}

func startupRules(ctx context.Context, path string, repo RuleSetRepository, now func() time.Time, newID func() string, logger *slog.Logger) (*rules.Rules, string, error) {
	var latest persistence.RuleSet
	haveLatest := false
	if repo != nil {
		stored, err := repo.LatestRuleSet(ctx)
		switch {
		case err == nil:
			latest, haveLatest = stored, true
		case !errors.Is(err, persistence.ErrNotFound):
			return nil, "", fmt.Errorf("load latest rule set: %w", err)
		}
	}

	if path != "" {
		parsed, err := rules.Load(path)
		var pathErr *fs.PathError
		switch {
		case err == nil:
			checksum := persistence.Checksum(parsed.Source)
			if haveLatest && latest.Checksum == checksum {
				logger.InfoContext(ctx, "rules loaded from file", "path", path, "rule_set_id", latest.ID)
				return parsed, latest.ID, nil
			}
			id := newID()
			if repo != nil {
				if err := repo.SaveRuleSet(ctx, persistence.RuleSet{ID: id, Document: parsed.Source, Checksum: checksum, CreatedAt: now()}); err != nil {
					return nil, "", fmt.Errorf("save rule set: %w", err)
				}
			}
			logger.InfoContext(ctx, "rules loaded from file", "path", path, "rule_set_id", id)
			return parsed, id, nil
		case errors.As(err, &pathErr) && !errors.Is(err, fs.ErrNotExist):
			return nil, "", fmt.Errorf("read rules file: %w", err)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, "", fmt.Errorf("%s: %w", path, rulesValidationError(err))
		}
		logger.WarnContext(ctx, "rules file not found, falling back to stored rules", "path", path)
	}

	if !haveLatest {
		return nil, "", ErrNoRules
	}
	parsed, err := ParseRules(latest.Document)
	if err != nil {
		return nil, "", fmt.Errorf("stored rule set %s: %w", latest.ID, err)
	}
	logger.InfoContext(ctx, "rules loaded from storage", "rule_set_id", latest.ID)
	return parsed, latest.ID, nil
}

func startupWipe(ctx context.Context, override time.Time, repo WipeRepository, now func() time.Time, newID func() string, logger *slog.Logger) (time.Time, error) {
	if !override.IsZero() {
		logger.InfoContext(ctx, "wipe time overridden", "last_wipe", override)
		return override, nil
	}
	if repo == nil {
		return now(), nil
	}
	latest, err := repo.LatestWipe(ctx)
	if err == nil {
		return latest.At, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return time.Time{}, fmt.Errorf("load latest wipe: %w", err)
	}

	first := persistence.Wipe{ID: newID(), At: now(), Reason: "initial", RecordedAt: now()}
	if err := repo.RecordWipe(ctx, first); err != nil {
		return time.Time{}, fmt.Errorf("record initial wipe: %w", err)
	}
	logger.InfoContext(ctx, "no wipe recorded, using process start", "last_wipe", first.At)
	return first.At, nil
}

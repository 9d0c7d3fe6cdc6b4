package persistence

import "context"

// WipeRepository stores wipe history.
type WipeRepository interface {
	RecordWipe(ctx context.Context, wipe Wipe) error
	// LatestWipe returns the wipe with the greatest At, or ErrNotFound.
	LatestWipe(ctx context.Context) (Wipe, error)
	// ListWipes returns wipes newest first. A limit <= 0 returns all of them.
	ListWipes(ctx context.Context, limit int) ([]Wipe, error)
}

// RuleSetRepository stores every applied rules document.
type RuleSetRepository interface {
	SaveRuleSet(ctx context.Context, ruleSet RuleSet) error
	// LatestRuleSet returns the most recently saved rule set, or ErrNotFound.
	LatestRuleSet(ctx context.Context) (RuleSet, error)
	ListRuleSets(ctx context.Context, limit int) ([]RuleSet, error)
}

package application

import (
	"testing"
	"time"
)

func TestCooldownTableWindow(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	table := newCooldownTable(5*time.Second, 8)

	if !table.Allow(1, t0) {
		t.Fatalf("expected first action to be allowed")
	}
	if table.Allow(1, t0.Add(4*time.Second)) {
		t.Fatalf("expected action inside the window to be blocked")
	}
	if !table.Allow(2, t0.Add(4*time.Second)) {
		t.Fatalf("expected other actors to be independent")
	}
	if !table.Allow(1, t0.Add(5*time.Second)) {
		t.Fatalf("expected action at the window edge to be allowed")
	}

	table.Forget(1)
	if !table.Allow(1, t0.Add(6*time.Second)) {
		t.Fatalf("expected forgotten actor to be allowed")
	}
}

func TestCooldownTableIsBounded(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	table := newCooldownTable(time.Minute, 2)
	table.Allow(1, t0)
	table.Allow(2, t0)
	table.Allow(3, t0)

	if table.Len() != 2 {
		t.Fatalf("expected table capped at 2 entries, got %d", table.Len())
	}
	if !table.Allow(1, t0) {
		t.Fatalf("expected evicted actor to be allowed again")
	}
}

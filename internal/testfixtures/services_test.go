package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/raid-controller/internal/application"
	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/proxyfire"
	"github.com/example/raid-controller/internal/session"
)

func TestServiceFactoryWiresClockAndNotices(t *testing.T) {
	factory := NewServiceFactory(WithClock(NewClock(WeekTime(time.Monday, 12, 0, nil))))
	service := factory.NewRaidService(t, RaidServiceDeps{})
	ctx := context.Background()

	snap, err := service.StartSession(ctx, NewSession(1))
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if snap.CanRaid || snap.Hours != 4 {
		t.Fatalf("expected closed raid with 4h left at noon, got %+v", snap)
	}
	if kinds := factory.Notices.Kinds(); len(kinds) != 1 || kinds[0] != session.NoticeRaidClosed {
		t.Fatalf("expected recorded raid_closed notice, got %v", kinds)
	}

	verdict, err := service.EvaluateDamage(ctx, DirectHit(1, NewTarget(), TimedExplosive, proxyfire.Vec3{}))
	if err != nil {
		t.Fatalf("EvaluateDamage() error = %v", err)
	}
	if verdict.Allowed || verdict.Rule != arbitration.RuleDenied || verdict.Refund == nil || verdict.Refund.Item != "explosive.timed" {
		t.Fatalf("expected denied hit with C4 refund, got %+v", verdict)
	}
}

func TestSQLiteHarnessBacksWipeHistory(t *testing.T) {
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory(WithClock(NewClock(WeekTime(time.Tuesday, 18, 0, nil))), WithIDGenerator(NewIDGenerator("wipe")))
	service := factory.NewRaidService(t, RaidServiceDeps{Wipes: harness.Wipes, RuleSets: harness.RuleSets})
	ctx := context.Background()

	if _, err := service.RecordWipe(ctx, application.WipeInput{At: WeekTime(time.Monday, 20, 0, nil), Reason: "forced"}); err != nil {
		t.Fatalf("RecordWipe() error = %v", err)
	}
	latest, err := harness.Wipes.LatestWipe(ctx)
	if err != nil {
		t.Fatalf("LatestWipe() error = %v", err)
	}
	if latest.ID != "wipe-1" || !latest.At.Equal(WeekTime(time.Monday, 20, 0, nil)) {
		t.Fatalf("unexpected stored wipe %+v", latest)
	}
}

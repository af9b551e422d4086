package services_test

import (
	"testing"
	"time"

	"wingo/models"
	"wingo/providers/wingo"
)

func TestSchedulerTransitions(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()

	view, ok := f.engine.Scheduler.Current()
	if !ok || !view.CanBet || view.TimeRemaining != 180 || view.BettingTimeRemaining != 150 {
		t.Fatalf("view at start = %+v", view)
	}

	f.clock.Advance(150 * time.Second)
	if got := f.period("20250115201").Status; got != models.PeriodBettingClosed {
		t.Fatalf("status after betting window = %s, want betting_closed", got)
	}
	view, _ = f.engine.Scheduler.Current()
	if view.CanBet || view.Status != models.PeriodBettingClosed || view.TimeRemaining != 30 {
		t.Fatalf("view after lock = %+v", view)
	}
	if n := f.countLive(); n != 1 {
		t.Fatalf("live periods = %d, want 1", n)
	}

	f.clock.Advance(30 * time.Second)
	if got := f.period("20250115201").Status; got != models.PeriodCompleted {
		t.Fatalf("status after period end = %s, want completed", got)
	}
	if got := f.period("20250115202").Status; got != models.PeriodActive {
		t.Fatalf("next status = %s, want active", got)
	}
	if n := f.countLive(); n != 1 {
		t.Fatalf("live periods = %d, want 1", n)
	}

	p := f.period("20250115201")
	if !p.BettingEndTime.Before(p.EndTime) {
		t.Fatalf("betting end %v not before end %v", p.BettingEndTime, p.EndTime)
	}
}

func TestSchedulerLateStartLocksImmediately(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM.Add(160*time.Second))
	f.start()

	cur := f.current()
	if cur.PeriodID != "20250115201" || cur.Status != models.PeriodBettingClosed {
		t.Fatalf("current = %s %s, want 20250115201 betting_closed", cur.PeriodID, cur.Status)
	}
	if got := f.period(cur.PeriodID).Status; got != models.PeriodBettingClosed {
		t.Fatalf("stored status = %s", got)
	}

	f.clock.Advance(20 * time.Second)
	if got := f.current().PeriodID; got != "20250115202" {
		t.Fatalf("current after end = %s, want 20250115202", got)
	}
}

func TestSchedulerResumesInPlace(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()
	u := f.user("9000000001", "1000", nil)
	placed := f.bet(u, color(models.ColorGreen), "100")

	f.clock.Advance(20 * time.Second)
	f.restart()

	cur := f.current()
	if cur.ID != placed.GamePeriodID || cur.Status != models.PeriodActive {
		t.Fatalf("resumed %s %s, want the same active period", cur.PeriodID, cur.Status)
	}
	assertDecimal(t, "green total kept", f.period(cur.PeriodID).TotalGreen, "100")

	var count int64
	f.db.Model(&models.Period{}).Where("variant = ?", wingo.ThreeMinute.Code).Count(&count)
	if count != 480 {
		t.Fatalf("periods = %d, want 480", count)
	}

	f.clock.Advance(160 * time.Second)
	if got := f.reloadBet(placed); got.Status == models.BetPending {
		t.Fatal("bet not settled after resumed period ended")
	}
}

func TestSchedulerRecoversAfterLongOutage(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()
	u := f.user("9000000001", "1000", nil)
	placed := f.bet(u, color(models.ColorRed), "10")

	f.engine.Stop()
	f.clock.Advance(10 * time.Minute)
	f.restart()

	stale := f.period("20250115201")
	if stale.Status != models.PeriodCompleted || stale.WinningColor == nil {
		t.Fatalf("stale period = %s, want completed with a winner", stale.Status)
	}
	if got := f.reloadBet(placed); got.Status == models.BetPending {
		t.Fatal("bet of stale period still pending")
	}

	if got := f.current().PeriodID; got != "20250115204" {
		t.Fatalf("current = %s, want 20250115204", got)
	}
	for _, id := range []string{"20250115202", "20250115203"} {
		if got := f.period(id).Status; got != models.PeriodNotStarted {
			t.Errorf("skipped period %s = %s, want not_started", id, got)
		}
	}
	if n := f.countLive(); n != 1 {
		t.Fatalf("live periods = %d, want 1", n)
	}
}

func TestSchedulerSettlesCompletedSlotBeforeMovingOn(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()
	u := f.user("9000000001", "1000", nil)
	placed := f.bet(u, color(models.ColorGreen), "100")

	f.engine.Stop()
	if _, err := f.engine.Settlement.Complete(f.ctx, placed.GamePeriodID); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(10 * time.Second)
	f.restart()

	if got := f.reloadBet(placed); got.Status == models.BetPending {
		t.Fatal("pending bet of completed slot not settled on start")
	}
	view, ok := f.engine.Scheduler.Current()
	if !ok || view.CanBet || view.Status != models.PeriodCompleted {
		t.Fatalf("view = %+v, want the completed slot without betting", view)
	}

	f.clock.Advance(170 * time.Second)
	cur := f.current()
	if cur.PeriodID != "20250115202" || cur.Status != models.PeriodActive {
		t.Fatalf("current = %s %s, want 20250115202 active", cur.PeriodID, cur.Status)
	}
}

func TestSchedulerCrossesMidnight(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, time.Date(2025, 1, 15, 23, 58, 0, 0, ist))
	f.start()

	if got := f.current().PeriodID; got != "20250115480" {
		t.Fatalf("current = %s, want 20250115480", got)
	}

	f.clock.Advance(2 * time.Minute)
	cur := f.current()
	if cur.PeriodID != "20250116001" || cur.Status != models.PeriodActive {
		t.Fatalf("after midnight = %s %s, want 20250116001 active", cur.PeriodID, cur.Status)
	}
}

func TestSchedulerStopCancelsTimers(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()
	if f.clock.Pending() != 2 {
		t.Fatalf("pending timers = %d, want lock and end", f.clock.Pending())
	}
	f.engine.Stop()
	if f.clock.Pending() != 0 {
		t.Fatalf("pending timers after stop = %d", f.clock.Pending())
	}
}

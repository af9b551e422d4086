package services_test

import (
	"errors"
	"testing"
	"time"

	"wingo/models"
	"wingo/providers/wingo"
	"wingo/services"

	"github.com/shopspring/decimal"
)

func TestThreeMinuteRoundRedWins(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()

	a := f.user("9000000001", "1000", nil)
	b := f.user("9000000002", "1000", nil)
	c := f.user("9000000003", "1000", nil)

	if got := f.current().PeriodID; got != "20250115201" {
		t.Fatalf("current period = %s, want 20250115201", got)
	}

	betA := f.bet(a, color(models.ColorGreen), "100")
	f.clock.Advance(10 * time.Second)
	betB := f.bet(b, color(models.ColorPurple), "50")
	f.clock.Advance(10 * time.Second)
	betC := f.bet(c, color(models.ColorRed), "30")

	p := f.period("20250115201")
	assertDecimal(t, "green total", p.TotalGreen, "100")
	assertDecimal(t, "purple total", p.TotalPurple, "50")
	assertDecimal(t, "red total", p.TotalRed, "30")

	f.clock.Advance(160 * time.Second)

	p = f.period("20250115201")
	if p.Status != models.PeriodCompleted {
		t.Fatalf("status = %s, want completed", p.Status)
	}
	if p.WinningColor == nil || *p.WinningColor != string(models.ColorRed) {
		t.Fatalf("winning color = %v, want red", p.WinningColor)
	}
	if p.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if len(p.StakeSnapshot) == 0 {
		t.Error("stake snapshot not stored")
	}

	won := f.reloadBet(betC)
	if won.Status != models.BetWon || won.WinAmount == nil {
		t.Fatalf("bet C = %s %v, want won", won.Status, won.WinAmount)
	}
	assertDecimal(t, "C win amount", *won.WinAmount, "54")
	if won.SettledAt == nil {
		t.Error("settled_at not set on winning bet")
	}
	for _, lost := range []*models.Bet{betA, betB} {
		got := f.reloadBet(lost)
		if got.Status != models.BetLost || got.WinAmount != nil {
			t.Errorf("bet %d = %s %v, want lost without win amount", got.ID, got.Status, got.WinAmount)
		}
	}

	assertDecimal(t, "A balance", f.balance(a), "900")
	assertDecimal(t, "B balance", f.balance(b), "950")
	assertDecimal(t, "C balance", f.balance(c), "1024")

	if next := f.current(); next.PeriodID != "20250115202" || next.Status != models.PeriodActive {
		t.Fatalf("next period = %s %s, want 20250115202 active", next.PeriodID, next.Status)
	}
}

func TestSettleTwiceIsNoop(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()

	a := f.user("9000000001", "1000", nil)
	c := f.user("9000000003", "1000", nil)
	f.bet(a, color(models.ColorGreen), "100")
	f.bet(c, color(models.ColorRed), "30")

	f.clock.Advance(180 * time.Second)
	assertDecimal(t, "C balance after settlement", f.balance(c), "1024")

	p := f.period("20250115201")
	summary, err := f.engine.Settlement.Settle(f.ctx, &p)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if summary.Won != 0 || summary.Lost != 0 || !summary.Paid.IsZero() {
		t.Fatalf("second settle summary = %+v, want empty", summary)
	}

	again, err := f.engine.Settlement.Complete(f.ctx, p.ID)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if *again.WinningColor != *p.WinningColor {
		t.Fatalf("winner changed from %s to %s", *p.WinningColor, *again.WinningColor)
	}

	assertDecimal(t, "C balance after rerun", f.balance(c), "1024")
	if n := f.countTransactions(c.ID, models.TrxBetWinCredit); n != 1 {
		t.Fatalf("win credits = %d, want 1", n)
	}
}

func TestSettlementPaysExactlyMatchingBets(t *testing.T) {
	f := newFixture(t, wingo.OneMinute, tenAM)
	f.start()

	users := map[string]*models.User{}
	for _, name := range []string{"a", "b", "c", "d", "e", "g"} {
		users[name] = f.user("90000000"+name, "1000", nil)
	}

	bets := []*models.Bet{
		f.bet(users["a"], color(models.ColorGreen), "100"),
		f.bet(users["b"], color(models.ColorRed), "200"),
		f.bet(users["c"], number(3), "10"),
		f.bet(users["d"], number(7), "20"),
		f.bet(users["e"], size(models.SizeBig), "50"),
		f.bet(users["g"], size(models.SizeSmall), "40"),
	}

	before := map[uint]decimal.Decimal{}
	for _, u := range users {
		before[u.ID] = f.balance(u)
	}

	periodID := f.current().PeriodID
	f.clock.Advance(60 * time.Second)

	p := f.period(periodID)
	if *p.WinningColor != string(models.ColorGreen) || p.WinningNumber == nil || *p.WinningNumber != 1 || *p.WinningSize != string(models.SizeSmall) {
		t.Fatalf("result = %v/%v/%v, want green/1/small", *p.WinningColor, p.WinningNumber, *p.WinningSize)
	}

	settings, err := f.engine.Settings.Get(f.ctx)
	if err != nil {
		t.Fatal(err)
	}

	expected := decimal.Zero
	paid := decimal.Zero
	for _, placed := range bets {
		got := f.reloadBet(placed)
		if got.Status == models.BetPending {
			t.Fatalf("bet %d still pending", got.ID)
		}

		var multiplier decimal.Decimal
		switch o := got.Outcome().(type) {
		case models.ColorOutcome:
			if string(o.Color) == *p.WinningColor {
				multiplier = settings.WinMultiplier
			}
		case models.NumberOutcome:
			if o.Number == *p.WinningNumber {
				multiplier = settings.WinMultiplierForNumberBet
			}
		case models.SizeOutcome:
			if string(o.Size) == *p.WinningSize {
				multiplier = settings.WinMultiplier
			}
		}

		if multiplier.IsZero() {
			if got.Status != models.BetLost {
				t.Errorf("bet %d on %s = %s, want lost", got.ID, got.Outcome(), got.Status)
			}
			assertDecimal(t, "loser balance", f.balanceOf(got.UserID), before[got.UserID].String())
			continue
		}

		want := got.Amount.Mul(multiplier)
		expected = expected.Add(want)
		if got.Status != models.BetWon || got.WinAmount == nil || !got.WinAmount.Equal(want) {
			t.Errorf("bet %d on %s = %s %v, want won %s", got.ID, got.Outcome(), got.Status, got.WinAmount, want)
			continue
		}
		paid = paid.Add(*got.WinAmount)
		assertDecimal(t, "winner balance", f.balanceOf(got.UserID), before[got.UserID].Add(want).String())
	}

	assertDecimal(t, "total paid", paid, "252")
	if !paid.Equal(expected) {
		t.Fatalf("paid %s, expected %s", paid, expected)
	}
}

func TestZeroOrFiveRule(t *testing.T) {
	place := func(f *fixture) (*models.Bet, *models.Bet) {
		r := f.user("9000000010", "1000", nil)
		for i, n := range []int{1, 3, 7, 9} {
			u := f.user("900000002"+string(rune('0'+i)), "1000", nil)
			f.bet(u, number(n), "20")
		}
		f.bet(r, color(models.ColorRed), "200")
		five := f.user("9000000030", "1000", nil)
		one := f.user("9000000031", "1000", nil)
		return f.bet(five, number(5), "10"), f.bet(one, number(1), "10")
	}

	t.Run("five allowed", func(t *testing.T) {
		f := newFixtureWithRandom(t, wingo.OneMinute, tenAM, fixedRandom{f: 0})
		f.start()
		five, _ := place(f)
		f.clock.Advance(60 * time.Second)

		got := f.reloadBet(five)
		if got.Status != models.BetWon {
			t.Fatalf("bet on five = %s, want won", got.Status)
		}
		assertDecimal(t, "five payout", *got.WinAmount, "45")
	})

	t.Run("five skipped", func(t *testing.T) {
		f := newFixtureWithRandom(t, wingo.OneMinute, tenAM, fixedRandom{f: 0.5})
		f.start()
		five, one := place(f)
		f.clock.Advance(60 * time.Second)

		if got := f.reloadBet(five); got.Status != models.BetLost {
			t.Fatalf("bet on five = %s, want lost", got.Status)
		}
		p := f.period(one.PeriodID)
		if p.WinningNumber == nil || *p.WinningNumber == 5 || *p.WinningNumber == 0 {
			t.Fatalf("winning number = %v, want a non 0/5 green number", p.WinningNumber)
		}
	})
}

func TestResettlePendingAfterCrash(t *testing.T) {
	f := newFixture(t, wingo.ThreeMinute, tenAM)
	f.start()

	u := f.user("9000000001", "1000", nil)
	placed := f.bet(u, color(models.ColorGreen), "100")
	f.engine.Stop()

	p := f.current()
	completed, err := f.engine.Settlement.Complete(f.ctx, p.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := f.reloadBet(placed); got.Status != models.BetPending {
		t.Fatalf("bet = %s before resettle, want pending", got.Status)
	}

	n, err := f.engine.Settlement.ResettlePending(f.ctx)
	if err != nil {
		t.Fatalf("resettle: %v", err)
	}
	if n != 1 {
		t.Fatalf("resettled %d periods, want 1", n)
	}

	got := f.reloadBet(placed)
	if got.Status == models.BetPending {
		t.Fatal("bet still pending after resettle")
	}
	if *completed.WinningColor == string(models.ColorGreen) {
		t.Fatalf("green carried all the money and still won")
	}
}

func TestSettleLivePeriodIsNotRetried(t *testing.T) {
	f := newFixtureWithOptions(t, wingo.ThreeMinute, tenAM, services.SettlementOptions{MaxAttempts: 5, RetryDelay: time.Hour})
	f.start()

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Settlement.Settle(f.ctx, f.current())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, services.ErrPeriodNotCompleted) {
			t.Fatalf("err = %v, want ErrPeriodNotCompleted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("settling a live period waited for a retry")
	}
}


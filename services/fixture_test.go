package services_test

import (
	"context"
	"testing"
	"time"

	"wingo/database"
	"wingo/helpers"
	"wingo/models"
	"wingo/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

// tenAM is a slot boundary for every variant.
var tenAM = time.Date(2025, 1, 15, 10, 0, 0, 0, ist)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	clock    *helpers.ManualClock
	log      *zap.Logger
	wallet   *services.Wallet
	referral *services.ReferralProcessor
	recharge *services.RechargeService
	engine   *services.Engine
	rnd      helpers.Randomizer
	opts     services.SettlementOptions
	events   services.EventPublisher
}

func newFixture(t *testing.T, variant models.Variant, start time.Time) *fixture {
	return newFixtureWithRandom(t, variant, start, helpers.SeededRandomizer(7))
}

func newFixtureWithRandom(t *testing.T, variant models.Variant, start time.Time, rnd helpers.Randomizer) *fixture {
	return newFixtureWith(t, variant, start, rnd, services.SettlementOptions{MaxAttempts: 3})
}

func newFixtureWithOptions(t *testing.T, variant models.Variant, start time.Time, opts services.SettlementOptions) *fixture {
	return newFixtureWith(t, variant, start, helpers.SeededRandomizer(7), opts)
}

func newFixtureWith(t *testing.T, variant models.Variant, start time.Time, rnd helpers.Randomizer, opts services.SettlementOptions) *fixture {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	log := zaptest.NewLogger(t)
	wallet := services.NewWallet(db)
	bonusSettings := services.NewSettingsStore(db, variant, log)
	referral := services.NewReferralProcessor(db, wallet, bonusSettings, log)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		clock:    helpers.NewManualClock(start),
		log:      log,
		wallet:   wallet,
		referral: referral,
		recharge: services.NewRechargeService(db, wallet, bonusSettings, referral, log),
		rnd:      rnd,
		opts:     opts,
	}
	f.engine = f.newEngine(variant)
	t.Cleanup(func() { f.engine.Stop() })
	return f
}

func (f *fixture) newEngine(variant models.Variant) *services.Engine {
	return services.NewEngine(f.db, variant, f.wallet, f.referral, services.EngineOptions{
		Clock:      f.clock,
		Random:     f.rnd,
		Events:     f.events,
		Settlement: f.opts,
	}, f.log)
}

func (f *fixture) start() {
	f.t.Helper()
	if err := f.engine.Start(f.ctx); err != nil {
		f.t.Fatalf("start engine: %v", err)
	}
}

// restart simulates a new process on the same database and clock.
func (f *fixture) restart() {
	f.t.Helper()
	f.engine.Stop()
	f.engine = f.newEngine(f.engine.Variant)
	f.start()
}

func (f *fixture) user(phone, balance string, referredBy *models.User) *models.User {
	f.t.Helper()
	u := models.User{Phone: phone, Balance: dec(balance)}
	if referredBy != nil {
		id := referredBy.ID
		u.ReferredByID = &id
	}
	if err := f.db.Create(&u).Error; err != nil {
		f.t.Fatalf("create user %s: %v", phone, err)
	}
	return &u
}

func (f *fixture) balance(u *models.User) decimal.Decimal {
	f.t.Helper()
	return f.balanceOf(u.ID)
}

func (f *fixture) balanceOf(userID uint) decimal.Decimal {
	f.t.Helper()
	b, err := f.wallet.Balance(f.ctx, userID)
	if err != nil {
		f.t.Fatalf("balance of %d: %v", userID, err)
	}
	return b
}

func (f *fixture) period(periodID string) models.Period {
	f.t.Helper()
	var p models.Period
	if err := f.db.Where("variant = ? AND period_id = ?", f.engine.Variant.Code, periodID).First(&p).Error; err != nil {
		f.t.Fatalf("load period %s: %v", periodID, err)
	}
	return p
}

func (f *fixture) current() *models.Period {
	f.t.Helper()
	p, ok := f.engine.Scheduler.CurrentPeriod()
	if !ok {
		f.t.Fatal("no current period")
	}
	return p
}

func (f *fixture) bet(u *models.User, o models.Outcome, amount string) *models.Bet {
	f.t.Helper()
	b, err := f.engine.Bets.PlaceBet(f.ctx, u.ID, o, dec(amount))
	if err != nil {
		f.t.Fatalf("place bet %s %s: %v", o, amount, err)
	}
	return b
}

func (f *fixture) reloadBet(b *models.Bet) models.Bet {
	f.t.Helper()
	var out models.Bet
	if err := f.db.First(&out, b.ID).Error; err != nil {
		f.t.Fatalf("reload bet %d: %v", b.ID, err)
	}
	return out
}

func (f *fixture) countTransactions(userID uint, trxType string) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(&models.Transaction{}).Where("type = ?", trxType)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Count(&n).Error; err != nil {
		f.t.Fatalf("count transactions: %v", err)
	}
	return n
}

func (f *fixture) countLive() int64 {
	f.t.Helper()
	var n int64
	if err := f.db.Model(&models.Period{}).
		Where("variant = ? AND status IN ?", f.engine.Variant.Code, []string{models.PeriodActive, models.PeriodBettingClosed}).
		Count(&n).Error; err != nil {
		f.t.Fatalf("count live periods: %v", err)
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

func color(c models.Color) models.Outcome { return models.ColorOutcome{Color: c} }
func number(n int) models.Outcome         { return models.NumberOutcome{Number: n} }
func size(s models.Size) models.Outcome   { return models.SizeOutcome{Size: s} }

// fixedRandom returns the same draw every time.
type fixedRandom struct {
	f float64
	n int
}

func (r fixedRandom) Float64() float64 { return r.f }
func (r fixedRandom) IntN(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

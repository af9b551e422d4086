package services

import (
	"context"
	"time"

	"wingo/helpers"
	"wingo/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EngineOptions struct {
	Clock      helpers.Clock
	Random     helpers.Randomizer
	Events     EventPublisher
	Settlement SettlementOptions
}

// Engine bundles every component of one variant.
type Engine struct {
	Variant    models.Variant
	Settings   *SettingsStore
	Generator  *Generator
	Settlement *Settlement
	Scheduler  *Scheduler
	Bets       *BetLedger
}

func NewEngine(db *gorm.DB, variant models.Variant, wallet *Wallet, referral *ReferralProcessor, opts EngineOptions, log *zap.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = helpers.NewSystemClock(time.Local)
	}
	if opts.Random == nil {
		opts.Random = helpers.NewRandomizer()
	}
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}

	settings := NewSettingsStore(db, variant, log)
	generator := NewGenerator(db, variant, settings, opts.Clock, log)
	settings.OnLayoutChange(generator.Relayout)
	settlement := NewSettlement(db, variant, settings, wallet, opts.Clock, opts.Random, opts.Settlement, log)
	scheduler := NewScheduler(db, variant, settings, generator, settlement, opts.Clock, opts.Events, log)
	bets := NewBetLedger(db, variant, settings, wallet, scheduler, referral, opts.Clock, log)

	return &Engine{
		Variant:    variant,
		Settings:   settings,
		Generator:  generator,
		Settlement: settlement,
		Scheduler:  scheduler,
		Bets:       bets,
	}
}

func (e *Engine) Start(ctx context.Context) error {
	return e.Scheduler.Start(ctx)
}

func (e *Engine) Stop() {
	e.Scheduler.Stop()
}

// Engines indexes running engines by variant code.
type Engines map[string]*Engine

func (e Engines) Get(code string) (*Engine, bool) {
	engine, ok := e[code]
	return engine, ok
}

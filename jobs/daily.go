package jobs

import (
	"context"
	"sync"
	"time"

	"wingo/helpers"

	"go.uber.org/zap"
)

// DayGenerator inserts the periods of one calendar day.
type DayGenerator interface {
	GenerateDay(ctx context.Context, day time.Time) (int, error)
}

// DailyGeneration pre-creates tomorrow's periods shortly before midnight.
type DailyGeneration struct {
	clock      helpers.Clock
	generators []DayGenerator
	log        *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	timer   helpers.Timer
	stopped bool
}

func NewDailyGeneration(clock helpers.Clock, log *zap.Logger, generators ...DayGenerator) *DailyGeneration {
	return &DailyGeneration{
		clock:      clock,
		generators: generators,
		log:        log.Named("daily"),
		ctx:        context.Background(),
	}
}

// NextRun is the next 23:59 local strictly after now.
func NextRun(now time.Time) time.Time {
	run := helpers.StartOfDay(now).Add(23*time.Hour + 59*time.Minute)
	if !run.After(now) {
		run = helpers.StartOfDay(now).AddDate(0, 0, 1).Add(23*time.Hour + 59*time.Minute)
	}
	return run
}

func (d *DailyGeneration) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
	d.stopped = false
	d.scheduleLocked()
}

func (d *DailyGeneration) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *DailyGeneration) scheduleLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	now := d.clock.Now()
	next := NextRun(now)
	d.timer = d.clock.AfterFunc(next.Sub(now), d.run)
	d.log.Info("⏰ Next period generation scheduled", zap.Time("at", next))
}

func (d *DailyGeneration) run() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	ctx := d.ctx
	d.mu.Unlock()

	tomorrow := helpers.StartOfDay(d.clock.Now()).AddDate(0, 0, 1)
	d.RunOnce(ctx, tomorrow)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.stopped {
		d.scheduleLocked()
	}
}

// RunOnce generates day for every engine. A failing engine does not stop the others.
func (d *DailyGeneration) RunOnce(ctx context.Context, day time.Time) {
	for _, g := range d.generators {
		if _, err := g.GenerateDay(ctx, day); err != nil {
			d.log.Error("❌ Failed to generate periods", zap.String("day", day.Format("2006-01-02")), zap.Error(err))
		}
	}
}

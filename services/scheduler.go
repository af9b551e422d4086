package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"wingo/helpers"
	"wingo/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// retryAfter is how long the scheduler waits before retrying a transition
// that failed on a storage error.
const retryAfter = time.Second

// Scheduler drives the period clock of one variant. It is the only writer
// of the current period and of its two timers.
type Scheduler struct {
	db         *gorm.DB
	variant    models.Variant
	settings   *SettingsStore
	generator  *Generator
	settlement *Settlement
	clock      helpers.Clock
	events     EventPublisher
	log        *zap.Logger

	// cycleMu serializes adoption, locking and completion.
	cycleMu   sync.Mutex
	ctx       context.Context
	queued    []PeriodEvent
	lockTimer helpers.Timer
	endTimer  helpers.Timer
	stopped   bool

	mu      sync.RWMutex
	current *models.Period
}

func NewScheduler(db *gorm.DB, variant models.Variant, settings *SettingsStore, generator *Generator, settlement *Settlement, clock helpers.Clock, events EventPublisher, log *zap.Logger) *Scheduler {
	if events == nil {
		events = nopPublisher{}
	}
	return &Scheduler{
		db:         db,
		variant:    variant,
		settings:   settings,
		generator:  generator,
		settlement: settlement,
		clock:      clock,
		events:     events,
		log:        log.Named("scheduler").With(zap.String("variant", variant.Code)),
		ctx:        context.Background(),
	}
}

// Start seeds settings, generates today's periods, repairs whatever a
// previous process left behind and adopts the period for now.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.settings.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("ensure settings: %w", err)
	}
	if _, err := s.generator.GenerateToday(ctx); err != nil {
		return fmt.Errorf("generate today: %w", err)
	}
	if err := s.settlement.Recover(ctx); err != nil {
		s.log.Error("❌ Recovery incomplete, the resettle sweep will retry", zap.Error(err))
	}

	s.cycleMu.Lock()
	defer s.unlockCycle()
	s.ctx = ctx
	s.stopped = false
	return s.adoptLocked(ctx)
}

// Stop cancels both timers. The current period stays in storage and is
// resumed by the next Start.
func (s *Scheduler) Stop() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.stopped = true
	stopTimer(&s.lockTimer)
	stopTimer(&s.endTimer)
}

// emit queues an event until the cycle lock is released. Callers hold cycleMu.
func (s *Scheduler) emit(ev PeriodEvent) {
	s.queued = append(s.queued, ev)
}

// unlockCycle releases cycleMu and then publishes what the cycle queued, so
// a slow event bus never delays a transition.
func (s *Scheduler) unlockCycle() {
	events := s.queued
	s.queued = nil
	ctx := s.ctx
	s.cycleMu.Unlock()

	for _, ev := range events {
		s.events.Publish(ctx, ev)
	}
}

func stopTimer(t *helpers.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (s *Scheduler) replaceTimer(slot *helpers.Timer, d time.Duration, f func()) {
	stopTimer(slot)
	if d < 0 {
		d = 0
	}
	*slot = s.clock.AfterFunc(d, f)
}

// CurrentPeriod returns a copy of the period the scheduler holds.
func (s *Scheduler) CurrentPeriod() (*models.Period, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	p := *s.current
	return &p, true
}

type PeriodView struct {
	Variant              string    `json:"variant"`
	PeriodID             string    `json:"period_id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	BettingEndTime       time.Time `json:"betting_end_time"`
	Status               string    `json:"status"`
	TimeRemaining        int       `json:"time_remaining"`
	BettingTimeRemaining int       `json:"betting_time_remaining"`
	CanBet               bool      `json:"can_bet"`
}

// Current serves the live period from memory. Stake totals are not exposed.
func (s *Scheduler) Current() (PeriodView, bool) {
	p, ok := s.CurrentPeriod()
	if !ok {
		return PeriodView{}, false
	}
	now := s.clock.Now()
	return PeriodView{
		Variant:              p.Variant,
		PeriodID:             p.PeriodID,
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		BettingEndTime:       p.BettingEndTime,
		Status:               p.Status,
		TimeRemaining:        secondsUntil(now, p.EndTime),
		BettingTimeRemaining: secondsUntil(now, p.BettingEndTime),
		CanBet:               p.Status == models.PeriodActive && now.Before(p.BettingEndTime),
	}, true
}

func secondsUntil(now, t time.Time) int {
	if !t.After(now) {
		return 0
	}
	return int(t.Sub(now) / time.Second)
}

func (s *Scheduler) setCurrent(p *models.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
}

func (s *Scheduler) currentID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return s.current.ID
}

// periodAt returns the period whose window contains now. When none does,
// the grid slot for now is adopted: created if missing, moved onto its
// window if the stored row was laid out for other durations.
func (s *Scheduler) periodAt(ctx context.Context, settings *models.GameSettings, now time.Time) (*models.Period, error) {
	db := s.db.WithContext(ctx)

	var period models.Period
	err := db.Where("variant = ? AND start_time <= ? AND end_time > ?", s.variant.Code, now, now).
		Order("start_time DESC").
		First(&period).Error
	if err == nil {
		return &period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load period at %s: %w", now.Format(time.RFC3339), err)
	}

	slot := SlotAt(now, s.variant, settings)
	err = db.Where("variant = ? AND period_id = ?", s.variant.Code, slot.PeriodID).First(&period).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.createAt(ctx, slot, now, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("load period %s: %w", slot.PeriodID, err)
	}

	s.log.Warn("📐 Period layout mismatch",
		zap.String("period_id", period.PeriodID),
		zap.Time("start_time", period.StartTime),
		zap.Time("end_time", period.EndTime),
		zap.Time("now", now),
	)

	if period.Status != models.PeriodNotStarted {
		// The id is taken by a period that already ran; number a new one.
		next, err := s.generator.nextSlotNumber(db, now)
		if err != nil {
			return nil, err
		}
		dayStart, _ := dayBounds(now)
		width := max(len(slot.PeriodID)-len("20060102"), len(strconv.Itoa(next)))
		slot.PeriodID = FormatPeriodID(dayStart, next-1, width)
		return s.createAt(ctx, slot, now, settings)
	}

	start, end, err := s.freeWindow(db, slot, now)
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.Period{}).
		Where("id = ? AND status = ?", period.ID, models.PeriodNotStarted).
		Updates(map[string]any{
			"start_time":       start,
			"end_time":         end,
			"betting_end_time": bettingEndFor(start, end, settings),
		}).Error; err != nil {
		return nil, fmt.Errorf("move period %s: %w", period.PeriodID, err)
	}
	if err := db.First(&period, period.ID).Error; err != nil {
		return nil, fmt.Errorf("reload period %s: %w", period.PeriodID, err)
	}
	return &period, nil
}

func (s *Scheduler) createAt(ctx context.Context, slot Slot, now time.Time, settings *models.GameSettings) (*models.Period, error) {
	db := s.db.WithContext(ctx)

	start, end, err := s.freeWindow(db, slot, now)
	if err != nil {
		return nil, err
	}
	created := models.Period{
		Variant:        s.variant.Code,
		PeriodID:       slot.PeriodID,
		StartTime:      start,
		EndTime:        end,
		BettingEndTime: bettingEndFor(start, end, settings),
		Status:         models.PeriodActive,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
		return nil, fmt.Errorf("create period %s: %w", slot.PeriodID, err)
	}
	s.log.Warn("🆕 Period was missing, created on demand", zap.String("period_id", slot.PeriodID))

	var period models.Period
	if err := db.Where("variant = ? AND period_id = ?", s.variant.Code, slot.PeriodID).
		First(&period).Error; err != nil {
		return nil, fmt.Errorf("reload period %s: %w", slot.PeriodID, err)
	}
	return &period, nil
}

// freeWindow narrows the slot window so it does not overlap the periods
// stored before and after now.
func (s *Scheduler) freeWindow(db *gorm.DB, slot Slot, now time.Time) (time.Time, time.Time, error) {
	start, end := slot.Start, slot.End

	var prev models.Period
	err := db.Where("variant = ? AND end_time > ? AND end_time <= ?", s.variant.Code, start, now).
		Order("end_time DESC").
		First(&prev).Error
	switch {
	case err == nil:
		start = prev.EndTime.In(now.Location())
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return start, end, fmt.Errorf("load previous period: %w", err)
	}

	var next models.Period
	err = db.Where("variant = ? AND start_time > ? AND start_time < ?", s.variant.Code, now, end).
		Order("start_time ASC").
		First(&next).Error
	switch {
	case err == nil:
		end = next.StartTime.In(now.Location())
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return start, end, fmt.Errorf("load next period: %w", err)
	}
	return start, end, nil
}

// adoptLocked makes the slot containing now the current period and arms
// its timers. Callers hold cycleMu.
func (s *Scheduler) adoptLocked(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	period, err := s.periodAt(ctx, settings, now)
	if err != nil {
		return err
	}

	switch period.Status {
	case models.PeriodNotStarted:
		if err := s.db.WithContext(ctx).Model(&models.Period{}).
			Where("id = ? AND status = ?", period.ID, models.PeriodNotStarted).
			Update("status", models.PeriodActive).Error; err != nil {
			return fmt.Errorf("activate period %s: %w", period.PeriodID, err)
		}
		if err := s.db.WithContext(ctx).First(period, period.ID).Error; err != nil {
			return err
		}
		s.log.Info("▶️  Period started", zap.String("period_id", period.PeriodID), zap.Time("end_time", period.EndTime))
	case models.PeriodActive, models.PeriodBettingClosed:
		s.log.Info("⏯️  Resuming period", zap.String("period_id", period.PeriodID), zap.String("status", period.Status))
	case models.PeriodCompleted:
		// The slot ran to completion before this process got to it. Finish
		// its settlement and wait for the next boundary.
		s.log.Warn("⚠️  Current slot already completed, settling and waiting for the next one", zap.String("period_id", period.PeriodID))
		if _, err := s.settlement.Settle(ctx, period); err != nil {
			s.log.Error("❌ Failed to settle completed slot", zap.String("period_id", period.PeriodID), zap.Error(err))
		}
		s.setCurrent(period)
		stopTimer(&s.lockTimer)
		s.replaceTimer(&s.endTimer, period.EndTime.Sub(now), s.retryAdopt)
		return nil
	}

	s.setCurrent(period)
	s.emit(newPeriodEvent(EventPeriodStarted, period))

	id := period.ID
	if period.Status == models.PeriodActive {
		if !now.Before(period.BettingEndTime) {
			s.lockLocked(ctx, id)
		} else {
			s.replaceTimer(&s.lockTimer, period.BettingEndTime.Sub(now), func() { s.onBettingEnd(id) })
		}
	}
	s.replaceTimer(&s.endTimer, period.EndTime.Sub(now), func() { s.onPeriodEnd(id) })
	return nil
}

func (s *Scheduler) retryAdopt() {
	s.cycleMu.Lock()
	defer s.unlockCycle()
	if s.stopped {
		return
	}
	if err := s.adoptLocked(s.ctx); err != nil {
		s.log.Error("❌ Failed to adopt period, retrying", zap.Error(err))
		s.replaceTimer(&s.endTimer, retryAfter, s.retryAdopt)
	}
}

func (s *Scheduler) onBettingEnd(id uint) {
	s.cycleMu.Lock()
	defer s.unlockCycle()
	if s.stopped || s.currentID() != id {
		return
	}
	s.lockLocked(s.ctx, id)
}

func (s *Scheduler) lockLocked(ctx context.Context, id uint) {
	res := s.db.WithContext(ctx).Model(&models.Period{}).
		Where("id = ? AND status = ?", id, models.PeriodActive).
		Update("status", models.PeriodBettingClosed)
	if res.Error != nil {
		s.log.Error("❌ Failed to close betting", zap.Uint("period", id), zap.Error(res.Error))
		s.replaceTimer(&s.lockTimer, retryAfter, func() { s.onBettingEnd(id) })
		return
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current.Status = models.PeriodBettingClosed
	}
	var snapshot models.Period
	if s.current != nil {
		snapshot = *s.current
	}
	s.mu.Unlock()

	s.log.Info("🔒 Betting closed", zap.String("period_id", snapshot.PeriodID))
	s.emit(newPeriodEvent(EventPeriodLocked, &snapshot))
}

// onPeriodEnd completes the period, adopts the next one and only then
// settles, so the new period takes bets while the old one pays out.
func (s *Scheduler) onPeriodEnd(id uint) {
	s.cycleMu.Lock()
	if s.stopped || s.currentID() != id {
		s.unlockCycle()
		return
	}
	ctx := s.ctx

	stopTimer(&s.lockTimer)
	period, err := s.settlement.Complete(ctx, id)
	if err != nil {
		s.log.Error("❌ Failed to complete period, retrying", zap.Uint("period", id), zap.Error(err))
		s.replaceTimer(&s.endTimer, retryAfter, func() { s.onPeriodEnd(id) })
		s.unlockCycle()
		return
	}
	s.emit(newPeriodEvent(EventPeriodCompleted, period))

	if err := s.adoptLocked(ctx); err != nil {
		s.log.Error("❌ Failed to adopt next period, retrying", zap.Error(err))
		s.setCurrent(nil)
		s.replaceTimer(&s.endTimer, retryAfter, s.retryAdopt)
	}
	s.unlockCycle()

	if _, err := s.settlement.Settle(ctx, period); err != nil {
		s.log.Error("❌ Settlement failed, left for the resettle sweep", zap.String("period_id", period.PeriodID), zap.Error(err))
	}
}

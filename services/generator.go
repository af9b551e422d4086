package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wingo/helpers"
	"wingo/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Slot is one day-aligned period window.
type Slot struct {
	Index      int
	PeriodID   string
	Start      time.Time
	End        time.Time
	BettingEnd time.Time
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := helpers.StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// SlotsPerDay is the slot count of a day of dayLen, rounding up so a
// truncated final slot still exists.
func SlotsPerDay(dayLen time.Duration, periodSeconds int) int {
	period := time.Duration(periodSeconds) * time.Second
	n := int(dayLen / period)
	if dayLen%period != 0 {
		n++
	}
	return n
}

// FormatPeriodID renders YYYYMMDD followed by the 1-based slot number.
func FormatPeriodID(day time.Time, index, width int) string {
	num := strconv.Itoa(index + 1)
	for len(num) < width {
		num = "0" + num
	}
	return day.Format("20060102") + num
}

func idWidth(v models.Variant, slots int) int {
	width := len(strconv.Itoa(slots))
	if v.IDDigits > width {
		width = v.IDDigits
	}
	return width
}

func slotFor(dayStart, dayEnd time.Time, index int, v models.Variant, s *models.GameSettings) Slot {
	period := s.PeriodDuration()
	slots := SlotsPerDay(dayEnd.Sub(dayStart), s.PeriodDurationSeconds)

	start := dayStart.Add(time.Duration(index) * period)
	end := start.Add(period)
	if end.After(dayEnd) {
		end = dayEnd
	}

	return Slot{
		Index:      index,
		PeriodID:   FormatPeriodID(dayStart, index, idWidth(v, slots)),
		Start:      start,
		End:        end,
		BettingEnd: bettingEndFor(start, end, s),
	}
}

// bettingEndFor keeps the configured closing gap before end, or falls back
// to the midpoint of a window too short for it.
func bettingEndFor(start, end time.Time, s *models.GameSettings) time.Time {
	bettingEnd := end.Add(-(s.PeriodDuration() - s.BettingDuration()))
	if !bettingEnd.After(start) {
		bettingEnd = start.Add(end.Sub(start) / 2)
	}
	return bettingEnd
}

// SlotAt returns the slot containing t, counted from local midnight.
func SlotAt(t time.Time, v models.Variant, s *models.GameSettings) Slot {
	dayStart, dayEnd := dayBounds(t)
	index := int(t.Sub(dayStart) / s.PeriodDuration())
	return slotFor(dayStart, dayEnd, index, v, s)
}

func SlotsForDay(day time.Time, v models.Variant, s *models.GameSettings) []Slot {
	dayStart, dayEnd := dayBounds(day)
	n := SlotsPerDay(dayEnd.Sub(dayStart), s.PeriodDurationSeconds)
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, slotFor(dayStart, dayEnd, i, v, s))
	}
	return slots
}

func (s Slot) period(variant, status string) models.Period {
	return models.Period{
		Variant:        variant,
		PeriodID:       s.PeriodID,
		StartTime:      s.Start,
		EndTime:        s.End,
		BettingEndTime: s.BettingEnd,
		Status:         status,
	}
}

type Generator struct {
	db       *gorm.DB
	variant  models.Variant
	settings *SettingsStore
	clock    helpers.Clock
	log      *zap.Logger
}

func NewGenerator(db *gorm.DB, variant models.Variant, settings *SettingsStore, clock helpers.Clock, log *zap.Logger) *Generator {
	return &Generator{
		db:       db,
		variant:  variant,
		settings: settings,
		clock:    clock,
		log:      log.Named("generator").With(zap.String("variant", variant.Code)),
	}
}

const generateBatchSize = 200

// GenerateDay inserts the slots of day as not_started, starting after the
// last period the day already has. Repeated calls create nothing.
func (g *Generator) GenerateDay(ctx context.Context, day time.Time) (int, error) {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return 0, err
	}

	var created int
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err = g.generateDay(tx, day.In(g.clock.Now().Location()), settings)
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (g *Generator) generateDay(tx *gorm.DB, day time.Time, settings *models.GameSettings) (int, error) {
	dayStart, dayEnd := dayBounds(day)

	last, err := g.lastPeriodBetween(tx, dayStart, dayEnd)
	if err != nil {
		return 0, err
	}

	var periods []models.Period
	for _, slot := range SlotsForDay(dayStart, g.variant, settings) {
		if last != nil && slot.Start.Before(last.EndTime) {
			continue
		}
		periods = append(periods, slot.period(g.variant.Code, models.PeriodNotStarted))
	}

	created, err := g.insert(tx, periods)
	if err != nil {
		return 0, fmt.Errorf("generate periods for %s: %w", dayStart.Format("2006-01-02"), err)
	}

	g.log.Info("📅 Periods generated",
		zap.String("day", dayStart.Format("2006-01-02")),
		zap.Int("slots", len(periods)),
		zap.Int64("created", created),
	)
	return int(created), nil
}

func (g *Generator) insert(tx *gorm.DB, periods []models.Period) (int64, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&periods, generateBatchSize)
	return res.RowsAffected, res.Error
}

// lastPeriodBetween returns the latest-starting period in [from, to), or nil.
func (g *Generator) lastPeriodBetween(tx *gorm.DB, from, to time.Time) (*models.Period, error) {
	var last models.Period
	err := tx.Where("variant = ? AND start_time >= ? AND start_time < ?", g.variant.Code, from, to).
		Order("start_time DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last period: %w", err)
	}
	return &last, nil
}

// nextSlotNumber is one past the slot number of the day's latest period.
func (g *Generator) nextSlotNumber(tx *gorm.DB, day time.Time) (int, error) {
	dayStart, dayEnd := dayBounds(day)
	last, err := g.lastPeriodBetween(tx, dayStart, dayEnd)
	if err != nil || last == nil {
		return 1, err
	}
	n, err := strconv.Atoi(strings.TrimPrefix(last.PeriodID, dayStart.Format("20060102")))
	if err != nil {
		return 0, fmt.Errorf("parse period id %s: %w", last.PeriodID, err)
	}
	return n + 1, nil
}

// Relayout rebuilds the not_started periods after a duration change. The
// period in play keeps its window; from its end to midnight slots follow
// back to back at the new length and continue the day's numbering. Later
// days already generated are regenerated on the new grid. Runs inside the
// settings update transaction.
func (g *Generator) Relayout(tx *gorm.DB, settings *models.GameSettings) error {
	now := g.clock.Now()
	loc := now.Location()

	boundary := now
	var inPlay models.Period
	err := tx.Where("variant = ? AND status <> ? AND end_time > ?", g.variant.Code, models.PeriodNotStarted, now).
		Order("end_time DESC").
		First(&inPlay).Error
	switch {
	case err == nil:
		boundary = inPlay.EndTime.In(loc)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load period in play: %w", err)
	}

	dayStart, dayEnd := dayBounds(boundary)
	var laterDays int64
	if err := tx.Model(&models.Period{}).
		Where("variant = ? AND start_time >= ?", g.variant.Code, dayEnd).
		Count(&laterDays).Error; err != nil {
		return fmt.Errorf("count later periods: %w", err)
	}

	removed := tx.Unscoped().
		Where("variant = ? AND status = ? AND end_time > ?", g.variant.Code, models.PeriodNotStarted, boundary).
		Delete(&models.Period{})
	if removed.Error != nil {
		return fmt.Errorf("remove stale periods: %w", removed.Error)
	}

	var created int64
	if boundary.After(dayStart) {
		next, err := g.nextSlotNumber(tx, boundary)
		if err != nil {
			return err
		}

		var periods []models.Period
		for start := boundary; start.Before(dayEnd); {
			end := start.Add(settings.PeriodDuration())
			if end.After(dayEnd) {
				end = dayEnd
			}
			periods = append(periods, models.Period{
				Variant:        g.variant.Code,
				StartTime:      start,
				EndTime:        end,
				BettingEndTime: bettingEndFor(start, end, settings),
				Status:         models.PeriodNotStarted,
			})
			start = end
		}

		width := idWidth(g.variant, SlotsPerDay(dayEnd.Sub(dayStart), settings.PeriodDurationSeconds))
		width = max(width, len(strconv.Itoa(next+len(periods)-1)))
		for i := range periods {
			periods[i].PeriodID = FormatPeriodID(dayStart, next-1+i, width)
		}

		if created, err = g.insert(tx, periods); err != nil {
			return fmt.Errorf("relayout periods: %w", err)
		}
	} else {
		n, err := g.generateDay(tx, boundary, settings)
		if err != nil {
			return err
		}
		created = int64(n)
	}

	if laterDays > 0 && boundary.Before(dayEnd) {
		n, err := g.generateDay(tx, dayEnd, settings)
		if err != nil {
			return err
		}
		created += int64(n)
	}

	g.log.Warn("📐 Periods laid out again after a duration change",
		zap.Time("from", boundary),
		zap.Int64("removed", removed.RowsAffected),
		zap.Int64("created", created),
	)
	return nil
}

func (g *Generator) GenerateToday(ctx context.Context) (int, error) {
	return g.GenerateDay(ctx, g.clock.Now())
}

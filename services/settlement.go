package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wingo/helpers"
	"wingo/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettlementOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Settlement resolves completed periods: it picks the winner once and
// then turns every pending bet into won or lost.
type Settlement struct {
	db       *gorm.DB
	variant  models.Variant
	settings *SettingsStore
	wallet   *Wallet
	clock    helpers.Clock
	rnd      helpers.Randomizer
	opts     SettlementOptions
	log      *zap.Logger
}

func NewSettlement(db *gorm.DB, variant models.Variant, settings *SettingsStore, wallet *Wallet, clock helpers.Clock, rnd helpers.Randomizer, opts SettlementOptions, log *zap.Logger) *Settlement {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Settlement{
		db:       db,
		variant:  variant,
		settings: settings,
		wallet:   wallet,
		clock:    clock,
		rnd:      rnd,
		opts:     opts,
		log:      log.Named("settlement").With(zap.String("variant", variant.Code)),
	}
}

type Summary struct {
	PeriodID string
	Ref      string
	Won      int
	Lost     int64
	Paid     decimal.Decimal
}

// Complete records the winner of a period and marks it completed. A period
// that is already completed is returned as stored.
func (s *Settlement) Complete(ctx context.Context, periodRowID uint) (*models.Period, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	chance, _ := settings.ZeroOrFiveWinChance.Float64()

	var period models.Period
	already := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&period, periodRowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}
		if period.Status == models.PeriodCompleted {
			already = true
			return nil
		}

		totals := period.Totals()
		result := PickOutcome(totals, s.variant, chance, s.rnd)
		snapshot, err := json.Marshal(totals)
		if err != nil {
			return fmt.Errorf("encode stake snapshot: %w", err)
		}

		updates := map[string]any{
			"status":         models.PeriodCompleted,
			"winning_color":  string(result.Color),
			"completed_at":   s.clock.Now(),
			"stake_snapshot": datatypes.JSON(snapshot),
		}
		if result.Number != nil {
			updates["winning_number"] = *result.Number
		}
		if result.Size != nil {
			updates["winning_size"] = string(*result.Size)
		}

		if err := tx.Model(&models.Period{}).
			Where("id = ? AND status IN ?", period.ID, []string{models.PeriodActive, models.PeriodBettingClosed}).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("complete period %s: %w", period.PeriodID, err)
		}

		return tx.First(&period, period.ID).Error
	})
	if err != nil {
		return nil, err
	}
	if already {
		return &period, nil
	}

	s.log.Info("🏁 Period completed",
		zap.String("period_id", period.PeriodID),
		zap.Stringp("winning_color", period.WinningColor),
		zap.Intp("winning_number", period.WinningNumber),
		zap.Stringp("winning_size", period.WinningSize),
	)
	return &period, nil
}

// Settle resolves every pending bet of a completed period. Each attempt is
// one transaction and only touches pending bets, so retries and reruns
// never pay twice.
func (s *Settlement) Settle(ctx context.Context, period *models.Period) (Summary, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return Summary{}, err
	}

	attempt := 0
	var summary Summary
	op := func() error {
		attempt++
		var err error
		summary, err = s.settleOnce(ctx, period.ID, settings)
		if errors.Is(err, ErrPeriodNotCompleted) || errors.Is(err, ErrPeriodNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("⚠️  Settlement attempt failed",
			zap.String("period_id", period.PeriodID),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, s.retryPolicy(ctx), notify); err != nil {
		if errors.Is(err, ErrPeriodNotCompleted) || errors.Is(err, ErrPeriodNotFound) || ctx.Err() != nil {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("settle period %s after %d attempts: %w", period.PeriodID, attempt, err)
	}

	if summary.Won > 0 || summary.Lost > 0 {
		s.log.Info("💰 Period settled",
			zap.String("period_id", summary.PeriodID),
			zap.Int("won", summary.Won),
			zap.Int64("lost", summary.Lost),
			zap.String("paid", summary.Paid.String()),
		)
	}
	return summary, nil
}

// retryPolicy doubles RetryDelay between attempts, without jitter, for at
// most MaxAttempts tries.
func (s *Settlement) retryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.RetryDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = s.opts.RetryDelay << (s.opts.MaxAttempts - 1)
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opts.MaxAttempts-1)), ctx)
}

func (s *Settlement) settleOnce(ctx context.Context, periodRowID uint, settings *models.GameSettings) (Summary, error) {
	var summary Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period models.Period
		if err := tx.First(&period, periodRowID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			return err
		}
		if period.Status != models.PeriodCompleted || period.WinningColor == nil {
			return ErrPeriodNotCompleted
		}

		ref := uuid.NewString()
		now := s.clock.Now()
		summary = Summary{PeriodID: period.PeriodID, Ref: ref, Paid: decimal.Zero}

		markWon := func(multiplier decimal.Decimal, query string, args ...any) error {
			return tx.Model(&models.Bet{}).
				Where("game_period_id = ? AND status = ?", period.ID, models.BetPending).
				Where(query, args...).
				Updates(map[string]any{
					"status":         models.BetWon,
					"win_amount":     gorm.Expr("ROUND(amount * ?, 2)", multiplier),
					"settled_at":     now,
					"settlement_ref": ref,
				}).Error
		}

		if err := markWon(settings.WinMultiplier, "kind = ? AND color = ?", string(models.KindColor), *period.WinningColor); err != nil {
			return fmt.Errorf("settle color bets: %w", err)
		}
		if period.WinningNumber != nil {
			multiplier := settings.WinMultiplierForNumberBet
			if n := *period.WinningNumber; n == 0 || n == 5 {
				multiplier = settings.WinMultiplierForNumberBetOnZeroOrFive
			}
			if err := markWon(multiplier, "kind = ? AND number = ?", string(models.KindNumber), *period.WinningNumber); err != nil {
				return fmt.Errorf("settle number bets: %w", err)
			}
		}
		if period.WinningSize != nil {
			if err := markWon(settings.WinMultiplier, "kind = ? AND size = ?", string(models.KindSize), *period.WinningSize); err != nil {
				return fmt.Errorf("settle big/small bets: %w", err)
			}
		}

		lost := tx.Model(&models.Bet{}).
			Where("game_period_id = ? AND status = ?", period.ID, models.BetPending).
			Updates(map[string]any{
				"status":         models.BetLost,
				"settled_at":     now,
				"settlement_ref": ref,
			})
		if lost.Error != nil {
			return fmt.Errorf("settle losing bets: %w", lost.Error)
		}
		summary.Lost = lost.RowsAffected

		var winners []models.Bet
		if err := tx.Where("settlement_ref = ? AND status = ?", ref, models.BetWon).
			Order("user_id, id").
			Find(&winners).Error; err != nil {
			return fmt.Errorf("load winning bets: %w", err)
		}

		for _, bet := range winners {
			if bet.WinAmount == nil || !bet.WinAmount.IsPositive() {
				continue
			}
			amount := helpers.RoundMoney(*bet.WinAmount)
			description := fmt.Sprintf("Win from bet on %s - Period %s", bet.Outcome(), period.PeriodID)
			if _, err := s.wallet.CreditWithEntry(tx, bet.UserID, amount, models.TrxBetWinCredit, description, strconv.FormatUint(uint64(bet.ID), 10)); err != nil {
				return fmt.Errorf("credit bet %d: %w", bet.ID, err)
			}
			summary.Won++
			summary.Paid = summary.Paid.Add(amount)
		}
		return nil
	})
	return summary, err
}

// ResettlePending settles completed periods that still carry pending bets,
// which is what a crash between completion and settlement leaves behind.
func (s *Settlement) ResettlePending(ctx context.Context) (int, error) {
	var periodIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Bet{}).
		Distinct().
		Where("variant = ? AND status = ?", s.variant.Code, models.BetPending).
		Pluck("game_period_id", &periodIDs).Error; err != nil {
		return 0, fmt.Errorf("find pending bets: %w", err)
	}
	if len(periodIDs) == 0 {
		return 0, nil
	}

	var periods []models.Period
	if err := s.db.WithContext(ctx).
		Where("id IN ? AND status = ?", periodIDs, models.PeriodCompleted).
		Order("id").
		Find(&periods).Error; err != nil {
		return 0, fmt.Errorf("load completed periods: %w", err)
	}

	settled := 0
	for i := range periods {
		if _, err := s.Settle(ctx, &periods[i]); err != nil {
			s.log.Error("❌ Failed to re-settle period", zap.String("period_id", periods[i].PeriodID), zap.Error(err))
			continue
		}
		s.log.Info("♻️  Re-settled period with pending bets", zap.String("period_id", periods[i].PeriodID))
		settled++
	}
	return settled, nil
}

// Recover brings storage back in line after an outage: live periods whose
// window has passed are completed and settled, interrupted settlements are
// rerun, and slots that elapsed without ever starting are reported.
func (s *Settlement) Recover(ctx context.Context) error {
	now := s.clock.Now()

	var live []models.Period
	if err := s.db.WithContext(ctx).
		Where("variant = ? AND status IN ?", s.variant.Code, []string{models.PeriodActive, models.PeriodBettingClosed}).
		Order("start_time").
		Find(&live).Error; err != nil {
		return fmt.Errorf("load live periods: %w", err)
	}

	for _, p := range live {
		if now.Before(p.EndTime) {
			continue
		}
		completed, err := s.Complete(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("complete stale period %s: %w", p.PeriodID, err)
		}
		if _, err := s.Settle(ctx, completed); err != nil {
			return fmt.Errorf("settle stale period %s: %w", p.PeriodID, err)
		}
		s.log.Warn("♻️  Recovered stale period", zap.String("period_id", p.PeriodID))
	}

	if _, err := s.ResettlePending(ctx); err != nil {
		return err
	}

	var missed int64
	if err := s.db.WithContext(ctx).Model(&models.Period{}).
		Where("variant = ? AND status = ? AND end_time <= ?", s.variant.Code, models.PeriodNotStarted, now).
		Count(&missed).Error; err != nil {
		return fmt.Errorf("count missed periods: %w", err)
	}
	if missed > 0 {
		s.log.Warn("⚠️  Periods elapsed without running", zap.Int64("count", missed))
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"wingo/helpers"
	"wingo/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CurrentPeriodSource is what the ledger needs from the scheduler.
type CurrentPeriodSource interface {
	CurrentPeriod() (*models.Period, bool)
}

type BetLedger struct {
	db       *gorm.DB
	variant  models.Variant
	settings *SettingsStore
	wallet   *Wallet
	periods  CurrentPeriodSource
	referral *ReferralProcessor
	clock    helpers.Clock
	log      *zap.Logger
}

func NewBetLedger(db *gorm.DB, variant models.Variant, settings *SettingsStore, wallet *Wallet, periods CurrentPeriodSource, referral *ReferralProcessor, clock helpers.Clock, log *zap.Logger) *BetLedger {
	return &BetLedger{
		db:       db,
		variant:  variant,
		settings: settings,
		wallet:   wallet,
		periods:  periods,
		referral: referral,
		clock:    clock,
		log:      log.Named("bets").With(zap.String("variant", variant.Code)),
	}
}

// PlaceBet validates and records a bet on the current period. The debit,
// its ledger row, the bet and the stake totals commit together; referral
// commissions follow and never fail the bet.
func (l *BetLedger) PlaceBet(ctx context.Context, userID uint, outcome models.Outcome, amount decimal.Decimal) (*models.Bet, error) {
	if outcome == nil {
		return nil, models.ErrOutcomeRequired
	}
	if !l.variant.Offers(outcome.Kind()) {
		return nil, ErrOutcomeNotOffered
	}

	current, ok := l.periods.CurrentPeriod()
	if !ok {
		return nil, ErrBettingClosed
	}

	var period models.Period
	if err := l.db.WithContext(ctx).First(&period, current.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("load period: %w", err)
	}
	if period.Status != models.PeriodActive {
		return nil, ErrBettingClosed
	}
	if !l.clock.Now().Before(period.BettingEndTime) {
		return nil, ErrBettingEnded
	}

	settings, err := l.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(settings.MinBetAmount) {
		return nil, &BetLimitError{Limit: settings.MinBetAmount}
	}
	if amount.GreaterThan(settings.MaxBetAmount) {
		return nil, &BetLimitError{Maximum: true, Limit: settings.MaxBetAmount}
	}
	if !amount.Equal(helpers.RoundMoney(amount)) {
		return nil, fmt.Errorf("%w: at most two decimal places", ErrInvalidAmount)
	}

	bet := models.Bet{
		UserID:       userID,
		Variant:      l.variant.Code,
		PeriodID:     period.PeriodID,
		GamePeriodID: period.ID,
		Amount:       amount,
		Status:       models.BetPending,
	}
	bet.SetOutcome(outcome)

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		change, err := l.wallet.Debit(tx, userID, amount)
		if err != nil {
			return err
		}
		if err := tx.Create(&bet).Error; err != nil {
			return fmt.Errorf("create bet: %w", err)
		}
		if _, err := l.wallet.AppendTransaction(tx, LedgerEntry{
			UserID:      userID,
			Type:        models.TrxBetDebit,
			Amount:      amount,
			Change:      change,
			Description: fmt.Sprintf("Bet on %s - Period %s", outcome, period.PeriodID),
			ReferenceID: strconv.FormatUint(uint64(bet.ID), 10),
		}); err != nil {
			return err
		}

		increments := map[string]any{}
		for _, col := range models.StakeColumns(outcome) {
			increments[col] = gorm.Expr(col+" + ?", amount)
		}
		res := tx.Model(&models.Period{}).
			Where("id = ? AND status = ?", period.ID, models.PeriodActive).
			Updates(increments)
		if res.Error != nil {
			return fmt.Errorf("update stake totals: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrBettingClosed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("🎯 Bet placed",
		zap.Uint("bet_id", bet.ID),
		zap.Uint("user_id", userID),
		zap.String("period_id", bet.PeriodID),
		zap.String("outcome", outcome.String()),
		zap.String("amount", amount.String()),
	)

	if l.referral != nil {
		l.referral.ProcessBetCommission(ctx, &bet, settings)
	}
	return &bet, nil
}

// UserBets lists a user's bets on one period.
func (l *BetLedger) UserBets(ctx context.Context, userID uint, periodID string) ([]models.Bet, error) {
	var bets []models.Bet
	err := l.db.WithContext(ctx).
		Where("variant = ? AND user_id = ? AND period_id = ?", l.variant.Code, userID, periodID).
		Order("id DESC").
		Find(&bets).Error
	return bets, err
}

func (l *BetLedger) UserBetHistory(ctx context.Context, userID uint, limit, offset int) ([]models.Bet, int64, error) {
	limit, offset = ClampPage(limit, offset)
	q := l.db.WithContext(ctx).Model(&models.Bet{}).
		Where("variant = ? AND user_id = ?", l.variant.Code, userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bets []models.Bet
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&bets).Error; err != nil {
		return nil, 0, err
	}
	return bets, total, nil
}

// PeriodHistory lists completed periods, most recent first.
func (l *BetLedger) PeriodHistory(ctx context.Context, limit, offset int) ([]models.Period, int64, error) {
	limit, offset = ClampPage(limit, offset)
	q := l.db.WithContext(ctx).Model(&models.Period{}).
		Where("variant = ? AND status = ?", l.variant.Code, models.PeriodCompleted).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var periods []models.Period
	if err := q.Order("completed_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&periods).Error; err != nil {
		return nil, 0, err
	}
	return periods, total, nil
}

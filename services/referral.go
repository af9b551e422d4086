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
	"gorm.io/gorm/clause"
)

const referralLevels = 3

// ReferralProcessor pays commissions up the referrer chain and the one-time
// signup bonus. Nothing it does is allowed to fail the calling operation.
type ReferralProcessor struct {
	db     *gorm.DB
	wallet *Wallet
	// bonusSettings governs the signup bonus, which is not tied to a game.
	bonusSettings *SettingsStore
	log           *zap.Logger
}

func NewReferralProcessor(db *gorm.DB, wallet *Wallet, bonusSettings *SettingsStore, log *zap.Logger) *ReferralProcessor {
	return &ReferralProcessor{db: db, wallet: wallet, bonusSettings: bonusSettings, log: log.Named("referral")}
}

// ProcessBetCommission credits up to three referrers of the bettor.
func (r *ReferralProcessor) ProcessBetCommission(ctx context.Context, bet *models.Bet, settings *models.GameSettings) {
	var bettor models.User
	if err := r.db.WithContext(ctx).Select("id", "referred_by_id").First(&bettor, bet.UserID).Error; err != nil {
		r.log.Warn("⚠️  Referral lookup failed", zap.Uint("user_id", bet.UserID), zap.Error(err))
		return
	}

	next := bettor.ReferredByID
	for level := 1; level <= referralLevels && next != nil; level++ {
		var referrer models.User
		if err := r.db.WithContext(ctx).Select("id", "referred_by_id").First(&referrer, *next).Error; err != nil {
			r.log.Warn("⚠️  Referrer not found", zap.Uint("referrer_id", *next), zap.Int("level", level), zap.Error(err))
			return
		}

		pct := settings.CommissionPercentage(level)
		commission := helpers.Percent(bet.Amount, pct)
		if commission.IsPositive() {
			if err := r.payCommission(ctx, bet, referrer.ID, level, pct, commission); err != nil {
				r.log.Warn("⚠️  Referral commission failed",
					zap.Uint("bet_id", bet.ID),
					zap.Uint("referrer_id", referrer.ID),
					zap.Int("level", level),
					zap.Error(err),
				)
			}
		}
		next = referrer.ReferredByID
	}
}

func (r *ReferralProcessor) payCommission(ctx context.Context, bet *models.Bet, referrerID uint, level int, pct, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rc := models.ReferralCommission{
			UserID:     referrerID,
			FromUserID: bet.UserID,
			BetID:      bet.ID,
			Variant:    bet.Variant,
			Level:      level,
			Amount:     amount,
			Percentage: pct,
		}
		if err := tx.Create(&rc).Error; err != nil {
			return fmt.Errorf("record commission: %w", err)
		}
		description := fmt.Sprintf("L%d referral commission from bet #%d", level, bet.ID)
		_, err := r.wallet.CreditWithEntry(tx, referrerID, amount, models.TrxReferralCommission, description, strconv.FormatUint(uint64(rc.ID), 10))
		return err
	})
}

// ProcessSignupBonus runs after a completed recharge. Only a user's first
// completed recharge counts: below the threshold the bonus is forfeited for
// good, otherwise the referrer is paid once.
func (r *ReferralProcessor) ProcessSignupBonus(ctx context.Context, userID uint, rechargeAmount decimal.Decimal) {
	settings, err := r.bonusSettings.Get(ctx)
	if err != nil {
		r.log.Warn("⚠️  Signup bonus skipped, settings unavailable", zap.Error(err))
		return
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.ReferredByID == nil || user.HasClaimedReferralBonus {
			return nil
		}

		var completed int64
		if err := tx.Model(&models.Transaction{}).
			Where("user_id = ? AND type = ? AND status = ?", user.ID, models.TrxRecharge, models.TrxCompleted).
			Count(&completed).Error; err != nil {
			return err
		}
		if completed != 1 {
			return nil
		}

		markClaimed := func() error {
			return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("has_claimed_referral_bonus", true).Error
		}

		if rechargeAmount.LessThan(settings.MinRechargeForBonus) {
			r.log.Info("🚫 Signup bonus forfeited, first recharge below threshold",
				zap.Uint("user_id", user.ID),
				zap.String("amount", rechargeAmount.String()),
				zap.String("threshold", settings.MinRechargeForBonus.String()),
			)
			return markClaimed()
		}

		if settings.ReferralSignupBonusAmount.IsPositive() {
			description := fmt.Sprintf("Referral bonus for first recharge of user #%d", user.ID)
			if _, err := r.wallet.CreditWithEntry(tx, *user.ReferredByID, settings.ReferralSignupBonusAmount, models.TrxReferralBonus, description, strconv.FormatUint(uint64(user.ID), 10)); err != nil {
				return err
			}
		}
		r.log.Info("🎁 Signup bonus paid", zap.Uint("user_id", user.ID), zap.Uint("referrer_id", *user.ReferredByID))
		return markClaimed()
	})
	if err != nil {
		r.log.Warn("⚠️  Signup bonus failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

type ReferralLevel struct {
	Level  int             `json:"level"`
	Count  int64           `json:"count"`
	Earned decimal.Decimal `json:"earned"`
}

type ReferralInfo struct {
	UserID      uint            `json:"user_id"`
	Levels      []ReferralLevel `json:"levels"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// Info reports how many users sit at each referral level below userID and
// what they have earned for it.
func (r *ReferralProcessor) Info(ctx context.Context, userID uint) (*ReferralInfo, error) {
	db := r.db.WithContext(ctx)
	info := &ReferralInfo{UserID: userID, TotalEarned: decimal.Zero}

	var commissions []models.ReferralCommission
	if err := db.Select("level", "amount").Where("user_id = ?", userID).Find(&commissions).Error; err != nil {
		return nil, err
	}
	earned := map[int]decimal.Decimal{}
	for _, c := range commissions {
		earned[c.Level] = earned[c.Level].Add(c.Amount)
	}

	parents := []uint{userID}
	for level := 1; level <= referralLevels; level++ {
		var ids []uint
		if len(parents) > 0 {
			if err := db.Model(&models.User{}).Where("referred_by_id IN ?", parents).Pluck("id", &ids).Error; err != nil {
				return nil, err
			}
		}
		amount := earned[level]
		info.Levels = append(info.Levels, ReferralLevel{Level: level, Count: int64(len(ids)), Earned: amount})
		info.TotalEarned = info.TotalEarned.Add(amount)
		parents = ids
	}
	return info, nil
}

func (r *ReferralProcessor) Earnings(ctx context.Context, userID uint, limit, offset int) ([]models.ReferralCommission, int64, error) {
	limit, offset = ClampPage(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.ReferralCommission{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ReferralCommission
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

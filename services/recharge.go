package services

import (
	"context"
	"errors"
	"fmt"

	"wingo/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RechargeService is the core side of the payment callback: a pending
// recharge row is created up front and completed exactly once.
type RechargeService struct {
	db       *gorm.DB
	wallet   *Wallet
	settings *SettingsStore
	referral *ReferralProcessor
	log      *zap.Logger
}

func NewRechargeService(db *gorm.DB, wallet *Wallet, settings *SettingsStore, referral *ReferralProcessor, log *zap.Logger) *RechargeService {
	return &RechargeService{db: db, wallet: wallet, settings: settings, referral: referral, log: log.Named("recharge")}
}

func (s *RechargeService) InitiateRecharge(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(settings.MinRechargeAmount) {
		return nil, &RechargeLimitError{Limit: settings.MinRechargeAmount}
	}
	if amount.GreaterThan(settings.MaxRechargeAmount) {
		return nil, &RechargeLimitError{Maximum: true, Limit: settings.MaxRechargeAmount}
	}

	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	trx := models.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Type:          models.TrxRecharge,
		Status:        models.TrxPending,
		Amount:        amount,
		BalanceBefore: balance,
		BalanceAfter:  balance,
		Description:   "Recharge requested",
		ReferenceID:   uuid.NewString(),
	}
	if err := s.db.WithContext(ctx).Create(&trx).Error; err != nil {
		return nil, fmt.Errorf("create recharge: %w", err)
	}

	s.log.Info("🧾 Recharge initiated", zap.Uint("user_id", userID), zap.String("reference", trx.ReferenceID), zap.String("amount", amount.String()))
	return &trx, nil
}

func (s *RechargeService) lockRecharge(tx *gorm.DB, reference string) (*models.Transaction, error) {
	var trx models.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_id = ? AND type = ?", reference, models.TrxRecharge).
		First(&trx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRechargeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// CompleteRecharge credits a pending recharge. Completing the same
// reference again returns the stored row without crediting.
func (s *RechargeService) CompleteRecharge(ctx context.Context, reference string) (*models.Transaction, error) {
	var trx *models.Transaction
	credited := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trx, err = s.lockRecharge(tx, reference)
		if err != nil {
			return err
		}
		switch trx.Status {
		case models.TrxCompleted:
			return nil
		case models.TrxPending:
		default:
			return ErrRechargeNotPending
		}

		change, err := s.wallet.Credit(tx, trx.UserID, trx.Amount)
		if err != nil {
			return err
		}
		if err := tx.Model(trx).Updates(map[string]any{
			"status":         models.TrxCompleted,
			"balance_before": change.Before,
			"balance_after":  change.After,
			"description":    "Recharge completed",
		}).Error; err != nil {
			return fmt.Errorf("complete recharge: %w", err)
		}
		trx.Status = models.TrxCompleted
		trx.BalanceBefore, trx.BalanceAfter = change.Before, change.After
		credited = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if credited {
		s.log.Info("✅ Recharge completed", zap.Uint("user_id", trx.UserID), zap.String("reference", reference), zap.String("amount", trx.Amount.String()))
		s.referral.ProcessSignupBonus(ctx, trx.UserID, trx.Amount)
	}
	return trx, nil
}

// FailRecharge marks a pending recharge as failed. Completed rows are left
// untouched.
func (s *RechargeService) FailRecharge(ctx context.Context, reference string) (*models.Transaction, error) {
	var trx *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		trx, err = s.lockRecharge(tx, reference)
		if err != nil {
			return err
		}
		if trx.Status != models.TrxPending {
			return ErrRechargeNotPending
		}
		trx.Status = models.TrxFailed
		return tx.Model(trx).Update("status", models.TrxFailed).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("❌ Recharge failed", zap.String("reference", reference))
	return trx, nil
}

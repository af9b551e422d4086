package services

import (
	"context"
	"errors"
	"fmt"

	"wingo/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsStore reads and writes the tunables row of one variant.
type SettingsStore struct {
	db      *gorm.DB
	variant models.Variant
	log     *zap.Logger

	layout func(tx *gorm.DB, s *models.GameSettings) error
}

func NewSettingsStore(db *gorm.DB, variant models.Variant, log *zap.Logger) *SettingsStore {
	return &SettingsStore{db: db, variant: variant, log: log.Named("settings").With(zap.String("variant", variant.Code))}
}

// DefaultSettings are seeded the first time a variant starts.
func DefaultSettings(v models.Variant) models.GameSettings {
	return models.GameSettings{
		Variant:                               v.Code,
		PeriodDurationSeconds:                 v.PeriodSeconds,
		BettingDurationSeconds:                v.BettingSeconds,
		WinMultiplier:                         decimal.RequireFromString("1.8"),
		WinMultiplierForNumberBet:             decimal.NewFromInt(9),
		WinMultiplierForNumberBetOnZeroOrFive: decimal.RequireFromString("4.5"),
		MinBetAmount:                          decimal.NewFromInt(10),
		MaxBetAmount:                          decimal.NewFromInt(10000),
		ReferralCommissionPercentage1:         decimal.NewFromInt(1),
		ReferralCommissionPercentage2:         decimal.RequireFromString("0.5"),
		ReferralCommissionPercentage3:         decimal.RequireFromString("0.25"),
		ReferralSignupBonusAmount:             decimal.NewFromInt(1),
		MinRechargeForBonus:                   decimal.NewFromInt(500),
		MinRechargeAmount:                     decimal.NewFromInt(200),
		MaxRechargeAmount:                     decimal.NewFromInt(50000),
		ZeroOrFiveWinChance:                   decimal.RequireFromString("0.1"),
	}
}

// OnLayoutChange registers f to run inside the update transaction whenever
// a period or betting duration changes.
func (s *SettingsStore) OnLayoutChange(f func(tx *gorm.DB, s *models.GameSettings) error) {
	s.layout = f
}

func (s *SettingsStore) Variant() models.Variant {
	return s.variant
}

func (s *SettingsStore) Get(ctx context.Context) (*models.GameSettings, error) {
	var settings models.GameSettings
	err := s.db.WithContext(ctx).Where("variant = ?", s.variant.Code).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &settings, nil
}

// EnsureDefaults seeds the row if it is missing and returns the stored one.
func (s *SettingsStore) EnsureDefaults(ctx context.Context) (*models.GameSettings, error) {
	defaults := DefaultSettings(s.variant)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&defaults)
	if res.Error != nil {
		return nil, fmt.Errorf("seed settings: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("🟢 Default game settings created")
	}
	return s.Get(ctx)
}

// SettingsPatch carries the fields an admin wants to change; nil means keep.
type SettingsPatch struct {
	PeriodDurationSeconds                 *int             `json:"period_duration_seconds" validate:"omitempty,min=10,max=86400"`
	BettingDurationSeconds                *int             `json:"betting_duration_seconds" validate:"omitempty,min=5"`
	WinMultiplier                         *decimal.Decimal `json:"win_multiplier"`
	WinMultiplierForNumberBet             *decimal.Decimal `json:"win_multiplier_for_number_bet"`
	WinMultiplierForNumberBetOnZeroOrFive *decimal.Decimal `json:"win_multiplier_for_number_bet_on_zero_or_five"`
	MinBetAmount                          *decimal.Decimal `json:"min_bet_amount"`
	MaxBetAmount                          *decimal.Decimal `json:"max_bet_amount"`
	ReferralCommissionPercentage1         *decimal.Decimal `json:"referral_commission_percentage_1"`
	ReferralCommissionPercentage2         *decimal.Decimal `json:"referral_commission_percentage_2"`
	ReferralCommissionPercentage3         *decimal.Decimal `json:"referral_commission_percentage_3"`
	ReferralSignupBonusAmount             *decimal.Decimal `json:"referral_signup_bonus_amount"`
	MinRechargeForBonus                   *decimal.Decimal `json:"min_recharge_for_bonus"`
	MinRechargeAmount                     *decimal.Decimal `json:"min_recharge_amount"`
	MaxRechargeAmount                     *decimal.Decimal `json:"max_recharge_amount"`
	ZeroOrFiveWinChance                   *decimal.Decimal `json:"zero_or_five_win_chance"`
}

func (p SettingsPatch) apply(s *models.GameSettings) {
	if p.PeriodDurationSeconds != nil {
		s.PeriodDurationSeconds = *p.PeriodDurationSeconds
	}
	if p.BettingDurationSeconds != nil {
		s.BettingDurationSeconds = *p.BettingDurationSeconds
	}
	setDecimal(&s.WinMultiplier, p.WinMultiplier)
	setDecimal(&s.WinMultiplierForNumberBet, p.WinMultiplierForNumberBet)
	setDecimal(&s.WinMultiplierForNumberBetOnZeroOrFive, p.WinMultiplierForNumberBetOnZeroOrFive)
	setDecimal(&s.MinBetAmount, p.MinBetAmount)
	setDecimal(&s.MaxBetAmount, p.MaxBetAmount)
	setDecimal(&s.ReferralCommissionPercentage1, p.ReferralCommissionPercentage1)
	setDecimal(&s.ReferralCommissionPercentage2, p.ReferralCommissionPercentage2)
	setDecimal(&s.ReferralCommissionPercentage3, p.ReferralCommissionPercentage3)
	setDecimal(&s.ReferralSignupBonusAmount, p.ReferralSignupBonusAmount)
	setDecimal(&s.MinRechargeForBonus, p.MinRechargeForBonus)
	setDecimal(&s.MinRechargeAmount, p.MinRechargeAmount)
	setDecimal(&s.MaxRechargeAmount, p.MaxRechargeAmount)
	setDecimal(&s.ZeroOrFiveWinChance, p.ZeroOrFiveWinChance)
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// Update applies a partial change. The live period keeps its stored
// boundaries; a duration change lays out the upcoming ones again.
func (s *SettingsStore) Update(ctx context.Context, patch SettingsPatch) (*models.GameSettings, error) {
	var updated models.GameSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("variant = ?", s.variant.Code).
			First(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSettingsNotFound
			}
			return err
		}

		period, betting := updated.PeriodDurationSeconds, updated.BettingDurationSeconds
		patch.apply(&updated)
		if err := updated.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}

		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		if s.layout == nil || (period == updated.PeriodDurationSeconds && betting == updated.BettingDurationSeconds) {
			return nil
		}
		return s.layout(tx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("✅ Game settings updated",
		zap.Int("period_seconds", updated.PeriodDurationSeconds),
		zap.Int("betting_seconds", updated.BettingDurationSeconds),
	)
	return &updated, nil
}

package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GameSettings struct {
	gorm.Model

	Variant                               string          `gorm:"uniqueIndex;size:16" json:"variant"`
	PeriodDurationSeconds                 int             `json:"period_duration_seconds"`
	BettingDurationSeconds                int             `json:"betting_duration_seconds"`
	WinMultiplier                         decimal.Decimal `gorm:"type:numeric(10,4)" json:"win_multiplier"`
	WinMultiplierForNumberBet             decimal.Decimal `gorm:"type:numeric(10,4)" json:"win_multiplier_for_number_bet"`
	WinMultiplierForNumberBetOnZeroOrFive decimal.Decimal `gorm:"type:numeric(10,4)" json:"win_multiplier_for_number_bet_on_zero_or_five"`
	MinBetAmount                          decimal.Decimal `gorm:"type:numeric(18,2)" json:"min_bet_amount"`
	MaxBetAmount                          decimal.Decimal `gorm:"type:numeric(18,2)" json:"max_bet_amount"`
	ReferralCommissionPercentage1         decimal.Decimal `gorm:"type:numeric(10,4)" json:"referral_commission_percentage_1"`
	ReferralCommissionPercentage2         decimal.Decimal `gorm:"type:numeric(10,4)" json:"referral_commission_percentage_2"`
	ReferralCommissionPercentage3         decimal.Decimal `gorm:"type:numeric(10,4)" json:"referral_commission_percentage_3"`
	ReferralSignupBonusAmount             decimal.Decimal `gorm:"type:numeric(18,2)" json:"referral_signup_bonus_amount"`
	MinRechargeForBonus                   decimal.Decimal `gorm:"type:numeric(18,2)" json:"min_recharge_for_bonus"`
	MinRechargeAmount                     decimal.Decimal `gorm:"type:numeric(18,2)" json:"min_recharge_amount"`
	MaxRechargeAmount                     decimal.Decimal `gorm:"type:numeric(18,2)" json:"max_recharge_amount"`
	ZeroOrFiveWinChance                   decimal.Decimal `gorm:"type:numeric(10,4)" json:"zero_or_five_win_chance"`
}

func (GameSettings) TableName() string {
	return "game_settings"
}

func (s *GameSettings) PeriodDuration() time.Duration {
	return time.Duration(s.PeriodDurationSeconds) * time.Second
}

func (s *GameSettings) BettingDuration() time.Duration {
	return time.Duration(s.BettingDurationSeconds) * time.Second
}

// CommissionPercentage returns the percentage paid to the referrer at level 1..3.
func (s *GameSettings) CommissionPercentage(level int) decimal.Decimal {
	switch level {
	case 1:
		return s.ReferralCommissionPercentage1
	case 2:
		return s.ReferralCommissionPercentage2
	case 3:
		return s.ReferralCommissionPercentage3
	}
	return decimal.Zero
}

var hundred = decimal.NewFromInt(100)

func (s *GameSettings) Validate() error {
	if s.PeriodDurationSeconds <= 0 || s.PeriodDurationSeconds > 86400 {
		return errors.New("period duration must be between 1 and 86400 seconds")
	}
	if s.BettingDurationSeconds <= 0 || s.BettingDurationSeconds >= s.PeriodDurationSeconds {
		return errors.New("betting duration must be positive and shorter than the period")
	}
	for _, m := range []decimal.Decimal{s.WinMultiplier, s.WinMultiplierForNumberBet, s.WinMultiplierForNumberBetOnZeroOrFive} {
		if !m.IsPositive() {
			return errors.New("multipliers must be positive")
		}
	}
	if !s.MinBetAmount.IsPositive() || s.MaxBetAmount.LessThan(s.MinBetAmount) {
		return errors.New("bet limits must satisfy 0 < min <= max")
	}
	for level := 1; level <= 3; level++ {
		p := s.CommissionPercentage(level)
		if p.IsNegative() || p.GreaterThan(hundred) {
			return errors.New("referral percentages must be within 0 and 100")
		}
	}
	if s.ReferralSignupBonusAmount.IsNegative() || s.MinRechargeForBonus.IsNegative() {
		return errors.New("referral bonus settings cannot be negative")
	}
	if !s.MinRechargeAmount.IsPositive() || s.MaxRechargeAmount.LessThan(s.MinRechargeAmount) {
		return errors.New("recharge limits must satisfy 0 < min <= max")
	}
	if s.ZeroOrFiveWinChance.IsNegative() || s.ZeroOrFiveWinChance.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("zero/five win chance must be within 0 and 1")
	}
	return nil
}

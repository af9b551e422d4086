package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrSettingsNotFound    = errors.New("game settings not found")
	ErrInvalidSettings     = errors.New("invalid game settings")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrPeriodNotFound      = errors.New("period not found")
	ErrPeriodNotCompleted  = errors.New("period is not completed")
	ErrBettingClosed       = errors.New("betting is closed for this period")
	ErrBettingEnded        = errors.New("betting time has ended for this period")
	ErrOutcomeNotOffered   = errors.New("this game does not accept that kind of bet")
	ErrRechargeNotFound    = errors.New("recharge not found")
	ErrRechargeNotPending  = errors.New("recharge is no longer pending")
)

// BetLimitError reports an amount outside the configured bet window.
type BetLimitError struct {
	Maximum bool
	Limit   decimal.Decimal
}

func (e *BetLimitError) Error() string {
	if e.Maximum {
		return fmt.Sprintf("maximum bet amount is %s", e.Limit.String())
	}
	return fmt.Sprintf("minimum bet amount is %s", e.Limit.String())
}

type RechargeLimitError struct {
	Maximum bool
	Limit   decimal.Decimal
}

func (e *RechargeLimitError) Error() string {
	if e.Maximum {
		return fmt.Sprintf("maximum recharge amount is %s", e.Limit.String())
	}
	return fmt.Sprintf("minimum recharge amount is %s", e.Limit.String())
}

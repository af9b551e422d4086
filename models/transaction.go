package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TrxRecharge           = "recharge"
	TrxBetDebit           = "bet_debit"
	TrxBetWinCredit       = "bet_win_credit"
	TrxReferralCommission = "referral_commission"
	TrxReferralBonus      = "referral_bonus"

	TrxPending   = "pending"
	TrxCompleted = "completed"
	TrxFailed    = "failed"
)

// Transaction is the ledger row paired with every balance mutation.
type Transaction struct {
	gorm.Model

	TransactionID string          `gorm:"uniqueIndex;size:36" json:"transaction_id"`
	UserID        uint            `gorm:"index" json:"user_id"`
	Type          string          `gorm:"size:32;index" json:"type"`
	Status        string          `gorm:"size:16;index" json:"status"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance_after"`
	Description   string          `gorm:"size:255" json:"description"`
	ReferenceID   string          `gorm:"size:64;index" json:"reference_id"`
}

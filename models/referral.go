package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReferralCommission struct {
	gorm.Model

	UserID     uint            `gorm:"index" json:"user_id"`
	FromUserID uint            `gorm:"index" json:"from_user_id"`
	BetID      uint            `gorm:"index" json:"bet_id"`
	Variant    string          `gorm:"size:16" json:"variant"`
	Level      int             `json:"level"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"amount"`
	Percentage decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"percentage"`
}

package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Phone                   string          `gorm:"uniqueIndex;size:20" json:"phone"`
	Name                    string          `gorm:"size:64" json:"name"`
	Balance                 decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`
	ReferredByID            *uint           `gorm:"index" json:"referred_by_id"`
	HasClaimedReferralBonus bool            `gorm:"not null;default:false" json:"has_claimed_referral_bonus"`
	Transactions            []Transaction   `gorm:"foreignKey:UserID" json:"-"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BetPending = "pending"
	BetWon     = "won"
	BetLost    = "lost"
)

type Bet struct {
	gorm.Model

	UserID        uint             `gorm:"index" json:"user_id"`
	Variant       string           `gorm:"size:16;index" json:"variant"`
	PeriodID      string           `gorm:"size:16;index" json:"period_id"`
	GamePeriodID  uint             `gorm:"index:idx_bet_period_status" json:"game_period_id"`
	Kind          string           `gorm:"size:8" json:"kind"`
	Color         *string          `gorm:"size:8" json:"color"`
	Number        *int             `json:"number"`
	Size          *string          `gorm:"size:8" json:"big_or_small"`
	Amount        decimal.Decimal  `gorm:"type:numeric(18,2);not null" json:"amount"`
	Status        string           `gorm:"size:16;index:idx_bet_period_status" json:"status"`
	WinAmount     *decimal.Decimal `gorm:"type:numeric(18,2)" json:"win_amount"`
	SettledAt     *time.Time       `json:"settled_at"`
	SettlementRef string           `gorm:"size:36;index" json:"-"`
}

func (b *Bet) SetOutcome(o Outcome) {
	b.Kind = string(o.Kind())
	b.Color, b.Number, b.Size = nil, nil, nil
	switch v := o.(type) {
	case ColorOutcome:
		c := string(v.Color)
		b.Color = &c
	case NumberOutcome:
		n := v.Number
		b.Number = &n
	case SizeOutcome:
		s := string(v.Size)
		b.Size = &s
	}
}

// Outcome rebuilds the selection from the stored columns.
func (b *Bet) Outcome() Outcome {
	switch OutcomeKind(b.Kind) {
	case KindColor:
		if b.Color != nil {
			return ColorOutcome{Color: Color(*b.Color)}
		}
	case KindNumber:
		if b.Number != nil {
			return NumberOutcome{Number: *b.Number}
		}
	case KindSize:
		if b.Size != nil {
			return SizeOutcome{Size: Size(*b.Size)}
		}
	}
	return nil
}

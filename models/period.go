package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PeriodNotStarted    = "not_started"
	PeriodActive        = "active"
	PeriodBettingClosed = "betting_closed"
	PeriodCompleted     = "completed"
)

type Period struct {
	gorm.Model

	Variant        string    `gorm:"size:16;uniqueIndex:idx_period_variant_pid;index:idx_period_variant_status" json:"variant"`
	PeriodID       string    `gorm:"size:16;uniqueIndex:idx_period_variant_pid" json:"period_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	BettingEndTime time.Time `json:"betting_end_time"`
	Status         string    `gorm:"size:16;index:idx_period_variant_status" json:"status"`

	TotalGreen  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalPurple decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalRed    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalZero   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalOne    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalTwo    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalThree  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalFour   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalFive   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalSix    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalSeven  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalEight  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalNine   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalBig    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`
	TotalSmall  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"-"`

	WinningColor  *string `gorm:"size:8" json:"winning_color"`
	WinningNumber *int    `json:"winning_number"`
	WinningSize   *string `gorm:"size:8" json:"winning_size"`

	CompletedAt   *time.Time     `json:"completed_at"`
	StakeSnapshot datatypes.JSON `json:"-"`
}

// IsLive reports whether the period is the one a scheduler may hold as current.
func (p *Period) IsLive() bool {
	return p.Status == PeriodActive || p.Status == PeriodBettingClosed
}

func (p *Period) Totals() StakeTotals {
	return StakeTotals{
		Green:  p.TotalGreen,
		Purple: p.TotalPurple,
		Red:    p.TotalRed,
		Numbers: [10]decimal.Decimal{
			p.TotalZero, p.TotalOne, p.TotalTwo, p.TotalThree, p.TotalFour,
			p.TotalFive, p.TotalSix, p.TotalSeven, p.TotalEight, p.TotalNine,
		},
		Big:   p.TotalBig,
		Small: p.TotalSmall,
	}
}

// StakeTotals is the per-bucket money staked on a period.
type StakeTotals struct {
	Green   decimal.Decimal     `json:"green"`
	Purple  decimal.Decimal     `json:"purple"`
	Red     decimal.Decimal     `json:"red"`
	Numbers [10]decimal.Decimal `json:"numbers"`
	Big     decimal.Decimal     `json:"big"`
	Small   decimal.Decimal     `json:"small"`
}

func (t StakeTotals) Color(c Color) decimal.Decimal {
	switch c {
	case ColorGreen:
		return t.Green
	case ColorPurple:
		return t.Purple
	case ColorRed:
		return t.Red
	}
	return decimal.Zero
}

func (t StakeTotals) Size(s Size) decimal.Decimal {
	if s == SizeBig {
		return t.Big
	}
	return t.Small
}

var numberColumns = [10]string{
	"total_zero", "total_one", "total_two", "total_three", "total_four",
	"total_five", "total_six", "total_seven", "total_eight", "total_nine",
}

// StakeColumns lists the aggregate columns a bet on o increments. A number
// also counts toward its color family.
func StakeColumns(o Outcome) []string {
	switch v := o.(type) {
	case ColorOutcome:
		return []string{"total_" + string(v.Color)}
	case NumberOutcome:
		return []string{"total_" + string(NumberColor(v.Number)), numberColumns[v.Number]}
	case SizeOutcome:
		return []string{"total_" + string(v.Size)}
	}
	return nil
}

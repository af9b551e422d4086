package wingo

import (
	"wingo/models"
	"wingo/providers"
)

var (
	ThreeMinute = models.Variant{
		Code:           "wingo3m",
		Name:           "Win Go 3 Min",
		Kinds:          []models.OutcomeKind{models.KindColor},
		IDDigits:       3,
		PeriodSeconds:  180,
		BettingSeconds: 150,
	}

	OneMinute = models.Variant{
		Code:           "wingo1m",
		Name:           "Win Go 1 Min",
		Kinds:          []models.OutcomeKind{models.KindColor, models.KindNumber, models.KindSize},
		IDDigits:       3,
		PeriodSeconds:  60,
		BettingSeconds: 55,
	}

	// ThirtySecond restricts the winning number to the half of the board
	// that carries less big/small money.
	ThirtySecond = models.Variant{
		Code:           "wingo30s",
		Name:           "Win Go 30 Sec",
		Kinds:          []models.OutcomeKind{models.KindColor, models.KindNumber, models.KindSize},
		HalfRestricted: true,
		IDDigits:       4,
		PeriodSeconds:  30,
		BettingSeconds: 25,
	}
)

func init() {
	providers.Register(ThreeMinute)
	providers.Register(OneMinute)
	providers.Register(ThirtySecond)
}

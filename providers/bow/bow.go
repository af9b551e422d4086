package bow

import (
	"wingo/models"
	"wingo/providers"
)

var Variant = models.Variant{
	Code:           "bow",
	Name:           "BOW",
	Kinds:          []models.OutcomeKind{models.KindColor, models.KindNumber},
	IDDigits:       3,
	PeriodSeconds:  60,
	BettingSeconds: 55,
}

func init() {
	providers.Register(Variant)
}

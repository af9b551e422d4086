package services

import (
	"sort"

	"wingo/helpers"
	"wingo/models"

	"github.com/shopspring/decimal"
)

// Result is the winning outcome of a period. Number and Size are nil for
// variants that do not record them.
type Result struct {
	Color  models.Color
	Number *int
	Size   *models.Size
}

// IsZeroOrFive reports whether the winning number pays the special multiplier.
func (r Result) IsZeroOrFive() bool {
	return r.Number != nil && (*r.Number == 0 || *r.Number == 5)
}

// PickOutcome selects the winner against the side with the least money on
// it. Purple never wins. zeroFiveChance is the probability that 0 or 5 is
// allowed to win when it is the least-staked number.
func PickOutcome(totals models.StakeTotals, v models.Variant, zeroFiveChance float64, rnd helpers.Randomizer) Result {
	res := Result{Color: pickColor(totals, rnd)}

	if v.Offers(models.KindSize) || v.HalfRestricted {
		size := models.SizeBig
		if totals.Big.GreaterThan(totals.Small) {
			size = models.SizeSmall
		}
		res.Size = &size
	}

	if v.Offers(models.KindNumber) {
		n := pickNumber(totals, res.Color, res.Size, v.HalfRestricted, zeroFiveChance, rnd)
		res.Number = &n
		if res.Size == nil {
			size := models.NumberSize(n)
			res.Size = &size
		}
	}

	return res
}

func pickColor(totals models.StakeTotals, rnd helpers.Randomizer) models.Color {
	colors := []models.Color{models.ColorGreen, models.ColorPurple, models.ColorRed}
	if allZero(totals.Green, totals.Purple, totals.Red) {
		if rnd.IntN(2) == 0 {
			return models.ColorGreen
		}
		return models.ColorRed
	}

	sort.SliceStable(colors, func(i, j int) bool {
		return totals.Color(colors[i]).LessThan(totals.Color(colors[j]))
	})
	for _, c := range colors {
		if c != models.ColorPurple {
			return c
		}
	}
	return models.ColorGreen
}

func pickNumber(totals models.StakeTotals, color models.Color, size *models.Size, halfRestricted bool, zeroFiveChance float64, rnd helpers.Randomizer) int {
	var candidates []int
	for n := 0; n <= 9; n++ {
		if models.NumberColor(n) != color {
			continue
		}
		if halfRestricted && size != nil && models.NumberSize(n) != *size {
			continue
		}
		candidates = append(candidates, n)
	}

	stakes := make([]decimal.Decimal, len(candidates))
	for i, n := range candidates {
		stakes[i] = totals.Numbers[n]
	}
	if allZero(stakes...) {
		return candidates[rnd.IntN(len(candidates))]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return totals.Numbers[candidates[i]].LessThan(totals.Numbers[candidates[j]])
	})

	lowest := candidates[0]
	if lowest != 0 && lowest != 5 {
		return lowest
	}
	if rnd.Float64() < zeroFiveChance {
		return lowest
	}
	for _, n := range candidates[1:] {
		if n != 0 && n != 5 {
			return n
		}
	}
	return lowest
}

func allZero(values ...decimal.Decimal) bool {
	for _, v := range values {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

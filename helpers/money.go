package helpers

import "github.com/shopspring/decimal"

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns amount * pct / 100 rounded to money precision.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

package models

import "slices"

// Variant describes one game instance: its clock and the bets it offers.
type Variant struct {
	Code           string
	Name           string
	Kinds          []OutcomeKind
	HalfRestricted bool
	IDDigits       int
	PeriodSeconds  int
	BettingSeconds int
}

func (v Variant) Offers(kind OutcomeKind) bool {
	return slices.Contains(v.Kinds, kind)
}

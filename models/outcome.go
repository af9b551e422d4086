package models

import (
	"errors"
	"fmt"
	"strconv"
)

type Color string

const (
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorRed    Color = "red"
)

type Size string

const (
	SizeBig   Size = "big"
	SizeSmall Size = "small"
)

type OutcomeKind string

const (
	KindColor  OutcomeKind = "color"
	KindNumber OutcomeKind = "number"
	KindSize   OutcomeKind = "size"
)

var (
	ErrOutcomeRequired = errors.New("must bet on exactly one of color/number/big-or-small")
	ErrInvalidOutcome  = errors.New("invalid outcome value")
)

// Outcome is one of ColorOutcome, NumberOutcome or SizeOutcome.
type Outcome interface {
	Kind() OutcomeKind
	String() string
	isOutcome()
}

type ColorOutcome struct{ Color Color }

type NumberOutcome struct{ Number int }

type SizeOutcome struct{ Size Size }

func (ColorOutcome) Kind() OutcomeKind  { return KindColor }
func (NumberOutcome) Kind() OutcomeKind { return KindNumber }
func (SizeOutcome) Kind() OutcomeKind   { return KindSize }

func (o ColorOutcome) String() string  { return string(o.Color) }
func (o NumberOutcome) String() string { return strconv.Itoa(o.Number) }
func (o SizeOutcome) String() string   { return string(o.Size) }

func (ColorOutcome) isOutcome()  {}
func (NumberOutcome) isOutcome() {}
func (SizeOutcome) isOutcome()   {}

// ParseOutcome turns the nullable request fields into an Outcome. Exactly
// one of them must be set.
func ParseOutcome(color *string, number *int, size *string) (Outcome, error) {
	set := 0
	if color != nil {
		set++
	}
	if number != nil {
		set++
	}
	if size != nil {
		set++
	}
	if set != 1 {
		return nil, ErrOutcomeRequired
	}

	switch {
	case color != nil:
		c := Color(*color)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: color %q", ErrInvalidOutcome, *color)
		}
		return ColorOutcome{Color: c}, nil
	case number != nil:
		if *number < 0 || *number > 9 {
			return nil, fmt.Errorf("%w: number %d", ErrInvalidOutcome, *number)
		}
		return NumberOutcome{Number: *number}, nil
	default:
		s := Size(*size)
		if !s.Valid() {
			return nil, fmt.Errorf("%w: size %q", ErrInvalidOutcome, *size)
		}
		return SizeOutcome{Size: s}, nil
	}
}

func (c Color) Valid() bool {
	return c == ColorGreen || c == ColorPurple || c == ColorRed
}

func (s Size) Valid() bool {
	return s == SizeBig || s == SizeSmall
}

// NumberColor maps a digit onto its color family: even is red, odd is green.
func NumberColor(n int) Color {
	if n%2 == 0 {
		return ColorRed
	}
	return ColorGreen
}

// NumberSize reports the half a digit belongs to.
func NumberSize(n int) Size {
	if n >= 5 {
		return SizeBig
	}
	return SizeSmall
}

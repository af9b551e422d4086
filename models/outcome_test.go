package models

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name    string
		color   *string
		number  *int
		size    *string
		want    Outcome
		wantErr error
	}{
		{name: "color", color: strPtr("red"), want: ColorOutcome{Color: ColorRed}},
		{name: "number zero", number: intPtr(0), want: NumberOutcome{Number: 0}},
		{name: "size", size: strPtr("big"), want: SizeOutcome{Size: SizeBig}},
		{name: "nothing", wantErr: ErrOutcomeRequired},
		{name: "color and number", color: strPtr("green"), number: intPtr(3), wantErr: ErrOutcomeRequired},
		{name: "all three", color: strPtr("green"), number: intPtr(3), size: strPtr("small"), wantErr: ErrOutcomeRequired},
		{name: "unknown color", color: strPtr("blue"), wantErr: ErrInvalidOutcome},
		{name: "number out of range", number: intPtr(10), wantErr: ErrInvalidOutcome},
		{name: "unknown size", size: strPtr("medium"), wantErr: ErrInvalidOutcome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutcome(tt.color, tt.number, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNumberFamilies(t *testing.T) {
	for n := 0; n <= 9; n++ {
		wantColor := ColorGreen
		if n%2 == 0 {
			wantColor = ColorRed
		}
		if got := NumberColor(n); got != wantColor {
			t.Errorf("NumberColor(%d) = %s, want %s", n, got, wantColor)
		}
		wantSize := SizeSmall
		if n >= 5 {
			wantSize = SizeBig
		}
		if got := NumberSize(n); got != wantSize {
			t.Errorf("NumberSize(%d) = %s, want %s", n, got, wantSize)
		}
	}
}

func TestStakeColumns(t *testing.T) {
	cols := StakeColumns(NumberOutcome{Number: 7})
	if len(cols) != 2 || cols[0] != "total_green" || cols[1] != "total_seven" {
		t.Fatalf("number 7 columns = %v", cols)
	}
	if cols := StakeColumns(ColorOutcome{Color: ColorPurple}); len(cols) != 1 || cols[0] != "total_purple" {
		t.Fatalf("purple columns = %v", cols)
	}
	if cols := StakeColumns(SizeOutcome{Size: SizeSmall}); len(cols) != 1 || cols[0] != "total_small" {
		t.Fatalf("small columns = %v", cols)
	}
}

func TestBetOutcomeRoundTrip(t *testing.T) {
	for _, o := range []Outcome{ColorOutcome{Color: ColorGreen}, NumberOutcome{Number: 5}, SizeOutcome{Size: SizeBig}} {
		var b Bet
		b.SetOutcome(o)
		if got := b.Outcome(); got != o {
			t.Errorf("round trip %v -> %v", o, got)
		}
	}
}

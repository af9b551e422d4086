package helpers

import "math/rand/v2"

// Randomizer is the source of chance used when picking outcomes.
type Randomizer interface {
	Float64() float64
	IntN(n int) int
}

type defaultRandomizer struct{}

func (defaultRandomizer) Float64() float64 { return rand.Float64() }
func (defaultRandomizer) IntN(n int) int   { return rand.IntN(n) }

func NewRandomizer() Randomizer {
	return defaultRandomizer{}
}

// SeededRandomizer is deterministic; used by tests and replays.
func SeededRandomizer(seed uint64) Randomizer {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

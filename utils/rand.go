package utils

import "math/rand"

// skip list level generators start from the same seed so a given sequence of
// inserts always produces the same tower heights
const randSeed = 1

// NewRand returns a deterministic generator, seeded once per owner.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(randSeed))
}

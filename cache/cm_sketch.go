package cache

import (
	metro "github.com/dgryski/go-metro"
	"github.com/pkg/errors"

	"lsmkv/utils"
)

const (
	cmDepth = 4
	// counters saturate at 15
	cmMaxCount = 0x0f
)

// cmSketch is a count-min sketch of 4-bit counters used to estimate how often
// a cache key has been seen recently.
type cmSketch struct {
	rows [cmDepth]cmRow
	seed [cmDepth]uint64
	mask uint64
}

func newCmSketch(numCounters int64) *cmSketch {
	utils.CondPanic(numCounters <= 0, errors.New("cmSketch: invalid numCounters"))
	numCounters = next2Power(numCounters)
	if numCounters < 2 {
		numCounters = 2
	}
	sketch := &cmSketch{mask: uint64(numCounters - 1)}
	source := utils.NewRand()
	for i := 0; i < cmDepth; i++ {
		sketch.seed[i] = source.Uint64()
		sketch.rows[i] = newCmRow(numCounters)
	}
	return sketch
}

// Increment counts one more access to key.
func (s *cmSketch) Increment(key string) {
	h := keyToHash(key)
	for i := range s.rows {
		s.rows[i].increment((h ^ s.seed[i]) & s.mask)
	}
}

// Estimate returns the smallest counter of key over all rows.
func (s *cmSketch) Estimate(key string) int64 {
	h := keyToHash(key)
	min := byte(cmMaxCount)
	for i := range s.rows {
		if val := s.rows[i].get((h ^ s.seed[i]) & s.mask); val < min {
			min = val
		}
	}
	return int64(min)
}

// Halve ages every counter so old popularity fades.
func (s *cmSketch) Halve() {
	for _, r := range s.rows {
		r.halve()
	}
}

func next2Power(x int64) int64 {
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}

func keyToHash(key string) uint64 {
	return metro.Hash64Str(key, 0)
}

// cmRow packs two 4-bit counters per byte, even slots in the low nibble.
type cmRow []byte

func newCmRow(numCounters int64) cmRow {
	return make(cmRow, numCounters/2)
}

func (r cmRow) increment(n uint64) {
	i := n / 2
	s := (n & 1) * 4
	if (r[i]>>s)&cmMaxCount < cmMaxCount {
		r[i] += 1 << s
	}
}

func (r cmRow) get(n uint64) byte {
	return r[n/2] >> ((n & 1) * 4) & cmMaxCount
}

func (r cmRow) halve() {
	for i := range r {
		r[i] = (r[i] >> 1) & 0x77
	}
}

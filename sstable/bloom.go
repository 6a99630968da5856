package sstable

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
	metro "github.com/dgryski/go-metro"
	"github.com/pkg/errors"

	"lsmkv/utils"
)

const (
	filterBits = utils.FilterSize * 8
	hashSeed   = 1
)

// BloomFilter is a fixed size filter with four probes per key. Its binary form
// is the raw bitmap, bit i stored in byte i/8 at position i%8.
type BloomFilter struct {
	bits *bitset.BitSet
}

func NewBloomFilter() *BloomFilter {
	return &BloomFilter{bits: bitset.New(filterBits)}
}

// NewBloomFilterFromBytes restores a filter written by MarshalBinary.
func NewBloomFilterFromBytes(buf []byte) (*BloomFilter, error) {
	if len(buf) != utils.FilterSize {
		return nil, errors.Wrapf(utils.ErrCorruptTable, "bloom filter is %d bytes", len(buf))
	}
	words := make([]uint64, utils.FilterSize/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return &BloomFilter{bits: bitset.From(words)}, nil
}

func probes(key uint64) [4]uint {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h1, h2 := metro.Hash128(buf[:], hashSeed)
	return [4]uint{
		uint(uint32(h1) % filterBits),
		uint(uint32(h1>>32) % filterBits),
		uint(uint32(h2) % filterBits),
		uint(uint32(h2>>32) % filterBits),
	}
}

func (f *BloomFilter) Add(key uint64) {
	for _, p := range probes(key) {
		f.bits.Set(p)
	}
}

// MayContain returns false only when key was never added.
func (f *BloomFilter) MayContain(key uint64) bool {
	for _, p := range probes(key) {
		if !f.bits.Test(p) {
			return false
		}
	}
	return true
}

func (f *BloomFilter) MarshalBinary() ([]byte, error) {
	buf := make([]byte, utils.FilterSize)
	f.encode(buf)
	return buf, nil
}

func (f *BloomFilter) encode(dst []byte) {
	for i, w := range f.bits.Bytes() {
		if i*8 >= len(dst) {
			break
		}
		binary.LittleEndian.PutUint64(dst[i*8:], w)
	}
}

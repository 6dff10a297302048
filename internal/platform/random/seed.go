// Package random provides seeded pseudo-random sources.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeed reads two words of entropy from crypto/rand.
func NewSeed() (uint64, uint64, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]), nil
}

// NewRand returns a PCG-backed generator seeded from crypto/rand.
// The result is not safe for concurrent use.
func NewRand() (*rand.Rand, error) {
	hi, lo, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(hi, lo)), nil
}

// NewDeterministic returns a generator with a fixed seed, for tests and replays.
func NewDeterministic(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

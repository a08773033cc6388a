package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Generator creates the opaque IDs handed out for new team mappings.
type Generator interface {
	NewID() (string, error)
}

const mappingPrefix = "tm_"

// RandomGenerator produces prefixed 96-bit random hex IDs.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return mappingPrefix + hex.EncodeToString(buf), nil
}

// SequenceGenerator hands out deterministic IDs. Test use only.
type SequenceGenerator struct {
	n atomic.Uint64
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

func (g *SequenceGenerator) NewID() (string, error) {
	return fmt.Sprintf("%s%06d", mappingPrefix, g.n.Add(1)), nil
}

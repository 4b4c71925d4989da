package sim

import (
	"hash/fnv"
	"math/rand"
)

// NewModuleRand returns a *rand.Rand seeded deterministically from a
// global run seed and a module identifier. Every module that injects
// randomness (traffic generator addresses, PCIe CRC errors, flash jitter
// and wear-out) owns one of these so that two runs with the same seed and
// the same task-registration order replay identically, per this
// simulator's determinism guarantee.
func NewModuleRand(globalSeed int64, moduleID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(moduleID))
	moduleSalt := int64(h.Sum64())

	// #nosec G404 -- deterministic replay, not a cryptographic use.
	return rand.New(rand.NewSource(globalSeed ^ moduleSalt))
}

package cache

import "github.com/archsim/ssdsim/sim"

// lineState mirrors the coherence-style states a cache line can be in.
// The simulator never models a second requester, so there is no SHARED
// state; the state is still tracked because the fill rule in
// SPEC_FULL.md §4.4 assigns EXCLUSIVE or MODIFIED explicitly.
type lineState int

const (
	stateInvalid lineState = iota
	stateExclusive
	stateModified
)

// line is one way within a set.
type line struct {
	valid bool
	dirty bool
	state lineState
	tag   uint32

	lastAccess sim.Time
	fillOrder  uint64
	accessCount int64
}

func (l *line) reset() {
	*l = line{}
}

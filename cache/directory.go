package cache

import (
	"math/bits"

	"github.com/archsim/ssdsim/sim"
)

// set is one row of the directory: Associativity ways, searched linearly.
type set struct {
	ways []line
}

// directory holds the tag/state array of the cache. It never touches
// data payloads, only the bookkeeping SPEC_FULL.md §4.4 describes.
type directory struct {
	sets          []set
	offsetBits    uint
	indexBits     uint
	associativity int
	fillCounter   uint64
	rng           randSource
}

type randSource interface {
	Intn(n int) int
}

// newDirectory builds a directory for the given geometry. lineSize and
// numSets must both be exact powers of two.
func newDirectory(lineSize, numSets, associativity int, rng randSource) *directory {
	sets := make([]set, numSets)
	for i := range sets {
		sets[i].ways = make([]line, associativity)
	}

	return &directory{
		sets:          sets,
		offsetBits:    uint(bits.Len(uint(lineSize - 1))),
		indexBits:     uint(bits.Len(uint(numSets - 1))),
		associativity: associativity,
		rng:           rng,
	}
}

// decode splits an address into (setIndex, tag) per the offset/index/tag
// bit layout in SPEC_FULL.md §4.4.
func (d *directory) decode(address uint64) (setIndex int, tag uint32) {
	setIndex = int((address >> d.offsetBits) & ((1 << d.indexBits) - 1))
	tag = uint32(address >> (d.offsetBits + d.indexBits))

	return setIndex, tag
}

// lookup searches setIndex for a valid way whose tag matches. It returns
// the way index and true on a hit.
func (d *directory) lookup(setIndex int, tag uint32) (wayIndex int, hit bool) {
	s := &d.sets[setIndex]

	for i := range s.ways {
		if s.ways[i].valid && s.ways[i].tag == tag {
			return i, true
		}
	}

	return -1, false
}

// selectVictim picks a way to evict from setIndex: the first invalid way
// if one exists, otherwise a way chosen by policy.
func (d *directory) selectVictim(setIndex int, policy replacementPolicy) int {
	s := &d.sets[setIndex]

	for i := range s.ways {
		if !s.ways[i].valid {
			return i
		}
	}

	switch policy {
	case replacementLFU:
		best := 0

		for i := 1; i < len(s.ways); i++ {
			if s.ways[i].accessCount < s.ways[best].accessCount {
				best = i
			}
		}

		return best

	case replacementRandom:
		return d.rng.Intn(len(s.ways))

	case replacementFIFO:
		best := 0

		for i := 1; i < len(s.ways); i++ {
			if s.ways[i].fillOrder < s.ways[best].fillOrder {
				best = i
			}
		}

		return best

	default: // replacementLRU
		best := 0

		for i := 1; i < len(s.ways); i++ {
			if s.ways[i].lastAccess < s.ways[best].lastAccess {
				best = i
			}
		}

		return best
	}
}

func (d *directory) touch(setIndex, wayIndex int, now sim.Time) {
	l := &d.sets[setIndex].ways[wayIndex]
	l.lastAccess = now
	l.accessCount++
}

func (d *directory) fill(setIndex, wayIndex int, tag uint32, dirty bool, st lineState, now sim.Time) {
	d.fillCounter++

	l := &d.sets[setIndex].ways[wayIndex]
	l.valid = true
	l.tag = tag
	l.dirty = dirty
	l.state = st
	l.lastAccess = now
	l.accessCount = 1
	l.fillOrder = d.fillCounter
}

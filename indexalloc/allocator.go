// Package indexalloc implements the host-side transaction tag allocator:
// it assigns the smallest available tag in [0, maxIndex) to every
// outgoing packet and reclaims the tag when the matching response comes
// back, providing the flow control that bounds outstanding requests.
package indexalloc

import (
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
)

// IndexSetter tags a packet with an assigned index. The default setter
// calls p.SetIndex and also mirrors the value into the "index"
// attribute, since some downstream components read it as an attribute
// rather than through the typed accessor.
type IndexSetter func(p packet.Packet, idx int32)

// DefaultIndexSetter is the setter used when none is supplied.
func DefaultIndexSetter(p packet.Packet, idx int32) {
	p.SetIndex(idx)
	p.SetAttribute("index", float64(idx))
}

// Allocator is the host-side index allocator described in the design:
// a bounded pool of tags handed out in ascending order and reclaimed on
// release.
type Allocator struct {
	In         *sim.Channel[packet.Packet]
	Out        *sim.Channel[packet.Packet]
	ReleaseIn  *sim.Channel[packet.Packet]

	maxIndex int
	used     []bool
	free     *sim.Event
	setter   IndexSetter
	reporter simerr.Reporter

	outstanding int
	totalAllocated int
}

// New creates an Allocator bound to k with room for maxIndex outstanding
// tags. If setter is nil, DefaultIndexSetter is used.
func New(
	k *sim.Kernel,
	maxIndex, channelCap int,
	setter IndexSetter,
	reporter simerr.Reporter,
) *Allocator {
	if setter == nil {
		setter = DefaultIndexSetter
	}

	if reporter == nil {
		reporter = simerr.DiscardReporter
	}

	return &Allocator{
		In:        sim.NewChannel[packet.Packet](k, channelCap),
		Out:       sim.NewChannel[packet.Packet](k, channelCap),
		ReleaseIn: sim.NewChannel[packet.Packet](k, channelCap),
		maxIndex:  maxIndex,
		used:      make([]bool, maxIndex),
		free:      sim.NewEvent(k),
		setter:    setter,
		reporter:  reporter,
	}
}

// Outstanding returns the number of tags currently allocated. It is only
// meaningful when read from within a task holding the kernel's baton, or
// after the run has finished.
func (a *Allocator) Outstanding() int {
	return a.outstanding
}

// TotalAllocated returns the number of tags handed out over the
// allocator's lifetime, counting reuse.
func (a *Allocator) TotalAllocated() int {
	return a.totalAllocated
}

// RunAllocate is the allocator's request-side task: it reads packets from
// In, blocks until a tag is available, tags the packet, and forwards it
// to Out.
func (a *Allocator) RunAllocate(t *sim.Task) {
	for {
		p, ok := a.In.RecvOK(t)
		if !ok {
			a.Out.Close()
			return
		}

		idx := a.allocate(t)
		a.setter(p, int32(idx))
		a.Out.Send(t, p)
	}
}

// RunRelease is the allocator's response-side task: it reads response
// packets from ReleaseIn and frees the tag they carry.
func (a *Allocator) RunRelease(t *sim.Task) {
	for {
		p, ok := a.ReleaseIn.RecvOK(t)
		if !ok {
			return
		}

		a.release(int(p.Attribute("index")))
	}
}

// Start spawns both of the allocator's tasks on k under the given name
// prefix.
func (a *Allocator) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".allocate", a.RunAllocate)
	k.Spawn(namePrefix+".release", a.RunRelease)
}

func (a *Allocator) allocate(t *sim.Task) int {
	for a.outstanding >= a.maxIndex {
		a.free.Wait(t)
	}

	for i, inUse := range a.used {
		if !inUse {
			a.used[i] = true
			a.outstanding++
			a.totalAllocated++

			return i
		}
	}

	// Every slot was in use despite outstanding < maxIndex: the two
	// counters disagree, which should be unreachable. Report it and fall
	// back to tag 0 rather than panic the simulation.
	a.reporter.Report(simerr.New(
		"indexalloc", simerr.ResourceExhausted, "no_free_tag",
		"allocate called with no free tag despite outstanding < maxIndex",
	))

	return 0
}

func (a *Allocator) release(idx int) {
	if idx < 0 || idx >= a.maxIndex || !a.used[idx] {
		a.reporter.Report(simerr.New(
			"indexalloc", simerr.ResourceExhausted, "release_unallocated_tag",
			"release called for a tag that was not allocated",
		))

		return
	}

	a.used[idx] = false
	a.outstanding--
	a.free.Notify()
}

// Package cache implements the L1 cache: an N-way set associative array
// sitting between the SSD controller and the DRAM controller, with
// configurable replacement, write, and allocation policies.
package cache

import (
	"math/rand"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
)

type replacementPolicy int

const (
	replacementLRU replacementPolicy = iota
	replacementFIFO
	replacementRandom
	replacementLFU
)

func policyFromConfig(p config.ReplacementPolicy) replacementPolicy {
	switch p {
	case config.FIFO:
		return replacementFIFO
	case config.Random:
		return replacementRandom
	case config.LFU:
		return replacementLFU
	default:
		return replacementLRU
	}
}

// Cache is the L1 cache component. CPUIn/CPUOut face the traffic
// generator side; MemOut/MemIn face the DRAM controller side.
type Cache struct {
	CPUIn  *sim.Channel[packet.Packet]
	CPUOut *sim.Channel[packet.Packet]
	MemOut *sim.Channel[packet.Packet]
	MemIn  *sim.Channel[packet.Packet]

	cfg       config.Cache
	dir       *directory
	policy    replacementPolicy
	hitLat    sim.Duration
	missLat   sim.Duration
	reporter  simerr.Reporter

	hits       int64
	misses     int64
	writebacks int64
	evictions  int64
}

// New builds a Cache from cfg. rng seeds the RANDOM replacement policy's
// victim draws; it is expected to already be per-module seeded via
// sim.NewModuleRand.
func New(k *sim.Kernel, channelCap int, cfg config.Cache, rng *rand.Rand, reporter simerr.Reporter) *Cache {
	numLines := cfg.SizeKB * 1024 / cfg.LineSize
	numSets := numLines / cfg.Associativity

	if reporter == nil {
		reporter = simerr.DiscardReporter
	}

	return &Cache{
		CPUIn:     sim.NewChannel[packet.Packet](k, channelCap),
		CPUOut:    sim.NewChannel[packet.Packet](k, channelCap),
		MemOut:    sim.NewChannel[packet.Packet](k, channelCap),
		MemIn:     sim.NewChannel[packet.Packet](k, channelCap),
		cfg:       cfg,
		dir:       newDirectory(cfg.LineSize, numSets, cfg.Associativity, rng),
		policy:    policyFromConfig(cfg.ReplacementPolicy),
		hitLat:    nsToDuration(cfg.HitLatencyNs),
		missLat:   nsToDuration(cfg.MissLatencyNs),
		reporter:  reporter,
	}
}

// Start spawns the cache's single request-processing task.
func (c *Cache) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".run", c.Run)
}

func (c *Cache) Hits() int64       { return c.hits }
func (c *Cache) Misses() int64     { return c.misses }
func (c *Cache) Writebacks() int64 { return c.writebacks }
func (c *Cache) Evictions() int64  { return c.evictions }

// Run processes requests from CPUIn one at a time, closing CPUOut and
// MemOut once CPUIn closes.
func (c *Cache) Run(t *sim.Task) {
	for {
		req, ok := c.CPUIn.RecvOK(t)
		if !ok {
			c.CPUOut.Close()
			c.MemOut.Close()

			return
		}

		c.serve(t, req)
	}
}

func (c *Cache) serve(t *sim.Task, req packet.Packet) {
	if req.Command() != packet.Read && req.Command() != packet.Write {
		c.reporter.Report(simerr.New("cache", simerr.InvalidPacketType, "unrecognized_command",
			"cache received a packet with an unrecognized command"))

		return
	}

	setIndex, tag := c.dir.decode(req.Address())

	wayIndex, hit := c.dir.lookup(setIndex, tag)
	if hit {
		c.serveHit(t, req, setIndex, wayIndex)
		return
	}

	c.serveMiss(t, req, setIndex, tag)
}

func (c *Cache) serveHit(t *sim.Task, req packet.Packet, setIndex, wayIndex int) {
	c.hits++
	c.dir.touch(setIndex, wayIndex, t.Now())

	l := &c.dir.sets[setIndex].ways[wayIndex]

	if req.Command() == packet.Write {
		if c.cfg.WritePolicy == config.WriteBack {
			l.dirty = true
			l.state = stateModified
		} else {
			c.MemOut.Send(t, req)
		}
	}

	t.Wait(c.hitLat)
	c.CPUOut.Send(t, req)
}

func (c *Cache) serveMiss(t *sim.Task, req packet.Packet, setIndex int, tag uint32) {
	c.misses++

	t.Wait(c.missLat)

	allocate := true
	if req.Command() == packet.Write &&
		(c.cfg.AllocationPolicy == config.NoWriteAllocate || c.cfg.WritePolicy == config.WriteAround) {
		allocate = false
	}

	c.MemOut.Send(t, req)
	resp, ok := c.MemIn.RecvOK(t)

	if !ok {
		c.CPUOut.Close()
		return
	}

	if allocate {
		c.fill(t, setIndex, tag, req)
	}

	c.CPUOut.Send(t, resp)
}

func (c *Cache) fill(t *sim.Task, setIndex int, tag uint32, req packet.Packet) {
	wayIndex := c.dir.selectVictim(setIndex, c.policy)
	victim := &c.dir.sets[setIndex].ways[wayIndex]

	if victim.valid {
		c.evictions++

		if victim.dirty && c.cfg.WritePolicy == config.WriteBack {
			c.writebacks++
		}
	}

	dirty := req.Command() == packet.Write && c.cfg.WritePolicy == config.WriteBack

	st := stateExclusive
	if req.Command() == packet.Write {
		st = stateModified
	}

	c.dir.fill(setIndex, wayIndex, tag, dirty, st, t.Now())
}

func nsToDuration(ns float64) sim.Duration {
	if ns < 0 {
		ns = 0
	}

	return sim.Duration(ns * float64(sim.Nanosecond))
}

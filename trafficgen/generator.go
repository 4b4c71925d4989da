// Package trafficgen implements the host request generator: it emits a
// bounded stream of read/write packets under a configurable arrival
// pattern, address locality, and read/write mix, optionally gated by an
// outstanding-request limit.
package trafficgen

import (
	"math"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
)

// Generator produces packets onto Out and, if configured with a positive
// MaxOutstanding, drains completions from CompletionIn to gate further
// emission.
type Generator struct {
	Out          *sim.Channel[packet.Packet]
	CompletionIn *sim.Channel[packet.Packet]

	cfg config.TrafficGen
	rng randSource

	cursor     uint64
	burstCount int

	outstanding int
	completion  *sim.Event

	emitted int
}

// randSource is the subset of *rand.Rand the generator needs, so tests
// can substitute a deterministic stub.
type randSource interface {
	Float64() float64
	Int63n(n int64) int64
	NormFloat64() float64
}

// New creates a Generator bound to k. cfg.WorkloadTemplate presets, if
// any, have already been applied by the caller via ApplyTemplate.
func New(k *sim.Kernel, channelCap int, cfg config.TrafficGen, rng randSource) *Generator {
	g := &Generator{
		Out:        sim.NewChannel[packet.Packet](k, channelCap),
		cfg:        cfg,
		rng:        rng,
		cursor:     cfg.StartAddress,
		completion: sim.NewEvent(k),
	}

	if cfg.MaxOutstanding > 0 {
		g.CompletionIn = sim.NewChannel[packet.Packet](k, channelCap)
	}

	return g
}

// Start spawns the generator's emission task and, if flow-controlled, its
// completion tracker.
func (g *Generator) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".emit", g.Run)

	if g.CompletionIn != nil {
		k.Spawn(namePrefix+".complete", g.RunCompletionTracker)
	}
}

// Emitted returns the number of packets emitted so far.
func (g *Generator) Emitted() int {
	return g.emitted
}

// Run emits exactly cfg.NumTransactions packets, then closes Out.
func (g *Generator) Run(t *sim.Task) {
	for i := 0; i < g.cfg.NumTransactions; i++ {
		if g.cfg.MaxOutstanding > 0 {
			for g.outstanding >= g.cfg.MaxOutstanding {
				g.completion.Wait(t)
			}
		}

		addr := g.nextAddress()
		cmd := g.nextCommand()
		p := packet.NewGenericPacket(cmd, uint32(addr), g.cfg.DatabyteValue)

		g.outstanding++
		g.emitted++

		g.Out.Send(t, p)

		if i < g.cfg.NumTransactions-1 {
			t.Wait(g.nextInterArrival())
		}
	}

	g.Out.Close()
}

// RunCompletionTracker decrements the outstanding counter and wakes any
// generator blocked on the outstanding limit whenever a completion
// arrives.
func (g *Generator) RunCompletionTracker(t *sim.Task) {
	for {
		_, ok := g.CompletionIn.RecvOK(t)
		if !ok {
			return
		}

		g.outstanding--
		g.completion.Notify()
	}
}

// nextAddress draws the next request address: the sequential cursor with
// probability LocalityPercentage/100, otherwise uniform over the
// configured range.
func (g *Generator) nextAddress() uint64 {
	if g.rng.Float64()*100 < g.cfg.LocalityPercentage {
		addr := g.cursor
		g.cursor += g.cfg.AddressIncrement

		if g.cursor > g.cfg.EndAddress {
			g.cursor = g.cfg.StartAddress
		}

		return addr
	}

	span := g.cfg.EndAddress - g.cfg.StartAddress + 1
	if span == 0 {
		span = 1
	}

	return g.cfg.StartAddress + uint64(g.rng.Int63n(int64(span)))
}

// nextCommand draws WRITE with probability WritePercentage/100.
func (g *Generator) nextCommand() packet.Command {
	if g.rng.Float64()*100 < g.cfg.WritePercentage {
		return packet.Write
	}

	return packet.Read
}

// nextInterArrival draws the delay before the next emission, per the
// configured traffic pattern.
func (g *Generator) nextInterArrival() sim.Duration {
	switch g.cfg.TrafficPattern {
	case config.Burst:
		g.burstCount++

		if g.burstCount < g.cfg.BurstSize {
			return nsToDuration(g.cfg.BurstInterval)
		}

		g.burstCount = 0

		return nsToDuration(g.cfg.IdleTime)

	case config.Poisson:
		return nsToDuration(-g.cfg.DelayMean * math.Log(1-g.rng.Float64()))

	case config.Exponential:
		rate := g.cfg.PoissonRate
		if rate <= 0 {
			rate = 1.0
		}

		return nsToDuration(-math.Log(1-g.rng.Float64()) / rate)

	case config.Normal:
		v := g.rng.NormFloat64()*g.cfg.DelayStddev + g.cfg.DelayMean
		if v < 0 {
			v = 0
		}

		return nsToDuration(v)

	default: // config.Constant and anything unrecognized
		return nsToDuration(g.cfg.Interval)
	}
}

func nsToDuration(ns float64) sim.Duration {
	if ns < 0 {
		ns = 0
	}

	return sim.Duration(math.Round(ns * float64(sim.Nanosecond)))
}

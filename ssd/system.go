// Package ssd wires the traffic generator, index allocator, profilers,
// PCIe delay lines, L1 cache, DRAM controller, and flash controller into
// the complete request/response pipeline described by the top-level SSD
// and host composition.
package ssd

import (
	"github.com/archsim/ssdsim/cache"
	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/dram"
	"github.com/archsim/ssdsim/flash"
	"github.com/archsim/ssdsim/indexalloc"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/pcie"
	"github.com/archsim/ssdsim/profiler"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
	"github.com/archsim/ssdsim/stats"
	"github.com/archsim/ssdsim/trace"
	"github.com/archsim/ssdsim/trafficgen"
)

// System is one fully wired SSD-under-test: a traffic generator driving
// a host-side index allocator and PCIe link into an SSD pipeline of
// cache, DRAM controller, and flash controller/NAND.
type System struct {
	kernel *sim.Kernel

	Generator *trafficgen.Generator
	Allocator *indexalloc.Allocator
	Latency   *profiler.LatencyProfiler[packet.Packet]
	Bandwidth *profiler.BandwidthProfiler[packet.Packet]
	PCIeDown  *pcie.DelayLine
	PCIeUp    *pcie.DelayLine
	Cache     *cache.Cache
	DRAM      *dram.Controller
	Flash     *flash.Controller

	trace  trace.Sink
	errors []*simerr.Error
}

const channelCap = 8

// New builds a System from cfg. reportingPeriod controls how often the
// bandwidth and latency profilers snapshot; zero disables periodic
// reporting (final totals remain available). sink, if non-nil, receives
// a Record for every request crossing the PCIe/cache boundary in either
// direction; pass nil to disable tracing.
func New(cfg *config.Config, reportingPeriod sim.Duration, sink trace.Sink) *System {
	k := sim.NewKernel()

	s := &System{kernel: k, trace: sink}

	reporter := simerr.ReporterFunc(func(e *simerr.Error) { s.errors = append(s.errors, e) })

	trafficRng := sim.NewModuleRand(cfg.Simulation.Seed, "trafficgen")
	cacheRng := sim.NewModuleRand(cfg.Simulation.Seed, "cache")
	flashRng := sim.NewModuleRand(cfg.Simulation.Seed, "flash")
	pcieDownRng := sim.NewModuleRand(cfg.Simulation.Seed, "pcie.down")
	pcieUpRng := sim.NewModuleRand(cfg.Simulation.Seed, "pcie.up")

	trafficCfg := trafficgen.ApplyTemplate(cfg.TrafficGen)

	s.Generator = trafficgen.New(k, channelCap, trafficCfg, trafficRng)
	s.Allocator = indexalloc.New(k, cfg.HostSystem.MaxIndex, channelCap, indexalloc.DefaultIndexSetter, reporter)
	s.Latency = profiler.NewLatency[packet.Packet](k, channelCap, reportingPeriod, nil)
	s.Bandwidth = profiler.NewBandwidth[packet.Packet](k, channelCap, reportingPeriod, nil)
	s.PCIeDown = pcie.New(k, channelCap, cfg.PCIe, pcieDownRng, reporter)
	s.PCIeUp = pcie.New(k, channelCap, cfg.PCIe, pcieUpRng, reporter)
	s.Cache = cache.New(k, channelCap, cfg.Cache, cacheRng, reporter)
	s.DRAM = dram.New(k, channelCap, cfg.DRAM, reporter)
	s.Flash = flash.New(k, channelCap, cfg.Flash, flashRng)
	s.Flash.SetReporter(reporter)

	s.wire(k)

	return s
}

// wire spawns every component's tasks and the small forwarding tasks
// that stitch adjacent channel pairs together into one pipeline.
func (s *System) wire(k *sim.Kernel) {
	s.Generator.Start(k, "trafficgen")
	s.Allocator.Start(k, "indexalloc")
	s.Latency.Start(k, "latency")
	s.Bandwidth.Start(k, "bandwidth")
	s.PCIeDown.Start(k, "pcie.down")
	s.PCIeUp.Start(k, "pcie.up")
	s.Cache.Start(k, "cache")
	s.DRAM.Start(k, "dram")
	s.Flash.Start(k, "flash")

	forward(k, "trafficgen->alloc", s.Generator.Out, s.Allocator.In)
	forward(k, "alloc->latreq", s.Allocator.Out, s.Latency.ReqIn)
	forward(k, "latreq->bw", s.Latency.ReqOut, s.Bandwidth.In)
	forward(k, "bw->pciedown", s.Bandwidth.Out, s.PCIeDown.In)
	s.tracedForward(k, "pciedown->cache", "ssd", "cpu_in", s.PCIeDown.Out, s.Cache.CPUIn)
	forward(k, "cache->dram", s.Cache.MemOut, s.DRAM.CtrlIn)
	forward(k, "dram->flash", s.DRAM.FlashOut, s.Flash.In)
	forward(k, "flash->dram", s.Flash.Out, s.DRAM.FlashIn)
	forward(k, "dram->cache", s.DRAM.CtrlOut, s.Cache.MemIn)
	s.tracedForward(k, "cache->pcieup", "ssd", "cpu_out", s.Cache.CPUOut, s.PCIeUp.In)
	forward(k, "pcieup->latrsp", s.PCIeUp.Out, s.Latency.RspIn)

	if s.Generator.CompletionIn != nil {
		fanout2(k, "latrsp->release+completion", s.Latency.RspOut, s.Allocator.ReleaseIn, s.Generator.CompletionIn)
	} else {
		forward(k, "latrsp->release", s.Latency.RspOut, s.Allocator.ReleaseIn)
	}
}

// forward relays every value from in to out until in closes, at which
// point it closes out too.
func forward[T any](k *sim.Kernel, name string, in, out *sim.Channel[T]) {
	k.Spawn(name, func(t *sim.Task) {
		for {
			v, ok := in.RecvOK(t)
			if !ok {
				out.Close()
				return
			}

			out.Send(t, v)
		}
	})
}

// tracedForward behaves like forward, additionally writing a Record to
// the system's trace sink (if any) for every packet it relays.
func (s *System) tracedForward(k *sim.Kernel, name, module, port string, in, out *sim.Channel[packet.Packet]) {
	if s.trace == nil {
		forward(k, name, in, out)
		return
	}

	k.Spawn(name, func(t *sim.Task) {
		for {
			v, ok := in.RecvOK(t)
			if !ok {
				out.Close()
				return
			}

			s.trace.Write(trace.Record{
				SimTime: t.Now(),
				Module:  module,
				Port:    port,
				Command: v.Command().String(),
				Address: v.Address(),
				Bytes:   v.PayloadBytes(),
				Index:   v.Index(),
			})

			out.Send(t, v)
		}
	})
}

// fanout2 relays every value from in to both out1 and out2, in that
// order, closing both when in closes. Used where two independent
// downstream consumers each need to observe the same completion signal
// (releasing an index tag and unblocking the traffic generator's
// outstanding-request limit).
func fanout2[T any](k *sim.Kernel, name string, in, out1, out2 *sim.Channel[T]) {
	k.Spawn(name, func(t *sim.Task) {
		for {
			v, ok := in.RecvOK(t)
			if !ok {
				out1.Close()
				out2.Close()
				return
			}

			out1.Send(t, v)
			out2.Send(t, v)
		}
	})
}

// Run drives the simulation to completion: every component task blocks
// until its upstream closes, so the whole pipeline drains once the
// traffic generator emits its configured number of transactions.
func (s *System) Run() {
	s.kernel.Run()
}

// Now returns the current simulated time.
func (s *System) Now() sim.Time {
	return s.kernel.Now()
}

// Errors returns every non-fatal error reported by a component during
// the run, in the order they occurred.
func (s *System) Errors() []*simerr.Error {
	return s.errors
}

// Snapshot takes a point-in-time statistics report. It is only
// well-defined when called while the kernel is idle (between Run
// returning and any further scheduling), matching the read-through-a-
// snapshot statistics model.
func (s *System) Snapshot() stats.Report {
	latency := s.Latency.Report(s.Now())

	return stats.Report{
		SimTime:     s.Now(),
		TotalErrors: len(s.errors),
		Cache: stats.CacheReport{
			Hits:       s.Cache.Hits(),
			Misses:     s.Cache.Misses(),
			Writebacks: s.Cache.Writebacks(),
			Evictions:  s.Cache.Evictions(),
			HitRate:    hitRate(s.Cache.Hits(), s.Cache.Misses()),
		},
		DRAM: stats.DRAMReport{
			TotalRequests:   s.DRAM.TotalRequests(),
			ReadRequests:    s.DRAM.ReadRequests(),
			WriteRequests:   s.DRAM.WriteRequests(),
			RowHits:         s.DRAM.RowHits(),
			RowMisses:       s.DRAM.RowMisses(),
			PageEmptyHits:   s.DRAM.PageEmptyHits(),
			BankConflicts:   s.DRAM.BankConflicts(),
			RefreshCycles:   s.DRAM.RefreshCycles(),
			AvgReadLatency:  s.DRAM.AvgReadLatency(),
			AvgWriteLatency: s.DRAM.AvgWriteLatency(),
		},
		Flash: stats.FlashReport{
			ChannelConflicts: s.Flash.ChannelConflicts(),
			WearLevelSwaps:   s.Flash.WearLevelSwaps(),
			Reads:            s.Flash.Reads(),
			Writes:           s.Flash.Writes(),
			Erases:           s.Flash.Erases(),
			DeviceErrors:     s.Flash.DeviceErrors(),
		},
		PCIeDown: pcieReport(s.PCIeDown),
		PCIeUp:   pcieReport(s.PCIeUp),
		Profiler: stats.ProfilerReport{
			RequestCount: latency.TotalCount,
			TotalLatency: latency.TotalSum,
			MinLatency:   latency.Min,
			MaxLatency:   latency.Max,
			AvgLatency:   avgDuration(latency.TotalSum, latency.TotalCount),
			TotalBytes:   s.Bandwidth.TotalBytes(),
		},
	}
}

func pcieReport(d *pcie.DelayLine) stats.PCIeReport {
	return stats.PCIeReport{
		Packets:      d.Packets(),
		CRCErrors:    d.CRCErrors(),
		Retries:      d.Retries(),
		DeviceErrors: d.DeviceErrors(),
		Utilization:  d.Utilization(),
	}
}

func avgDuration(sum sim.Duration, count int64) sim.Duration {
	if count == 0 {
		return 0
	}

	return sum / sim.Duration(count)
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}

	return float64(hits) / float64(total)
}

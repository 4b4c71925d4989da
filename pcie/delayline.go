// Package pcie implements the PCIe delay line: generation/lane dependent
// transmission time, CRC processing delay, a congestion model, and a
// CRC-error/retry model, per the canonical scheme table in
// SPEC_FULL.md §4.7.
package pcie

import (
	"math"
	"math/rand"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
)

const (
	maxRetries    = 3
	retryPenalty  = 100 * sim.Nanosecond
	emaAlpha      = 0.1
)

// DelayLine is the PCIe link component. It wraps every packet it
// forwards in a PCIePacket long enough to compute and apply the link's
// delay model, then releases the original packet downstream.
type DelayLine struct {
	In  *sim.Channel[packet.Packet]
	Out *sim.Channel[packet.Packet]

	cfg    config.PCIe
	scheme crcScheme
	rng    *rand.Rand

	reporter simerr.Reporter

	utilization  float64
	lastArrival  sim.Time
	haveLast     bool

	linkErrors int64
	linkTotal  int64

	packets       int64
	crcErrors     int64
	retries       int64
	deviceErrors  int64
}

// New builds a DelayLine from cfg.
func New(k *sim.Kernel, channelCap int, cfg config.PCIe, rng *rand.Rand, reporter simerr.Reporter) *DelayLine {
	if reporter == nil {
		reporter = simerr.DiscardReporter
	}

	threshold := cfg.CongestionThreshold
	if threshold <= 0 {
		threshold = 0.8
	}

	cfg.CongestionThreshold = threshold

	return &DelayLine{
		In:       sim.NewChannel[packet.Packet](k, channelCap),
		Out:      sim.NewChannel[packet.Packet](k, channelCap),
		cfg:      cfg,
		scheme:   schemeFor(cfg.Generation),
		rng:      rng,
		reporter: reporter,
	}
}

// Start spawns the delay line's single processing task.
func (d *DelayLine) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".run", d.Run)
}

func (d *DelayLine) Packets() int64      { return d.packets }
func (d *DelayLine) CRCErrors() int64    { return d.crcErrors }
func (d *DelayLine) Retries() int64      { return d.retries }
func (d *DelayLine) DeviceErrors() int64 { return d.deviceErrors }
func (d *DelayLine) Utilization() float64 { return d.utilization }

// Run processes packets from In one at a time, forwarding the original
// packet to Out after the full link delay has elapsed.
func (d *DelayLine) Run(t *sim.Task) {
	for {
		req, ok := d.In.RecvOK(t)
		if !ok {
			d.Out.Close()
			return
		}

		d.serve(t, req)
	}
}

func (d *DelayLine) serve(t *sim.Task, req packet.Packet) {
	d.packets++

	header := 12
	if req.Command() != packet.Read && req.Command() != packet.Write {
		header = 16
	}

	tlpType := packet.MemoryReadRequest
	if req.Command() == packet.Write {
		tlpType = packet.MemoryWriteRequest
	}

	pp := packet.NewPCIePacket(req, packet.TLPHeader{
		Type:    tlpType,
		Length:  req.PayloadBytes(),
		Address: req.Address(),
	}, d.cfg.Generation, d.cfg.Lanes)

	totalSize := math.Round(float64(header+req.PayloadBytes()) * (1 + d.scheme.overheadFraction))
	pp.SetTotalPacketSize(int(totalSize))

	d.updateUtilization(t.Now(), totalSize)

	transmission := d.transmissionTime(totalSize)
	processing := d.processingDelay(req)
	congestion := d.congestionDelay()

	t.Wait(transmission + processing + congestion)

	if d.cfg.EnableCRCSimulation {
		for {
			d.linkTotal++

			if d.rng.Float64() >= d.scheme.retryProbability {
				break
			}

			d.linkErrors++
			d.crcErrors++

			if pp.RetryCount() >= maxRetries {
				d.deviceErrors++
				d.reporter.Report(simerr.New("pcie", simerr.DeviceError, "crc_retries_exhausted",
					"packet exceeded the maximum number of CRC retries"))

				return
			}

			pp.IncrementRetryCount()
			d.retries++

			t.Wait(retryPenalty)
		}
	}

	d.Out.Send(t, req)
}

// transmissionTime is total_packet_size / (link_speed * lanes / 8),
// with the generation's line-code efficiency folded into link_speed.
func (d *DelayLine) transmissionTime(totalSize float64) sim.Duration {
	gbps := linkSpeed(d.cfg.Generation) * encodingEfficiency(d.cfg.Generation)
	bytesPerNs := gbps * float64(d.cfg.Lanes) / 8

	if bytesPerNs <= 0 {
		return 0
	}

	return sim.Duration(totalSize / bytesPerNs * float64(sim.Nanosecond))
}

// processingDelay applies the scheme's base CRC processing delay, with
// the Gen7 AI-FEC adaptive scaling rules from SPEC_FULL.md §4.7.
func (d *DelayLine) processingDelay(req packet.Packet) sim.Duration {
	delay := d.scheme.processingDelay

	if d.cfg.Generation == 7 {
		if req.Command() == packet.Read {
			delay *= 0.8
		}

		if req.PayloadBytes() <= 64 {
			delay *= 0.9
		}

		quality := d.linkQuality()

		switch {
		case quality > 0.99:
			delay *= 0.7
		case quality < 0.95:
			delay *= 1.3
		}
	}

	if delay < 1 {
		delay = 1
	}

	return sim.Duration(delay * float64(sim.Nanosecond))
}

func (d *DelayLine) linkQuality() float64 {
	if d.linkTotal == 0 {
		return 1
	}

	return 1 - float64(d.linkErrors)/float64(d.linkTotal)
}

// updateUtilization folds a new sample into the exponentially smoothed
// link utilization: the fraction of link capacity this packet's own
// transmission would consume if repeated back to back at the observed
// arrival rate.
func (d *DelayLine) updateUtilization(now sim.Time, totalSize float64) {
	interval := sim.Duration(1)
	if d.haveLast {
		interval = now.Sub(d.lastArrival)
		if interval <= 0 {
			interval = 1
		}
	}

	d.lastArrival = now
	d.haveLast = true

	txTime := d.transmissionTime(totalSize)

	sample := float64(txTime) / float64(interval)
	if sample > 1 {
		sample = 1
	}

	d.utilization = emaAlpha*sample + (1-emaAlpha)*d.utilization
}

// congestionDelay applies the quadratic penalty from SPEC_FULL.md §4.7
// when smoothed utilization exceeds the configured threshold.
func (d *DelayLine) congestionDelay() sim.Duration {
	u := d.utilization
	threshold := d.cfg.CongestionThreshold

	if u <= threshold {
		return 0
	}

	maxDelay := d.cfg.MaxCongestionDelayNs
	if maxDelay <= 0 {
		return 0
	}

	ratio := (u - threshold) / (1 - threshold)
	delay := maxDelay * ratio * ratio

	if delay > maxDelay {
		delay = maxDelay
	}

	return sim.Duration(delay * float64(sim.Nanosecond))
}

package flash

import (
	"math"
	"math/rand"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
)

// nandChannel is the NAND array attached to one flash channel: a
// die/plane/block/page hierarchy plus the timing and failure model
// applied to every command it services.
type nandChannel struct {
	dies []die
	geo  geometry
	rng  *rand.Rand

	tR     sim.Duration
	tProg  sim.Duration
	tErase sim.Duration

	ioBytesPerNs float64
	maxPECycles  int
}

func newNANDChannel(cfg config.Flash, geo geometry, rng *rand.Rand) *nandChannel {
	dies := make([]die, geo.diesPerChannel)
	for i := range dies {
		dies[i] = newDie(geo)
	}

	ioBytesPerNs := 0.0
	if cfg.IOClockMHz > 0 && cfg.IOWidthBits > 0 {
		ioBytesPerNs = float64(cfg.IOWidthBits) / 8 * cfg.IOClockMHz / 1000
	}

	return &nandChannel{
		dies:         dies,
		geo:          geo,
		rng:          rng,
		tR:           nsToDuration(cfg.TRNs),
		tProg:        nsToDuration(cfg.TProgNs),
		tErase:       nsToDuration(cfg.TEraseNs),
		ioBytesPerNs: ioBytesPerNs,
		maxPECycles:  cfg.MaxPECycles,
	}
}

func (n *nandChannel) ioTransfer(dataSize int) sim.Duration {
	if n.ioBytesPerNs <= 0 {
		return 0
	}

	return nsToDuration(float64(dataSize) / n.ioBytesPerNs)
}

// result is what nandChannel.execute reports about one command.
type result struct {
	delay sim.Duration
	data  byte
	err   *simerr.Error
}

// execute runs one flash command against addr and returns the resulting
// delay (jittered) and, on success, the data or updated state.
func (n *nandChannel) execute(addr physAddr, cmd packet.FlashCommand, dataSize int) result {
	b := &n.dies[addr.die].planes[addr.plane].blocks[addr.block]

	if addr.page >= len(b.pages) {
		return result{err: simerr.New("nand", simerr.AddressOutOfBounds, "page_out_of_range",
			"flash page index exceeds block geometry")}
	}

	if b.bad {
		return result{err: simerr.New("nand", simerr.DeviceError, "bad_block",
			"target block is marked bad")}
	}

	var r result

	switch cmd {
	case packet.FlashRead:
		r = n.read(b, addr, dataSize)
	case packet.FlashProgram:
		r = n.program(b, addr, dataSize)
	case packet.FlashErase:
		r = n.erase(b)
	default:
		r = result{err: simerr.New("nand", simerr.InvalidPacketType, "unknown_flash_command",
			"nand received an unrecognized flash command")}
	}

	if r.err != nil {
		return r
	}

	r.delay = n.jitter(r.delay)

	return r
}

func (n *nandChannel) read(b *block, addr physAddr, dataSize int) result {
	p := &b.pages[addr.page]

	data := p.data
	if p.state == pageClean {
		data = 0xFF
	}

	return result{delay: n.tR + n.ioTransfer(dataSize), data: data}
}

func (n *nandChannel) program(b *block, addr physAddr, dataSize int) result {
	p := &b.pages[addr.page]

	if p.state != pageClean {
		return result{err: simerr.New("nand", simerr.DeviceError, "program_not_clean",
			"page must be erased before it can be programmed again")}
	}

	delay := n.tProg + n.ioTransfer(dataSize)

	if n.rng.Float64() < 0.001 {
		b.bad = true

		return result{err: simerr.New("nand", simerr.DeviceError, "program_failure",
			"program failed and the block was marked bad")}
	}

	p.state = pageProgrammed

	return result{delay: delay}
}

func (n *nandChannel) erase(b *block) result {
	delay := n.tErase

	for i := range b.pages {
		b.pages[i] = page{}
	}

	b.eraseCount++

	if b.eraseCount >= n.maxPECycles && n.rng.Float64() < 0.1 {
		b.bad = true

		return result{err: simerr.New("nand", simerr.DeviceError, "wear_out",
			"block exceeded its rated program/erase cycles")}
	}

	if n.rng.Float64() < 0.01 {
		b.bad = true

		return result{err: simerr.New("nand", simerr.DeviceError, "erase_failure",
			"random erase failure marked the block bad")}
	}

	return result{delay: delay}
}

// jitter applies +-5% Gaussian jitter to d, clamped to zero.
func (n *nandChannel) jitter(d sim.Duration) sim.Duration {
	factor := 1 + n.rng.NormFloat64()*0.05
	jittered := float64(d) * factor

	if jittered < 0 {
		jittered = 0
	}

	return sim.Duration(math.Round(jittered))
}

func nsToDuration(ns float64) sim.Duration {
	if ns < 0 {
		ns = 0
	}

	return sim.Duration(ns * float64(sim.Nanosecond))
}

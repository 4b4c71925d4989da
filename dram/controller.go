// Package dram implements the DRAM controller: bank-level timing,
// row-buffer management, and a configurable refresh scheduler, sitting
// between the L1 cache and the flash controller.
package dram

import (
	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
)

// Controller is the DRAM controller component.
type Controller struct {
	CtrlIn   *sim.Channel[packet.Packet] // requests from the cache
	CtrlOut  *sim.Channel[packet.Packet] // responses back to the cache
	FlashOut *sim.Channel[packet.Packet] // requests forwarded to the flash controller
	FlashIn  *sim.Channel[packet.Packet] // responses from the flash controller

	cfg      config.DRAM
	timing   config.Timing
	mapper   *addressMapper
	banks    []bank
	reporter simerr.Reporter

	groupOf       func(bankIdx int) int
	lastGroupCAS  map[int]sim.Time
	lastGroupRAS  map[int]sim.Time

	totalRequests  int64
	readRequests   int64
	writeRequests  int64
	rowHits        int64
	rowMisses      int64
	pageEmptyHits  int64
	bankConflicts  int64
	refreshCycles  int64
	totalRefreshLatency sim.Duration
	readLatencySum  sim.Duration
	writeLatencySum sim.Duration

	stopped bool
}

// New builds a Controller from cfg. If reporter is nil, errors are
// discarded.
func New(k *sim.Kernel, channelCap int, cfg config.DRAM, reporter simerr.Reporter) *Controller {
	if reporter == nil {
		reporter = simerr.DiscardReporter
	}

	timing := resolveTiming(cfg)
	numBanks := cfg.NumBanks
	if numBanks < 1 {
		numBanks = 1
	}

	bankGroups := cfg.NumBankGroups
	if bankGroups < 1 {
		bankGroups = 1
	}

	banksPerGroup := numBanks / bankGroups
	if banksPerGroup < 1 {
		banksPerGroup = 1
	}

	c := &Controller{
		CtrlIn:       sim.NewChannel[packet.Packet](k, channelCap),
		CtrlOut:      sim.NewChannel[packet.Packet](k, channelCap),
		FlashOut:     sim.NewChannel[packet.Packet](k, channelCap),
		FlashIn:      sim.NewChannel[packet.Packet](k, channelCap),
		cfg:          cfg,
		timing:       timing,
		mapper:       newAddressMapper(cfg.PageSize, numBanks),
		banks:        make([]bank, numBanks),
		reporter:     reporter,
		lastGroupCAS: make(map[int]sim.Time),
		lastGroupRAS: make(map[int]sim.Time),
	}

	c.groupOf = func(bankIdx int) int { return bankIdx / banksPerGroup }

	return c
}

// Start spawns the controller's request-processing task and, if
// refresh_enable is set, its refresh scheduler task.
func (c *Controller) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".run", c.Run)

	if c.cfg.RefreshEnable {
		k.Spawn(namePrefix+".refresh", c.RunRefresh)
	}
}

func (c *Controller) tBurst() sim.Duration { return nsToDuration(c.timing.TBurst) }

// Run services requests from CtrlIn one at a time.
func (c *Controller) Run(t *sim.Task) {
	for {
		req, ok := c.CtrlIn.RecvOK(t)
		if !ok {
			c.stopped = true
			c.FlashOut.Close()
			return
		}

		c.serve(t, req)
	}
}

func (c *Controller) serve(t *sim.Task, req packet.Packet) {
	c.totalRequests++

	switch req.Command() {
	case packet.Write:
		c.writeRequests++
	case packet.Read:
		c.readRequests++
	default:
		c.reporter.Report(simerr.New("dram", simerr.InvalidPacketType, "unrecognized_command",
			"dram controller received a packet that is neither a read nor a write"))
		c.readRequests++
	}

	bankIdx, row, _ := c.mapper.decode(req.Address())
	b := &c.banks[bankIdx]

	start := t.Now()

	for b.busy() {
		c.bankConflicts++
		t.Wait(c.tBurst())
	}

	switch {
	case b.state == bankIdle:
		c.pageEmptyHits++
		c.activate(t, bankIdx, row)
	case b.hasRow && b.activeRow == row:
		c.rowHits++
	default:
		c.rowMisses++
		c.precharge(t, bankIdx)
		c.activate(t, bankIdx, row)
	}

	if req.Command() == packet.Write {
		t.Wait(c.tBurst())
	} else {
		t.Wait(nsToDuration(c.timing.TCL) + c.tBurst())
	}

	if c.cfg.AutoPrecharge {
		c.precharge(t, bankIdx)
	}

	c.FlashOut.Send(t, req)

	resp, ok := c.FlashIn.RecvOK(t)
	if !ok {
		c.CtrlOut.Close()
		return
	}

	elapsed := t.Now().Sub(start)
	if req.Command() == packet.Write {
		c.writeLatencySum += elapsed
	} else {
		c.readLatencySum += elapsed
	}

	c.CtrlOut.Send(t, resp)
}

func (c *Controller) activate(t *sim.Task, bankIdx int, row int64) {
	b := &c.banks[bankIdx]
	now := t.Now()

	if !b.canActivate(now, nsToDuration(c.timing.TRP)) {
		target := b.lastPrechargeTime.Add(nsToDuration(c.timing.TRP))
		t.Wait(target.Sub(now))
	}

	if c.cfg.NumBankGroups > 1 {
		c.waitRAS(t, bankIdx)
	}

	t.Wait(nsToDuration(c.timing.TRCD))
	b.activate(t.Now(), row)

	if c.cfg.NumBankGroups > 1 {
		c.lastGroupRAS[c.groupOf(bankIdx)] = t.Now()
	}
}

func (c *Controller) precharge(t *sim.Task, bankIdx int) {
	b := &c.banks[bankIdx]
	now := t.Now()

	if !b.canPrecharge(now, nsToDuration(c.timing.TRAS)) {
		target := b.lastActivateTime.Add(nsToDuration(c.timing.TRAS))
		t.Wait(target.Sub(now))
	}

	t.Wait(nsToDuration(c.timing.TRP))
	b.precharge(t.Now())
}

// waitRAS enforces tRRDS/tRRDL spacing between successive ACTIVATEs in
// the same or a different bank group.
func (c *Controller) waitRAS(t *sim.Task, bankIdx int) {
	group := c.groupOf(bankIdx)

	for g, last := range c.lastGroupRAS {
		threshold := nsToDuration(c.timing.TRRDL)
		if g == group {
			threshold = nsToDuration(c.timing.TRRDS)
		}

		elapsed := t.Now().Sub(last)
		if elapsed < threshold {
			t.Wait(threshold - elapsed)
		}
	}
}

func nsToDuration(ns float64) sim.Duration {
	if ns < 0 {
		ns = 0
	}

	return sim.Duration(ns * float64(sim.Nanosecond))
}

func (c *Controller) TotalRequests() int64 { return c.totalRequests }
func (c *Controller) ReadRequests() int64  { return c.readRequests }
func (c *Controller) WriteRequests() int64 { return c.writeRequests }
func (c *Controller) RowHits() int64       { return c.rowHits }
func (c *Controller) RowMisses() int64     { return c.rowMisses }
func (c *Controller) PageEmptyHits() int64 { return c.pageEmptyHits }
func (c *Controller) BankConflicts() int64 { return c.bankConflicts }
func (c *Controller) RefreshCycles() int64 { return c.refreshCycles }

func (c *Controller) AvgReadLatency() sim.Duration {
	if c.readRequests == 0 {
		return 0
	}

	return c.readLatencySum / sim.Duration(c.readRequests)
}

func (c *Controller) AvgWriteLatency() sim.Duration {
	if c.writeRequests == 0 {
		return 0
	}

	return c.writeLatencySum / sim.Duration(c.writeRequests)
}

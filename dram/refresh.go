package dram

import "github.com/archsim/ssdsim/config"
import "github.com/archsim/ssdsim/sim"

// RunRefresh is the DRAM controller's own refresh scheduler task. It
// runs independently of Run and shares the bank array.
func (c *Controller) RunRefresh(t *sim.Task) {
	tick := 0

	for {
		t.Wait(c.refreshInterval())

		if c.stopped {
			return
		}

		switch c.cfg.RefreshScheme {
		case config.SameBank:
			c.refreshSameBank(t, tick%len(c.groupBanks()))
		case config.PerBank:
			c.refreshPerBank(t, tick%len(c.banks))
		case config.Distributed:
			c.refreshDistributed(t, tick%len(c.banks))
		case config.RefreshManagementUnit:
			if tick%4 == 0 {
				c.refreshAllBank(t)
			} else {
				c.refreshPerBank(t, tick%len(c.banks))
			}
		default: // config.AllBank
			c.refreshAllBank(t)
		}

		c.refreshCycles++
		tick++
	}
}

func (c *Controller) refreshInterval() sim.Duration {
	bankGroups := c.cfg.NumBankGroups
	if bankGroups < 1 {
		bankGroups = 1
	}

	switch c.cfg.RefreshScheme {
	case config.SameBank:
		return nsToDuration(c.timing.TREFI) / sim.Duration(bankGroups)
	case config.PerBank, config.Distributed:
		return nsToDuration(c.timing.TREFI) / sim.Duration(len(c.banks))
	case config.RefreshManagementUnit:
		return nsToDuration(c.timing.TREFI) / 2
	default:
		return nsToDuration(c.timing.TREFI)
	}
}

func (c *Controller) groupBanks() [][]int {
	bankGroups := c.cfg.NumBankGroups
	if bankGroups < 1 {
		bankGroups = 1
	}

	groups := make([][]int, bankGroups)
	for i := range c.banks {
		g := c.groupOf(i)
		groups[g] = append(groups[g], i)
	}

	return groups
}

func (c *Controller) refreshAllBank(t *sim.Task) {
	conflict := false

	for i := range c.banks {
		if c.banks[i].state != bankIdle && c.banks[i].state != bankRefreshing {
			conflict = true
		}
	}

	if conflict {
		c.bankConflicts++
		t.Wait(2 * c.tBurst())
	}

	for i := range c.banks {
		if c.banks[i].state == bankActive {
			c.precharge(t, i)
		}

		c.banks[i].state = bankRefreshing
	}

	wait := nsToDuration(c.timing.TRFC)
	t.Wait(wait)
	c.totalRefreshLatency += wait

	for i := range c.banks {
		c.banks[i].state = bankIdle
	}
}

func (c *Controller) refreshSameBank(t *sim.Task, groupIdx int) {
	groups := c.groupBanks()
	if groupIdx >= len(groups) {
		return
	}

	for _, i := range groups[groupIdx] {
		if c.banks[i].state == bankActive {
			c.precharge(t, i)
		}

		c.banks[i].state = bankRefreshing
	}

	wait := nsToDuration(c.timing.TRFC)
	t.Wait(wait)
	c.totalRefreshLatency += wait

	for _, i := range groups[groupIdx] {
		c.banks[i].state = bankIdle
	}
}

func (c *Controller) refreshPerBank(t *sim.Task, bankIdx int) {
	b := &c.banks[bankIdx]

	if b.busy() {
		c.bankConflicts++
		t.Wait(c.tBurst())
	}

	if b.state == bankActive {
		c.precharge(t, bankIdx)
	}

	b.state = bankRefreshing

	wait := nsToDuration(c.timing.TRFC)
	t.Wait(wait)
	c.totalRefreshLatency += wait

	b.state = bankIdle
}

func (c *Controller) refreshDistributed(t *sim.Task, bankIdx int) {
	c.refreshPerBank(t, bankIdx)

	if c.cfg.PageSize > 8192 {
		t.Wait(nsToDuration(c.timing.TREFI) / 4 / sim.Duration(len(c.banks)))
	}
}

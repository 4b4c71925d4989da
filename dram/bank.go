package dram

import "github.com/archsim/ssdsim/sim"

// bankState is the DRAM bank state machine per SPEC_FULL.md §4.5.
type bankState int

const (
	bankIdle bankState = iota
	bankActivating
	bankActive
	bankReading
	bankWriting
	bankPrecharging
	bankRefreshing
)

// bank tracks one DRAM bank's state and the timestamps its timing
// constraints are measured from.
type bank struct {
	state bankState

	activeRow int64
	hasRow    bool

	lastActivateTime  sim.Time
	lastPrechargeTime sim.Time
}

// canActivate reports whether tRP has elapsed since the bank's last
// precharge.
func (b *bank) canActivate(now sim.Time, tRP sim.Duration) bool {
	return now-b.lastPrechargeTime >= sim.Time(tRP) || b.lastPrechargeTime == 0
}

// canPrecharge reports whether tRAS has elapsed since the bank's last
// activate.
func (b *bank) canPrecharge(now sim.Time, tRAS sim.Duration) bool {
	return now-b.lastActivateTime >= sim.Time(tRAS)
}

func (b *bank) activate(now sim.Time, row int64) {
	b.state = bankActive
	b.activeRow = row
	b.hasRow = true
	b.lastActivateTime = now
}

func (b *bank) precharge(now sim.Time) {
	b.state = bankIdle
	b.hasRow = false
	b.lastPrechargeTime = now
}

func (b *bank) busy() bool {
	return b.state != bankIdle && b.state != bankActive
}

// Package profiler implements the two pass-through instrumentation taps
// that sit on the request/response channels: a bandwidth counter and a
// latency tracker, both reporting on a fixed period as well as on demand.
package profiler

import "github.com/archsim/ssdsim/sim"

// BandwidthReport is a snapshot of one reporting period's throughput,
// plus the running total since the profiler started.
type BandwidthReport struct {
	PeriodStart sim.Time
	PeriodEnd   sim.Time
	PeriodBytes int64
	TotalBytes  int64
}

// BandwidthProfiler is a pass-through tap: every packet it forwards adds
// its payload size to both the current period's counter and the running
// total.
type BandwidthProfiler[T packetLike] struct {
	In  *sim.Channel[T]
	Out *sim.Channel[T]

	reportingPeriod sim.Duration
	onReport        func(BandwidthReport)

	periodStart sim.Time
	periodBytes int64
	totalBytes  int64
	stopped     bool
	reports     []BandwidthReport
}

// packetLike is the minimal capability BandwidthProfiler needs from
// whatever it forwards: something with a byte size.
type packetLike interface {
	PayloadBytes() int
}

// NewBandwidth creates a BandwidthProfiler that reports every
// reportingPeriod. onReport may be nil.
func NewBandwidth[T packetLike](
	k *sim.Kernel,
	channelCap int,
	reportingPeriod sim.Duration,
	onReport func(BandwidthReport),
) *BandwidthProfiler[T] {
	return &BandwidthProfiler[T]{
		In:              sim.NewChannel[T](k, channelCap),
		Out:             sim.NewChannel[T](k, channelCap),
		reportingPeriod: reportingPeriod,
		onReport:        onReport,
	}
}

// Start spawns the pass-through task and, if a positive reporting period
// was configured, the periodic reporter task.
func (b *BandwidthProfiler[T]) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".tap", b.RunTap)

	if b.reportingPeriod > 0 {
		k.Spawn(namePrefix+".report", b.RunReporter)
	}
}

// RunTap is the pass-through task.
func (b *BandwidthProfiler[T]) RunTap(t *sim.Task) {
	for {
		p, ok := b.In.RecvOK(t)
		if !ok {
			b.stopped = true
			b.Out.Close()

			return
		}

		n := int64(p.PayloadBytes())
		b.periodBytes += n
		b.totalBytes += n

		b.Out.Send(t, p)
	}
}

// RunReporter periodically snapshots and resets the period counter. It
// exits once RunTap has observed the upstream channel close, after at
// most one more reporting period.
func (b *BandwidthProfiler[T]) RunReporter(t *sim.Task) {
	for {
		t.Wait(b.reportingPeriod)

		if b.stopped {
			return
		}

		b.emitReport(t)
	}
}

func (b *BandwidthProfiler[T]) emitReport(t *sim.Task) {
	now := t.Now()
	r := BandwidthReport{
		PeriodStart: b.periodStart,
		PeriodEnd:   now,
		PeriodBytes: b.periodBytes,
		TotalBytes:  b.totalBytes,
	}

	b.reports = append(b.reports, r)

	if b.onReport != nil {
		b.onReport(r)
	}

	b.periodBytes = 0
	b.periodStart = now
}

// TotalBytes returns the running total of bytes forwarded.
func (b *BandwidthProfiler[T]) TotalBytes() int64 {
	return b.totalBytes
}

// Reports returns every periodic snapshot taken so far.
func (b *BandwidthProfiler[T]) Reports() []BandwidthReport {
	return b.reports
}

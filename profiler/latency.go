package profiler

import (
	"math"
	"sort"

	"github.com/archsim/ssdsim/sim"
)

// indexed is the minimal capability LatencyProfiler needs: a stable key
// to correlate a request with its eventual response.
type indexed interface {
	Index() int32
}

// LatencyReport is a snapshot of one reporting period's latency
// distribution, plus lifetime totals.
type LatencyReport struct {
	PeriodStart sim.Time
	PeriodEnd   sim.Time

	Count int64
	Sum   sim.Duration
	Min   sim.Duration
	Max   sim.Duration

	P50 sim.Duration
	P95 sim.Duration
	P99 sim.Duration

	TotalCount int64
	TotalSum   sim.Duration
}

// LatencyProfiler taps a request channel and a response channel of the
// same packet type, keyed by Index, and reports the resulting round trip
// latency distribution.
type LatencyProfiler[T indexed] struct {
	ReqIn  *sim.Channel[T]
	ReqOut *sim.Channel[T]
	RspIn  *sim.Channel[T]
	RspOut *sim.Channel[T]

	reportingPeriod sim.Duration
	onReport        func(LatencyReport)

	pending map[int32]sim.Time

	periodStart  sim.Time
	periodSample []sim.Duration
	periodSum    sim.Duration
	periodMin    sim.Duration
	periodMax    sim.Duration

	totalCount int64
	totalSum   sim.Duration

	reqStopped bool
	rspStopped bool

	reports []LatencyReport
}

// NewLatency creates a LatencyProfiler that reports every
// reportingPeriod. onReport may be nil.
func NewLatency[T indexed](
	k *sim.Kernel,
	channelCap int,
	reportingPeriod sim.Duration,
	onReport func(LatencyReport),
) *LatencyProfiler[T] {
	return &LatencyProfiler[T]{
		ReqIn:           sim.NewChannel[T](k, channelCap),
		ReqOut:          sim.NewChannel[T](k, channelCap),
		RspIn:           sim.NewChannel[T](k, channelCap),
		RspOut:          sim.NewChannel[T](k, channelCap),
		reportingPeriod: reportingPeriod,
		onReport:        onReport,
		pending:         make(map[int32]sim.Time),
	}
}

// Start spawns the profiler's tap tasks and, if configured, its periodic
// reporter task.
func (p *LatencyProfiler[T]) Start(k *sim.Kernel, namePrefix string) {
	k.Spawn(namePrefix+".req-tap", p.RunRequestTap)
	k.Spawn(namePrefix+".rsp-tap", p.RunResponseTap)

	if p.reportingPeriod > 0 {
		k.Spawn(namePrefix+".report", p.RunReporter)
	}
}

// RunRequestTap records the departure time of every request it forwards.
func (p *LatencyProfiler[T]) RunRequestTap(t *sim.Task) {
	for {
		v, ok := p.ReqIn.RecvOK(t)
		if !ok {
			p.reqStopped = true
			p.ReqOut.Close()

			return
		}

		p.pending[v.Index()] = t.Now()
		p.ReqOut.Send(t, v)
	}
}

// RunResponseTap computes and records the round-trip latency of every
// response it forwards.
func (p *LatencyProfiler[T]) RunResponseTap(t *sim.Task) {
	for {
		v, ok := p.RspIn.RecvOK(t)
		if !ok {
			p.rspStopped = true
			p.RspOut.Close()

			return
		}

		if started, found := p.pending[v.Index()]; found {
			delete(p.pending, v.Index())
			p.record(t.Now().Sub(started))
		}

		p.RspOut.Send(t, v)
	}
}

func (p *LatencyProfiler[T]) record(d sim.Duration) {
	if len(p.periodSample) == 0 || d < p.periodMin {
		p.periodMin = d
	}

	if d > p.periodMax {
		p.periodMax = d
	}

	p.periodSum += d
	p.periodSample = append(p.periodSample, d)
	p.totalCount++
	p.totalSum += d
}

// RunReporter periodically snapshots and resets the period statistics.
// It stops once both taps have observed their channels close.
func (p *LatencyProfiler[T]) RunReporter(t *sim.Task) {
	for {
		t.Wait(p.reportingPeriod)

		if p.reqStopped && p.rspStopped {
			return
		}

		p.emitReport(t)
	}
}

func (p *LatencyProfiler[T]) emitReport(t *sim.Task) {
	now := t.Now()

	sorted := append([]sim.Duration(nil), p.periodSample...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r := LatencyReport{
		PeriodStart: p.periodStart,
		PeriodEnd:   now,
		Count:       int64(len(sorted)),
		Sum:         p.periodSum,
		Min:         p.periodMin,
		Max:         p.periodMax,
		P50:         percentile(sorted, 0.50),
		P95:         percentile(sorted, 0.95),
		P99:         percentile(sorted, 0.99),
		TotalCount:  p.totalCount,
		TotalSum:    p.totalSum,
	}

	p.reports = append(p.reports, r)

	if p.onReport != nil {
		p.onReport(r)
	}

	p.periodStart = now
	p.periodSample = nil
	p.periodSum = 0
	p.periodMin = 0
	p.periodMax = 0
}

// Report computes an on-demand snapshot of the statistics accumulated so
// far in the current period, without resetting it.
func (p *LatencyProfiler[T]) Report(now sim.Time) LatencyReport {
	sorted := append([]sim.Duration(nil), p.periodSample...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyReport{
		PeriodStart: p.periodStart,
		PeriodEnd:   now,
		Count:       int64(len(sorted)),
		Sum:         p.periodSum,
		Min:         p.periodMin,
		Max:         p.periodMax,
		P50:         percentile(sorted, 0.50),
		P95:         percentile(sorted, 0.95),
		P99:         percentile(sorted, 0.99),
		TotalCount:  p.totalCount,
		TotalSum:    p.totalSum,
	}
}

// percentile computes p using linear interpolation between closest
// ranks, as specified for the latency profiler's reservoir.
func percentile(sorted []sim.Duration, p float64) sim.Duration {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo] + sim.Duration(frac*float64(sorted[hi]-sorted[lo]))
}

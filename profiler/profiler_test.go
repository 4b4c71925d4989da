package profiler_test

import (
	"testing"

	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/profiler"
	"github.com/archsim/ssdsim/sim"
	"github.com/stretchr/testify/assert"
)

func TestBandwidthProfilerAccumulatesAndReports(t *testing.T) {
	k := sim.NewKernel()
	bp := profiler.NewBandwidth[*packet.GenericPacket](k, 4, 10*sim.Nanosecond, nil)
	bp.Start(k, "bw")

	k.Spawn("producer", func(task *sim.Task) {
		for i := 0; i < 3; i++ {
			bp.In.Send(task, packet.NewGenericPacket(packet.Read, 0, 64))
			task.Wait(5 * sim.Nanosecond)
		}
		bp.In.Close()
	})

	k.Spawn("consumer", func(task *sim.Task) {
		for {
			_, ok := bp.Out.RecvOK(task)
			if !ok {
				return
			}
		}
	})

	k.Run()

	assert.Equal(t, int64(192), bp.TotalBytes())
	assert.NotEmpty(t, bp.Reports())
}

func TestLatencyProfilerComputesRoundTrip(t *testing.T) {
	k := sim.NewKernel()
	lp := profiler.NewLatency[*packet.GenericPacket](k, 4, 100*sim.Nanosecond, nil)
	lp.Start(k, "lat")

	k.Spawn("driver", func(task *sim.Task) {
		p := packet.NewGenericPacket(packet.Read, 0, 64)
		p.SetIndex(1)

		lp.ReqIn.Send(task, p)
		task.Wait(20 * sim.Nanosecond)
		lp.RspIn.Send(task, p)

		lp.ReqIn.Close()
		lp.RspIn.Close()
	})

	k.Spawn("req-drain", func(task *sim.Task) {
		for {
			_, ok := lp.ReqOut.RecvOK(task)
			if !ok {
				return
			}
		}
	})

	k.Spawn("rsp-drain", func(task *sim.Task) {
		for {
			_, ok := lp.RspOut.RecvOK(task)
			if !ok {
				return
			}
		}
	})

	k.Run()

	report := lp.Report(k.Now())
	assert.Equal(t, int64(1), report.TotalCount)
	assert.Equal(t, sim.Duration(20*sim.Nanosecond), report.TotalSum)
}

package pcie_test

import (
	"math/rand"
	"testing"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/pcie"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/simerr"
	"github.com/stretchr/testify/assert"
)

// alwaysZeroSource makes every rand.Float64() call return 0, forcing
// every CRC check in the delay line to observe an error.
type alwaysZeroSource struct{}

func (alwaysZeroSource) Int63() int64 { return 0 }
func (alwaysZeroSource) Seed(_ int64) {}

func TestLargeTransferAppliesTransmissionAndProcessingDelay(t *testing.T) {
	k := sim.NewKernel()

	cfg := config.PCIe{Generation: 3, Lanes: 8, EnableCRCSimulation: false}
	dl := pcie.New(k, 1, cfg, rand.New(rand.NewSource(1)), nil)
	dl.Start(k, "pcie")

	var start, end sim.Time

	k.Spawn("driver", func(task *sim.Task) {
		start = task.Now()

		// GenericPacket's payload count is a uint8, so the 4096-byte
		// payload is carried by a FlashPacket (PROGRAM reads as Write).
		p := packet.NewFlashPacket(nil, packet.FlashProgram, packet.FlashAddress{}, 64)
		p.SetPayloadBytes(4096)

		dl.In.Send(task, p)
		dl.Out.Recv(task)

		end = task.Now()

		dl.In.Close()
	})

	k.Run()

	assert.Greater(t, end.Sub(start), sim.Duration(0))
	assert.Equal(t, int64(1), dl.Packets())
}

func TestCRCRetriesExhaustedRaisesDeviceError(t *testing.T) {
	k := sim.NewKernel()

	cfg := config.PCIe{Generation: 1, Lanes: 1, EnableCRCSimulation: true}
	rng := rand.New(alwaysZeroSource{})

	var reported []*simerr.Error

	dl := pcie.New(k, 1, cfg, rng, simerr.ReporterFunc(func(e *simerr.Error) {
		reported = append(reported, e)
	}))
	dl.Start(k, "pcie")

	k.Spawn("driver", func(task *sim.Task) {
		p := packet.NewGenericPacket(packet.Write, 0, 64)
		dl.In.Send(task, p)
		dl.In.Close()
	})

	k.Run()

	assert.Equal(t, int64(1), dl.DeviceErrors())
	assert.LessOrEqual(t, dl.Retries(), int64(3))
	assert.Len(t, reported, 1)
	assert.Equal(t, simerr.DeviceError, reported[0].Kind)
}

func TestUtilizationRisesUnderBackToBackTraffic(t *testing.T) {
	k := sim.NewKernel()

	cfg := config.PCIe{
		Generation:           1,
		Lanes:                1,
		EnableCRCSimulation:  false,
		CongestionThreshold:  0.5,
		MaxCongestionDelayNs: 100,
	}
	dl := pcie.New(k, 8, cfg, rand.New(rand.NewSource(1)), nil)
	dl.Start(k, "pcie")

	k.Spawn("driver", func(task *sim.Task) {
		for i := 0; i < 8; i++ {
			p := packet.NewGenericPacket(packet.Write, 0, 64)
			dl.In.Send(task, p)
		}

		dl.In.Close()
	})

	k.Spawn("drain", func(task *sim.Task) {
		for {
			_, ok := dl.Out.RecvOK(task)
			if !ok {
				return
			}
		}
	})

	k.Run()

	assert.Greater(t, dl.Utilization(), 0.0)
}

package flash

import (
	"math/rand"
	"testing"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlashCfg() config.Flash {
	return config.Flash{
		NumChannels:        1,
		DiesPerChannel:     1,
		CommandQueueDepth:  4,
		PageSizeKB:         4,
		PagesPerBlock:      4,
		BlocksPerDie:       2,
		NumPlanes:          1,
		EnableWearLeveling: false,
		MaxPECycles:        1000,
		TRNs:               25,
		TProgNs:             200,
		TEraseNs:            1500,
	}
}

func TestProgramBeforeEraseViolationFailsSecondProgram(t *testing.T) {
	cfg := testFlashCfg()
	geo := newGeometry(cfg)
	nand := newNANDChannel(cfg, geo, rand.New(rand.NewSource(1)))

	addr := physAddr{die: 0, plane: 0, block: 0, page: 0}

	erase := nand.execute(addr, packet.FlashErase, 0)
	require.Nil(t, erase.err)

	first := nand.execute(addr, packet.FlashProgram, 4096)
	require.Nil(t, first.err)

	second := nand.execute(addr, packet.FlashProgram, 4096)
	require.NotNil(t, second.err)
	assert.Equal(t, "DeviceError", second.err.Kind.String())
}

func TestReadOfCleanPageReturnsAllOnes(t *testing.T) {
	cfg := testFlashCfg()
	geo := newGeometry(cfg)
	nand := newNANDChannel(cfg, geo, rand.New(rand.NewSource(2)))

	addr := physAddr{die: 0, plane: 0, block: 1, page: 0}

	r := nand.execute(addr, packet.FlashRead, 4096)
	require.Nil(t, r.err)
	assert.Equal(t, byte(0xFF), r.data)
}

func TestControllerRoutesRequestsAndReportsDeviceErrorsOnOverwrite(t *testing.T) {
	k := sim.NewKernel()
	c := New(k, 4, testFlashCfg(), rand.New(rand.NewSource(3)))
	c.Start(k, "flash")

	var received []packet.Packet

	k.Spawn("driver", func(task *sim.Task) {
		p1 := packet.NewGenericPacket(packet.Write, 0x100, 64)
		c.In.Send(task, p1)
		received = append(received, c.Out.Recv(task))

		p2 := packet.NewGenericPacket(packet.Write, 0x100, 64)
		c.In.Send(task, p2)
		received = append(received, c.Out.Recv(task))

		c.In.Close()
	})

	k.Run()

	require.Len(t, received, 2)
	assert.Equal(t, int64(1), c.DeviceErrors())
	assert.Equal(t, int64(2), c.Writes())
}

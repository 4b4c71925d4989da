package packet_test

import (
	"testing"

	"github.com/archsim/ssdsim/packet"
	"github.com/stretchr/testify/assert"
)

func TestGenericPacketHotAttributes(t *testing.T) {
	p := packet.NewGenericPacket(packet.Write, 0x1000, 64)
	p.SetIndex(7)

	assert.Equal(t, float64(7), p.Attribute("index"))
	assert.Equal(t, float64(64), p.Attribute("databyte"))
	assert.Equal(t, packet.Write, p.Command())
}

func TestGenericPacketUnknownAttributeWarnsAndDefaultsToZero(t *testing.T) {
	p := packet.NewGenericPacket(packet.Read, 0, 0)

	assert.Equal(t, 0.0, p.Attribute("not_a_real_attribute"))
}

func TestGenericPacketAttributeRoundTrips(t *testing.T) {
	p := packet.NewGenericPacket(packet.Read, 0, 0)

	p.SetAttribute("flash_channel", 3)
	assert.Equal(t, float64(3), p.Attribute("flash_channel"))
}

func TestFlashPacketDelegatesToOrigin(t *testing.T) {
	origin := packet.NewGenericPacket(packet.Write, 0x2000, 64)
	origin.SetIndex(5)

	fp := packet.NewFlashPacket(origin, packet.FlashProgram, packet.FlashAddress{
		Plane: 0, Block: 1, WL: 2, SSL: 0, Page: 3,
	}, 4096)

	assert.Equal(t, uint64(0x2000), fp.Address())
	assert.Equal(t, packet.Write, fp.Command())
	assert.Equal(t, float64(5), fp.Attribute("index"))

	origin.SetAttribute("custom", 42)
	assert.Equal(t, float64(42), fp.Attribute("custom"))
}

func TestPCIePacketTagInvariant(t *testing.T) {
	gen3Max := packet.MaxTag(3)
	assert.Equal(t, 256, gen3Max)

	header := packet.TLPHeader{Tag: gen3Max - 1}
	pp := packet.NewPCIePacket(nil, header, 3, 8)

	assert.Less(t, pp.Header().Tag, packet.MaxTag(pp.Generation()))
}

package packet

// GenericPacket is the packet shape produced by the traffic generator and
// consumed by the L1 cache: a plain memory-style request or response.
type GenericPacket struct {
	attrBag

	command  Command
	address  uint32
	data     int32
	databyte uint8
	index    int32
}

// NewGenericPacket creates a GenericPacket for the given command, address
// and payload size.
func NewGenericPacket(cmd Command, address uint32, databyte uint8) *GenericPacket {
	return &GenericPacket{
		command:  cmd,
		address:  address,
		databyte: databyte,
	}
}

// Address returns the request's byte address.
func (p *GenericPacket) Address() uint64 { return uint64(p.address) }

// SetAddress overwrites the request's byte address.
func (p *GenericPacket) SetAddress(addr uint64) { p.address = uint32(addr) }

// Command returns whether this is a read or a write.
func (p *GenericPacket) Command() Command { return p.command }

// SetCommand overwrites the read/write direction.
func (p *GenericPacket) SetCommand(cmd Command) { p.command = cmd }

// PayloadBytes returns the number of payload bytes carried.
func (p *GenericPacket) PayloadBytes() int { return int(p.databyte) }

// SetPayloadBytes overwrites the payload byte count.
func (p *GenericPacket) SetPayloadBytes(n int) { p.databyte = uint8(n) }

// Index returns the outstanding-transaction tag assigned by the index
// allocator, or 0 if none has been assigned yet.
func (p *GenericPacket) Index() int32 { return p.index }

// SetIndex overwrites the outstanding-transaction tag.
func (p *GenericPacket) SetIndex(idx int32) { p.index = idx }

// Data returns the packet's 32-bit inline data word, used for small
// write payloads that do not need the full databyte-sized buffer.
func (p *GenericPacket) Data() int32 { return p.data }

// SetData overwrites the packet's inline data word.
func (p *GenericPacket) SetData(v int32) { p.data = v }

// Attribute implements Packet. "index" and "databyte" are backed
// directly by the packet's own fields; anything else falls through to
// the side attribute bag, and unknown names return 0.0 with a warning.
func (p *GenericPacket) Attribute(name string) float64 {
	switch name {
	case "index":
		return float64(p.index)
	case "databyte":
		return float64(p.databyte)
	}

	if v, ok := p.attrBag.get(name); ok {
		return v
	}

	return warnUnknownGet("GenericPacket", name)
}

// SetAttribute implements Packet.
func (p *GenericPacket) SetAttribute(name string, v float64) {
	switch name {
	case "index":
		p.index = int32(v)
	case "databyte":
		p.databyte = uint8(v)
	default:
		p.attrBag.set(name, v)
	}
}

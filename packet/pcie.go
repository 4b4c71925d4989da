package packet

// TLPType distinguishes the transaction-layer packet kinds this
// simulator models.
type TLPType int

// The TLP types carried across the PCIe delay line.
const (
	MemoryReadRequest TLPType = iota
	MemoryWriteRequest
	CompletionWithData
	CompletionNoData
)

// TLPHeader is the subset of a PCIe transaction-layer-packet header this
// simulator tracks.
type TLPHeader struct {
	Type          TLPType
	Length        int
	Tag           int
	Address       uint64
	RequesterID   uint16
	CompleterID   uint16
}

// maxTagByGeneration is the largest number of outstanding tags a link of
// a given generation can address. Generations 1 and 2 are commonly
// deployed without the extended-tag-field capability (32 tags); 3 and
// later routinely enable it (256 tags).
var maxTagByGeneration = map[int]int{
	1: 32,
	2: 32,
	3: 256,
	4: 256,
	5: 256,
	6: 256,
	7: 256,
}

// MaxTag returns the largest legal tag value (exclusive) for a link
// operating at the given PCIe generation.
func MaxTag(generation int) int {
	if n, ok := maxTagByGeneration[generation]; ok {
		return n
	}

	return 256
}

// PCIePacket is synthesized by the PCIe delay line from an incoming
// packet and carries the TLP header, link parameters, and CRC retry
// bookkeeping through transmission.
type PCIePacket struct {
	attrBag

	origin          Packet
	header          TLPHeader
	generation      int
	lanes           int
	totalPacketSize int
	retryCount      int
	index           int32
}

// NewPCIePacket wraps origin in a PCIePacket for transmission at the
// given generation over the given number of lanes. header.Tag must
// satisfy header.Tag < MaxTag(generation); NewPCIePacket does not itself
// enforce this so that callers can validate and report an
// InvalidPacketType error through the normal reporter path instead of
// panicking.
func NewPCIePacket(origin Packet, header TLPHeader, generation, lanes int) *PCIePacket {
	return &PCIePacket{
		origin:     origin,
		header:     header,
		generation: generation,
		lanes:      lanes,
	}
}

// OriginPacket implements Origin.
func (p *PCIePacket) OriginPacket() Packet { return p.origin }

// Header returns the TLP header.
func (p *PCIePacket) Header() TLPHeader { return p.header }

// SetHeader overwrites the TLP header.
func (p *PCIePacket) SetHeader(h TLPHeader) { p.header = h }

// Generation returns the PCIe generation this packet is transmitted at.
func (p *PCIePacket) Generation() int { return p.generation }

// Lanes returns the number of lanes this packet is transmitted over.
func (p *PCIePacket) Lanes() int { return p.lanes }

// TotalPacketSize returns the computed header+payload+CRC size in bytes.
func (p *PCIePacket) TotalPacketSize() int { return p.totalPacketSize }

// SetTotalPacketSize records the computed header+payload+CRC size.
func (p *PCIePacket) SetTotalPacketSize(n int) { p.totalPacketSize = n }

// RetryCount returns how many CRC retries this packet has consumed.
func (p *PCIePacket) RetryCount() int { return p.retryCount }

// IncrementRetryCount records one more CRC retry.
func (p *PCIePacket) IncrementRetryCount() { p.retryCount++ }

// Address implements Packet by returning the TLP header's address.
func (p *PCIePacket) Address() uint64 { return p.header.Address }

// SetAddress overwrites the TLP header's address.
func (p *PCIePacket) SetAddress(addr uint64) { p.header.Address = addr }

// Command derives Read/Write from the TLP type.
func (p *PCIePacket) Command() Command {
	if p.header.Type == MemoryWriteRequest {
		return Write
	}

	return Read
}

// SetCommand overwrites the TLP type with MemoryWriteRequest for Write
// and MemoryReadRequest otherwise; a completion type is not preserved.
func (p *PCIePacket) SetCommand(cmd Command) {
	if cmd == Write {
		p.header.Type = MemoryWriteRequest
	} else {
		p.header.Type = MemoryReadRequest
	}
}

// PayloadBytes returns the TLP payload length in bytes.
func (p *PCIePacket) PayloadBytes() int { return p.header.Length }

// SetPayloadBytes overwrites the TLP payload length in bytes.
func (p *PCIePacket) SetPayloadBytes(n int) { p.header.Length = n }

// Index returns this packet's own tag if one was assigned, otherwise the
// wrapped origin's tag.
func (p *PCIePacket) Index() int32 {
	if p.index != 0 {
		return p.index
	}

	if p.origin != nil {
		return p.origin.Index()
	}

	return p.index
}

// SetIndex overwrites this packet's own tag.
func (p *PCIePacket) SetIndex(idx int32) { p.index = idx }

// Attribute implements Packet, delegating names it does not itself carry
// to the wrapped origin.
func (p *PCIePacket) Attribute(name string) float64 {
	switch name {
	case "index":
		return float64(p.Index())
	case "databyte":
		return float64(p.header.Length)
	}

	if v, ok := p.attrBag.get(name); ok {
		return v
	}

	if p.origin != nil {
		return p.origin.Attribute(name)
	}

	return warnUnknownGet("PCIePacket", name)
}

// SetAttribute implements Packet, delegating names it does not itself
// carry to the wrapped origin.
func (p *PCIePacket) SetAttribute(name string, v float64) {
	switch name {
	case "index":
		p.index = int32(v)
	case "databyte":
		p.header.Length = int(v)
	default:
		if p.origin != nil {
			p.origin.SetAttribute(name, v)
			return
		}

		p.attrBag.set(name, v)
	}
}

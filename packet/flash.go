package packet

// FlashCommand is the operation a FlashPacket carries to the NAND array.
type FlashCommand int

// The three operations the NAND array understands.
const (
	FlashRead FlashCommand = iota
	FlashProgram
	FlashErase
)

func (c FlashCommand) String() string {
	switch c {
	case FlashProgram:
		return "PROGRAM"
	case FlashErase:
		return "ERASE"
	default:
		return "READ"
	}
}

// FlashAddress is the 5-tuple that uniquely identifies a NAND page.
type FlashAddress struct {
	Plane uint32
	Block uint32
	WL    uint32
	SSL   uint32
	Page  uint32
}

// FlashPacket is synthesized by the flash controller from an incoming
// generic request (or from an internal wear-leveling/erase operation
// with no origin) and carries the decoded physical address down to the
// NAND array.
type FlashPacket struct {
	attrBag

	origin       Packet
	flashCommand FlashCommand
	addr         FlashAddress
	dataSize     int
	index        int32

	// data is a payload slot set only through SetData; the flash
	// controller neither fills nor reads it.
	data []byte
}

// NewFlashPacket wraps origin (which may be nil for internally generated
// commands such as wear leveling) in a FlashPacket addressed to addr.
func NewFlashPacket(origin Packet, cmd FlashCommand, addr FlashAddress, dataSize int) *FlashPacket {
	return &FlashPacket{
		origin:       origin,
		flashCommand: cmd,
		addr:         addr,
		dataSize:     dataSize,
	}
}

// OriginPacket implements Origin.
func (p *FlashPacket) OriginPacket() Packet { return p.origin }

// FlashCommand returns the NAND-level operation this packet requests.
func (p *FlashPacket) FlashCommand() FlashCommand { return p.flashCommand }

// SetFlashCommand overwrites the NAND-level operation.
func (p *FlashPacket) SetFlashCommand(cmd FlashCommand) { p.flashCommand = cmd }

// FlashAddress returns the decoded physical 5-tuple.
func (p *FlashPacket) FlashAddress() FlashAddress { return p.addr }

// SetFlashAddress overwrites the decoded physical 5-tuple.
func (p *FlashPacket) SetFlashAddress(addr FlashAddress) { p.addr = addr }

// Data returns the payload bytes last stored with SetData, or nil.
func (p *FlashPacket) Data() []byte { return p.data }

// SetData overwrites the payload bytes.
func (p *FlashPacket) SetData(d []byte) { p.data = d }

// Address satisfies Packet by returning the logical address of the
// wrapped origin, or 0 if there is none.
func (p *FlashPacket) Address() uint64 {
	if p.origin != nil {
		return p.origin.Address()
	}

	return 0
}

// SetAddress forwards to the origin, if any.
func (p *FlashPacket) SetAddress(addr uint64) {
	if p.origin != nil {
		p.origin.SetAddress(addr)
	}
}

// Command derives a Read/Write Command from the flash-level operation:
// PROGRAM maps to Write, READ and ERASE map to Read.
func (p *FlashPacket) Command() Command {
	if p.flashCommand == FlashProgram {
		return Write
	}

	return Read
}

// SetCommand is a no-op placeholder satisfying Packet; the flash command
// is the authoritative direction indicator for a FlashPacket and is set
// with SetFlashCommand instead.
func (p *FlashPacket) SetCommand(Command) {}

// PayloadBytes returns the size of the data being transferred.
func (p *FlashPacket) PayloadBytes() int { return p.dataSize }

// SetPayloadBytes overwrites the size of the data being transferred.
func (p *FlashPacket) SetPayloadBytes(n int) { p.dataSize = n }

// Index returns this packet's own tag if one was assigned to it
// directly, otherwise the wrapped origin's tag.
func (p *FlashPacket) Index() int32 {
	if p.index != 0 {
		return p.index
	}

	if p.origin != nil {
		return p.origin.Index()
	}

	return p.index
}

// SetIndex overwrites this packet's own tag.
func (p *FlashPacket) SetIndex(idx int32) { p.index = idx }

// Attribute implements Packet, delegating names it does not itself carry
// to the wrapped origin, per the wrapper-packet delegation rule.
func (p *FlashPacket) Attribute(name string) float64 {
	switch name {
	case "index":
		return float64(p.Index())
	case "databyte":
		return float64(p.dataSize)
	}

	if v, ok := p.attrBag.get(name); ok {
		return v
	}

	if p.origin != nil {
		return p.origin.Attribute(name)
	}

	return warnUnknownGet("FlashPacket", name)
}

// SetAttribute implements Packet, delegating names it does not itself
// carry to the wrapped origin.
func (p *FlashPacket) SetAttribute(name string, v float64) {
	switch name {
	case "index":
		p.index = int32(v)
	case "databyte":
		p.dataSize = int(v)
	default:
		if p.origin != nil {
			p.origin.SetAttribute(name, v)
			return
		}

		p.attrBag.set(name, v)
	}
}

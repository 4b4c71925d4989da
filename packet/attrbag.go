package packet

import "log"

// An attrBag is the dynamic attribute side-table backing the "get/set
// named attribute" capability every Packet exposes. Hot names ("index",
// "databyte") are kept in dedicated fields by the packet types that carry
// them and never touch this map; attrBag only stores the long tail of
// rare, cross-cutting metadata that components stash on a packet as it
// flows through the pipeline.
type attrBag struct {
	values map[string]float64
}

func (b *attrBag) get(name string) (float64, bool) {
	if b.values == nil {
		return 0, false
	}

	v, ok := b.values[name]
	return v, ok
}

func (b *attrBag) set(name string, v float64) {
	if b.values == nil {
		b.values = make(map[string]float64)
	}

	b.values[name] = v
}

// warnUnknownGet logs and returns the fallback value the spec mandates
// for a get of a name that has never been set on this packet.
func warnUnknownGet(packetKind, name string) float64 {
	log.Printf("packet: %s has no attribute %q, returning 0.0", packetKind, name)
	return 0.0
}

package flash

import "github.com/archsim/ssdsim/config"

// pageState is the NAND page lifecycle: a page must be erased before it
// can be programmed again.
type pageState int

const (
	pageClean pageState = iota
	pageProgrammed
)

type page struct {
	state pageState
	data  byte
}

type block struct {
	pages      []page
	eraseCount int
	bad        bool
}

type plane struct {
	blocks []block
}

type die struct {
	planes []plane
}

// physAddr is a fully decoded NAND location.
type physAddr struct {
	channel int
	die     int
	plane   int
	block   int
	page    int
}

// geometry captures the fixed dimensions used to decode a flat physical
// index into (channel, die, plane, block, page).
type geometry struct {
	numChannels     int
	diesPerChannel  int
	numPlanes       int
	blocksPerPlane  int
	pagesPerBlock   int
}

func newGeometry(cfg config.Flash) geometry {
	g := geometry{
		numChannels:    cfg.NumChannels,
		diesPerChannel: cfg.DiesPerChannel,
		numPlanes:      cfg.NumPlanes,
		blocksPerPlane: cfg.BlocksPerDie,
		pagesPerBlock:  cfg.PagesPerBlock,
	}

	if g.numChannels < 1 {
		g.numChannels = 1
	}

	if g.diesPerChannel < 1 {
		g.diesPerChannel = 1
	}

	if g.numPlanes < 1 {
		g.numPlanes = 1
	}

	if g.blocksPerPlane < 1 {
		g.blocksPerPlane = 1
	}

	if g.pagesPerBlock < 1 {
		g.pagesPerBlock = 1
	}

	return g
}

// decode maps a flat physical index onto a NAND location.
func (g geometry) decode(physical uint64) physAddr {
	page := int(physical % uint64(g.pagesPerBlock))
	physical /= uint64(g.pagesPerBlock)

	blk := int(physical % uint64(g.blocksPerPlane))
	physical /= uint64(g.blocksPerPlane)

	pl := int(physical % uint64(g.numPlanes))
	physical /= uint64(g.numPlanes)

	d := int(physical % uint64(g.diesPerChannel))
	physical /= uint64(g.diesPerChannel)

	ch := int(physical % uint64(g.numChannels))

	return physAddr{channel: ch, die: d, plane: pl, block: blk, page: page}
}

func newDie(g geometry) die {
	d := die{planes: make([]plane, g.numPlanes)}

	for i := range d.planes {
		d.planes[i].blocks = make([]block, g.blocksPerPlane)

		for j := range d.planes[i].blocks {
			d.planes[i].blocks[j].pages = make([]page, g.pagesPerBlock)
		}
	}

	return d
}

package pcie

// crcScheme is one row of the canonical per-generation CRC scheme table
// in SPEC_FULL.md §4.7.
type crcScheme struct {
	name             string
	overheadFraction float64
	processingDelay  float64 // ns
	retryProbability float64
	fec              bool
	adaptive         bool
}

var schemes = map[int]crcScheme{
	1: {name: "LCRC32", overheadFraction: 0.020, processingDelay: 50, retryProbability: 1e-3},
	2: {name: "LCRC32+", overheadFraction: 0.018, processingDelay: 45, retryProbability: 8e-4},
	3: {name: "128b130b", overheadFraction: 0.015, processingDelay: 30, retryProbability: 1e-4},
	4: {name: "Enhanced", overheadFraction: 0.013, processingDelay: 25, retryProbability: 5e-5},
	5: {name: "FEC+CRC", overheadFraction: 0.040, processingDelay: 20, retryProbability: 1e-5, fec: true},
	6: {name: "AdvancedFEC", overheadFraction: 0.032, processingDelay: 15, retryProbability: 5e-6, fec: true, adaptive: true},
	7: {name: "AI-FEC", overheadFraction: 0.025, processingDelay: 5, retryProbability: 1e-6, fec: true, adaptive: true},
}

func schemeFor(generation int) crcScheme {
	if s, ok := schemes[generation]; ok {
		return s
	}

	return schemes[3]
}

// linkSpeedGbps is the raw per-lane signaling rate per PCIe generation.
var linkSpeedGbps = map[int]float64{
	1: 2.5, 2: 5.0, 3: 8.0, 4: 16.0, 5: 32.0, 6: 64.0, 7: 128.0,
}

// encodingEfficiency is the fraction of raw bits that carry payload:
// 8b/10b for Gen1-2, 128b/130b from Gen3 on.
func encodingEfficiency(generation int) float64 {
	if generation <= 2 {
		return 8.0 / 10.0
	}

	return 128.0 / 130.0
}

func linkSpeed(generation int) float64 {
	if s, ok := linkSpeedGbps[generation]; ok {
		return s
	}

	return linkSpeedGbps[3]
}

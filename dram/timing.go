package dram

import "github.com/archsim/ssdsim/config"

// presets is the canonical DRAM timing table, reproduced from the
// (MemoryType, SpeedGrade) table in SPEC_FULL.md §6.
var presets = map[config.MemoryType]map[string]config.Timing{
	config.DDR4: {
		"DDR4-3200": {
			TCL: 14, TRCD: 14, TRP: 14, TRAS: 32, TWR: 15,
			TRFC: 350, TREFI: 7800, TBurst: 2.5,
			TCCDS: 4, TCCDL: 5, TRRDS: 4, TRRDL: 6,
		},
	},
	config.DDR5: {
		"DDR5-4800": {
			TCL: 10, TRCD: 10, TRP: 10, TRAS: 25, TWR: 15,
			TRFC: 295, TREFI: 3900, TBurst: 2,
			TCCDS: 4, TCCDL: 6, TRRDS: 4, TRRDL: 8,
		},
	},
	config.LPDDR5: {
		"LPDDR5-6400": {
			TCL: 7, TRCD: 7, TRP: 7, TRAS: 16, TWR: 12,
			TRFC: 180, TREFI: 3900, TBurst: 1.25,
			TCCDS: 4, TCCDL: 6, TRRDS: 4, TRRDL: 6,
		},
	},
}

// resolveTiming looks up the timing preset for (memType, grade), applying
// cfg.CustomTiming as an override when present. It falls back to the
// family's first published grade when grade is unrecognised.
func resolveTiming(cfg config.DRAM) config.Timing {
	if cfg.CustomTiming != nil {
		return *cfg.CustomTiming
	}

	family, ok := presets[cfg.MemoryType]
	if !ok {
		family = presets[config.DDR4]
	}

	if t, ok := family[cfg.SpeedGrade]; ok {
		return t
	}

	for _, t := range family {
		return t
	}

	return presets[config.DDR4]["DDR4-3200"]
}

// Package config defines the typed configuration record every core
// module is constructed from, and the JSON loader the CLI collaborator
// uses to build one. The core never reads a file itself: it only ever
// consumes a *Config value.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archsim/ssdsim/simerr"
)

// Config is the top-level typed configuration record, with one field per
// recognised section.
type Config struct {
	HostSystem      HostSystem      `json:"host_system"`
	TrafficGen      TrafficGen      `json:"traffic_generator"`
	Cache           Cache           `json:"cache"`
	DRAM            DRAM            `json:"dram"`
	Flash           Flash           `json:"flash"`
	PCIe            PCIe            `json:"pcie"`
	Simulation      Simulation      `json:"simulation"`
}

// HostSystem configures the top-level host/composition behavior.
type HostSystem struct {
	MaxIndex     int  `json:"max_index"`
	DebugEnable  bool `json:"debug_enable"`
}

// TrafficPattern selects the inter-arrival distribution of the traffic
// generator.
type TrafficPattern string

// The five traffic patterns the generator supports.
const (
	Constant    TrafficPattern = "CONSTANT"
	Burst       TrafficPattern = "BURST"
	Poisson     TrafficPattern = "POISSON"
	Exponential TrafficPattern = "EXPONENTIAL"
	Normal      TrafficPattern = "NORMAL"
)

// WorkloadTemplate is a named preset that can override pattern
// parameters before the traffic generator starts.
type WorkloadTemplate string

// The workload template presets.
const (
	Custom     WorkloadTemplate = "CUSTOM"
	Database   WorkloadTemplate = "DATABASE"
	WebServer  WorkloadTemplate = "WEB_SERVER"
	MLInference WorkloadTemplate = "ML_INFERENCE"
	IoTSensors WorkloadTemplate = "IOT_SENSORS"
	Streaming  WorkloadTemplate = "STREAMING"
)

// TrafficGen configures request generation.
type TrafficGen struct {
	Interval           float64          `json:"interval_ns"`
	TrafficPattern     TrafficPattern   `json:"traffic_pattern"`
	WorkloadTemplate   WorkloadTemplate `json:"workload_template"`
	LocalityPercentage float64          `json:"locality_percentage"`
	WritePercentage    float64          `json:"write_percentage"`
	DatabyteValue      uint8            `json:"databyte_value"`
	NumTransactions    int              `json:"num_transactions"`
	StartAddress       uint64           `json:"start_address"`
	EndAddress         uint64           `json:"end_address"`
	AddressIncrement   uint64           `json:"address_increment"`

	BurstSize     int     `json:"burst_size"`
	BurstInterval float64 `json:"burst_interval_ns"`
	IdleTime      float64 `json:"idle_time_ns"`

	DelayMean     float64 `json:"delay_mean_ns"`
	DelayStddev   float64 `json:"delay_stddev_ns"`
	PoissonRate   float64 `json:"poisson_rate"`

	MaxOutstanding int `json:"max_outstanding"`
}

// ReplacementPolicy selects the cache eviction policy.
type ReplacementPolicy string

// The four supported replacement policies.
const (
	LRU    ReplacementPolicy = "LRU"
	FIFO   ReplacementPolicy = "FIFO"
	Random ReplacementPolicy = "RANDOM"
	LFU    ReplacementPolicy = "LFU"
)

// WritePolicy selects how the cache handles writes.
type WritePolicy string

// The three supported write policies.
const (
	WriteBack    WritePolicy = "WRITE_BACK"
	WriteThrough WritePolicy = "WRITE_THROUGH"
	WriteAround  WritePolicy = "WRITE_AROUND"
)

// AllocationPolicy selects whether a write miss allocates a line.
type AllocationPolicy string

// The two supported allocation policies.
const (
	WriteAllocate   AllocationPolicy = "WRITE_ALLOCATE"
	NoWriteAllocate AllocationPolicy = "NO_WRITE_ALLOCATE"
)

// Cache configures the L1 cache.
type Cache struct {
	SizeKB           int              `json:"size_kb"`
	LineSize         int              `json:"line_size"`
	Associativity    int              `json:"associativity"`
	ReplacementPolicy ReplacementPolicy `json:"replacement_policy"`
	WritePolicy      WritePolicy      `json:"write_policy"`
	AllocationPolicy AllocationPolicy `json:"allocation_policy"`
	HitLatencyNs     float64          `json:"hit_latency_ns"`
	MissLatencyNs    float64          `json:"miss_latency_ns"`
}

// MemoryType selects the JEDEC memory family the DRAM controller models.
type MemoryType string

// The three supported memory families.
const (
	DDR4   MemoryType = "DDR4"
	DDR5   MemoryType = "DDR5"
	LPDDR5 MemoryType = "LPDDR5"
)

// RefreshScheme selects the refresh scheduling algorithm.
type RefreshScheme string

// The five supported refresh schemes.
const (
	AllBank              RefreshScheme = "ALL_BANK"
	SameBank             RefreshScheme = "SAME_BANK"
	PerBank              RefreshScheme = "PER_BANK"
	Distributed          RefreshScheme = "DISTRIBUTED"
	RefreshManagementUnit RefreshScheme = "REFRESH_MANAGEMENT_UNIT"
)

// Timing is the set of JEDEC timing parameters, all expressed in
// nanoseconds except where noted.
type Timing struct {
	TCL          float64 `json:"tcl_ns"`
	TRCD         float64 `json:"trcd_ns"`
	TRP          float64 `json:"trp_ns"`
	TRAS         float64 `json:"tras_ns"`
	TWR          float64 `json:"twr_ns"`
	TRFC         float64 `json:"trfc_ns"`
	TREFI        float64 `json:"trefi_ns"`
	TBurst       float64 `json:"tburst_ns"`
	TCCDS        float64 `json:"tccds_ns"`
	TCCDL        float64 `json:"tccdl_ns"`
	TRRDS        float64 `json:"trrds_ns"`
	TRRDL        float64 `json:"trrdl_ns"`
	RefreshScheme RefreshScheme `json:"refresh_scheme"`
}

// DRAM configures the DRAM controller.
type DRAM struct {
	MemoryType     MemoryType    `json:"memory_type"`
	SpeedGrade     string        `json:"speed_grade"`
	PageSize       int           `json:"page_size"`
	BurstLength    int           `json:"burst_length"`
	AutoPrecharge  bool          `json:"auto_precharge"`
	RefreshEnable  bool          `json:"refresh_enable"`
	RefreshScheme  RefreshScheme `json:"refresh_scheme"`
	NumBanks       int           `json:"num_banks"`
	NumBankGroups  int           `json:"num_bank_groups"`
	NumRanks       int           `json:"num_ranks"`

	// CustomTiming overrides the speed-grade preset when non-nil.
	CustomTiming *Timing `json:"custom_timing,omitempty"`
}

// Flash configures the flash controller and NAND array.
type Flash struct {
	NumChannels         int  `json:"num_channels"`
	DiesPerChannel      int  `json:"dies_per_channel"`
	CommandQueueDepth   int  `json:"command_queue_depth"`
	PageSizeKB          int  `json:"page_size_kb"`
	PagesPerBlock       int  `json:"pages_per_block"`
	BlocksPerDie        int  `json:"blocks_per_die"`
	NumPlanes           int  `json:"num_planes"`
	EnableWearLeveling  bool `json:"enable_wear_leveling"`
	MaxPECycles         int  `json:"max_pe_cycles"`
	TRNs                float64 `json:"tr_ns"`
	TProgNs             float64 `json:"tprog_ns"`
	TEraseNs            float64 `json:"terase_ns"`
	IOWidthBits         int     `json:"io_width_bits"`
	IOClockMHz          float64 `json:"io_clock_mhz"`
}

// PCIe configures the PCIe delay line.
type PCIe struct {
	Generation             int     `json:"generation"`
	Lanes                  int     `json:"lanes"`
	CongestionThreshold    float64 `json:"congestion_threshold"`
	MaxCongestionDelayNs   float64 `json:"max_congestion_delay_ns"`
	EnableCRCSimulation    bool    `json:"enable_crc_simulation"`
}

// Simulation configures the overall run.
type Simulation struct {
	SimulationTimeSec float64 `json:"simulation_time_sec"`
	NumTransactions   int     `json:"num_transactions"`
	Seed              int64   `json:"seed"`
}

// Defaults returns a small but complete baseline configuration, useful
// for tests and as a starting point for a config file.
func Defaults() *Config {
	return &Config{
		HostSystem: HostSystem{MaxIndex: 32, DebugEnable: false},
		TrafficGen: TrafficGen{
			Interval:           100,
			TrafficPattern:     Constant,
			WorkloadTemplate:   Custom,
			LocalityPercentage: 50,
			WritePercentage:    30,
			DatabyteValue:      64,
			NumTransactions:    1000,
			StartAddress:       0,
			EndAddress:         1 << 20,
			AddressIncrement:   64,
			MaxOutstanding:     16,
		},
		Cache: Cache{
			SizeKB:            32,
			LineSize:          64,
			Associativity:     4,
			ReplacementPolicy: LRU,
			WritePolicy:       WriteBack,
			AllocationPolicy:  WriteAllocate,
			HitLatencyNs:      1,
			MissLatencyNs:     5,
		},
		DRAM: DRAM{
			MemoryType:    DDR4,
			SpeedGrade:    "3200",
			PageSize:      8192,
			BurstLength:   8,
			AutoPrecharge: true,
			RefreshEnable: true,
			RefreshScheme: AllBank,
			NumBanks:      16,
			NumBankGroups: 4,
			NumRanks:      1,
		},
		Flash: Flash{
			NumChannels:        8,
			DiesPerChannel:     2,
			CommandQueueDepth:  16,
			PageSizeKB:         16,
			PagesPerBlock:      256,
			BlocksPerDie:       1024,
			NumPlanes:          2,
			EnableWearLeveling: true,
			MaxPECycles:        3000,
			TRNs:               50000,
			TProgNs:            600000,
			TEraseNs:           3000000,
			IOWidthBits:        8,
			IOClockMHz:         800,
		},
		PCIe: PCIe{
			Generation:           4,
			Lanes:                4,
			CongestionThreshold:  0.8,
			MaxCongestionDelayNs: 500,
			EnableCRCSimulation:  true,
		},
		Simulation: Simulation{
			SimulationTimeSec: 0,
			NumTransactions:   1000,
			Seed:              1,
		},
	}
}

// Load reads a configuration from path. If path names a directory, the
// file "config.json" inside it is read instead, matching the CLI surface
// `sim_ssd [<config_dir>]`.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, simerr.New("config", simerr.ConfigurationError, "not_found", err.Error())
	}

	if info.IsDir() {
		path = filepath.Join(path, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerr.New("config", simerr.ConfigurationError, "unreadable", err.Error())
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, simerr.New("config", simerr.ConfigurationError, "malformed_json", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the core relies on and returns a fatal
// *simerr.Error describing the first violation found.
func (c *Config) Validate() error {
	if c.HostSystem.MaxIndex <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "max_index",
			fmt.Sprintf("host_system.max_index must be positive, got %d", c.HostSystem.MaxIndex))
	}

	if c.Cache.Associativity <= 0 || c.Cache.LineSize <= 0 || c.Cache.SizeKB <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "cache_geometry",
			"cache.size_kb, line_size and associativity must all be positive")
	}

	numLines := c.Cache.SizeKB * 1024 / c.Cache.LineSize
	if numLines%c.Cache.Associativity != 0 {
		return simerr.New("config", simerr.ConfigurationError, "cache_geometry",
			"cache lines must divide evenly into associativity-wide sets")
	}

	if c.DRAM.NumBanks <= 0 || c.DRAM.NumBankGroups <= 0 || c.DRAM.NumRanks <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "dram_geometry",
			"dram.num_banks, num_bank_groups and num_ranks must all be positive")
	}

	if c.DRAM.NumBanks%c.DRAM.NumBankGroups != 0 {
		return simerr.New("config", simerr.ConfigurationError, "dram_geometry",
			"dram.num_banks must divide evenly into num_bank_groups")
	}

	if c.Flash.NumChannels <= 0 || c.Flash.PagesPerBlock <= 0 || c.Flash.BlocksPerDie <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "flash_geometry",
			"flash.num_channels, pages_per_block and blocks_per_die must all be positive")
	}

	if c.PCIe.Generation < 1 || c.PCIe.Generation > 7 {
		return simerr.New("config", simerr.ConfigurationError, "pcie_generation",
			fmt.Sprintf("pcie.generation must be in [1,7], got %d", c.PCIe.Generation))
	}

	if c.PCIe.Lanes <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "pcie_lanes",
			"pcie.lanes must be positive")
	}

	if c.TrafficGen.NumTransactions <= 0 {
		return simerr.New("config", simerr.ConfigurationError, "num_transactions",
			"traffic_generator.num_transactions must be positive")
	}

	return nil
}

// Package stats defines the immutable snapshot types read from a live
// ssd.System while its kernel is idle: one report struct per component,
// composed into a single Report for printing, tracing, or serving over
// the monitoring HTTP endpoint.
package stats

import "github.com/archsim/ssdsim/sim"

// CacheReport snapshots the L1 cache's counters.
type CacheReport struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Writebacks int64   `json:"writebacks"`
	Evictions  int64   `json:"evictions"`
	HitRate    float64 `json:"hit_rate"`
}

// DRAMReport snapshots the DRAM controller's counters.
type DRAMReport struct {
	TotalRequests  int64        `json:"total_requests"`
	ReadRequests   int64        `json:"read_requests"`
	WriteRequests  int64        `json:"write_requests"`
	RowHits        int64        `json:"row_hits"`
	RowMisses      int64        `json:"row_misses"`
	PageEmptyHits  int64        `json:"page_empty_hits"`
	BankConflicts  int64        `json:"bank_conflicts"`
	RefreshCycles  int64        `json:"refresh_cycles"`
	AvgReadLatency sim.Duration `json:"avg_read_latency_ps"`
	AvgWriteLatency sim.Duration `json:"avg_write_latency_ps"`
}

// FlashReport snapshots the flash controller and NAND array's counters.
type FlashReport struct {
	ChannelConflicts int64 `json:"channel_conflicts"`
	WearLevelSwaps   int64 `json:"wear_level_swaps"`
	Reads            int64 `json:"reads"`
	Writes           int64 `json:"writes"`
	Erases           int64 `json:"erases"`
	DeviceErrors     int64 `json:"device_errors"`
}

// PCIeReport snapshots one PCIe delay line's counters.
type PCIeReport struct {
	Packets      int64   `json:"packets"`
	CRCErrors    int64   `json:"crc_errors"`
	Retries      int64   `json:"retries"`
	DeviceErrors int64   `json:"device_errors"`
	Utilization  float64 `json:"utilization"`
}

// ProfilerReport snapshots the latency and bandwidth profilers.
type ProfilerReport struct {
	RequestCount   int64        `json:"request_count"`
	TotalLatency   sim.Duration `json:"total_latency_ps"`
	MinLatency     sim.Duration `json:"min_latency_ps"`
	MaxLatency     sim.Duration `json:"max_latency_ps"`
	AvgLatency     sim.Duration `json:"avg_latency_ps"`
	TotalBytes     int64        `json:"total_bytes"`
}

// Report is the full statistics snapshot taken from a running or
// finished ssd.System.
type Report struct {
	SimTime      sim.Time       `json:"sim_time_ps"`
	TotalErrors  int            `json:"total_errors"`
	Cache        CacheReport    `json:"cache"`
	DRAM         DRAMReport     `json:"dram"`
	Flash        FlashReport    `json:"flash"`
	PCIeDown     PCIeReport     `json:"pcie_down"`
	PCIeUp       PCIeReport     `json:"pcie_up"`
	Profiler     ProfilerReport `json:"profiler"`
}

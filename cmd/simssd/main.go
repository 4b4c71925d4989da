// Command simssd runs the SSD storage-stack simulator from a JSON
// configuration file, optionally tracing every packet and serving live
// statistics over HTTP, and prints a final report.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/monitoring"
	"github.com/archsim/ssdsim/simerr"
	"github.com/archsim/ssdsim/ssd"
	"github.com/archsim/ssdsim/stats"
	"github.com/archsim/ssdsim/trace"
)

// Exit codes per the simulator's external interface: 0 success, 1
// configuration error, 2 runtime error.
const (
	exitSuccess = 0
	exitConfig  = 1
	exitRuntime = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		traceKind   string
		tracePath   string
		monitor     bool
		openBrowse  bool
		monitorPort int
	)

	code := exitSuccess

	rootCmd := &cobra.Command{
		Use:   "simssd [config_dir]",
		Short: "Run the SSD storage-stack discrete-event simulator",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			_ = godotenv.Load() // optional; missing .env is not an error

			path := "."
			if len(cmdArgs) == 1 {
				path = cmdArgs[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				code = exitConfig
				return nil
			}

			applyEnvOverrides(cfg)

			sink, closeSink, err := buildSink(traceKind, tracePath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				code = exitConfig
				return nil
			}
			if closeSink != nil {
				defer closeSink()
			}

			system := ssd.New(cfg, 0, sink)

			var srv *monitoring.Server
			if monitor {
				srv = monitoring.New(system).WithPortNumber(monitorPort).WithOpenBrowser(openBrowse)
				if err := srv.Start(); err != nil {
					fmt.Fprintln(os.Stderr, err)
					code = exitRuntime
					return nil
				}
				defer srv.Stop()
			}

			system.Run()

			report := system.Snapshot()
			printReport(os.Stdout, report)

			if len(system.Errors()) > 0 {
				printErrors(os.Stderr, system.Errors())
				code = exitRuntime
			}

			return nil
		},
	}

	rootCmd.Flags().StringVar(&traceKind, "trace", "", "trace sink to attach: csv, json, or sqlite")
	rootCmd.Flags().StringVar(&tracePath, "trace-out", "trace.out", "path for the trace sink's output file")
	rootCmd.Flags().BoolVar(&monitor, "monitor", false, "serve live statistics over HTTP")
	rootCmd.Flags().BoolVar(&openBrowse, "open", false, "open the monitoring page in a browser")
	rootCmd.Flags().IntVar(&monitorPort, "monitor-port", 0, "port for the monitoring server (0 = random)")

	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}

	return code
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("SIMSSD_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
}

func buildSink(kind, path string) (trace.Sink, func(), error) {
	switch strings.ToLower(kind) {
	case "":
		return nil, nil, nil
	case "csv":
		s, err := trace.NewCSVSink(path)
		if err != nil {
			return nil, nil, simerr.New("cmd", simerr.ConfigurationError, "trace_open_failed", err.Error())
		}
		return s, func() { s.Close() }, nil
	case "json":
		s, err := trace.NewJSONSink(path)
		if err != nil {
			return nil, nil, simerr.New("cmd", simerr.ConfigurationError, "trace_open_failed", err.Error())
		}
		return s, func() { s.Close() }, nil
	case "sqlite":
		s, err := trace.NewSQLiteSink(path)
		if err != nil {
			return nil, nil, simerr.New("cmd", simerr.ConfigurationError, "trace_open_failed", err.Error())
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, simerr.New("cmd", simerr.ConfigurationError, "unknown_trace_kind",
			fmt.Sprintf("unrecognized --trace value %q", kind))
	}
}

func printReport(w *os.File, r stats.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "sim_time_ps\t%d\n", r.SimTime)
	fmt.Fprintf(tw, "cache_hits\t%d\n", r.Cache.Hits)
	fmt.Fprintf(tw, "cache_misses\t%d\n", r.Cache.Misses)
	fmt.Fprintf(tw, "cache_hit_rate\t%.4f\n", r.Cache.HitRate)
	fmt.Fprintf(tw, "dram_requests\t%d\n", r.DRAM.TotalRequests)
	fmt.Fprintf(tw, "dram_row_hits\t%d\n", r.DRAM.RowHits)
	fmt.Fprintf(tw, "dram_row_misses\t%d\n", r.DRAM.RowMisses)
	fmt.Fprintf(tw, "flash_reads\t%d\n", r.Flash.Reads)
	fmt.Fprintf(tw, "flash_writes\t%d\n", r.Flash.Writes)
	fmt.Fprintf(tw, "flash_erases\t%d\n", r.Flash.Erases)
	fmt.Fprintf(tw, "flash_device_errors\t%d\n", r.Flash.DeviceErrors)
	fmt.Fprintf(tw, "pcie_down_packets\t%d\n", r.PCIeDown.Packets)
	fmt.Fprintf(tw, "pcie_up_packets\t%d\n", r.PCIeUp.Packets)
	fmt.Fprintf(tw, "avg_latency_ps\t%d\n", r.Profiler.AvgLatency)
	fmt.Fprintf(tw, "total_bytes\t%d\n", r.Profiler.TotalBytes)
	fmt.Fprintf(tw, "total_errors\t%d\n", r.TotalErrors)

	tw.Flush()
}

func printErrors(w *os.File, errs []*simerr.Error) {
	enc := json.NewEncoder(w)
	for _, e := range errs {
		enc.Encode(e)
	}
}

// Package monitoring exposes a running simulation's statistics over
// HTTP: a JSON snapshot, a process health sample, and an on-demand CPU
// profile. It never mutates simulation state — it only reads a
// stats.Report the caller hands it, matching the "read through a
// snapshot when the kernel is idle" statistics model.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"

	// Registers pprof's own HTTP handlers under /debug/pprof on
	// http.DefaultServeMux; the Server's own router does not serve them.
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/archsim/ssdsim/stats"
)

// Snapshotter returns the latest available statistics report. ssd.System
// satisfies this via its Snapshot method.
type Snapshotter interface {
	Snapshot() stats.Report
}

// Server is the monitoring HTTP server.
type Server struct {
	source      Snapshotter
	portNumber  int
	openBrowser bool

	listener net.Listener
}

// New creates a Server reading snapshots from source. Call WithPortNumber
// and WithOpenBrowser before Start to customize it.
func New(source Snapshotter) *Server {
	return &Server{source: source}
}

// WithPortNumber sets the TCP port the server listens on. Ports below
// 1000 are rejected in favor of an OS-assigned port, since the simulator
// process should never need a privileged port.
func (s *Server) WithPortNumber(port int) *Server {
	if port < 1000 {
		fmt.Fprintf(os.Stderr,
			"monitoring: port %d is too low to assign, using a random port instead\n", port)
		port = 0
	}

	s.portNumber = port

	return s
}

// WithOpenBrowser makes Start open the stats page in the user's default
// browser once the server is listening.
func (s *Server) WithOpenBrowser(open bool) *Server {
	s.openBrowser = open

	return s
}

// Start begins serving in the background and returns once the listener
// is bound. Stop shuts it down.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.HandleFunc("/stats", s.handleStats)
	r.HandleFunc("/health", s.handleHealth)
	r.HandleFunc("/debug/profile", s.handleProfile)

	addr := ":0"
	if s.portNumber >= 1000 {
		addr = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.listener = listener

	url := fmt.Sprintf("http://localhost:%d/stats", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "monitoring simulation at %s\n", url)

	go func() {
		if err := http.Serve(listener, r); err != nil && err != http.ErrServerClosed {
			log.Println("monitoring: server stopped:", err)
		}
	}()

	if s.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "monitoring: could not open browser: %v\n", err)
		}
	}

	return nil
}

// URL returns the base address the server is listening on, once Start
// has succeeded.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}

	return fmt.Sprintf("http://localhost:%d", s.listener.Addr().(*net.TCPAddr).Port)
}

// Stop closes the listener, ending the background server goroutine.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}

	return s.listener.Close()
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	report := s.source.Snapshot()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type healthResponse struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rsp := healthResponse{CPUPercent: cpuPercent, MemoryRSS: mem.RSS}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleProfile captures one second of CPU profile from the simulator
// process and returns it as JSON via pprof/profile's parsed
// representation, so a caller can inspect it without a separate pprof
// toolchain invocation.
func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(prof); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

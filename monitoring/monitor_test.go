package monitoring_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/archsim/ssdsim/monitoring"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	report stats.Report
}

func (f fakeSnapshotter) Snapshot() stats.Report { return f.report }

func TestStatsEndpointServesJSONReport(t *testing.T) {
	src := fakeSnapshotter{report: stats.Report{
		SimTime: sim.Time(12345),
		Cache:   stats.CacheReport{Hits: 10, Misses: 2},
	}}

	srv := monitoring.New(src)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	url := srv.URL() + "/stats"

	var resp *http.Response
	var err error

	for i := 0; i < 20; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	var got stats.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(10), got.Cache.Hits)
	assert.Equal(t, sim.Time(12345), got.SimTime)
}

func TestHealthEndpointReportsProcessStats(t *testing.T) {
	srv := monitoring.New(fakeSnapshotter{})
	require.NoError(t, srv.Start())
	defer srv.Stop()

	var resp *http.Response
	var err error

	for i := 0; i < 20; i++ {
		resp, err = http.Get(srv.URL() + "/health")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func ExampleServer_url() {
	srv := monitoring.New(fakeSnapshotter{})
	_ = srv.Start()
	defer srv.Stop()

	fmt.Println(len(srv.URL()) > 0)
	// Output: true
}

package trace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() trace.Record {
	return trace.Record{
		SimTime: sim.Time(100),
		Module:  "cache",
		Port:    "CPUIn",
		Command: "READ",
		Address: 0x1000,
		Bytes:   64,
		Index:   3,
	}
}

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")

	sink, err := trace.NewCSVSink(path)
	require.NoError(t, err)

	sink.Write(sampleRecord())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sim_time,module,port,command,address,bytes,index")
	assert.Contains(t, string(data), "cache")
}

func TestJSONSinkWritesOneObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	sink, err := trace.NewJSONSink(path)
	require.NoError(t, err)

	sink.Write(sampleRecord())
	sink.Write(sampleRecord())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}

	return n
}

func TestSQLiteSinkPersistsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	sink, err := trace.NewSQLiteSink(path)
	require.NoError(t, err)

	sink.Write(sampleRecord())
	require.NoError(t, sink.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

package trace

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

// CSVSink writes one row per Record, flushing its buffer to disk on
// Close or when the buffer reaches bufferSize.
type CSVSink struct {
	path       string
	file       *os.File
	records    []Record
	bufferSize int
}

// NewCSVSink creates a CSVSink writing to path. The file is created (or
// truncated) and its header row written immediately.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(f, "sim_time,module,port,command,address,bytes,index\n")

	s := &CSVSink{path: path, file: f, bufferSize: 1000}

	atexit.Register(func() { s.Flush() })

	return s, nil
}

// Write buffers a Record, flushing if the buffer is full.
func (s *CSVSink) Write(r Record) {
	s.records = append(s.records, r)

	if len(s.records) >= s.bufferSize {
		s.Flush()
	}
}

// Flush writes every buffered Record to disk.
func (s *CSVSink) Flush() {
	for _, r := range s.records {
		fmt.Fprintf(s.file, "%d,%s,%s,%s,%d,%d,%d\n",
			r.SimTime, r.Module, r.Port, r.Command, r.Address, r.Bytes, r.Index)
	}

	s.records = nil
}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.Flush()

	return s.file.Close()
}

package trace

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/tebeka/atexit"
)

// JSONSink writes newline-delimited JSON, one object per Record.
type JSONSink struct {
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// NewJSONSink creates a JSONSink writing to path.
func NewJSONSink(path string) (*JSONSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	s := &JSONSink{file: f, w: w, enc: json.NewEncoder(w)}

	atexit.Register(func() { s.Flush() })

	return s, nil
}

// Write appends a Record as one JSON line.
func (s *JSONSink) Write(r Record) {
	// The encoder writes and flushes to the bufio.Writer immediately;
	// bufio itself batches the underlying file writes.
	if err := s.enc.Encode(r); err != nil {
		panic(err)
	}
}

// Flush pushes any buffered bytes to the underlying file.
func (s *JSONSink) Flush() {
	s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *JSONSink) Close() error {
	s.Flush()

	return s.file.Close()
}

package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tweag/nixtract/types"
)

// SinkWriteError wraps a failure to write a record to the output sink.
// This is always fatal: the coordinator aborts the run on the first one.
type SinkWriteError struct {
	Err error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink write failed: %v", e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// Sink is the write-locked output stream, an interface so the
// coordinator can target local disk, stdout, or an object-storage
// destination interchangeably. WriteRecord serializes and appends
// exactly one record per call; the serialized line and its terminating
// newline are written as one contiguous write under the lock.
type Sink interface {
	WriteRecord(r *types.Record) error
	Close() error
}

// FileSink writes JSONL records to a local file or, for path "-", to
// stdout. It is the default sink.
type FileSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewFileSink opens path for writing. A path of "-" selects stdout,
// which is never closed by Close.
func NewFileSink(path string) (*FileSink, error) {
	if path == "-" {
		return &FileSink{w: bufio.NewWriter(os.Stdout)}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open sink file %q: %w", path, err)
	}
	return &FileSink{w: bufio.NewWriter(f), closer: f}, nil
}

// WriteRecord serializes r and appends it as one JSONL line under the
// write lock, satisfying I5 (no record emitted partially).
func (s *FileSink) WriteRecord(r *types.Record) error {
	data, err := types.SerializeRecord(r)
	if err != nil {
		return &SinkWriteError{Err: fmt.Errorf("serialize record: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return &SinkWriteError{Err: err}
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return &SinkWriteError{Err: err}
	}
	return nil
}

// Close flushes buffered output and closes the underlying file, if any.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

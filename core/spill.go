package core

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/golang/snappy"
)

// SpillBuffer accumulates rows for a materializing stage (source and
// join reads through drainAll, GROUP BY, ORDER BY) and compresses
// batches with Snappy once they cross batchSize, and any remaining
// rows when drained, trading CPU for the working-set memory those
// stages would otherwise hold uncompressed (spec.md §5's resource
// model: "materializing stages may spill").
type SpillBuffer struct {
	batchSize int
	pending   []Row
	batches   [][]byte
	rowCount  int
}

var bufPool = sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}

// NewSpillBuffer returns an empty buffer that compresses every
// batchSize rows it accumulates.
func NewSpillBuffer(batchSize int) *SpillBuffer {
	if batchSize <= 0 {
		batchSize = 4096
	}
	return &SpillBuffer{batchSize: batchSize}
}

// Add appends one row, compressing the pending batch once it's full.
func (s *SpillBuffer) Add(row Row) error {
	s.pending = append(s.pending, row)
	s.rowCount++
	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

func (s *SpillBuffer) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := gob.NewEncoder(buf).Encode(s.pending); err != nil {
		return typeErr("spill buffer: encode batch: %v", err)
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	s.batches = append(s.batches, compressed)
	s.pending = s.pending[:0]
	return nil
}

// Len returns the total number of rows added so far.
func (s *SpillBuffer) Len() int {
	return s.rowCount
}

// Drain returns every row added, in insertion order, decompressing
// each spilled batch in turn. The buffer is left empty afterward.
func (s *SpillBuffer) Drain() ([]Row, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}
	out := make([]Row, 0, s.rowCount)
	for _, compressed := range s.batches {
		raw, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, typeErr("spill buffer: decompress batch: %v", err)
		}
		var rows []Row
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rows); err != nil {
			return nil, typeErr("spill buffer: decode batch: %v", err)
		}
		out = append(out, rows...)
	}
	s.batches = nil
	s.rowCount = 0
	return out, nil
}

func init() {
	gob.Register(&Map{})
	gob.Register([]interface{}{})
}

package core

import "testing"

func TestSpillBufferRoundTrip(t *testing.T) {
	sb := NewSpillBuffer(2) // small batch size to force at least one flush
	for i := 0; i < 5; i++ {
		if err := sb.Add(rowFrom("n", int64(i))); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	if sb.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", sb.Len())
	}

	rows, err := sb.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Drain() returned %d rows, want 5", len(rows))
	}
	for i, row := range rows {
		v, _ := row.Get("n")
		if v != int64(i) {
			t.Errorf("row[%d].n = %v, want %d (insertion order preserved)", i, v, i)
		}
	}

	if sb.Len() != 0 {
		t.Errorf("Len() after Drain() = %d, want 0", sb.Len())
	}
}

func TestSpillBufferEmptyDrain(t *testing.T) {
	sb := NewSpillBuffer(100)
	rows, err := sb.Drain()
	if err != nil {
		t.Fatalf("Drain on empty buffer: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Drain() = %v, want empty", rows)
	}
}

func TestSpillBufferDefaultBatchSize(t *testing.T) {
	sb := NewSpillBuffer(0)
	if sb.batchSize != 4096 {
		t.Errorf("batchSize = %d, want default 4096 for non-positive input", sb.batchSize)
	}
}

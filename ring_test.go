package main

import "testing"

func TestRingOverlapAdd(t *testing.T) {
	r := newStreamRing(16)
	r.queue([]float32{1, 1, 1}, 0)
	r.queue([]float32{2, 2, 2}, 1)
	want := []float32{1, 3, 3, 2}
	for i, v := range want {
		if r.buf[i] != v {
			t.Fatalf("cell %d = %g, want %g", i, r.buf[i], v)
		}
	}
}

func TestRingQueueWraparound(t *testing.T) {
	r := newStreamRing(8)
	r.queue([]float32{1, 2, 3, 4, 5}, 6)
	want := []float32{3, 4, 5, 0, 0, 0, 1, 2}
	for i, v := range want {
		if r.buf[i] != v {
			t.Fatalf("cell %d = %g, want %g", i, r.buf[i], v)
		}
	}
	if r.writeHead != 3 {
		t.Fatalf("writeHead = %d, want 3", r.writeHead)
	}
}

func TestRingQueueNegativePosUsesLookahead(t *testing.T) {
	r := newStreamRing(4 * latencyChunks * chunkSamples)
	pos := r.queue([]float32{5}, -1)
	if want := latencyChunks * chunkSamples; pos != want {
		t.Fatalf("default position = %d, want %d", pos, want)
	}
	if got := r.defaultWritePos(); got != latencyChunks*chunkSamples {
		t.Fatalf("defaultWritePos = %d", got)
	}
}

func TestRingReadDrainsCells(t *testing.T) {
	r := newStreamRing(64)
	r.queue([]float32{0.5, 0.5, 0.5, 0.5}, 0)
	p := make([]byte, 4*audioFrameBytes)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(p) {
		t.Fatalf("read %d bytes, want %d", n, len(p))
	}
	for i := 0; i < 4; i++ {
		if r.buf[i] != 0 {
			t.Fatalf("cell %d not drained: %g", i, r.buf[i])
		}
	}
	if r.readHead != 4 {
		t.Fatalf("readHead = %d, want 4", r.readHead)
	}
	// Mono replicated to both channels.
	for i := 0; i < 4*audioFrameBytes; i += audioFrameBytes {
		if p[i] != p[i+2] || p[i+1] != p[i+3] {
			t.Fatalf("channels differ at frame %d", i/audioFrameBytes)
		}
	}
}

func TestRingReadEmptyIsSilence(t *testing.T) {
	r := newStreamRing(32)
	p := make([]byte, 8*audioFrameBytes)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(p) {
		t.Fatalf("read %d bytes, want %d", n, len(p))
	}
	for _, b := range p {
		if b != 0 {
			t.Fatalf("expected silence, got nonzero byte")
		}
	}
}

func TestRingSilenceResetsState(t *testing.T) {
	r := newStreamRing(32)
	r.queue([]float32{1, 2, 3}, 5)
	p := make([]byte, 2*audioFrameBytes)
	if _, err := r.Read(p); err != nil {
		t.Fatalf("read: %v", err)
	}
	r.silence()
	for i, v := range r.buf {
		if v != 0 {
			t.Fatalf("cell %d not silenced: %g", i, v)
		}
	}
	read, write := r.cursors()
	if read != write {
		t.Fatalf("cursors diverged after silence: read=%d write=%d", read, write)
	}
	if read < 0 || read >= len(r.buf) {
		t.Fatalf("read cursor out of range: %d", read)
	}
	if r.depth() != 0 {
		t.Fatalf("depth = %d after silence", r.depth())
	}
}

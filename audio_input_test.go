package main

import "testing"

func TestChunkSourceLoopOffset(t *testing.T) {
	const L = 10
	samples := make([]float32, L)
	for i := range samples {
		samples[i] = float32(i)
	}
	s := newChunkSource(samples, true)

	dst := make([]float32, 4)
	consumed := 0
	for pull := 0; pull < 7; pull++ {
		if !s.nextChunk(dst) {
			t.Fatalf("looping source reported exhaustion on pull %d", pull)
		}
		for i, v := range dst {
			want := samples[(consumed+i)%L]
			if v != want {
				t.Fatalf("pull %d sample %d = %g, want %g", pull, i, v, want)
			}
		}
		consumed += len(dst)
		if got := s.offset(); got != consumed%L {
			t.Fatalf("after %d samples offset = %d, want %d", consumed, got, consumed%L)
		}
	}
}

func TestChunkSourceWithoutLoopExhausts(t *testing.T) {
	samples := []float32{1, 2, 3, 4, 5}
	s := newChunkSource(samples, false)
	dst := make([]float32, 4)

	if !s.nextChunk(dst) {
		t.Fatalf("first chunk reported exhaustion")
	}
	if dst[0] != 1 || dst[3] != 4 {
		t.Fatalf("first chunk = %v", dst)
	}
	if !s.nextChunk(dst) {
		t.Fatalf("final partial chunk reported exhaustion")
	}
	if dst[0] != 5 || dst[1] != 0 || dst[2] != 0 || dst[3] != 0 {
		t.Fatalf("final chunk not zero-padded: %v", dst)
	}
	if s.nextChunk(dst) {
		t.Fatalf("exhausted source served another chunk")
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("exhausted chunk cell %d = %g", i, v)
		}
	}
}

func TestChunkSourceRewind(t *testing.T) {
	s := newChunkSource([]float32{1, 2, 3}, false)
	dst := make([]float32, 3)
	s.nextChunk(dst)
	s.nextChunk(dst)
	s.rewind()
	if !s.nextChunk(dst) {
		t.Fatalf("rewound source reported exhaustion")
	}
	if dst[0] != 1 {
		t.Fatalf("rewound chunk starts at %g", dst[0])
	}
}

func TestNewChunkSourceRejectsEmpty(t *testing.T) {
	if s := newChunkSource(nil, true); s != nil {
		t.Fatalf("empty source should be nil")
	}
	var s *chunkSource
	dst := make([]float32, 2)
	if s.nextChunk(dst) {
		t.Fatalf("nil source served a chunk")
	}
	if s.offset() != 0 {
		t.Fatalf("nil source offset nonzero")
	}
	s.rewind() // must not panic
}

func TestDecodeStereoI16ToFloat(t *testing.T) {
	// One frame: left = 16384, right = -16384 averages to 0; a second frame
	// of matching halves folds to their value.
	pcm := []byte{
		0x00, 0x40, 0x00, 0xc0,
		0x00, 0x20, 0x00, 0x20,
	}
	out := decodeStereoI16ToFloat(pcm)
	if len(out) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(out))
	}
	if out[0] != 0 {
		t.Fatalf("frame 0 = %g, want 0", out[0])
	}
	if diff := out[1] - 0.25; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("frame 1 = %g, want 0.25", out[1])
	}
}

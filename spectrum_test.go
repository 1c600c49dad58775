package main

import (
	"math"
	"math/rand"
	"testing"
)

func TestAnalyzePureToneConcentratesBins(t *testing.T) {
	a, err := newFrequencyAnalyzer(rand.New(rand.NewSource(21)))
	if err != nil {
		t.Fatalf("building analyzer: %v", err)
	}
	const toneBin = 64
	chunk := make([]float32, chunkSamples)
	for i := range chunk {
		chunk[i] = float32(math.Sin(2 * math.Pi * toneBin * float64(i) / chunkSamples))
	}
	bins := make([]int32, 4096)
	a.analyze(chunk, bins, 2)

	// The Hann window smears the tone across neighbouring bins only.
	near := 0
	for _, b := range bins {
		if b < 0 || b >= frequencyBins {
			t.Fatalf("bin %d out of range", b)
		}
		if b >= toneBin-2 && b <= toneBin+2 {
			near++
		}
	}
	if ratio := float64(near) / float64(len(bins)); ratio < 0.9 {
		t.Fatalf("only %.0f%% of rays assigned near the tone bin", ratio*100)
	}
}

func TestAnalyzeSilenceFallsBackToUniform(t *testing.T) {
	a, err := newFrequencyAnalyzer(rand.New(rand.NewSource(22)))
	if err != nil {
		t.Fatalf("building analyzer: %v", err)
	}
	bins := make([]int32, 2048)
	a.analyze(make([]float32, chunkSamples), bins, 2)
	seen := map[int32]bool{}
	for _, b := range bins {
		if b < 0 || b >= frequencyBins {
			t.Fatalf("bin %d out of range", b)
		}
		seen[b] = true
	}
	if len(seen) < frequencyBins/8 {
		t.Fatalf("silent chunk produced only %d distinct bins", len(seen))
	}
}

func TestAnalyzeWrongLengthUsesUniform(t *testing.T) {
	a, err := newFrequencyAnalyzer(rand.New(rand.NewSource(23)))
	if err != nil {
		t.Fatalf("building analyzer: %v", err)
	}
	bins := make([]int32, 64)
	a.analyze(make([]float32, 7), bins, 2)
	for _, b := range bins {
		if b < 0 || b >= frequencyBins {
			t.Fatalf("bin %d out of range", b)
		}
	}
}

func TestChunkGain(t *testing.T) {
	if g := chunkGain(nil); g != 0 {
		t.Fatalf("empty chunk gain = %g", g)
	}
	flat := make([]float32, 256)
	for i := range flat {
		flat[i] = 0.5
	}
	if g := chunkGain(flat); math.Abs(float64(g)-0.5) > 1e-6 {
		t.Fatalf("constant chunk RMS = %g, want 0.5", g)
	}
	if g := chunkGain(make([]float32, 256)); g != 0 {
		t.Fatalf("silent chunk gain = %g", g)
	}
}

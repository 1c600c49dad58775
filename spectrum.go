package main

import (
	"math"
	"math/cmplx"
	"math/rand"
	"sort"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// silentSpectrumFloor is the total magnitude below which a chunk is treated
// as silence and bins fall back to a uniform draw.
const silentSpectrumFloor = 1e-9

// frequencyAnalyzer converts input chunks into the per-ray frequency-bin
// assignment that biases which band each traced ray represents. One instance
// lives on the orchestration goroutine; nothing here is shared.
type frequencyAnalyzer struct {
	plan    *fftPlan
	hann    []float64
	scratch []complex128
	weights []float64
	cdf     []float64
	rng     *rand.Rand
}

func newFrequencyAnalyzer(rng *rand.Rand) (*frequencyAnalyzer, error) {
	plan, err := planFFT(chunkSamples)
	if err != nil {
		return nil, err
	}
	return &frequencyAnalyzer{
		plan:    plan,
		hann:    window.Hann(chunkSamples),
		scratch: make([]complex128, chunkSamples),
		weights: make([]float64, frequencyBins),
		cdf:     make([]float64, frequencyBins),
		rng:     rng,
	}, nil
}

// analyze rebuilds the bin assignment for every ray from the magnitude
// spectrum of the chunk, sampling bins with replacement proportional to the
// normalized positive-frequency magnitudes. A nil or silent chunk yields a
// uniform assignment. The returned slice aliases bins.
func (a *frequencyAnalyzer) analyze(chunk []float32, bins []int32, workers int) []int32 {
	if chunk == nil || len(chunk) != chunkSamples {
		return a.uniform(bins)
	}
	for i, v := range chunk {
		a.scratch[i] = complex(float64(v)*a.hann[i], 0)
	}
	a.plan.forwardParallel(a.scratch, workers)
	for k := 0; k < frequencyBins; k++ {
		a.weights[k] = cmplx.Abs(a.scratch[k])
	}
	floats.CumSum(a.cdf, a.weights)
	total := a.cdf[len(a.cdf)-1]
	if total < silentSpectrumFloor {
		return a.uniform(bins)
	}
	for i := range bins {
		r := a.rng.Float64() * total
		bins[i] = int32(sort.SearchFloat64s(a.cdf, r))
	}
	return bins
}

func (a *frequencyAnalyzer) uniform(bins []int32) []int32 {
	for i := range bins {
		bins[i] = int32(a.rng.Intn(frequencyBins))
	}
	return bins
}

// chunkGain summarizes the input chunk's drive level for hit-energy scaling.
// RMS keeps impulsive and sustained material comparable.
func chunkGain(chunk []float32) float32 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, v := range chunk {
		sum += float64(v) * float64(v)
	}
	rms := sum / float64(len(chunk))
	if rms <= 0 {
		return 0
	}
	return float32(math.Sqrt(rms))
}

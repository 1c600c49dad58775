package main

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// reconResult is the completion message of one asynchronous reconstruction.
// samples aliases reconstructor-owned scratch and is only valid until the
// next job is dispatched; the orchestrator consumes it before dispatching.
type reconResult struct {
	samples []float32
	epoch   uint64
	ringPos int
	err     error
}

// reconstructor drains a frozen accumulation buffer into time-domain audio.
// Spectrogram mode runs one inverse transform per time step, in parallel
// across steps into disjoint output ranges. Impulse-response mode convolves
// the dry input chunk against the accumulated response with uniform
// partitioned convolution. Exactly one job runs at a time.
type reconstructor struct {
	plan     *fftPlan
	convPlan *fftPlan
	workers  int
	gain     float64

	out      []float32
	dryCopy  []float32
	drySpec  []complex128
	partOut  [][]float32
	specPool sync.Pool
	convPool sync.Pool
}

func newReconstructor(workers int, gain float64) (*reconstructor, error) {
	plan, err := planFFT(chunkSamples)
	if err != nil {
		return nil, err
	}
	convPlan, err := planFFT(2 * chunkSamples)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &reconstructor{
		plan:     plan,
		convPlan: convPlan,
		workers:  workers,
		gain:     gain,
		dryCopy:  make([]float32, chunkSamples),
		drySpec:  make([]complex128, 2*chunkSamples),
		specPool: sync.Pool{New: func() any { return make([]complex128, chunkSamples) }},
		convPool: sync.Pool{New: func() any { return make([]complex128, 2*chunkSamples) }},
	}, nil
}

// dispatch copies the dry chunk and starts the asynchronous job. The caller
// must not start another job until it has received the result.
func (r *reconstructor) dispatch(frozen *accumBuffer, dry []float32, epoch uint64, ringPos int, done chan<- reconResult) {
	hasDry := dry != nil
	if hasDry {
		copy(r.dryCopy, dry)
	}
	go func() {
		res := reconResult{epoch: epoch, ringPos: ringPos}
		if frozen.bins > 1 {
			res.samples, res.err = r.reconstructSpectrogram(frozen)
		} else if hasDry {
			res.samples, res.err = r.reconstructConvolved(frozen, r.dryCopy)
		} else {
			res.samples = r.reconstructDirect(frozen)
		}
		done <- res
	}()
}

func (r *reconstructor) norm(frozen *accumBuffer) float64 {
	frames := frozen.accumFrames
	if frames < 1 {
		frames = 1
	}
	return r.gain / float64(frames)
}

// reconstructSpectrogram converts each time step's bin row into a
// zero-phase, conjugate-symmetric spectrum and inverse transforms it into
// that step's slot of the output. Steps are independent; the butterfly
// barrier only exists inside one step's window.
func (r *reconstructor) reconstructSpectrogram(frozen *accumBuffer) ([]float32, error) {
	steps := frozen.timeSteps
	need := steps * chunkSamples
	r.ensureOut(need)
	norm := r.norm(frozen)

	var eg errgroup.Group
	eg.SetLimit(r.workers)
	for s := 0; s < steps; s++ {
		row := frozen.data[s*frozen.bins : (s+1)*frozen.bins]
		dst := r.out[s*chunkSamples : (s+1)*chunkSamples]
		eg.Go(func() error {
			spec := r.specPool.Get().([]complex128)
			defer r.specPool.Put(spec)
			spec[0] = complex(float64(row[0])*norm, 0)
			for k := 1; k < frequencyBins; k++ {
				v := complex(float64(row[k])*norm, 0)
				spec[k] = v
				spec[chunkSamples-k] = v
			}
			spec[frequencyBins] = 0
			r.plan.inverse(spec)
			for i := range dst {
				dst[i] = float32(real(spec[i]))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("spectrogram reconstruction: %w", err)
	}
	return r.out[:need], nil
}

// reconstructConvolved renders the dry chunk through the accumulated
// impulse response: the response is cut into chunk-sized partitions, each
// zero-padded partition is multiplied against the dry chunk's spectrum, and
// the inverse transforms overlap-add at the partition offsets.
func (r *reconstructor) reconstructConvolved(frozen *accumBuffer, dry []float32) ([]float32, error) {
	irLen := frozen.timeSteps
	parts := (irLen + chunkSamples - 1) / chunkSamples
	need := parts*chunkSamples + chunkSamples
	r.ensureOut(need)
	for i := range r.out[:need] {
		r.out[i] = 0
	}
	r.ensurePartOut(parts)
	norm := r.norm(frozen)

	for i := range r.drySpec {
		r.drySpec[i] = 0
	}
	for i, v := range dry {
		r.drySpec[i] = complex(float64(v), 0)
	}
	r.convPlan.forwardParallel(r.drySpec, r.workers)

	var eg errgroup.Group
	eg.SetLimit(r.workers)
	for p := 0; p < parts; p++ {
		lo := p * chunkSamples
		hi := lo + chunkSamples
		if hi > irLen {
			hi = irLen
		}
		part := frozen.data[lo:hi]
		dst := r.partOut[p]
		eg.Go(func() error {
			spec := r.convPool.Get().([]complex128)
			defer r.convPool.Put(spec)
			for i := range spec {
				spec[i] = 0
			}
			for i, v := range part {
				spec[i] = complex(float64(v)*norm, 0)
			}
			r.convPlan.forward(spec)
			for i := range spec {
				spec[i] *= r.drySpec[i]
			}
			r.convPlan.inverse(spec)
			for i := range dst {
				dst[i] = float32(real(spec[i]))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("partitioned convolution: %w", err)
	}
	for p := 0; p < parts; p++ {
		base := p * chunkSamples
		for i, v := range r.partOut[p] {
			r.out[base+i] += v
		}
	}
	return r.out[:need], nil
}

// reconstructDirect plays the impulse response itself, for IR mode without
// an input stream (the movement impulses are the excitation, so the
// response is the audio).
func (r *reconstructor) reconstructDirect(frozen *accumBuffer) []float32 {
	need := frozen.timeSteps
	r.ensureOut(need)
	norm := r.norm(frozen)
	for i, v := range frozen.data[:need] {
		r.out[i] = float32(float64(v) * norm)
	}
	return r.out[:need]
}

func (r *reconstructor) ensureOut(n int) {
	if cap(r.out) < n {
		r.out = make([]float32, n)
	}
	r.out = r.out[:n]
}

func (r *reconstructor) ensurePartOut(parts int) {
	for len(r.partOut) < parts {
		r.partOut = append(r.partOut, make([]float32, 2*chunkSamples))
	}
}

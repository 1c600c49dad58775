package main

import (
	"math"
	"sync/atomic"
)

// accumBuffer is one progressive accumulation target. In spectrogram mode it
// is a timeSteps × bins energy grid; in impulse-response mode bins is 1 and
// each time step is a single output sample. Mutation is additive only.
type accumBuffer struct {
	data        []float32
	timeSteps   int
	bins        int
	accumFrames int
}

func newAccumBuffer(irMode bool, reverbSeconds float64) *accumBuffer {
	if irMode {
		steps := int(math.Ceil(audioSampleRate * reverbSeconds))
		return &accumBuffer{data: make([]float32, steps), timeSteps: steps, bins: 1}
	}
	steps := int(math.Ceil(audioSampleRate * reverbSeconds / chunkSamples))
	return &accumBuffer{
		data:      make([]float32, steps*frequencyBins),
		timeSteps: steps,
		bins:      frequencyBins,
	}
}

// clear zeroes the buffer and restarts its refinement count.
func (b *accumBuffer) clear() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.accumFrames = 0
}

// deposit folds one tick's hits into the buffer. Each delay becomes a sample
// index; spectrogram mode folds that into a time step and pairs it with the
// hit's frequency bin. Arrivals past the reverb tail or with an out-of-range
// bin are dropped. Returns the number of deposited hits.
func (b *accumBuffer) deposit(hits []rayHit) int {
	deposited := 0
	for i := range hits {
		hit := &hits[i]
		sample := int(math.Round(float64(hit.timeDelay) * audioSampleRate))
		if sample < 0 {
			continue
		}
		step := sample
		bin := 0
		if b.bins > 1 {
			step = sample / chunkSamples
			bin = int(hit.frequencyBin)
			if bin < 0 || bin >= b.bins {
				continue
			}
		}
		if step >= b.timeSteps {
			continue
		}
		b.data[step*b.bins+bin] += hit.energy
		deposited++
	}
	return deposited
}

// bufferPair owns the ping/pong accumulation buffers. Exactly one is active
// (the write target) at any moment; the index is atomic so stat readers on
// other goroutines never observe a torn swap. Swapping flips the index and
// never moves data.
type bufferPair struct {
	bufs   [2]*accumBuffer
	active atomic.Int32
}

func newBufferPair(irMode bool, reverbSeconds float64) *bufferPair {
	return &bufferPair{
		bufs: [2]*accumBuffer{
			newAccumBuffer(irMode, reverbSeconds),
			newAccumBuffer(irMode, reverbSeconds),
		},
	}
}

// activeBuf returns the buffer accepting deposits.
func (bp *bufferPair) activeBuf() *accumBuffer {
	return bp.bufs[bp.active.Load()]
}

// frozenBuf returns the buffer most recently handed to reconstruction.
func (bp *bufferPair) frozenBuf() *accumBuffer {
	return bp.bufs[1-bp.active.Load()]
}

// swap freezes the current active buffer and activates the other one,
// cleared. The caller must have finished draining the previously frozen
// buffer; the orchestrator enforces that with its single-flight
// reconstruction rule. Returns the newly frozen buffer.
func (bp *bufferPair) swap() *accumBuffer {
	frozen := bp.activeBuf()
	next := 1 - bp.active.Load()
	bp.bufs[next].clear()
	bp.active.Store(next)
	return frozen
}

// reset clears both buffers and makes slot 0 active, for stream start.
func (bp *bufferPair) reset() {
	bp.bufs[0].clear()
	bp.bufs[1].clear()
	bp.active.Store(0)
}

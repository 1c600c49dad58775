package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newSchedulerTestGame wires just enough of the owning context to exercise
// the stream state machine without a window or audio device.
func newSchedulerTestGame(t *testing.T) *Game {
	t.Helper()
	g := &Game{
		sx:          float64(w / 2),
		sy:          float64(h / 2),
		ring:        newStreamRing(ringBufferSize),
		buffers:     newBufferPair(true, 0.01),
		hits:        newHitBuffer(16),
		reconDone:   make(chan reconResult, 1),
		rayBins:     make([]int32, 8),
		inputChunk:  make([]float32, chunkSamples),
		nextRingPos: -1,
	}
	analyzer, err := newFrequencyAnalyzer(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	g.analyzer = analyzer
	recon, err := newReconstructor(1, 1)
	require.NoError(t, err)
	g.recon = recon
	return g
}

func waitReconResult(t *testing.T, g *Game) reconResult {
	t.Helper()
	select {
	case res := <-g.reconDone:
		return res
	case <-time.After(5 * time.Second):
		t.Fatalf("reconstruction never completed")
		return reconResult{}
	}
}

func TestSchedulerStateWalk(t *testing.T) {
	g := newSchedulerTestGame(t)
	require.Equal(t, stateIdle, g.state)

	g.start()
	require.Equal(t, stateStreaming, g.state)
	epoch := g.epoch

	// start is idempotent while streaming.
	g.start()
	require.Equal(t, epoch, g.epoch)

	// A chunk boundary freezes the active buffer and dispatches reconstruction.
	activeBefore := g.buffers.active.Load()
	g.sampleAccumulator = chunkSamples
	g.fireChunkBoundary()
	require.True(t, g.reconInFlight)
	require.NotEqual(t, activeBefore, g.buffers.active.Load())
	require.Equal(t, 0.0, g.sampleAccumulator)

	res := waitReconResult(t, g)
	require.NoError(t, res.err)
	g.applyReconResult(res)
	require.False(t, g.reconInFlight)
	require.NotZero(t, g.ring.depth())

	g.stop()
	require.Equal(t, stateIdle, g.state)
	require.Zero(t, g.ring.depth())

	// stop is idempotent while idle.
	epoch = g.epoch
	g.stop()
	require.Equal(t, epoch, g.epoch)
}

func TestOverrunDefersBoundary(t *testing.T) {
	g := newSchedulerTestGame(t)
	g.start()
	g.reconInFlight = true
	g.sampleAccumulator = chunkSamples + 5

	activeBefore := g.buffers.active.Load()
	g.fireChunkBoundary()
	require.Equal(t, activeBefore, g.buffers.active.Load(), "overrun must not swap buffers")
	require.Equal(t, float64(chunkSamples+5), g.sampleAccumulator, "overrun must keep the backlog")
}

func TestStaleEpochResultDiscarded(t *testing.T) {
	g := newSchedulerTestGame(t)
	g.start()
	g.reconInFlight = true
	g.applyReconResult(reconResult{samples: []float32{1, 1, 1}, epoch: g.epoch - 1, ringPos: 0})
	require.False(t, g.reconInFlight)
	require.Zero(t, g.ring.depth(), "stale result must not reach the ring")
	require.Equal(t, float32(0), g.ring.buf[0])
}

func TestFailedReconstructionSkipsChunk(t *testing.T) {
	g := newSchedulerTestGame(t)
	g.start()
	g.reconInFlight = true
	g.applyReconResult(reconResult{err: errTest, epoch: g.epoch})
	require.False(t, g.reconInFlight)
	require.Zero(t, g.ring.depth())
	require.Equal(t, stateStreaming, g.state, "a failed chunk must not stop the stream")
}

func TestStopDiscardsInFlightResults(t *testing.T) {
	g := newSchedulerTestGame(t)
	g.start()
	g.sampleAccumulator = chunkSamples
	g.fireChunkBoundary()
	require.True(t, g.reconInFlight)

	g.stop()
	res := waitReconResult(t, g)
	g.applyReconResult(res) // arrives after stop, must be discarded
	require.Zero(t, g.ring.depth())
}

func TestStartResetsBuffersAndCursors(t *testing.T) {
	g := newSchedulerTestGame(t)
	g.start()
	g.buffers.activeBuf().deposit([]rayHit{{timeDelay: 0, energy: 1}})
	g.buffers.activeBuf().accumFrames++
	g.ring.queue([]float32{1, 2, 3}, 0)
	g.nextRingPos = 777
	g.stop()

	g.start()
	require.Equal(t, -1, g.nextRingPos)
	require.Zero(t, g.buffers.activeBuf().accumFrames)
	require.Equal(t, float32(0), g.buffers.bufs[0].data[0])
	require.Zero(t, g.ring.depth())
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "synthetic failure" }

package main

import (
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// splitmix64 is the seed mixer behind per-tick randomness; consecutive tick
// counters map to uncorrelated seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// hitCapacity reserves one slot per potential capture. The max keeps the
// direct path representable when bounces are disabled.
func hitCapacity() int {
	bounces := *maxBouncesFlag
	if bounces < 1 {
		bounces = 1
	}
	return *rayCountFlag * bounces
}

// runTraceTick casts one full batch of rays and folds the captures into the
// active accumulation buffer. Tracing runs on the worker pool (or the OpenCL
// device) and the orchestrator blocks until every lane reports in, so the hit
// collection is complete and stable when deposit starts.
func (g *Game) runTraceTick() {
	segs := g.getSegments()
	g.hits.reset(hitCapacity())
	g.tickCounter++
	params := traceParams{
		source:         mgl64.Vec2{g.sx, g.sy},
		listener:       mgl64.Vec2{g.lx, g.ly},
		listenerRadius: *listenerRadiusFlag,
		segments:       segs,
		maxBounces:     *maxBouncesFlag,
		rayCount:       *rayCountFlag,
		tickSeed:       splitmix64(g.tickCounter),
		speedOfSound:   *speedOfSoundFlag,
		hitGain:        g.tickGain / float32(*rayCountFlag),
		bins:           g.rayBins,
		hits:           g.hits,
	}

	if g.gpuTracer != nil {
		if err := g.gpuTracer.trace(&params, g.segmentsDirtyGPU); err != nil {
			log.Printf("OpenCL trace failed, skipping tick: %v", err)
			return
		}
		g.segmentsDirtyGPU = false
	} else {
		g.workerMu.Lock()
		g.traceJob = &params
		g.workerPending = g.workerCount
		g.workerStep++
		g.workerCond.Broadcast()
		for g.workerPending > 0 {
			g.workerCond.Wait()
		}
		g.traceJob = nil
		g.workerMu.Unlock()
	}

	stored := g.hits.stored()
	active := g.buffers.activeBuf()
	g.lastDeposited = active.deposit(stored)
	active.accumFrames++
	g.lastHitCount = len(stored)
	g.lastDroppedHits = g.hits.dropped()
}

// runTraceBatch executes the configured number of refinement ticks for this
// host frame and records how long the batch took.
func (g *Game) runTraceBatch() {
	start := time.Now()
	for i := 0; i < g.tickMultiplier; i++ {
		g.runTraceTick()
	}
	g.lastSimDuration = time.Since(start)
}

package main

import (
	"math/rand"
	"sync"
)

// raySpan is a contiguous block of ray indices assigned to one worker.
type raySpan struct{ start, end int }

// assignRaySpans splits rayCount indices into near-equal contiguous blocks,
// one per worker. Trailing workers may receive an empty span when there are
// more workers than rays.
func assignRaySpans(workerCount, rayCount int) []raySpan {
	if workerCount < 1 {
		workerCount = 1
	}
	spans := make([]raySpan, workerCount)
	per := rayCount / workerCount
	rem := rayCount % workerCount
	next := 0
	for i := range spans {
		n := per
		if i < rem {
			n++
		}
		spans[i] = raySpan{start: next, end: next + n}
		next += n
	}
	return spans
}

// traceWorkerLoop executes ray casts for the spans assigned to the worker.
// Workers idle on the condition variable until the orchestrator publishes a
// new step, then drain their span and report completion.
func (g *Game) traceWorkerLoop(index int) {
	src := rand.NewSource(int64(index) + 1)
	rng := rand.New(src)
	lastStep := 0
	g.workerMu.Lock()
	for {
		for g.workerStep == lastStep {
			g.workerCond.Wait()
		}
		lastStep = g.workerStep
		job := g.traceJob
		var span raySpan
		if index < len(g.raySpans) {
			span = g.raySpans[index]
		}
		g.workerMu.Unlock()

		if job != nil && span.end > span.start {
			castRayRange(job, span.start, span.end, src, rng)
		}

		g.workerMu.Lock()
		g.workerPending--
		if g.workerPending == 0 {
			g.workerCond.Broadcast()
		}
	}
}

// startWorkers launches the background goroutines that execute trace ticks.
func (g *Game) startWorkers() {
	if g.workersStarted {
		return
	}
	if g.workerCount < 1 {
		g.workerCount = 1
	}
	if g.workerCond == nil {
		g.workerCond = sync.NewCond(&g.workerMu)
	}
	g.raySpans = assignRaySpans(g.workerCount, *rayCountFlag)
	g.workersStarted = true
	for i := 0; i < g.workerCount; i++ {
		go g.traceWorkerLoop(i)
	}
}

package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// traceParams bundles the per-tick inputs shared by every ray lane. The
// struct is read-only during a tick; the hit buffer is the only shared
// mutable state and is append-only behind its atomic cursor.
type traceParams struct {
	source         mgl64.Vec2
	listener       mgl64.Vec2
	listenerRadius float64
	segments       []boundarySegment
	maxBounces     int
	rayCount       int
	tickSeed       uint64
	speedOfSound   float64
	hitGain        float32
	bins           []int32
	hits           *hitBuffer
}

// raySeed derives the deterministic per-ray RNG seed from the tick seed and
// the ray index.
func raySeed(tickSeed uint64, rayIndex int) int64 {
	return int64(tickSeed ^ uint64(rayIndex)*0x9e3779b97f4a7c15)
}

// castRayRange traces a contiguous block of ray indices on one worker,
// reseeding the worker-owned source per ray so results do not depend on how
// indices are distributed across workers.
func castRayRange(p *traceParams, start, end int, src rand.Source, rng *rand.Rand) {
	for i := start; i < end; i++ {
		src.Seed(raySeed(p.tickSeed, i))
		castSingleRay(p, i, rng)
	}
}

// castSingleRay walks one stochastic path through the scene. Each flight leg
// is tested against the listener capture disc; each boundary interaction
// applies the surface material via Russian roulette: absorb and terminate
// with probability absorption, otherwise transmit (refracted) with
// probability transmission/(1-absorption) or reflect with the scattered
// mirror direction. Surviving energy decays by the material damping.
func castSingleRay(p *traceParams, rayIndex int, rng *rand.Rand) {
	dir := unitDirFromAngle(rng.Float64() * 2 * math.Pi)
	jitterR := float64(emitterRad) * math.Sqrt(rng.Float64())
	origin := p.source.Add(unitDirFromAngle(rng.Float64() * 2 * math.Pi).Mul(jitterR))

	energy := float32(1.0)
	bin := int32(rng.Intn(frequencyBins))
	if p.bins != nil && rayIndex < len(p.bins) {
		bin = p.bins[rayIndex]
	}

	pathLen := 0.0
	for bounce := 0; ; bounce++ {
		legT, segIdx, found := nearestSegmentHit(origin, dir, p.segments)
		if !found {
			// Border segments close the scene; a miss means the origin
			// escaped through a corner seam. Nothing left to capture.
			return
		}
		if capT, ok := closestApproach(origin, dir, legT, p.listener, p.listenerRadius); ok {
			capturePoint := origin.Add(dir.Mul(capT))
			delay := (pathLen + capT) * metersPerCell / p.speedOfSound
			p.hits.tryAppend(rayHit{
				timeDelay:    float32(delay),
				energy:       energy * p.hitGain,
				frequencyBin: bin,
				hitPoint:     [2]float32{float32(capturePoint.X()), float32(capturePoint.Y())},
			})
		}
		if bounce >= p.maxBounces {
			return
		}

		seg := &p.segments[segIdx]
		m := seg.mat
		pathLen += legT
		point := origin.Add(dir.Mul(legT))

		if rng.Float64() < m.absorption {
			return
		}
		pTransmit := 0.0
		if remainder := 1 - m.absorption; remainder > 0 {
			pTransmit = m.transmission / remainder
			if pTransmit > 1 {
				pTransmit = 1
			}
		}
		if rng.Float64() < pTransmit {
			dir = refractDir(dir, seg.normal, m.iorFactor)
		} else {
			dir = scatterDir(dir, seg.normal, m.scattering, rng)
		}
		energy *= float32(1 - m.damping)
		if energy < minRayEnergy {
			return
		}
		origin = point.Add(dir.Mul(surfaceOffset))
	}
}

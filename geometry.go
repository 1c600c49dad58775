package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const parallelEpsilon = 1e-9

// surfaceOffset is how far a bounced ray origin is nudged along the new
// direction so the next intersection test does not rediscover the same
// segment at t = 0.
const surfaceOffset = 1e-4

func cross2(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

func rotateVec(v mgl64.Vec2, angle float64) mgl64.Vec2 {
	sin, cos := math.Sincos(angle)
	return mgl64.Vec2{v.X()*cos - v.Y()*sin, v.X()*sin + v.Y()*cos}
}

// intersectSegment solves origin + t*dir = start + u*(end-start) for the
// boundary segment. Reports the ray parameter t when t > 0 and u lands on
// the segment.
func intersectSegment(origin, dir mgl64.Vec2, seg *boundarySegment) (float64, bool) {
	edge := seg.end.Sub(seg.start)
	perp := mgl64.Vec2{-dir.Y(), dir.X()}
	denom := edge.Dot(perp)
	if math.Abs(denom) < parallelEpsilon {
		return 0, false
	}
	rel := origin.Sub(seg.start)
	u := rel.Dot(perp) / denom
	if u < 0 || u > 1 {
		return 0, false
	}
	t := cross2(edge, rel) / denom
	if t <= surfaceOffset {
		return 0, false
	}
	return t, true
}

// nearestSegmentHit scans all segments and returns the closest forward
// intersection, or ok=false when the ray exits the scene.
func nearestSegmentHit(origin, dir mgl64.Vec2, segs []boundarySegment) (float64, int, bool) {
	bestT := math.Inf(1)
	bestIdx := -1
	for i := range segs {
		if t, ok := intersectSegment(origin, dir, &segs[i]); ok && t < bestT {
			bestT = t
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, -1, false
	}
	return bestT, bestIdx, true
}

// closestApproach finds the parameter along [origin, origin+dir*maxT] that
// comes nearest to center, and reports whether that point falls inside the
// capture disc.
func closestApproach(origin, dir mgl64.Vec2, maxT float64, center mgl64.Vec2, radius float64) (float64, bool) {
	t := center.Sub(origin).Dot(dir)
	if t < 0 {
		t = 0
	} else if t > maxT {
		t = maxT
	}
	point := origin.Add(dir.Mul(t))
	if point.Sub(center).Len() > radius {
		return 0, false
	}
	return t, true
}

// reflectDir mirrors dir across the surface normal.
func reflectDir(dir, normal mgl64.Vec2) mgl64.Vec2 {
	return dir.Sub(normal.Mul(2 * dir.Dot(normal)))
}

// refractDir bends dir through the surface according to the material's
// index-of-refraction factor. Total internal reflection falls back to the
// mirror direction.
func refractDir(dir, normal mgl64.Vec2, iorFactor float64) mgl64.Vec2 {
	n := normal
	cosI := -dir.Dot(n)
	if cosI < 0 {
		n = n.Mul(-1)
		cosI = -cosI
	}
	eta := 1.0 / (1.0 + iorFactor)
	sinT2 := eta * eta * (1 - cosI*cosI)
	if sinT2 > 1 {
		return reflectDir(dir, n)
	}
	cosT := math.Sqrt(1 - sinT2)
	return dir.Mul(eta).Add(n.Mul(eta*cosI - cosT)).Normalize()
}

// scatterDir blends the mirror reflection with a random direction in the
// reflecting half-plane. scattering 0 is a pure mirror, 1 fully diffuse.
func scatterDir(dir, normal mgl64.Vec2, scattering float64, rng *rand.Rand) mgl64.Vec2 {
	n := normal
	if dir.Dot(n) > 0 {
		n = n.Mul(-1)
	}
	mirror := reflectDir(dir, n)
	if scattering <= 0 {
		return mirror
	}
	diffuse := rotateVec(n, (rng.Float64()-0.5)*math.Pi)
	out := mirror.Mul(1 - scattering).Add(diffuse.Mul(scattering))
	if l := out.Len(); l > parallelEpsilon {
		out = out.Mul(1 / l)
		if out.Dot(n) > 0 {
			return out
		}
	}
	return mirror
}

// unitDirFromAngle returns the unit vector at the given angle.
func unitDirFromAngle(angle float64) mgl64.Vec2 {
	sin, cos := math.Sincos(angle)
	return mgl64.Vec2{cos, sin}
}

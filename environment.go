package main

import (
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// material holds the acoustic coefficients of a boundary surface. All values
// live in [0,1]; absorption+transmission never exceeds 1 so the reflected
// remainder cannot amplify.
type material struct {
	absorption   float64
	scattering   float64
	transmission float64
	iorFactor    float64
	damping      float64
}

// boundarySegment is one face of the scene geometry with its outward normal
// and surface material. Segments are immutable snapshots; the set is rebuilt
// wholesale whenever the wall grid changes.
type boundarySegment struct {
	start  mgl64.Vec2
	end    mgl64.Vec2
	normal mgl64.Vec2
	mat    material
}

// wallPalette is the set of surface types assigned to procedural wall runs.
var wallPalette = []material{
	{absorption: 0.12, scattering: 0.20, transmission: 0.00, iorFactor: 0.0, damping: 0.02},
	{absorption: 0.30, scattering: 0.55, transmission: 0.00, iorFactor: 0.0, damping: 0.05},
	{absorption: 0.05, scattering: 0.05, transmission: 0.25, iorFactor: 0.4, damping: 0.01},
	{absorption: 0.45, scattering: 0.70, transmission: 0.00, iorFactor: 0.0, damping: 0.10},
}

// edgeMaterial covers the four scene border walls.
var edgeMaterial = material{absorption: 0.10, scattering: 0.15, transmission: 0.0, iorFactor: 0.0, damping: 0.02}

// generateWalls procedurally creates wall runs within the grid and assigns
// each run a palette material.
func (g *Game) generateWalls() {
	if len(g.walls) != w*h {
		g.walls = make([]bool, w*h)
		g.wallMat = make([]uint8, w*h)
	} else {
		for i := range g.walls {
			g.walls[i] = false
			g.wallMat[i] = 0
		}
	}
	if g.levelRand == nil {
		g.levelRand = rand.New(rand.NewSource(time.Now().UnixNano() + 1))
	}
	for s := 0; s < wallSegments; s++ {
		lengthRange := wallMaxLen - wallMinLen + 1
		if lengthRange <= 0 {
			lengthRange = 1
		}
		length := wallMinLen + g.levelRand.Intn(lengthRange)
		thickness := 1
		if wallThicknessVariance > 0 {
			thickness += g.levelRand.Intn(wallThicknessVariance + 1)
		}
		matIdx := uint8(g.levelRand.Intn(len(wallPalette)))
		horizontal := g.levelRand.Intn(2) == 0
		x := g.levelRand.Intn(w-4) + 2
		y := g.levelRand.Intn(h-4) + 2
		dx, dy := 0, 1
		if horizontal {
			dx, dy = 1, 0
		}
		perpX, perpY := dy, dx
		cx, cy := x, y
		for l := 0; l < length; l++ {
			if cx <= 1 || cx >= w-1 || cy <= 1 || cy >= h-1 {
				break
			}
			for t := -thickness; t <= thickness; t++ {
				tx := cx + perpX*t
				ty := cy + perpY*t
				g.trySetWall(tx, ty, matIdx)
			}
			cx += dx
			cy += dy
		}
	}
	g.markGeometryDirty()
	g.lastAudCX, g.lastAudCY = -1, -1
}

// trySetWall marks a grid cell as a wall while enforcing spacing from the source.
func (g *Game) trySetWall(x, y int, matIdx uint8) {
	if x <= 1 || x >= w-1 || y <= 1 || y >= h-1 {
		return
	}
	dx := float64(x) - g.sx
	dy := float64(y) - g.sy
	if dx*dx+dy*dy < float64(wallExclusionRadius*wallExclusionRadius) {
		return
	}
	idx := y*w + x
	g.walls[idx] = true
	g.wallMat[idx] = matIdx
	g.geometryDirty = true
}

// isWall reports whether the coordinates reference a wall cell.
func (g *Game) isWall(x, y int) bool {
	if x < 0 || x >= w || y < 0 || y >= h {
		return true
	}
	if len(g.walls) == 0 {
		return false
	}
	return g.walls[y*w+x]
}

// markGeometryDirty forces segment re-extraction before the next trace tick.
func (g *Game) markGeometryDirty() {
	g.geometryDirty = true
}

// getSegments returns the current boundary snapshot, rebuilding it when the
// wall grid changed. Static layouts rebuild exactly once.
func (g *Game) getSegments() []boundarySegment {
	if g.geometryDirty || g.segments == nil {
		g.segments = extractSegments(g.walls, g.wallMat)
		g.geometryDirty = false
		g.segmentsDirtyGPU = true
	}
	return g.segments
}

// extractSegments merges wall-cell faces into axis-aligned boundary segments.
// A face exists wherever a wall cell borders a non-wall cell; colinear faces
// sharing the same exposure merge into one segment carrying the material of
// the run's first cell.
func extractSegments(walls []bool, wallMat []uint8) []boundarySegment {
	segs := make([]boundarySegment, 0, 256)
	segs = append(segs,
		boundarySegment{start: mgl64.Vec2{0, 0}, end: mgl64.Vec2{w, 0}, normal: mgl64.Vec2{0, 1}, mat: edgeMaterial},
		boundarySegment{start: mgl64.Vec2{0, h}, end: mgl64.Vec2{w, h}, normal: mgl64.Vec2{0, -1}, mat: edgeMaterial},
		boundarySegment{start: mgl64.Vec2{0, 0}, end: mgl64.Vec2{0, h}, normal: mgl64.Vec2{1, 0}, mat: edgeMaterial},
		boundarySegment{start: mgl64.Vec2{w, 0}, end: mgl64.Vec2{w, h}, normal: mgl64.Vec2{-1, 0}, mat: edgeMaterial},
	)
	wallAt := func(x, y int) bool {
		if x < 0 || x >= w || y < 0 || y >= h {
			return false
		}
		return walls[y*w+x]
	}
	// Horizontal faces: runs along x exposed above (off=-1) or below (off=+1).
	for y := 0; y < h; y++ {
		for _, off := range [2]int{-1, 1} {
			x := 0
			for x < w {
				if !wallAt(x, y) || wallAt(x, y+off) {
					x++
					continue
				}
				start := x
				for x < w && wallAt(x, y) && !wallAt(x, y+off) {
					x++
				}
				fy := float64(y + 1)
				if off < 0 {
					fy = float64(y)
				}
				segs = append(segs, boundarySegment{
					start:  mgl64.Vec2{float64(start), fy},
					end:    mgl64.Vec2{float64(x), fy},
					normal: mgl64.Vec2{0, float64(off)},
					mat:    wallPalette[wallMat[y*w+start]],
				})
			}
		}
	}
	// Vertical faces: runs along y exposed left (off=-1) or right (off=+1).
	for x := 0; x < w; x++ {
		for _, off := range [2]int{-1, 1} {
			y := 0
			for y < h {
				if !wallAt(x, y) || wallAt(x+off, y) {
					y++
					continue
				}
				start := y
				for y < h && wallAt(x, y) && !wallAt(x+off, y) {
					y++
				}
				fx := float64(x + 1)
				if off < 0 {
					fx = float64(x)
				}
				segs = append(segs, boundarySegment{
					start:  mgl64.Vec2{fx, float64(start)},
					end:    mgl64.Vec2{fx, float64(y)},
					normal: mgl64.Vec2{float64(off), 0},
					mat:    wallPalette[wallMat[start*w+x]],
				})
			}
		}
	}
	return segs
}

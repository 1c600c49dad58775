package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestExtractSegmentsSingleCell(t *testing.T) {
	walls := make([]bool, w*h)
	mats := make([]uint8, w*h)
	walls[10*w+10] = true
	mats[10*w+10] = 2

	segs := extractSegments(walls, mats)
	// Four border walls plus four faces of the lone cell.
	if len(segs) != 8 {
		t.Fatalf("got %d segments, want 8", len(segs))
	}
	faces := segs[4:]
	wantNormals := map[mgl64.Vec2]bool{
		{0, -1}: false, {0, 1}: false, {-1, 0}: false, {1, 0}: false,
	}
	for _, s := range faces {
		if s.mat != wallPalette[2] {
			t.Fatalf("face carries wrong material: %+v", s.mat)
		}
		if _, ok := wantNormals[s.normal]; !ok {
			t.Fatalf("unexpected face normal %v", s.normal)
		}
		wantNormals[s.normal] = true
	}
	for n, seen := range wantNormals {
		if !seen {
			t.Fatalf("missing face with normal %v", n)
		}
	}
}

func TestExtractSegmentsMergesRuns(t *testing.T) {
	walls := make([]bool, w*h)
	mats := make([]uint8, w*h)
	for x := 20; x < 23; x++ {
		walls[15*w+x] = true
		mats[15*w+x] = 1
	}
	segs := extractSegments(walls, mats)
	// Border (4) + top run + bottom run + left cap + right cap.
	if len(segs) != 8 {
		t.Fatalf("got %d segments, want 8", len(segs))
	}
	for _, s := range segs[4:] {
		length := s.end.Sub(s.start).Len()
		switch s.normal {
		case mgl64.Vec2{0, -1}, mgl64.Vec2{0, 1}:
			if length != 3 {
				t.Fatalf("run face length %g, want 3", length)
			}
		case mgl64.Vec2{-1, 0}, mgl64.Vec2{1, 0}:
			if length != 1 {
				t.Fatalf("cap face length %g, want 1", length)
			}
		default:
			t.Fatalf("unexpected normal %v", s.normal)
		}
	}
}

func TestExtractSegmentsBordersAlwaysPresent(t *testing.T) {
	segs := extractSegments(make([]bool, w*h), make([]uint8, w*h))
	if len(segs) != 4 {
		t.Fatalf("empty scene has %d segments, want 4 borders", len(segs))
	}
	for _, s := range segs {
		if s.mat != edgeMaterial {
			t.Fatalf("border carries non-edge material")
		}
	}
}

func TestWallExclusionRadius(t *testing.T) {
	g := &Game{sx: 100, sy: 100}
	g.walls = make([]bool, w*h)
	g.wallMat = make([]uint8, w*h)
	g.trySetWall(100, 102, 0) // inside the exclusion radius
	if g.walls[102*w+100] {
		t.Fatalf("wall placed inside the source exclusion radius")
	}
	g.trySetWall(100, 100+wallExclusionRadius+1, 0)
	if !g.walls[(100+wallExclusionRadius+1)*w+100] {
		t.Fatalf("wall rejected outside the exclusion radius")
	}
}

func TestGetSegmentsRebuildsOnlyWhenDirty(t *testing.T) {
	g := &Game{sx: 1, sy: 1}
	g.walls = make([]bool, w*h)
	g.wallMat = make([]uint8, w*h)
	g.markGeometryDirty()

	first := g.getSegments()
	second := g.getSegments()
	if &first[0] != &second[0] {
		t.Fatalf("clean geometry was rebuilt")
	}
	if !g.segmentsDirtyGPU {
		t.Fatalf("rebuild did not flag the device copy stale")
	}
	g.markGeometryDirty()
	third := g.getSegments()
	if &first[0] == &third[0] {
		t.Fatalf("dirty geometry was not rebuilt")
	}
}

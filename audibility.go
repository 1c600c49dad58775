package main

import "math"

// refreshAudibleMask recomputes which cells have an unoccluded direct path to
// the listener. Sound wraps around the listener in every direction, so the
// mask is a full-circle shadowcast rather than a vision cone. The stamp slice
// is generation-tagged to avoid clearing the whole grid on every move.
func (g *Game) refreshAudibleMask() {
	if len(g.audibleStamp) != w*h {
		g.audibleStamp = make([]uint32, w*h)
	}
	cx := clampCoord(int(math.Round(g.lx)), 0, w-1)
	cy := clampCoord(int(math.Round(g.ly)), 0, h-1)
	if g.lastAudCX == cx && g.lastAudCY == cy {
		return
	}
	if g.audibleGen == ^uint32(0) {
		for i := range g.audibleStamp {
			g.audibleStamp[i] = 0
		}
		g.audibleGen = 1
	} else {
		g.audibleGen++
	}
	g.audibleStamp[cy*w+cx] = g.audibleGen
	maxLeft := cx
	maxRight := (w - 1) - cx
	maxUp := cy
	maxDown := (h - 1) - cy
	radius := maxLeft
	if maxRight > radius {
		radius = maxRight
	}
	if maxUp > radius {
		radius = maxUp
	}
	if maxDown > radius {
		radius = maxDown
	}
	g.computeAudibleShadow(cx, cy, radius)
	audCount := 0
	for i := 0; i < w*h; i++ {
		if g.audibleStamp[i] == g.audibleGen {
			audCount++
			if audCount > 128 {
				break
			}
		}
	}
	if audCount <= 1 {
		// Listener pinched inside geometry; perimeter rays still find any
		// sliver of open space.
		for _, target := range audPerimeterTargets {
			g.castAudibilityRay(cx, cy, target.x, target.y)
		}
	}
	g.lastAudCX, g.lastAudCY = cx, cy
}

// computeAudibleShadow performs symmetrical shadowcasting over all eight octants.
func (g *Game) computeAudibleShadow(cx, cy, radius int) {
	oct := [8][4]int{
		{1, 0, 0, 1},
		{0, 1, 1, 0},
		{-1, 0, 0, 1},
		{0, 1, -1, 0},
		{-1, 0, 0, -1},
		{0, -1, -1, 0},
		{1, 0, 0, -1},
		{0, -1, 1, 0},
	}
	for i := 0; i < 8; i++ {
		g.castShadowOctant(cx, cy, 1, 1.0, 0.0, radius, oct[i][0], oct[i][1], oct[i][2], oct[i][3])
	}
}

// castShadowOctant recursively explores an octant collecting audible cells.
func (g *Game) castShadowOctant(cx, cy, row int, startSlope, endSlope float64, radius int, xx, xy, yx, yy int) {
	if startSlope < endSlope {
		return
	}
	radiusSq := radius * radius
	for i := row; i <= radius; i++ {
		blocked := false
		newStart := 0.0
		for dx := -i; dx <= 0; dx++ {
			dy := -i
			lSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			rSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)
			if rSlope > startSlope {
				continue
			}
			if lSlope < endSlope {
				break
			}
			X := cx + dx*xx + dy*xy
			Y := cy + dx*yx + dy*yy
			if X < 0 || X >= w || Y < 0 || Y >= h {
				continue
			}
			if dx*dx+dy*dy <= radiusSq {
				g.audibleStamp[Y*w+X] = g.audibleGen
			}
			wall := g.isWall(X, Y)
			if blocked {
				if wall {
					newStart = rSlope
					continue
				}
				blocked = false
				startSlope = newStart
			} else if wall && i < radius {
				blocked = true
				g.castShadowOctant(cx, cy, i+1, startSlope, lSlope, radius, xx, xy, yx, yy)
				newStart = rSlope
			}
		}
		if blocked {
			break
		}
	}
}

// castAudibilityRay performs a Bresenham ray cast to mark audible cells.
func (g *Game) castAudibilityRay(x0, y0, x1, y1 int) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if x0 < 0 || x0 >= w || y0 < 0 || y0 >= h {
			break
		}
		idx := y0*w + x0
		g.audibleStamp[idx] = g.audibleGen
		if g.isWall(x0, y0) && !(x0 == x1 && y0 == y1) {
			break
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// wallShades colors each palette material for the wall overlay. Index matches
// wallPalette.
var wallShades = [...]color.RGBA{
	{30, 40, 80, 255},
	{60, 50, 40, 255},
	{40, 70, 90, 255},
	{70, 35, 55, 255},
}

// Draw renders the scene background, wall geometry, the decaying ray-hit
// overlay, the source and listener, and the optional debug text.
func (g *Game) Draw(screen *ebiten.Image) {
	if len(g.pixelBuf) != w*h*4 {
		g.pixelBuf = make([]byte, w*h*4)
	}
	if len(g.hitOverlay) != w*h {
		g.hitOverlay = make([]float32, w*h)
	}

	for i := range g.hitOverlay {
		g.hitOverlay[i] *= hitOverlayDecay
	}
	if *showHitsFlag {
		for _, pt := range g.lastHitPoints(maxDebugHits) {
			cx := int(pt[0])
			cy := int(pt[1])
			if cx < 0 || cx >= w || cy < 0 || cy >= h {
				continue
			}
			idx := cy*w + cx
			g.hitOverlay[idx] += 0.35
			if g.hitOverlay[idx] > 1 {
				g.hitOverlay[idx] = 1
			}
		}
	}

	occlude := *occludeAudibilityFlag && len(g.audibleStamp) == w*h
	drawWalls := *showWallsFlag && len(g.walls) == w*h
	for i := 0; i < w*h; i++ {
		r, gr, b := 12.0, 14.0, 18.0
		if v := float64(g.hitOverlay[i]); v > 0.01 {
			r += v * 230
			gr += v * 140
			b += v * 30
		}
		if occlude && g.audibleStamp[i] != g.audibleGen {
			r *= 0.35
			gr *= 0.35
			b *= 0.35
		}
		if drawWalls && g.walls[i] {
			shade := wallShades[int(g.wallMat[i])%len(wallShades)]
			r, gr, b = float64(shade.R), float64(shade.G), float64(shade.B)
		}
		base := i * 4
		g.pixelBuf[base] = clampByte(r)
		g.pixelBuf[base+1] = clampByte(gr)
		g.pixelBuf[base+2] = clampByte(b)
		g.pixelBuf[base+3] = 255
	}
	screen.WritePixels(g.pixelBuf)

	for _, off := range sourceFootprint {
		cx := int(g.sx) + off.dx
		cy := int(g.sy) + off.dy
		if cx >= 0 && cx < w && cy >= 0 && cy < h {
			screen.Set(cx, cy, color.RGBA{255, 0, 0, 255})
		}
	}
	g.drawListener(screen)

	if *debugFlag {
		fps := ebiten.ActualFPS()
		tps := ebiten.ActualTPS()
		if tps < 0 {
			tps = 0
		}
		_, _, depth := g.ringStats()
		active := g.buffers.activeBuf()
		stateName := "idle"
		if g.state == stateStreaming {
			stateName = "streaming"
		}
		inputPos := 0
		if g.input != nil {
			inputPos = g.input.offset()
		}
		simMS := g.lastSimDuration.Seconds() * 1000
		debugMsg := fmt.Sprintf("FPS: %.1f / TPS: %.1f\nState: %s (mult %dx, +/-)\nTrace: %.2f ms, %d hits (%d deposited, %d dropped)\nFrames: %d  Ring: %d  Input: %d",
			fps, tps, stateName, g.tickMultiplier, simMS,
			g.lastHitCount, g.lastDeposited, g.lastDroppedHits,
			active.accumFrames, depth, inputPos)
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}

// Layout reports the logical screen size used by Ebiten.
func (g *Game) Layout(_, _ int) (int, int) { return w, h }

// drawListener renders the capture disc outline and a tether back to the source.
func (g *Game) drawListener(screen *ebiten.Image) {
	cx := clampCoord(int(math.Round(g.lx)), 0, w-1)
	cy := clampCoord(int(math.Round(g.ly)), 0, h-1)
	drawLine(screen, int(g.sx), int(g.sy), cx, cy, color.RGBA{0, 120, 90, 120})

	radius := *listenerRadiusFlag
	if radius < 2 {
		radius = 2
	}
	steps := int(radius * 8)
	if steps < 12 {
		steps = 12
	}
	for s := 0; s < steps; s++ {
		angle := float64(s) / float64(steps) * 2 * math.Pi
		px := cx + int(math.Round(math.Cos(angle)*radius))
		py := cy + int(math.Round(math.Sin(angle)*radius))
		if px >= 0 && px < w && py >= 0 && py < h {
			screen.Set(px, py, color.RGBA{0, 255, 200, 255})
		}
	}
	screen.Set(cx, cy, color.RGBA{0, 255, 200, 255})
}

// drawLine plots a line segment using Bresenham's integer algorithm.
func drawLine(screen *ebiten.Image, x0, y0, x1, y1 int, clr color.Color) {
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
		if x0 >= 0 && x0 < w && y0 >= 0 && y0 < h {
			screen.Set(x0, y0, clr)
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

func clampByte(v float64) byte {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return byte(v)
}

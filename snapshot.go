package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// irDumpMagic identifies binary16 accumulation-buffer dump files.
const irDumpMagic = "ARIR"

// frozenSnapshot copies the most recently frozen accumulation buffer for
// external inspection. The frozen buffer is read-only until its next
// activation, so the copy races with nothing and never blocks the engine.
func (g *Game) frozenSnapshot() (data []float32, timeSteps, bins, accumFrames int) {
	frozen := g.buffers.frozenBuf()
	data = make([]float32, len(frozen.data))
	copy(data, frozen.data)
	return data, frozen.timeSteps, frozen.bins, frozen.accumFrames
}

// lastHitPoints copies up to max capture points from the previous trace tick.
// Valid between the end of a tick and the next tick's reset.
func (g *Game) lastHitPoints(max int) [][2]float32 {
	stored := g.hits.stored()
	if max > 0 && len(stored) > max {
		stored = stored[:max]
	}
	points := make([][2]float32, len(stored))
	for i := range stored {
		points[i] = stored[i].hitPoint
	}
	return points
}

// ringStats reports the streaming ring cursors and queued depth.
func (g *Game) ringStats() (readHead, writeHead, depth int) {
	readHead, writeHead = g.ring.cursors()
	depth = (writeHead - readHead + ringBufferSize) % ringBufferSize
	return readHead, writeHead, depth
}

// dumpFrozenIR writes the frozen buffer to path as a binary16 dump:
// a 4-byte magic, uint16 version, uint16 bins, uint32 time steps,
// uint32 refinement count, then the buffer converted to IEEE binary16,
// all little endian.
func (g *Game) dumpFrozenIR(path string) error {
	data, timeSteps, bins, accumFrames := g.frozenSnapshot()
	half := make([]uint16, len(data))
	float32ToFloat16(half, data)

	var buf bytes.Buffer
	buf.WriteString(irDumpMagic)
	header := []any{
		uint16(1),
		uint16(bins),
		uint32(timeSteps),
		uint32(accumFrames),
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encoding dump header: %w", err)
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, half); err != nil {
		return fmt.Errorf("encoding dump payload: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

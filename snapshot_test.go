package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestFrozenSnapshotIsACopy(t *testing.T) {
	g := &Game{buffers: newBufferPair(true, 0.01)}
	g.buffers.activeBuf().deposit([]rayHit{{timeDelay: 0, energy: 1}})
	g.buffers.activeBuf().accumFrames++
	g.buffers.swap()

	data, steps, bins, frames := g.frozenSnapshot()
	if steps != 480 || bins != 1 || frames != 1 {
		t.Fatalf("snapshot geometry %d/%d/%d", steps, bins, frames)
	}
	if data[0] != 1 {
		t.Fatalf("snapshot lost contents: %g", data[0])
	}
	data[0] = 99
	if g.buffers.frozenBuf().data[0] != 1 {
		t.Fatalf("snapshot aliases the frozen buffer")
	}
}

func TestDumpFrozenIR(t *testing.T) {
	g := &Game{buffers: newBufferPair(true, 0.01)}
	g.buffers.activeBuf().deposit([]rayHit{{timeDelay: 0.001, energy: 0.5}})
	g.buffers.activeBuf().accumFrames++
	g.buffers.swap()

	path := filepath.Join(t.TempDir(), "ir.bin")
	if err := g.dumpFrozenIR(path); err != nil {
		t.Fatalf("dump: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if string(raw[:4]) != irDumpMagic {
		t.Fatalf("bad magic %q", raw[:4])
	}
	bins := binary.LittleEndian.Uint16(raw[6:8])
	steps := binary.LittleEndian.Uint32(raw[8:12])
	frames := binary.LittleEndian.Uint32(raw[12:16])
	if bins != 1 || steps != 480 || frames != 1 {
		t.Fatalf("header %d/%d/%d", bins, steps, frames)
	}
	payload := raw[16:]
	if len(payload) != 480*2 {
		t.Fatalf("payload %d bytes, want %d", len(payload), 480*2)
	}
	idx := 48 // round(0.001 * 48000)
	got := float16BitsToFloat32(binary.LittleEndian.Uint16(payload[idx*2 : idx*2+2]))
	if diff := float64(got) - 0.5; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("payload[%d] = %g, want 0.5", idx, got)
	}
}

func TestLastHitPointsBounded(t *testing.T) {
	g := &Game{hits: newHitBuffer(8)}
	for i := 0; i < 8; i++ {
		g.hits.tryAppend(rayHit{hitPoint: [2]float32{float32(i), 0}})
	}
	points := g.lastHitPoints(3)
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	points = g.lastHitPoints(0)
	if len(points) != 8 {
		t.Fatalf("unbounded snapshot returned %d points", len(points))
	}
}

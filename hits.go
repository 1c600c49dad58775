package main

import "sync/atomic"

// rayHit records one captured arrival at the listener. Hits are produced in
// unordered parallel fashion; nothing downstream may depend on their order.
type rayHit struct {
	timeDelay    float32
	energy       float32
	frequencyBin int32
	hitPoint     [2]float32
}

// hitBuffer is a bounded append-only collection with an atomic write cursor.
// Appends past capacity are dropped; the drop count is kept for diagnostics.
type hitBuffer struct {
	hits   []rayHit
	cursor atomic.Int64
}

func newHitBuffer(capacity int) *hitBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &hitBuffer{hits: make([]rayHit, capacity)}
}

// reset prepares the buffer for a new tick, growing it when the configured
// capacity changed.
func (b *hitBuffer) reset(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if cap(b.hits) < capacity {
		b.hits = make([]rayHit, capacity)
	}
	b.hits = b.hits[:capacity]
	b.cursor.Store(0)
}

// tryAppend publishes a hit unless the buffer is full.
func (b *hitBuffer) tryAppend(hit rayHit) bool {
	idx := b.cursor.Add(1) - 1
	if idx >= int64(len(b.hits)) {
		return false
	}
	b.hits[idx] = hit
	return true
}

// count returns how many hits were stored, clamped to capacity.
func (b *hitBuffer) count() int {
	n := b.cursor.Load()
	if n > int64(len(b.hits)) {
		return len(b.hits)
	}
	return int(n)
}

// dropped returns how many appends exceeded capacity this tick.
func (b *hitBuffer) dropped() int {
	n := b.cursor.Load()
	if n <= int64(len(b.hits)) {
		return 0
	}
	return int(n) - len(b.hits)
}

// stored exposes the populated prefix for deposit and snapshotting. Only
// valid between the end of a tick and the next reset.
func (b *hitBuffer) stored() []rayHit {
	return b.hits[:b.count()]
}

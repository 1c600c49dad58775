package main

import (
	"sync"
	"testing"
)

func TestHitBufferCapacityClamp(t *testing.T) {
	b := newHitBuffer(4)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.tryAppend(rayHit{energy: float32(i)})
		}(i)
	}
	wg.Wait()
	if b.count() != 4 {
		t.Fatalf("count = %d, want 4", b.count())
	}
	if b.dropped() != 6 {
		t.Fatalf("dropped = %d, want 6", b.dropped())
	}
	if len(b.stored()) != 4 {
		t.Fatalf("stored %d hits, want 4", len(b.stored()))
	}
}

func TestHitBufferResetGrows(t *testing.T) {
	b := newHitBuffer(2)
	b.tryAppend(rayHit{energy: 1})
	b.reset(8)
	if b.count() != 0 {
		t.Fatalf("count = %d after reset", b.count())
	}
	for i := 0; i < 8; i++ {
		if !b.tryAppend(rayHit{energy: float32(i)}) {
			t.Fatalf("append %d rejected below capacity", i)
		}
	}
	if b.tryAppend(rayHit{}) {
		t.Fatalf("append accepted past capacity")
	}
	if b.count() != 8 || b.dropped() != 1 {
		t.Fatalf("count=%d dropped=%d, want 8/1", b.count(), b.dropped())
	}
}

func TestHitBufferMinimumCapacity(t *testing.T) {
	b := newHitBuffer(0)
	if !b.tryAppend(rayHit{energy: 1}) {
		t.Fatalf("zero-capacity buffer should clamp to one slot")
	}
	b.reset(-3)
	if len(b.hits) != 1 {
		t.Fatalf("reset(-3) left capacity %d", len(b.hits))
	}
}

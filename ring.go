package main

import "sync"

// streamRing is the fixed-capacity circular float buffer between the chunk
// producer and the audio device. Writes are additive so consecutive
// reconstructed chunks overlap-add their reverb tails; the device read drains
// each cell back to zero. Producer and consumer share only the mutex, and
// neither holds it for longer than one chunk or one read request.
type streamRing struct {
	mu        sync.Mutex
	buf       []float32
	readHead  int
	writeHead int
	dc        float32
}

func newStreamRing(size int) *streamRing {
	if size < 1 {
		size = 1
	}
	return &streamRing{buf: make([]float32, size)}
}

// queue adds every sample of chunk into the ring starting at pos. A negative
// pos selects the default slot just ahead of the read cursor. Returns the
// position actually used so the caller can schedule the following chunk
// consecutively.
func (r *streamRing) queue(chunk []float32, pos int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	if pos < 0 {
		pos = r.readHead + latencyChunks*chunkSamples
	}
	pos %= size
	if pos < 0 {
		pos += size
	}
	idx := pos
	for _, v := range chunk {
		r.buf[idx] += v
		idx++
		if idx == size {
			idx = 0
		}
	}
	r.writeHead = (pos + len(chunk)) % size
	return pos
}

// defaultWritePos reports where the next chunk would land without an explicit
// position: the read cursor plus the configured lookahead.
func (r *streamRing) defaultWritePos() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (r.readHead + latencyChunks*chunkSamples) % len(r.buf)
}

// silence zeroes the buffer contents and collapses the write cursor onto the
// read cursor, leaving both in range.
func (r *streamRing) silence() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.writeHead = r.readHead
	r.dc = 0
}

// depth reports the queued distance between write and read cursors.
func (r *streamRing) depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (r.writeHead - r.readHead + len(r.buf)) % len(r.buf)
}

// cursors returns the current read and write positions.
func (r *streamRing) cursors() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readHead, r.writeHead
}

// Read implements io.Reader for the audio player. One ring sample becomes one
// stereo int16 frame; the cell is zeroed after reading so late overlap-adds
// land on a drained ring. Empty cells play as silence, never blocking the
// device callback.
func (r *streamRing) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	frameBytes := len(p) - len(p)%audioFrameBytes
	if frameBytes == 0 {
		return 0, nil
	}
	r.mu.Lock()
	size := len(r.buf)
	for i := 0; i < frameBytes; i += audioFrameBytes {
		v := r.buf[r.readHead]
		r.buf[r.readHead] = 0
		r.readHead++
		if r.readHead == size {
			r.readHead = 0
		}
		// AC coupling: remove a slowly varying DC component.
		r.dc += dcBlockAlpha * (v - r.dc)
		v -= r.dc
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		sample := int16(v * pcm16MaxValue)
		p[i] = byte(sample)
		p[i+1] = byte(sample >> 8)
		p[i+2] = p[i]
		p[i+3] = p[i+1]
	}
	r.mu.Unlock()
	return frameBytes, nil
}

func (r *streamRing) Close() error { return nil }

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// loadLoopSamples decodes the WAV at path and returns stereo-averaged samples at sampleRate.
func loadLoopSamples(sampleRate int, path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	stream, err := wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	decoded, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("reading decoded %q: %w", path, err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("wav %q has no audio data", path)
	}
	samples := decodeStereoI16ToFloat(decoded)
	if len(samples) == 0 {
		return nil, fmt.Errorf("wav %q has no usable samples", path)
	}
	return samples, nil
}

func decodeStereoI16ToFloat(pcm []byte) []float32 {
	frameCount := len(pcm) / 4
	if frameCount == 0 {
		return nil
	}
	samples := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		offset := i * 4
		left := int16(binary.LittleEndian.Uint16(pcm[offset : offset+2]))
		right := int16(binary.LittleEndian.Uint16(pcm[offset+2 : offset+4]))
		samples[i] = (float32(left) + float32(right)) * (0.5 / 32768.0)
	}
	return samples
}

// chunkSource serves the dry input signal in fixed chunks. With loop enabled
// the cursor wraps to offset 0 at end-of-input, so after streaming k samples
// past the end the read offset is k mod len(samples). Without loop the final
// partial chunk is zero-padded and every later pull reports exhaustion.
type chunkSource struct {
	samples []float32
	pos     int
	loop    bool
	done    bool
}

func newChunkSource(samples []float32, loop bool) *chunkSource {
	if len(samples) == 0 {
		return nil
	}
	return &chunkSource{samples: samples, loop: loop}
}

// nextChunk fills dst with the next slice of input. Reports false once the
// source is exhausted; dst is zeroed in that case.
func (s *chunkSource) nextChunk(dst []float32) bool {
	if s == nil || s.done || len(s.samples) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return false
	}
	for i := range dst {
		if s.pos >= len(s.samples) {
			if !s.loop {
				s.done = true
				for ; i < len(dst); i++ {
					dst[i] = 0
				}
				return true
			}
			s.pos = 0
		}
		dst[i] = s.samples[s.pos]
		s.pos++
	}
	if s.pos >= len(s.samples) {
		if !s.loop {
			s.done = true
		} else {
			s.pos = 0
		}
	}
	return true
}

// offset reports the current read position within the input.
func (s *chunkSource) offset() int {
	if s == nil {
		return 0
	}
	return s.pos
}

// rewind restarts the source from offset 0.
func (s *chunkSource) rewind() {
	if s == nil {
		return
	}
	s.pos = 0
	s.done = false
}

package main

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
)

// parallelFFTThreshold is the smallest window size worth fanning butterfly
// work out to goroutines; smaller windows run the stages sequentially.
const parallelFFTThreshold = 512

// fftPlan caches the bit-reversal permutation and twiddle factors for one
// fixed power-of-two window size. Plans are immutable once built and shared
// across goroutines.
type fftPlan struct {
	size        int
	stages      int
	bitReversed []int
	twiddles    []complex128
}

var (
	fftPlanMu    sync.Mutex
	fftPlanCache = map[int]*fftPlan{}
)

// planFFT returns the shared plan for the window size, building it on first
// use.
func planFFT(size int) (*fftPlan, error) {
	fftPlanMu.Lock()
	defer fftPlanMu.Unlock()
	if p, ok := fftPlanCache[size]; ok {
		return p, nil
	}
	p, err := newFFTPlan(size)
	if err != nil {
		return nil, err
	}
	fftPlanCache[size] = p
	return p, nil
}

func newFFTPlan(size int) (*fftPlan, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("transform size must be a power of two >= 2, got %d", size)
	}
	stages := 0
	for 1<<stages != size {
		stages++
	}
	p := &fftPlan{
		size:        size,
		stages:      stages,
		bitReversed: make([]int, size),
		twiddles:    make([]complex128, size/2),
	}
	for i := 0; i < size; i++ {
		p.bitReversed[i] = bitReverse(i, stages)
	}
	for k := 0; k < size/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(size)
		p.twiddles[k] = cmplx.Exp(complex(0, angle))
	}
	return p, nil
}

func bitReverse(x, bits int) int {
	r := 0
	for i := 0; i < bits; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

// permute applies the bit-reversal reordering in place.
func (p *fftPlan) permute(data []complex128) {
	for i, j := range p.bitReversed {
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}
}

// forward computes the in-place DFT of one window sequentially. No scaling
// is applied.
func (p *fftPlan) forward(data []complex128) {
	p.permute(data)
	for stage := 1; stage <= p.stages; stage++ {
		p.butterflyRange(data, stage, 0, p.size/2, false)
	}
}

// inverse computes the in-place inverse DFT of one window sequentially and
// divides every sample by the window size.
func (p *fftPlan) inverse(data []complex128) {
	p.permute(data)
	for stage := 1; stage <= p.stages; stage++ {
		p.butterflyRange(data, stage, 0, p.size/2, true)
	}
	scale := complex(1/float64(p.size), 0)
	for i := range data {
		data[i] *= scale
	}
}

// forwardParallel computes the DFT with the butterflies of each stage fanned
// out across goroutines. A stage is a hard barrier: every lane of stage s
// finishes before stage s+1 starts, because s+1 reads values s wrote.
func (p *fftPlan) forwardParallel(data []complex128, workers int) {
	p.transformParallel(data, workers, false)
}

// inverseParallel is forwardParallel with conjugated twiddles and 1/N output
// scaling.
func (p *fftPlan) inverseParallel(data []complex128, workers int) {
	p.transformParallel(data, workers, true)
	scale := complex(1/float64(p.size), 0)
	for i := range data {
		data[i] *= scale
	}
}

func (p *fftPlan) transformParallel(data []complex128, workers int, invert bool) {
	if workers < 2 || p.size < parallelFFTThreshold {
		p.permute(data)
		for stage := 1; stage <= p.stages; stage++ {
			p.butterflyRange(data, stage, 0, p.size/2, invert)
		}
		return
	}
	p.permute(data)
	butterflies := p.size / 2
	chunk := (butterflies + workers - 1) / workers
	for stage := 1; stage <= p.stages; stage++ {
		var wg sync.WaitGroup
		for lo := 0; lo < butterflies; lo += chunk {
			hi := lo + chunk
			if hi > butterflies {
				hi = butterflies
			}
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				p.butterflyRange(data, stage, lo, hi, invert)
			}(lo, hi)
		}
		wg.Wait()
	}
}

// butterflyRange processes butterflies [lo, hi) of one stage. Butterfly b of
// stage s combines indices a = (b/half)*span + b%half and a+half, so ranges
// over distinct b never alias.
func (p *fftPlan) butterflyRange(data []complex128, stage, lo, hi int, invert bool) {
	half := 1 << (stage - 1)
	twStep := p.size >> stage
	for b := lo; b < hi; b++ {
		k := b & (half - 1)
		a := (b>>(stage-1))<<stage + k
		tw := p.twiddles[k*twStep]
		if invert {
			tw = cmplx.Conj(tw)
		}
		t := tw * data[a+half]
		data[a+half] = data[a] - t
		data[a] += t
	}
}

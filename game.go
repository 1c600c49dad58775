package main

import (
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
)

// engineState is the orchestrator's lifecycle state.
type engineState int

const (
	stateIdle engineState = iota
	stateStreaming
)

// Game encapsulates the full simulation state, audio pipeline, and rendering
// buffers. It is the single owning context: every buffer lives here and is
// handed explicitly to the component that needs it.
type Game struct {
	// Scene geometry.
	walls            []bool
	wallMat          []uint8
	segments         []boundarySegment
	geometryDirty    bool
	segmentsDirtyGPU bool
	levelRand        *rand.Rand

	// Source (the walker) and listener.
	sx, sy           float64
	lx, ly           float64
	listenerForwardX float64
	listenerForwardY float64
	listenerFollow   bool
	stepTimer        int

	// Engine core.
	state             engineState
	buffers           *bufferPair
	hits              *hitBuffer
	analyzer          *frequencyAnalyzer
	recon             *reconstructor
	reconDone         chan reconResult
	reconInFlight     bool
	ring              *streamRing
	input             *chunkSource
	inputChunk        []float32
	rayBins           []int32
	tickGain          float32
	epoch             uint64
	tickCounter       uint64
	sampleAccumulator float64
	nextRingPos       int
	tickMultiplier    int
	lastSimDuration   time.Duration
	lastOverrunLog    time.Time

	// Trace worker pool.
	workerMu       sync.Mutex
	workerCond     *sync.Cond
	workerStep     int
	workerPending  int
	workerCount    int
	workersStarted bool
	traceJob       *traceParams
	raySpans       []raySpan

	gpuTracer *openCLRayTracer

	// Direct-audibility mask.
	audibleStamp []uint32
	audibleGen   uint32
	lastAudCX    int
	lastAudCY    int

	// Rendering scratch.
	hitOverlay []float32
	pixelBuf   []byte

	// Auto-walk and profiling.
	autoWalk           bool
	autoWalkDeadline   time.Time
	autoWalkRand       *rand.Rand
	autoWalkDirX       float64
	autoWalkDirY       float64
	autoWalkFrameCount int
	pgoStop            func()
	pgoDeadline        time.Time

	// Audio device.
	audioCtx    *audio.Context
	audioPlayer *audio.Player

	// Last-tick statistics for the debug overlay.
	lastHitCount    int
	lastDeposited   int
	lastDroppedHits int
}

// newGame constructs a fully initialized Game instance. The audio device is
// attached separately by initAudio so headless use stays possible.
func newGame() *Game {
	g := &Game{
		sx:               float64(w / 2),
		sy:               float64(h / 2),
		listenerForwardX: 0,
		listenerForwardY: -1,
		listenerFollow:   true,
		levelRand:        rand.New(rand.NewSource(time.Now().UnixNano() + 1)),
		autoWalkRand:     rand.New(rand.NewSource(time.Now().UnixNano() + 2)),
		tickMultiplier:   defaultTickMultiplier,
		workerCount:      runtime.NumCPU(),
		reconDone:        make(chan reconResult, 1),
		rayBins:          make([]int32, *rayCountFlag),
		inputChunk:       make([]float32, chunkSamples),
		ring:             newStreamRing(ringBufferSize),
		buffers:          newBufferPair(*irModeFlag, *reverbSecondsFlag),
		hits:             newHitBuffer(hitCapacity()),
		nextRingPos:      -1,
		stepTimer:        stepDelay,
	}
	analyzer, err := newFrequencyAnalyzer(rand.New(rand.NewSource(time.Now().UnixNano() + 3)))
	if err != nil {
		log.Fatalf("building transform plan: %v", err)
	}
	g.analyzer = analyzer
	recon, err := newReconstructor(g.workerCount, *masterGainFlag)
	if err != nil {
		log.Fatalf("building reconstruction pipeline: %v", err)
	}
	g.recon = recon
	if *gpuFlag {
		if tracer, gerr := newOpenCLRayTracer(hitCapacity()); gerr != nil {
			log.Printf("OpenCL unavailable, tracing on CPU: %v", gerr)
		} else {
			log.Printf("OpenCL ray tracing enabled (device: %s)", tracer.deviceName())
			g.gpuTracer = tracer
		}
	}
	if path := *inputWavFlag; path != "" {
		samples, lerr := loadLoopSamples(audioSampleRate, path)
		if lerr != nil {
			log.Fatalf("loading input audio: %v", lerr)
		}
		g.input = newChunkSource(samples, *loopFlag)
		log.Printf("streaming %q (%.1fs at %d Hz)", path, float64(len(samples))/audioSampleRate, audioSampleRate)
	}
	g.updateListener()
	g.generateWalls()
	g.startWorkers()
	return g
}

// initAudio attaches the audio device and begins pulling from the ring.
func (g *Game) initAudio() {
	ctx := audio.NewContext(audioSampleRate)
	g.audioCtx = ctx
	player, err := ctx.NewPlayer(g.ring)
	if err != nil {
		log.Printf("audio player creation failed: %v", err)
		return
	}
	player.SetBufferSize(audioBufferDuration)
	g.audioPlayer = player
	player.Play()
}

// start transitions Idle to Streaming, resetting every cursor and buffer so
// the new stream begins from silence at input offset 0.
func (g *Game) start() {
	if g.state == stateStreaming {
		return
	}
	g.state = stateStreaming
	g.epoch++
	g.buffers.reset()
	g.hits.reset(hitCapacity())
	g.ring.silence()
	g.sampleAccumulator = 0
	g.nextRingPos = -1
	g.tickGain = 0
	g.stepTimer = stepDelay
	g.input.rewind()
	g.analyzer.uniform(g.rayBins)
	log.Printf("streaming started")
}

// stop transitions Streaming to Idle and silences the ring. In-flight
// reconstructions are not cancelled; their results arrive later and are
// discarded by the epoch check.
func (g *Game) stop() {
	if g.state == stateIdle {
		return
	}
	g.state = stateIdle
	g.epoch++
	g.ring.silence()
	g.sampleAccumulator = 0
	g.nextRingPos = -1
	log.Printf("streaming stopped")
}

// Update advances movement, runs the refinement ticks for this frame, and
// fires chunk boundaries as enough audio time has elapsed.
func (g *Game) Update() error {
	g.pollReconstruction()

	if g.pgoStop != nil && time.Now().After(g.pgoDeadline) {
		g.pgoStop()
		g.pgoStop = nil
		log.Printf("profile capture complete, exiting")
		return ebiten.Termination
	}

	g.handleControls()

	dx, dy := g.movementVector()
	oldX, oldY := g.sx, g.sy
	g.sx = math.Max(emitterRad, math.Min(float64(w-emitterRad-1), g.sx+dx))
	g.sy = math.Max(emitterRad, math.Min(float64(h-emitterRad-1), g.sy+dy))
	if g.isWall(int(g.sx), int(g.sy)) {
		g.sx, g.sy = oldX, oldY
	}

	moving := dx != 0 || dy != 0
	if moving {
		length := math.Hypot(dx, dy)
		if length > 0 {
			g.listenerForwardX = dx / length
			g.listenerForwardY = dy / length
		}
		g.stepTimer++
		if g.stepTimer >= stepDelay {
			g.stepTimer = 0
			if g.input == nil {
				// Footsteps are the excitation when no file is streaming.
				g.tickGain = stepImpulseStrength
			}
		}
	} else {
		g.stepTimer = stepDelay
	}
	g.updateListener()

	if *occludeAudibilityFlag {
		g.refreshAudibleMask()
	}

	if g.state != stateStreaming {
		return nil
	}

	g.runTraceBatch()

	actualTPS := ebiten.ActualTPS()
	if actualTPS < 1 {
		actualTPS = defaultTPS
	}
	g.sampleAccumulator += audioSampleRate / actualTPS
	if g.sampleAccumulator >= chunkSamples {
		g.fireChunkBoundary()
	}
	return nil
}

// updateListener places the listener ahead of the source while follow mode is
// enabled; otherwise it keeps its last position.
func (g *Game) updateListener() {
	if !g.listenerFollow {
		return
	}
	fx, fy := g.listenerForwardX, g.listenerForwardY
	if fx == 0 && fy == 0 {
		fy = -1
	}
	g.lx = math.Max(0, math.Min(float64(w-1), g.sx+fx*listenerOffsetCells))
	g.ly = math.Max(0, math.Min(float64(h-1), g.sy+fy*listenerOffsetCells))
}

// fireChunkBoundary closes the current accumulation epoch: pull the next dry
// chunk, rebuild the ray frequency distribution, swap buffers, and dispatch
// asynchronous reconstruction of the frozen buffer toward its scheduled ring
// position. If the previous reconstruction has not finished the boundary is
// deferred to a later tick and the current epoch keeps refining.
func (g *Game) fireChunkBoundary() {
	if g.reconInFlight {
		if now := time.Now(); now.Sub(g.lastOverrunLog) >= overrunLogInterval {
			log.Printf("chunk overrun: reconstruction still in flight, deferring boundary (backlog %.0f samples)", g.sampleAccumulator)
			g.lastOverrunLog = now
		}
		return
	}
	g.sampleAccumulator -= chunkSamples

	var dry []float32
	if g.input != nil {
		if !g.input.nextChunk(g.inputChunk) {
			log.Printf("input stream finished")
			g.stop()
			return
		}
		dry = g.inputChunk
		g.analyzer.analyze(dry, g.rayBins, g.workerCount)
		if *irModeFlag {
			g.tickGain = 1
		} else {
			g.tickGain = chunkGain(dry)
		}
	} else {
		// Footstep impulses last one chunk; the next step re-arms the gain.
		g.tickGain = 0
	}

	frozen := g.buffers.swap()
	pos := g.nextRingPos
	if pos < 0 {
		pos = g.ring.defaultWritePos()
	}
	g.nextRingPos = (pos + chunkSamples) % ringBufferSize
	g.reconInFlight = true
	g.recon.dispatch(frozen, dry, g.epoch, pos, g.reconDone)
}

// pollReconstruction consumes a finished reconstruction without blocking.
func (g *Game) pollReconstruction() {
	if !g.reconInFlight {
		return
	}
	select {
	case res := <-g.reconDone:
		g.applyReconResult(res)
	default:
	}
}

// applyReconResult queues a finished chunk into the ring. Results from a
// previous stream epoch are discarded; a failed reconstruction skips that
// chunk's contribution and streaming continues.
func (g *Game) applyReconResult(res reconResult) {
	g.reconInFlight = false
	if res.epoch != g.epoch {
		return
	}
	if res.err != nil {
		log.Printf("reconstruction failed, skipping chunk: %v", res.err)
		return
	}
	g.ring.queue(res.samples, res.ringPos)
}

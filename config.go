package main

import "time"

// Simulation, acoustics, and audio configuration constants used throughout
// the application. These values define the scene size, ray-trace timing, the
// transform geometry, and the streaming behavior of the renderer.
const (
	w, h        = 512, 512
	windowScale = 2

	// metersPerCell converts grid-space path lengths to meters for the
	// delay computation.
	metersPerCell = 0.5

	emitterRad = 3
	moveSpeed  = 2
	stepDelay  = 60 / 4
	defaultTPS = 60.0

	// listenerOffsetCells is how far ahead of the source the listener sits
	// while follow mode is enabled.
	listenerOffsetCells = 40

	defaultTickMultiplier = 4
	tickMultiplierStep    = 1
	minTickMultiplier     = 1
	maxTickMultiplier     = 64

	wallSegments          = 25
	wallMinLen            = 12
	wallMaxLen            = 100
	wallExclusionRadius   = 12
	wallThicknessVariance = 2

	// minRayEnergy terminates paths whose remaining energy cannot produce
	// an audible contribution.
	minRayEnergy = 1e-4

	// chunkSamples is both the streaming chunk length and the transform
	// window size; must remain a power of two.
	chunkSamples  = 1024
	frequencyBins = chunkSamples / 2

	audioSampleRate     = 48000
	ringSeconds         = 4
	ringBufferSize      = audioSampleRate * ringSeconds
	latencyChunks       = 2
	audioBufferDuration = 80 * time.Millisecond

	audioChannels       = 2
	audioBytesPerSample = 2
	audioFrameBytes     = audioChannels * audioBytesPerSample

	stepImpulseStrength = 1.0
	dcBlockAlpha        = 0.001
	pcm16MaxValue       = 32767
	pcm16MinValue       = -32768

	// hitOverlayDecay fades the per-cell ray-hit overlay each drawn frame.
	hitOverlayDecay = 0.90
	maxDebugHits    = 4096

	overrunLogInterval = time.Second
	pgoRecordDuration  = 15 * time.Second
)

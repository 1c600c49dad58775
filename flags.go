package main

import (
	"flag"
	"fmt"
)

// Command-line flags that control the acoustic simulation, rendering
// overlays, and runtime behavior. Anything not covered here is a fixed
// constant in config.go.
var (
	// rayCountFlag sets how many rays each trace tick launches from the source.
	rayCountFlag = flag.Int("rays", 2048, "rays launched per trace tick")

	// maxBouncesFlag limits how many boundary interactions a ray may undergo.
	maxBouncesFlag = flag.Int("max-bounces", 6, "maximum boundary bounces per ray (0 = direct path only)")

	// speedOfSoundFlag converts path lengths to arrival delays.
	speedOfSoundFlag = flag.Float64("speed-of-sound", 343.0, "propagation speed in meters per second")

	// reverbSecondsFlag sets the length of the accumulated impulse response.
	reverbSecondsFlag = flag.Float64("reverb-duration", 1.5, "length of the accumulated reverb tail in seconds")

	// listenerRadiusFlag sets the capture disc radius around the listener.
	listenerRadiusFlag = flag.Float64("listener-radius", 2.5, "listener capture radius in grid cells")

	// inputWavFlag selects the dry signal driving the reverb.
	inputWavFlag = flag.String("input", "", "WAV file streamed through the reverb; empty uses movement impulses")

	// loopFlag restarts the input from offset 0 when it runs out.
	loopFlag = flag.Bool("loop", true, "loop the input WAV instead of stopping at end-of-input")

	// irModeFlag switches accumulation from the time-frequency spectrogram to
	// a pure impulse response convolved against the input.
	irModeFlag = flag.Bool("ir-mode", false, "accumulate a pure impulse response and convolve the input against it")

	// gpuFlag routes ray tracing through the OpenCL kernel when supported.
	gpuFlag = flag.Bool("gpu", false, "trace rays on the OpenCL device when available")

	verifyGPUSyncFlag = flag.Bool("verify-gpu-sync", false, "re-read OpenCL scene buffers after upload and compare against host data")

	// masterGainFlag scales the reconstructed output before it reaches the ring.
	masterGainFlag = flag.Float64("master-gain", 1.0, "output gain applied to reconstructed audio")

	// showWallsFlag toggles rendering of wall geometry overlays.
	showWallsFlag = flag.Bool("show-walls", true, "render wall geometry overlays")

	// showHitsFlag toggles the decaying ray-hit overlay.
	showHitsFlag = flag.Bool("show-hits", true, "render recent ray hit points")

	// occludeAudibilityFlag darkens regions without a direct path to the listener.
	occludeAudibilityFlag = flag.Bool("occlude-audibility", false, "darken regions that have no direct path to the listener when rendering")

	// debugFlag enables the FPS and simulation overlay.
	debugFlag = flag.Bool("debug", false, "show FPS, tick, and ring statistics overlay")

	// dumpIRFlag names the file that receives binary16 snapshots of the
	// frozen buffer when F2 is pressed.
	dumpIRFlag = flag.String("dump-ir", "", "write the most recent frozen buffer to this path as binary16 on F2")

	// recordDefaultPGO triggers a scripted walk to produce default.pgo.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "walk randomly for 15s while capturing default.pgo")
)

// validateConfig rejects unusable flag combinations before any subsystem
// starts. Configuration problems are the only fatal error class.
func validateConfig() error {
	if *rayCountFlag < 1 {
		return fmt.Errorf("rays must be at least 1, got %d", *rayCountFlag)
	}
	if *maxBouncesFlag < 0 {
		return fmt.Errorf("max-bounces must not be negative, got %d", *maxBouncesFlag)
	}
	if *speedOfSoundFlag <= 0 {
		return fmt.Errorf("speed-of-sound must be positive, got %g", *speedOfSoundFlag)
	}
	if *reverbSecondsFlag <= 0 {
		return fmt.Errorf("reverb-duration must be positive, got %g", *reverbSecondsFlag)
	}
	maxTail := float64(ringSeconds) - float64(latencyChunks*chunkSamples)/float64(audioSampleRate)
	if *reverbSecondsFlag >= maxTail {
		return fmt.Errorf("reverb-duration %gs does not fit the %ds ring with %d lookahead chunks", *reverbSecondsFlag, ringSeconds, latencyChunks)
	}
	if *listenerRadiusFlag <= 0 {
		return fmt.Errorf("listener-radius must be positive, got %g", *listenerRadiusFlag)
	}
	if *masterGainFlag < 0 {
		return fmt.Errorf("master-gain must not be negative, got %g", *masterGainFlag)
	}
	if chunkSamples&(chunkSamples-1) != 0 {
		return fmt.Errorf("chunkSamples must be a power of two, got %d", chunkSamples)
	}
	return nil
}

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func withFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func TestValidateConfigDefaults(t *testing.T) {
	require.NoError(t, validateConfig())
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	t.Run("rays", func(t *testing.T) {
		withFlag(t, rayCountFlag, 0)
		err := validateConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "rays")
	})
	t.Run("bounces", func(t *testing.T) {
		withFlag(t, maxBouncesFlag, -1)
		err := validateConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "max-bounces")
	})
	t.Run("speed of sound", func(t *testing.T) {
		withFlag(t, speedOfSoundFlag, 0.0)
		require.Error(t, validateConfig())
	})
	t.Run("reverb duration", func(t *testing.T) {
		withFlag(t, reverbSecondsFlag, -0.5)
		require.Error(t, validateConfig())
	})
	t.Run("reverb exceeds ring", func(t *testing.T) {
		withFlag(t, reverbSecondsFlag, float64(ringSeconds))
		err := validateConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "ring")
	})
	t.Run("listener radius", func(t *testing.T) {
		withFlag(t, listenerRadiusFlag, 0.0)
		require.Error(t, validateConfig())
	})
	t.Run("master gain", func(t *testing.T) {
		withFlag(t, masterGainFlag, -1.0)
		require.Error(t, validateConfig())
	})
}

func TestValidateConfigBoundaryValues(t *testing.T) {
	withFlag(t, maxBouncesFlag, 0) // direct path only is a legal setting
	withFlag(t, rayCountFlag, 1)
	require.NoError(t, validateConfig())
}

func TestHitCapacityKeepsDirectPathRepresentable(t *testing.T) {
	withFlag(t, rayCountFlag, 100)
	withFlag(t, maxBouncesFlag, 0)
	require.Equal(t, 100, hitCapacity())
	withFlag(t, maxBouncesFlag, 6)
	require.Equal(t, 600, hitCapacity())
}

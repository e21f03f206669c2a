//go:build linux

package hotkey

import (
	"testing"

	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/require"
)

func TestOpenEvdevRejectsUnknownKey(t *testing.T) {
	_, err := OpenEvdev("/dev/null", "KEY_NOPE")
	require.ErrorContains(t, err, "unknown key")
}

func TestOpenEvdevMissingDevice(t *testing.T) {
	_, err := OpenEvdev("/nonexistent/event99", DefaultKey)
	require.ErrorContains(t, err, "/nonexistent/event99")
}

func TestEvdevSourceFailsOnNonInputDevice(t *testing.T) {
	src, err := OpenEvdev("/dev/null", DefaultKey)
	if err == nil {
		defer func() { _ = src.Close() }()
		_, err = src.Pressed()
	}
	require.Error(t, err)
}

func TestEvdevSourceWithoutDevicesIsNeverHeld(t *testing.T) {
	src := &EvdevSource{code: evdev.KEY_KP7}
	held, err := src.Pressed()
	require.NoError(t, err)
	require.False(t, held)
	require.Empty(t, src.Devices())
	require.NoError(t, src.Close())
}

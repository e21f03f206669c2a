//go:build !linux

package hotkey

import "errors"

// EvdevSource is unavailable outside Linux.
type EvdevSource struct{}

// OpenEvdev always fails on non-Linux platforms.
func OpenEvdev(string, string) (*EvdevSource, error) {
	return nil, errors.New("evdev hotkeys require linux")
}

func (*EvdevSource) Pressed() (bool, error) { return false, errors.New("evdev hotkeys require linux") }
func (*EvdevSource) Devices() []string      { return nil }
func (*EvdevSource) Close() error           { return nil }

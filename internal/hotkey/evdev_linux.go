//go:build linux

package hotkey

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/holoplot/go-evdev"
)

// EvdevSource reads the global key state of one or more input devices.
type EvdevSource struct {
	code    evdev.EvCode
	devices []*evdev.InputDevice
}

// OpenEvdev opens device, or every input device that can emit key when
// device is empty, and watches key.
func OpenEvdev(device string, key string) (*EvdevSource, error) {
	code, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	src := &EvdevSource{code: code}
	if path := strings.TrimSpace(device); path != "" {
		dev, err := evdev.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open keyboard device %s: %w", path, err)
		}
		src.devices = []*evdev.InputDevice{dev}
		return src, nil
	}

	if err := src.discover(); err != nil {
		return nil, err
	}
	return src, nil
}

// discover keeps every listed device whose EV_KEY capabilities include the
// watched code.
func (s *EvdevSource) discover() error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return fmt.Errorf("list input devices: %w", err)
	}

	var openErrs []error
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			openErrs = append(openErrs, err)
			continue
		}
		if !slices.Contains(dev.CapableEvents(evdev.EV_KEY), s.code) {
			_ = dev.Close()
			continue
		}
		s.devices = append(s.devices, dev)
	}

	if len(s.devices) == 0 {
		msg := fmt.Sprintf("no input device reports %s; set hotkey.device", KeyName(s.code))
		if len(openErrs) > 0 {
			return fmt.Errorf("%s: %w", msg, errors.Join(openErrs...))
		}
		return errors.New(msg)
	}
	return nil
}

// Pressed reports whether the key is held on any opened device.
func (s *EvdevSource) Pressed() (bool, error) {
	for _, dev := range s.devices {
		held, err := dev.State(evdev.EV_KEY)
		if err != nil {
			return false, fmt.Errorf("read key state %s: %w", dev.Path(), err)
		}
		if held[s.code] {
			return true, nil
		}
	}
	return false, nil
}

// Devices lists the opened device paths.
func (s *EvdevSource) Devices() []string {
	out := make([]string, 0, len(s.devices))
	for _, dev := range s.devices {
		out = append(out, dev.Path())
	}
	return out
}

// Close releases every opened device.
func (s *EvdevSource) Close() error {
	var errs []error
	for _, dev := range s.devices {
		if err := dev.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.devices = nil
	return errors.Join(errs...)
}

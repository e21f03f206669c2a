// Package audio handles input device selection, float32 capture, and WAV artifacts.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	clientName     = "uplink"
	clientIconName = "audio-input-microphone"
	bytesPerSample = 4
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName(clientIconName),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
// "default" or an empty preference means the server's default source.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = normalizePreference(input)
	fallback = normalizePreference(fallback)

	var defaultDevice, byInput, byFallback *Device
	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	primary := defaultDevice
	switch {
	case input != "" && byInput == nil:
		return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
	case input != "":
		primary = byInput
	case defaultDevice == nil:
		return Selection{}, errors.New("default audio source is unavailable")
	}

	if usable(*primary) {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alternate := defaultDevice
	if fallback != "" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		alternate = byFallback
	}
	if alternate == nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and no default source exists", primary.ID, reason)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", alternate.ID)
	}
	if alternate.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", alternate.ID)
	}

	return Selection{
		Device:   *alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

func normalizePreference(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "default" {
		return ""
	}
	return raw
}

func usable(device Device) bool {
	return device.Available && !device.Muted
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// PulseBackend opens mono float32 record streams on the selected Pulse source.
type PulseBackend struct {
	Input      string
	Fallback   string
	SampleRate int // 0 keeps the server's native rate
	OnWarning  func(string)
}

// Open resolves the input device and starts a record stream feeding onSamples.
func (b PulseBackend) Open(ctx context.Context, onSamples func([]float32)) (Stream, error) {
	selection, err := SelectDevice(ctx, b.Input, b.Fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}
	if selection.Warning != "" && b.OnWarning != nil {
		b.OnWarning(selection.Warning)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrNoInputDevice, selection.Device.ID, err)
	}

	ps := &pulseStream{
		client:    client,
		device:    describeDevice(selection.Device),
		onSamples: onSamples,
	}

	opts := []pulse.RecordOption{
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordMediaName("uplink voice capture"),
	}
	if b.SampleRate > 0 {
		opts = append(opts, pulse.RecordSampleRate(b.SampleRate))
	}

	stream, err := client.NewRecord(pulse.NewWriter(writerFunc(ps.onPCM), pulseproto.FormatFloat32LE), opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: create pulse record stream: %v", ErrStream, err)
	}
	ps.stream = stream

	stream.Start()
	if !stream.Running() {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: pulse record stream did not start", ErrStream)
	}
	return ps, nil
}

// pulseStream is the open hardware handle; Close releases it exactly once.
type pulseStream struct {
	client    *pulse.Client
	stream    *pulse.RecordStream
	device    string
	onSamples func([]float32)

	mu      sync.Mutex
	pending []byte
	closed  bool
	once    sync.Once
}

func (s *pulseStream) SampleRate() int {
	if s.stream == nil {
		return 0
	}
	return s.stream.SampleRate()
}

func (s *pulseStream) Device() string {
	return s.device
}

func (s *pulseStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.stream != nil {
			s.stream.Stop()
			s.stream.Close()
		}
		if s.client != nil {
			s.client.Close()
		}
	})
	return nil
}

// onPCM runs on the Pulse client goroutine. It decodes whole float32 frames and
// carries a partial trailing frame over to the next block.
func (s *pulseStream) onPCM(buffer []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return len(buffer), nil
	}
	s.pending = append(s.pending, buffer...)
	whole := len(s.pending) / bytesPerSample * bytesPerSample
	samples := decodeFloat32LE(s.pending[:whole])
	s.pending = append(s.pending[:0], s.pending[whole:]...)
	s.mu.Unlock()

	if len(samples) > 0 && s.onSamples != nil {
		s.onSamples(samples)
	}
	return len(buffer), nil
}

func decodeFloat32LE(raw []byte) []float32 {
	out := make([]float32, len(raw)/bytesPerSample)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*bytesPerSample:]))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

func describeDevice(device Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}

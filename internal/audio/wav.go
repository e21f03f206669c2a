package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrArtifactWrite wraps failures persisting a capture to disk.
var ErrArtifactWrite = errors.New("write audio artifact")

const (
	wavFormatIEEEFloat = 3
	wavBitsPerSample   = 32
	wavHeaderSize      = 44
)

// EncodeWAV writes samples as a 32-bit IEEE float WAV stream.
func EncodeWAV(w io.Writer, samples []float32, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	blockAlign := channels * (wavBitsPerSample / 8)
	byteRate := sampleRate * blockAlign
	dataSize := uint32(len(samples) * (wavBitsPerSample / 8))

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatIEEEFloat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], wavBitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return err
	}
	var frame [4]byte
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(frame[:], math.Float32bits(sample))
		if _, err := bw.Write(frame[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWAVFile replaces path with the capture encoded as WAV.
func WriteWAVFile(path string, capture Capture) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrArtifactWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".capture-*.wav")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := EncodeWAV(tmp, capture.Samples, capture.SampleRate, capture.Channels); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: encode %q: %v", ErrArtifactWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %v", ErrArtifactWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %q: %v", ErrArtifactWrite, path, err)
	}
	return nil
}

// DebugDumpPath returns a timestamped WAV path under the uplink debug state dir.
func DebugDumpPath(at time.Time) (string, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("capture-%s.wav", at.Format("20060102-150405.000"))
	return filepath.Join(stateDir, "uplink", "debug", name), nil
}

// resolveStateDir returns XDG_STATE_HOME, falling back to ~/.local/state.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

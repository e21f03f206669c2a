// Package output delivers phase/reply snapshots to external consumers.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rbright/uplink/internal/state"
)

// Sink receives every snapshot the orchestrator commits.
type Sink interface {
	Publish(context.Context, state.Snapshot) error
}

// DeadDrop mirrors the current text into a file that other programs poll.
// The file is replaced atomically so readers never see a partial write.
type DeadDrop struct {
	path string
}

// NewDeadDrop returns a sink writing to path.
func NewDeadDrop(path string) *DeadDrop {
	return &DeadDrop{path: path}
}

// Path returns the dead-drop file location.
func (d *DeadDrop) Path() string {
	return d.path
}

// Publish replaces the file with snap.Text.
func (d *DeadDrop) Publish(_ context.Context, snap state.Snapshot) error {
	return writeFileAtomic(d.path, []byte(snap.Text))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dead-drop dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create dead-drop temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dead-drop: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod dead-drop: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dead-drop: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace dead-drop %s: %w", path, err)
	}
	return nil
}

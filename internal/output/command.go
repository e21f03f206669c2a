package output

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rbright/uplink/internal/fsm"
	"github.com/rbright/uplink/internal/state"
)

// Command pipes each final reply to an external program on stdin.
// Status snapshots from non-idle phases are skipped.
type Command struct {
	argv    []string
	timeout time.Duration
}

// NewCommand returns a sink that runs argv once per finished cycle.
func NewCommand(argv []string, timeout time.Duration) *Command {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{argv: append([]string(nil), argv...), timeout: timeout}
}

// Publish runs the command when snap is a committed idle reply.
func (c *Command) Publish(ctx context.Context, snap state.Snapshot) error {
	if snap.Phase != fsm.StateIdle || snap.Text == "" {
		return nil
	}
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := runCommandWithInput(runCtx, c.argv, snap.Text); err != nil {
		return fmt.Errorf("reply command: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

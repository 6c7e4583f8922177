package playback

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// settleDelay is how long a freshly spawned player process must survive
// before playback counts as started.
const settleDelay = 200 * time.Millisecond

// processHandle wraps one short-lived player subprocess (ffplay). It owns
// the spawn/kill lifecycle the same way the engine owns its ffmpeg pipeline.
type processHandle struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// spawn launches the binary and resolves the confirmation once the process
// has survived the settle delay. An early exit resolves with the exit error.
func (h *processHandle) spawn(ctx context.Context, confirm *Confirmation, binary string, args ...string) error {
	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, binary, args...)

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrPlaybackFailed, err)
	}

	h.mu.Lock()
	h.killLocked()
	h.cmd = cmd
	h.cancel = cancel
	h.mu.Unlock()

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	go func() {
		select {
		case err := <-exited:
			// Too fast to be real playback.
			if err == nil {
				err = ErrPlaybackFailed
			}
			confirm.Resolve(fmt.Errorf("%w: %v", ErrPlaybackFailed, err))
		case <-time.After(settleDelay):
			confirm.Resolve(nil)
			<-exited
		}
	}()

	return nil
}

func (h *processHandle) stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killLocked()
	return nil
}

func (h *processHandle) killLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.cmd != nil && h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	h.cmd = nil
}

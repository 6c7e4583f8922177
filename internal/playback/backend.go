package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hxnx/triviatune/internal/catalog"
)

var (
	ErrFileMissing        = errors.New("track file is missing")
	ErrNoPlayableURL      = errors.New("no playable url for track")
	ErrControlUnreachable = errors.New("player control channel unreachable")
	ErrStartTimeout       = errors.New("playback start not confirmed in time")
	ErrPlaybackFailed     = errors.New("playback failed to start")
)

// ConfirmTimeout is how long a caller should wait for a start confirmation
// before retrying once and then treating the question as unplayable.
const ConfirmTimeout = 500 * time.Millisecond

// Backend is the uniform playback contract. Start returns immediately; actual
// playback is confirmed (or failed) asynchronously through the Confirmation.
// Stop must be idempotent.
type Backend interface {
	Start(ctx context.Context, track catalog.Track) (*Confirmation, error)
	Stop() error
	SeekPercent(percent float64) error
}

// BatchBackend is implemented by backends that can queue a whole option set
// at once, with the correct track the one that actually plays. Callers fall
// back to Start when the backend cannot batch.
type BatchBackend interface {
	Backend
	StartBatch(ctx context.Context, options []catalog.Track, correctIndex int) (*Confirmation, error)
}

// Pauser is implemented by backends that can freeze and resume the audio
// while a game is paused.
type Pauser interface {
	CyclePause() error
}

// Confirmation is a one-shot future the backend resolves exactly once when
// playback has actually begun (nil) or definitively failed (non-nil).
type Confirmation struct {
	once sync.Once
	done chan error
}

func NewConfirmation() *Confirmation {
	return &Confirmation{done: make(chan error, 1)}
}

func (c *Confirmation) Resolve(err error) {
	c.once.Do(func() {
		c.done <- err
		close(c.done)
	})
}

func (c *Confirmation) Done() <-chan error {
	return c.done
}

// Wait blocks until the confirmation resolves or the timeout elapses.
func (c *Confirmation) Wait(timeout time.Duration) error {
	select {
	case err, ok := <-c.done:
		if !ok {
			return nil
		}
		return err
	case <-time.After(timeout):
		return ErrStartTimeout
	}
}

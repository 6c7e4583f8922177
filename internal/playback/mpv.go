package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ControllerState tracks the external player lifecycle.
type ControllerState string

const (
	ControllerStopped  ControllerState = "stopped"
	ControllerStarting ControllerState = "starting"
	ControllerReady    ControllerState = "ready"
	ControllerPlaying  ControllerState = "playing"
	ControllerError    ControllerState = "error"
)

const (
	connectTimeout = 1 * time.Second
	writeTimeout   = 2 * time.Second

	// bufferDelay gives the player time to buffer before the randomized seek.
	bufferDelay = 2 * time.Second
)

// SeekBand bounds the randomized post-start seek so snippets avoid intros
// and outros.
type SeekBand struct {
	MinPercent float64
	MaxPercent float64
}

func DefaultSeekBand() SeekBand {
	return SeekBand{MinPercent: 5, MaxPercent: 70}
}

// Controller owns one long-lived external mpv process and its control
// socket. The control protocol is fire-and-forget: commands are
// newline-terminated JSON objects and no response is ever read.
type Controller struct {
	Binary string
	Band   SeekBand

	mu         sync.Mutex
	state      ControllerState
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	socketPath string
	rng        *rand.Rand
}

func NewController(binary string, band SeekBand, rng *rand.Rand) *Controller {
	if binary == "" {
		binary = "mpv"
	}
	return &Controller{
		Binary:     binary,
		Band:       band,
		state:      ControllerStopped,
		socketPath: defaultSocketPath(),
		rng:        rng,
	}
}

func defaultSocketPath() string {
	return filepath.Join(os.TempDir(), "triviatune", "mpv.sock")
}

func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SocketPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketPath
}

// SetSocketPath overrides the control endpoint. Must be called before Start.
func (c *Controller) SetSocketPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socketPath = path
}

// Start spawns the player process if it is not already running and waits for
// the control socket to accept connections.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == ControllerReady || c.state == ControllerPlaying {
		c.mu.Unlock()
		return nil
	}
	c.state = ControllerStarting
	socketPath := c.socketPath
	c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		c.setState(ControllerError)
		return fmt.Errorf("%w: %v", ErrControlUnreachable, err)
	}

	// A stale endpoint from a crashed run blocks the new process.
	_ = os.Remove(socketPath)

	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, c.Binary,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+socketPath,
	)

	if err := cmd.Start(); err != nil {
		cancel()
		c.setState(ControllerError)
		return fmt.Errorf("%w: %v", ErrControlUnreachable, err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		_ = cmd.Wait()
	}()

	if err := c.waitForSocket(ctx, socketPath); err != nil {
		c.setState(ControllerError)
		return err
	}

	// Force audio-only, windowless operation even if a user config says
	// otherwise.
	_ = c.Send("set", "vid", "no")
	_ = c.Send("set", "force-window", "no")

	c.setState(ControllerReady)
	return nil
}

func (c *Controller) waitForSocket(ctx context.Context, socketPath string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := net.DialTimeout("unix", socketPath, connectTimeout)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("%w: socket %s never came up", ErrControlUnreachable, socketPath)
}

// Send writes one {"command":[...]} line to the control socket. No response
// is awaited; delivery is at-most-once.
func (c *Controller) Send(verb string, args ...any) error {
	c.mu.Lock()
	socketPath := c.socketPath
	c.mu.Unlock()

	command := append([]any{verb}, args...)
	payload, err := json.Marshal(map[string]any{"command": command})
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	conn, err := net.DialTimeout("unix", socketPath, connectTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrControlUnreachable, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrControlUnreachable, err)
	}

	return nil
}

// LoadURL plays (or appends) one URL. The first URL of a batch replaces the
// playlist, later ones keep the queue linear.
func (c *Controller) LoadURL(url string, appendToPlaylist bool) error {
	mode := "replace"
	if appendToPlaylist {
		mode = "append-play"
	}
	if err := c.Send("loadfile", url, mode); err != nil {
		return err
	}
	c.setState(ControllerPlaying)
	return nil
}

// SubmitPlaylist sends a batch of URLs with the correct track moved to the
// front so it is the one actually playing.
func (c *Controller) SubmitPlaylist(urls []string, correctIndex int) error {
	if len(urls) == 0 {
		return ErrNoPlayableURL
	}
	if correctIndex < 0 || correctIndex >= len(urls) {
		correctIndex = 0
	}

	ordered := make([]string, 0, len(urls))
	ordered = append(ordered, urls[correctIndex])
	for i, u := range urls {
		if i == correctIndex {
			continue
		}
		ordered = append(ordered, u)
	}

	for i, u := range ordered {
		if err := c.LoadURL(u, i > 0); err != nil {
			return err
		}
	}

	return nil
}

// SeekPercent seeks to an absolute position in the current file.
func (c *Controller) SeekPercent(percent float64) error {
	return c.Send("seek", percent, "absolute-percent")
}

// ScheduleRandomSeek performs the randomized post-start seek after the
// buffer delay, skipped if playback stopped in the meantime.
func (c *Controller) ScheduleRandomSeek() {
	band := c.Band
	if band.MaxPercent <= band.MinPercent {
		band = DefaultSeekBand()
	}

	c.mu.Lock()
	percent := band.MinPercent + c.rng.Float64()*(band.MaxPercent-band.MinPercent)
	c.mu.Unlock()

	time.AfterFunc(bufferDelay, func() {
		if c.State() != ControllerPlaying {
			return
		}
		if err := c.SeekPercent(percent); err != nil {
			log.Printf("Warning: randomized seek failed: %v", err)
		}
	})
}

func (c *Controller) CyclePause() error {
	return c.Send("cycle", "pause")
}

// StopPlayback halts the current file but keeps the process alive for the
// next question.
func (c *Controller) StopPlayback() error {
	err := c.Send("stop")
	if c.State() == ControllerPlaying {
		c.setState(ControllerReady)
	}
	return err
}

// Shutdown quits the external process and removes the control endpoint.
func (c *Controller) Shutdown() error {
	_ = c.Send("quit")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		c.cmd = nil
	}
	_ = os.Remove(c.socketPath)
	c.state = ControllerStopped
	return nil
}

func (c *Controller) setState(state ControllerState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

package playback

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/hxnx/triviatune/internal/catalog"
)

// SnippetOptions controls where inside a track a snippet begins.
type SnippetOptions struct {
	SnippetSeconds   int
	TailGuardSeconds int
	// StartAtZeroProbability is the chance the snippet plays from the top of
	// the track instead of a random offset.
	StartAtZeroProbability float64
}

func DefaultSnippetOptions(snippetSeconds int) SnippetOptions {
	return SnippetOptions{
		SnippetSeconds:         snippetSeconds,
		TailGuardSeconds:       15,
		StartAtZeroProbability: 0.2,
	}
}

// minRandomOffset keeps random snippets clear of track intros.
const minRandomOffset = 10

// StartOffset picks the snippet start for a track of the given duration.
// Tracks too short for a random window always start at 0.
func (o SnippetOptions) StartOffset(durationSeconds int, rng *rand.Rand) int {
	if rng.Float64() < o.StartAtZeroProbability {
		return 0
	}

	upper := durationSeconds - o.SnippetSeconds - o.TailGuardSeconds
	if upper <= minRandomOffset {
		return 0
	}

	return minRandomOffset + rng.Intn(upper-minRandomOffset+1)
}

// LocalBackend plays snippets from files on disk through ffplay.
type LocalBackend struct {
	Binary  string
	Options SnippetOptions

	rng  *rand.Rand
	proc processHandle
}

func NewLocalBackend(binary string, options SnippetOptions, rng *rand.Rand) *LocalBackend {
	if binary == "" {
		binary = "ffplay"
	}
	return &LocalBackend{
		Binary:  binary,
		Options: options,
		rng:     rng,
	}
}

func (b *LocalBackend) Start(ctx context.Context, track catalog.Track) (*Confirmation, error) {
	if track.FilePath == "" {
		return nil, ErrFileMissing
	}
	if _, err := os.Stat(track.FilePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, track.FilePath)
	}

	offset := b.Options.StartOffset(track.Duration, b.rng)

	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		"-ss", strconv.Itoa(offset),
		"-t", strconv.Itoa(b.Options.SnippetSeconds),
		track.FilePath,
	}

	confirm := NewConfirmation()

	// Two open attempts before giving up on the source.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := b.proc.spawn(ctx, confirm, b.Binary, args...); err != nil {
			lastErr = err
			continue
		}
		return confirm, nil
	}

	return nil, lastErr
}

func (b *LocalBackend) Stop() error {
	return b.proc.stop()
}

// SeekPercent is unsupported for snippet playback; the offset is chosen at
// start time instead.
func (b *LocalBackend) SeekPercent(percent float64) error {
	return nil
}

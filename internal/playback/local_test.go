package playback

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxnx/triviatune/internal/catalog"
)

func TestStartOffsetShortTrackIsAlwaysZero(t *testing.T) {
	options := SnippetOptions{
		SnippetSeconds:         30,
		TailGuardSeconds:       15,
		StartAtZeroProbability: 0,
	}
	rng := rand.New(rand.NewSource(1))

	// duration <= snippet + tail guard leaves no random window.
	for _, duration := range []int{0, 10, 30, 45, 55} {
		for i := 0; i < 100; i++ {
			offset := options.StartOffset(duration, rng)
			assert.Equalf(t, 0, offset, "duration %d must start at 0", duration)
		}
	}
}

func TestStartOffsetStaysInsideWindow(t *testing.T) {
	options := SnippetOptions{
		SnippetSeconds:         30,
		TailGuardSeconds:       15,
		StartAtZeroProbability: 0,
	}
	rng := rand.New(rand.NewSource(1))

	const duration = 240
	upper := duration - options.SnippetSeconds - options.TailGuardSeconds

	for i := 0; i < 1000; i++ {
		offset := options.StartOffset(duration, rng)
		assert.GreaterOrEqual(t, offset, minRandomOffset)
		assert.LessOrEqual(t, offset, upper)
	}
}

func TestStartOffsetHonorsStartAtZeroProbability(t *testing.T) {
	options := SnippetOptions{
		SnippetSeconds:         30,
		TailGuardSeconds:       15,
		StartAtZeroProbability: 1,
	}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, options.StartOffset(240, rng))
	}
}

func TestLocalBackendMissingFile(t *testing.T) {
	backend := NewLocalBackend("ffplay", DefaultSnippetOptions(30), rand.New(rand.NewSource(1)))

	_, err := backend.Start(context.Background(), catalog.Track{FilePath: "/nonexistent/track.mp3"})
	assert.ErrorIs(t, err, ErrFileMissing)

	_, err = backend.Start(context.Background(), catalog.Track{})
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestLocalBackendStopIsIdempotent(t *testing.T) {
	backend := NewLocalBackend("ffplay", DefaultSnippetOptions(30), rand.New(rand.NewSource(1)))

	require.NoError(t, backend.Stop())
	require.NoError(t, backend.Stop())
}

func TestConfirmationResolvesOnce(t *testing.T) {
	confirm := NewConfirmation()
	confirm.Resolve(nil)
	confirm.Resolve(ErrPlaybackFailed) // ignored

	assert.NoError(t, confirm.Wait(time.Second))
}

func TestConfirmationWaitTimesOut(t *testing.T) {
	confirm := NewConfirmation()
	assert.ErrorIs(t, confirm.Wait(10*time.Millisecond), ErrStartTimeout)
}

package playback

import (
	"context"
	"log"

	"github.com/hxnx/triviatune/internal/catalog"
)

// ExternalBackend serves origins whose audio can only be played by the
// out-of-process player. It is a thin pass-through to the controller.
type ExternalBackend struct {
	store      LinkStore
	controller *Controller
}

func NewExternalBackend(store LinkStore, controller *Controller) *ExternalBackend {
	return &ExternalBackend{
		store:      store,
		controller: controller,
	}
}

func (b *ExternalBackend) Start(ctx context.Context, track catalog.Track) (*Confirmation, error) {
	playURL, err := b.resolveURL(ctx, track)
	if err != nil {
		return nil, err
	}

	if err := b.controller.Start(ctx); err != nil {
		return nil, err
	}

	confirm := NewConfirmation()
	if err := b.controller.LoadURL(playURL, false); err != nil {
		return nil, err
	}

	confirm.Resolve(nil)
	b.controller.ScheduleRandomSeek()
	return confirm, nil
}

// StartBatch queues the whole option set so the player holds every candidate,
// with the correct track moved to the front as the one audible. Decoys whose
// URL cannot be resolved are dropped from the queue; the correct track must
// resolve.
func (b *ExternalBackend) StartBatch(ctx context.Context, options []catalog.Track, correctIndex int) (*Confirmation, error) {
	if correctIndex < 0 || correctIndex >= len(options) {
		return nil, ErrNoPlayableURL
	}

	urls := make([]string, 0, len(options))
	playIndex := -1
	for i, track := range options {
		playURL, err := b.resolveURL(ctx, track)
		if err != nil {
			if i == correctIndex {
				return nil, err
			}
			log.Printf("Warning: no playable url for decoy track %d: %v", track.ID, err)
			continue
		}
		if i == correctIndex {
			playIndex = len(urls)
		}
		urls = append(urls, playURL)
	}

	if err := b.controller.Start(ctx); err != nil {
		return nil, err
	}

	confirm := NewConfirmation()
	if err := b.controller.SubmitPlaylist(urls, playIndex); err != nil {
		return nil, err
	}

	confirm.Resolve(nil)
	b.controller.ScheduleRandomSeek()
	return confirm, nil
}

func (b *ExternalBackend) resolveURL(ctx context.Context, track catalog.Track) (string, error) {
	if b.store == nil {
		return "", ErrNoPlayableURL
	}

	links, err := b.store.Links(ctx, track.ID)
	if err != nil {
		return "", err
	}

	for _, kind := range linkProbeOrder {
		if u := links[kind]; u != "" {
			return u, nil
		}
	}

	return "", ErrNoPlayableURL
}

func (b *ExternalBackend) Stop() error {
	if b.controller == nil {
		return nil
	}
	return b.controller.StopPlayback()
}

func (b *ExternalBackend) SeekPercent(percent float64) error {
	if b.controller == nil {
		return nil
	}
	return b.controller.SeekPercent(percent)
}

// CyclePause freezes or resumes the audio alongside a paused game.
func (b *ExternalBackend) CyclePause() error {
	if b.controller == nil {
		return nil
	}
	return b.controller.CyclePause()
}

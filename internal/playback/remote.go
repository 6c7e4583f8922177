package playback

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/hxnx/triviatune/internal/catalog"
)

// LinkStore is the slice of the catalog the remote backend needs: stored
// playback links plus the writeback cache.
type LinkStore interface {
	Links(ctx context.Context, trackID int64) (map[string]string, error)
	SaveLink(ctx context.Context, link catalog.Link) error
}

// PreviewResolver looks up a preview URL when no direct link is stored.
type PreviewResolver interface {
	PreviewURL(ctx context.Context, recordingID string) (string, error)
}

// URLCache is an optional fast-path cache in front of the link table.
type URLCache interface {
	Get(ctx context.Context, trackID int64) (string, bool)
	Set(ctx context.Context, trackID int64, url string) error
}

// linkProbeOrder is the priority order for stored links: the video-sharing
// link first, then the alternate audio hosts, then a previously cached
// preview.
var linkProbeOrder = []string{
	catalog.LinkKindVideo,
	catalog.LinkKindAudioA,
	catalog.LinkKindAudioB,
	catalog.LinkKindPreview,
}

// RemoteBackend resolves a playable URL for a remote-origin track and plays
// it, delegating to the external player controller for video-service URLs
// and to a direct stream player otherwise.
type RemoteBackend struct {
	Binary string

	store      LinkStore
	cache      URLCache
	resolver   PreviewResolver
	controller *Controller

	proc            processHandle
	usingController bool
}

func NewRemoteBackend(binary string, store LinkStore, cache URLCache, resolver PreviewResolver, controller *Controller) *RemoteBackend {
	if binary == "" {
		binary = "ffplay"
	}
	return &RemoteBackend{
		Binary:     binary,
		store:      store,
		cache:      cache,
		resolver:   resolver,
		controller: controller,
	}
}

func (b *RemoteBackend) Start(ctx context.Context, track catalog.Track) (*Confirmation, error) {
	playURL, err := b.ResolveURL(ctx, track)
	if err != nil {
		return nil, err
	}

	if b.controller != nil && IsVideoServiceURL(playURL) {
		b.usingController = true
		return b.startViaController(ctx, playURL)
	}

	b.usingController = false
	confirm := NewConfirmation()

	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		playURL,
	}

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

func (b *RemoteBackend) startViaController(ctx context.Context, playURL string) (*Confirmation, error) {
	if err := b.controller.Start(ctx); err != nil {
		return nil, err
	}

	confirm := NewConfirmation()
	if err := b.controller.LoadURL(playURL, false); err != nil {
		return nil, err
	}

	// No ack is read from the control channel; a successful write is the
	// best available start signal.
	confirm.Resolve(nil)
	b.controller.ScheduleRandomSeek()
	return confirm, nil
}

// ResolveURL probes stored links in priority order, then falls back to the
// metadata-service lookup, caching whatever it discovers.
func (b *RemoteBackend) ResolveURL(ctx context.Context, track catalog.Track) (string, error) {
	if b.cache != nil {
		if cached, ok := b.cache.Get(ctx, track.ID); ok {
			return cached, nil
		}
	}

	if b.store != nil {
		links, err := b.store.Links(ctx, track.ID)
		if err != nil {
			log.Printf("Warning: link lookup failed for track %d: %v", track.ID, err)
		}
		for _, kind := range linkProbeOrder {
			if u := links[kind]; u != "" {
				b.cacheURL(ctx, track.ID, u)
				return u, nil
			}
		}
	}

	if b.resolver == nil {
		return "", ErrNoPlayableURL
	}

	previewURL, err := b.resolver.PreviewURL(ctx, track.RecordingID)
	if err != nil {
		return "", ErrNoPlayableURL
	}

	if b.store != nil {
		if err := b.store.SaveLink(ctx, catalog.Link{
			TrackID: track.ID,
			Kind:    catalog.LinkKindPreview,
			URL:     previewURL,
		}); err != nil {
			log.Printf("Warning: failed to cache preview link for track %d: %v", track.ID, err)
		}
	}
	b.cacheURL(ctx, track.ID, previewURL)

	return previewURL, nil
}

func (b *RemoteBackend) cacheURL(ctx context.Context, trackID int64, playURL string) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Set(ctx, trackID, playURL); err != nil {
		log.Printf("Warning: preview cache write failed for track %d: %v", trackID, err)
	}
}

func (b *RemoteBackend) Stop() error {
	if b.usingController && b.controller != nil {
		b.usingController = false
		return b.controller.StopPlayback()
	}
	return b.proc.stop()
}

// CyclePause freezes or resumes controller-driven playback. Direct streams
// have no control channel, so the toggle is a no-op for them.
func (b *RemoteBackend) CyclePause() error {
	if b.usingController && b.controller != nil {
		return b.controller.CyclePause()
	}
	return nil
}

func (b *RemoteBackend) SeekPercent(percent float64) error {
	if b.usingController && b.controller != nil {
		return b.controller.SeekPercent(percent)
	}
	// Direct streams play from the top; there is no seekable handle.
	return nil
}

// IsVideoServiceURL reports whether a URL belongs to the video-sharing
// service that always requires the external player.
func IsVideoServiceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}

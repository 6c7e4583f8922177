package catalog

import "strings"

// Origin identifies where a track's audio comes from: "local" for files on
// disk, or "<service>_<user>" for tracks pulled from a streaming account.
type Origin string

const OriginLocal Origin = "local"

func (o Origin) IsLocal() bool {
	return o == OriginLocal
}

// Service returns the streaming-service part of a remote origin, or "" for
// local tracks.
func (o Origin) Service() string {
	if o.IsLocal() {
		return ""
	}
	if idx := strings.IndexByte(string(o), '_'); idx > 0 {
		return string(o[:idx])
	}
	return string(o)
}

// Link kinds stored in track_links, in the order the remote backend probes
// them.
const (
	LinkKindVideo   = "video"
	LinkKindAudioA  = "audio_a"
	LinkKindAudioB  = "audio_b"
	LinkKindPreview = "preview"
)

// Track is the immutable projection the engine reads per query. It is never
// written back except through the link cache.
type Track struct {
	ID          int64
	Title       string
	Artist      string
	Album       string
	FilePath    string
	Duration    int // seconds
	Genre       string
	Label       string
	Year        int
	ReleaseDate string
	Country     string
	Producer    string
	Engineer    string
	Lyrics      string
	ArtworkURL  string
	RecordingID string
	Favorite    bool
	Origin      Origin
}

type Link struct {
	TrackID int64
	Kind    string
	URL     string
}

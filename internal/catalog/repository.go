package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const repoTimeout = 5 * time.Second

var ErrCatalogUnavailable = errors.New("catalog database is not initialized")

// trackColumns is the projection every candidate query must select, in scan
// order.
const trackColumns = `t.id, t.title, t.artist, t.album, t.file_path, t.duration,
	t.genre, t.label, t.year, t.release_date, t.country, t.producer, t.engineer,
	t.lyrics, t.artwork_url, t.recording_id, t.favorite, t.origin`

// TrackColumns exposes the projection for query builders.
func TrackColumns() string {
	return trackColumns
}

type TrackRepository struct {
	db *sql.DB
}

func NewTrackRepository() *TrackRepository {
	return &TrackRepository{db: GetDB()}
}

func NewTrackRepositoryWithDB(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// FindCandidates executes a compiled candidate query and scans Track rows.
func (r *TrackRepository) FindCandidates(ctx context.Context, query string, args []any) ([]Track, error) {
	if r == nil || r.db == nil {
		return nil, ErrCatalogUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Artist, &t.Album, &t.FilePath, &t.Duration,
			&t.Genre, &t.Label, &t.Year, &t.ReleaseDate, &t.Country, &t.Producer,
			&t.Engineer, &t.Lyrics, &t.ArtworkURL, &t.RecordingID, &t.Favorite,
			&t.Origin,
		); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// Links returns the stored playback links for a track keyed by kind.
func (r *TrackRepository) Links(ctx context.Context, trackID int64) (map[string]string, error) {
	if r == nil || r.db == nil {
		return nil, ErrCatalogUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	const query = `
		SELECT kind, url
		FROM track_links
		WHERE track_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string]string)
	for rows.Next() {
		var kind, url string
		if err := rows.Scan(&kind, &url); err != nil {
			return nil, err
		}
		links[kind] = url
	}

	return links, rows.Err()
}

// SaveLink caches a discovered playback URL so later questions skip the
// lookup.
func (r *TrackRepository) SaveLink(ctx context.Context, link Link) error {
	if r == nil || r.db == nil {
		return ErrCatalogUnavailable
	}
	if link.TrackID == 0 || link.Kind == "" || link.URL == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	const query = `
		INSERT INTO track_links (track_id, kind, url, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (track_id, kind)
		DO UPDATE SET
			url = EXCLUDED.url,
			updated_at = NOW();
	`

	_, err := r.db.ExecContext(ctx, query, link.TrackID, link.Kind, link.URL)
	return err
}

// SetFavorite toggles the favorite flag on a track.
func (r *TrackRepository) SetFavorite(ctx context.Context, trackID int64, favorite bool) error {
	if r == nil || r.db == nil {
		return ErrCatalogUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	const query = `
		UPDATE tracks SET favorite = $2 WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, trackID, favorite)
	return err
}

// DistinctValues lists the known values for a filter column, used to populate
// filter pickers.
func (r *TrackRepository) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, ErrCatalogUnavailable
	}

	allowed := map[string]bool{
		"artist": true, "album": true, "genre": true, "label": true,
		"country": true, "producer": true, "engineer": true,
	}
	if !allowed[column] {
		return nil, errors.New("unsupported filter column: " + column)
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT DISTINCT ` + column + ` FROM tracks WHERE ` + column + ` <> '' ORDER BY ` + column

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// UpsertTrack inserts or refreshes a scanned track keyed by file path. Used by
// the library scanner only.
func (r *TrackRepository) UpsertTrack(ctx context.Context, t Track) error {
	if r == nil || r.db == nil {
		return ErrCatalogUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	const query = `
		INSERT INTO tracks (title, artist, album, file_path, duration, genre,
			label, year, release_date, country, producer, engineer, lyrics,
			artwork_url, recording_id, favorite, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (file_path) WHERE file_path <> ''
		DO UPDATE SET
			title = EXCLUDED.title,
			artist = EXCLUDED.artist,
			album = EXCLUDED.album,
			duration = EXCLUDED.duration,
			genre = EXCLUDED.genre,
			year = EXCLUDED.year;
	`

	_, err := r.db.ExecContext(ctx, query,
		t.Title, t.Artist, t.Album, t.FilePath, t.Duration, t.Genre,
		t.Label, t.Year, t.ReleaseDate, t.Country, t.Producer, t.Engineer,
		t.Lyrics, t.ArtworkURL, t.RecordingID, t.Favorite, string(t.Origin),
	)
	return err
}

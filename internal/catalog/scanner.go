package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

var ErrScanFailed = errors.New("library scan failed")

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".wav":  true,
	".opus": true,
}

// Scanner imports local audio files into the tracks table. Duration comes
// from ffprobe since tag headers do not carry it.
type Scanner struct {
	repo          *TrackRepository
	FFProbeBinary string
}

func NewScanner(repo *TrackRepository) *Scanner {
	return &Scanner{
		repo:          repo,
		FFProbeBinary: "ffprobe",
	}
}

// Scan walks root and upserts every readable audio file. Unreadable files are
// logged and skipped; the scan only fails on catalog errors.
func (s *Scanner) Scan(ctx context.Context, root string) (int, error) {
	if s.repo == nil {
		return 0, ErrCatalogUnavailable
	}

	imported := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		track, err := s.readTrack(ctx, path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			return nil
		}

		if err := s.repo.UpsertTrack(ctx, track); err != nil {
			return err
		}

		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("%w: %v", ErrScanFailed, err)
	}

	return imported, nil
}

func (s *Scanner) readTrack(ctx context.Context, path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return Track{}, err
	}
	defer f.Close()

	track := Track{
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FilePath: path,
		Origin:   OriginLocal,
	}

	meta, err := tag.ReadFrom(f)
	if err == nil {
		if title := strings.TrimSpace(meta.Title()); title != "" {
			track.Title = title
		}
		track.Artist = strings.TrimSpace(meta.Artist())
		track.Album = strings.TrimSpace(meta.Album())
		track.Genre = strings.TrimSpace(meta.Genre())
		track.Year = meta.Year()
		track.Lyrics = strings.TrimSpace(meta.Lyrics())
	}

	if duration, err := s.probeDuration(ctx, path); err == nil {
		track.Duration = duration
	} else {
		log.Printf("Warning: duration probe failed for %s: %v", path, err)
	}

	return track, nil
}

func (s *Scanner) probeDuration(ctx context.Context, path string) (int, error) {
	binary := s.FFProbeBinary
	if binary == "" {
		binary = "ffprobe"
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %v: %s", err, strings.TrimSpace(string(output)))
	}

	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0, fmt.Errorf("invalid ffprobe json: %v", err)
	}

	seconds, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", payload.Format.Duration)
	}

	return int(seconds), nil
}

package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrMissingName     = errors.New("profile name is required")
)

// Store persists one TOML file per profile under a directory. Saves are
// atomic: full rewrite to a temp file, then rename.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("profile directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, sanitizeName(name)+".toml")
}

func (s *Store) Save(p *Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}

	tmp, err := os.CreateTemp(s.dir, "profile-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp profile file: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(p); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path(p.Name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write profile: %w", err)
	}

	return nil
}

func (s *Store) Load(name string) (*Profile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingName
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if p.Name == "" {
		p.Name = name
	}
	if p.Hotkeys == nil {
		p.Hotkeys = make(map[string]string)
	}

	return &p, nil
}

// LoadOrDefault falls back to in-memory defaults when the profile cannot be
// read, so a broken file never blocks gameplay.
func (s *Store) LoadOrDefault(name string) *Profile {
	p, err := s.Load(name)
	if err != nil {
		return New(name)
	}
	return p
}

func (s *Store) Delete(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrMissingName
	}

	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return ErrProfileNotFound
	}
	return err
}

func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".toml"); ok {
			names = append(names, name)
		}
	}

	return names, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return replacer.Replace(name)
}

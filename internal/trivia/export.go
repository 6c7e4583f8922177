package trivia

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// sessionFiltersDocument is the on-disk shape of an exported session filter
// set. Stability across installations is not guaranteed.
type sessionFiltersDocument struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists,omitempty"`
	Albums  []string `json:"albums,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Folders []string `json:"folders,omitempty"`
	Version int      `json:"version"`
}

const sessionFiltersVersion = 1

var ErrInvalidFilterDocument = errors.New("invalid session filter document")

// ExportSessionFilters writes the current session filters plus a name to the
// path the user chose.
func ExportSessionFilters(path, name string, filters *SessionFilters) error {
	doc := sessionFiltersDocument{
		Name:    name,
		Artists: filters.Values(CategoryArtist),
		Albums:  filters.Values(CategoryAlbum),
		Genres:  filters.Values(CategoryGenre),
		Folders: filters.Values(CategoryFolder),
		Version: sessionFiltersVersion,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ImportSessionFilters reads a previously exported document back into a
// SessionFilters overlay.
func ImportSessionFilters(path string) (string, *SessionFilters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	var doc sessionFiltersDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidFilterDocument, err)
	}

	filters := NewSessionFilters()
	filters.Set(CategoryArtist, doc.Artists)
	filters.Set(CategoryAlbum, doc.Albums)
	filters.Set(CategoryGenre, doc.Genres)
	filters.Set(CategoryFolder, doc.Folders)

	return doc.Name, filters, nil
}

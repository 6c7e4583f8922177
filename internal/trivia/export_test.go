package trivia

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFiltersExportImportRoundTrip(t *testing.T) {
	filters := NewSessionFilters()
	filters.Set(CategoryArtist, []string{"Otis Redding", "Sam Cooke"})
	filters.Set(CategoryGenre, []string{"soul"})
	filters.Set(CategoryFolder, []string{"/music/soul"})

	path := filepath.Join(t.TempDir(), "soul-night.json")
	require.NoError(t, ExportSessionFilters(path, "Soul Night", filters))

	name, loaded, err := ImportSessionFilters(path)
	require.NoError(t, err)

	assert.Equal(t, "Soul Night", name)
	assert.Equal(t, filters.Values(CategoryArtist), loaded.Values(CategoryArtist))
	assert.Equal(t, filters.Values(CategoryGenre), loaded.Values(CategoryGenre))
	assert.Equal(t, filters.Values(CategoryFolder), loaded.Values(CategoryFolder))
	assert.Empty(t, loaded.Values(CategoryAlbum))
}

func TestImportSessionFiltersRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, _, err := ImportSessionFilters(path)
	assert.ErrorIs(t, err, ErrInvalidFilterDocument)
}

package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewURLSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":123,"title":"Song","preview":"https://cdn/preview.mp3"}`))
	}))
	defer server.Close()

	client := NewLookupClient(server.URL + "/")

	got, err := client.PreviewURL(context.Background(), "USX11111111")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/preview.mp3", got)
	assert.Equal(t, "/track/isrc:USX11111111", gotPath)
}

func TestPreviewURLMissingRecordingID(t *testing.T) {
	client := NewLookupClient("http://unused")

	_, err := client.PreviewURL(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestPreviewURLServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewLookupClient(server.URL)

	_, err := client.PreviewURL(context.Background(), "USX11111111")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestPreviewURLEmptyPreviewField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":123,"preview":""}`))
	}))
	defer server.Close()

	client := NewLookupClient(server.URL)

	_, err := client.PreviewURL(context.Background(), "USX11111111")
	assert.ErrorIs(t, err, ErrLookupFailed)
}

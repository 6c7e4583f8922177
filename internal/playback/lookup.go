package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrLookupFailed = errors.New("failed to look up preview url")

// LookupClient resolves a streamable preview URL from a metadata service,
// keyed by the track's persistent recording identifier. Used as the last
// resort when no direct link is stored.
type LookupClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewLookupClient(baseURL string) *LookupClient {
	return &LookupClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *LookupClient) PreviewURL(ctx context.Context, recordingID string) (string, error) {
	recordingID = strings.TrimSpace(recordingID)
	if recordingID == "" {
		return "", fmt.Errorf("%w: missing recording id", ErrLookupFailed)
	}

	endpoint := c.BaseURL + "/track/isrc:" + recordingID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: metadata api status %d", ErrLookupFailed, resp.StatusCode)
	}

	var payload struct {
		Preview string `json:"preview"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	if payload.Preview == "" {
		return "", fmt.Errorf("%w: no preview for recording %s", ErrLookupFailed, recordingID)
	}

	return payload.Preview, nil
}

// Package fetch talks to the remote resolver and fetches remote bytes
// (audio, thumbnails) with retries.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"waveshelf/internal/constants"
)

// RemoteTrack is what the resolver knows about a remote URL. Any of the
// optional fields may be empty; the importer falls back field by field.
type RemoteTrack struct {
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	DurationSeconds int    `json:"duration_seconds"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
}

// Client wraps a retrying HTTP client. The zero resolver URL disables
// ResolveTrack but FetchBytes still works for direct downloads.
type Client struct {
	retry       *retryablehttp.Client
	resolverURL string
}

func New(resolverURL string) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = constants.DefaultRetryCount
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	client.Logger = nil

	return &Client{
		retry:       client,
		resolverURL: resolverURL,
	}
}

// ResolveTrack asks the resolver for metadata and an audio location. Any
// error means "use fallback naming"; it is never fatal to an import.
func (c *Client) ResolveTrack(ctx context.Context, trackURL string) (*RemoteTrack, error) {
	if c.resolverURL == "" {
		return nil, fmt.Errorf("no resolver configured")
	}

	endpoint := fmt.Sprintf("%s/resolve?url=%s", c.resolverURL, url.QueryEscape(trackURL))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver returned status %d", resp.StatusCode)
	}

	var rt RemoteTrack
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rt); err != nil {
		return nil, fmt.Errorf("failed to decode resolver response: %w", err)
	}
	return &rt, nil
}

// FetchBytes downloads at most maxBytes from rawURL.
func (c *Client) FetchBytes(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxBytes)
	}
	return data, nil
}

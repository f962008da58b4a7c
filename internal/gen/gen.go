// Package gen is the boundary to the AI generation services. Each service
// is independently optional: an unavailable one fails its call and the
// importer substitutes fallbacks.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"waveshelf/internal/constants"
)

// GeneratedMeta is a title/author pair suggested for a prompt.
type GeneratedMeta struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// AudioGenerator produces playable audio bytes from a text prompt.
type AudioGenerator interface {
	GenerateAudio(ctx context.Context, prompt string) ([]byte, error)
}

// MetaGenerator suggests display metadata for a prompt.
type MetaGenerator interface {
	GenerateMeta(ctx context.Context, prompt string) (*GeneratedMeta, error)
}

// CoverGenerator produces cover image bytes for a prompt.
type CoverGenerator interface {
	GenerateCover(ctx context.Context, prompt string) ([]byte, error)
}

// HTTPService implements all three generators against simple POST
// endpoints. An empty endpoint disables that generator.
type HTTPService struct {
	retry    *retryablehttp.Client
	audioURL string
	metaURL  string
	coverURL string
}

func NewHTTPService(audioURL, metaURL, coverURL string) *HTTPService {
	client := retryablehttp.NewClient()
	client.RetryMax = constants.DefaultRetryCount
	client.HTTPClient.Timeout = 5 * time.Minute // generation is slow
	client.Logger = nil

	return &HTTPService{
		retry:    client,
		audioURL: audioURL,
		metaURL:  metaURL,
		coverURL: coverURL,
	}
}

func (s *HTTPService) GenerateAudio(ctx context.Context, prompt string) ([]byte, error) {
	return s.postPrompt(ctx, s.audioURL, prompt, constants.MaxFetchBytes)
}

func (s *HTTPService) GenerateCover(ctx context.Context, prompt string) ([]byte, error) {
	return s.postPrompt(ctx, s.coverURL, prompt, constants.MaxCoverBytes)
}

func (s *HTTPService) GenerateMeta(ctx context.Context, prompt string) (*GeneratedMeta, error) {
	data, err := s.postPrompt(ctx, s.metaURL, prompt, 1<<20)
	if err != nil {
		return nil, err
	}
	var meta GeneratedMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode generated meta: %w", err)
	}
	return &meta, nil
}

func (s *HTTPService) postPrompt(ctx context.Context, endpoint, prompt string, maxBytes int64) ([]byte, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("generator not configured")
	}

	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read generator response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("generator returned no data")
	}
	return data, nil
}

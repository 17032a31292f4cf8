package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/pkg/retry"
	"geolatency/pkg/validation"
)

const maxResponseBytes = 8 << 20

// HTTPFeed polls a remote endpoint returning a JSON array of {from, to, latency}.
type HTTPFeed struct {
	url    string
	client *http.Client
}

func NewHTTPFeed(url string, timeout time.Duration) (*HTTPFeed, error) {
	if err := validation.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("feed url: %w", err)
	}
	return &HTTPFeed{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (f *HTTPFeed) Name() string { return "http" }

func (f *HTTPFeed) Fetch(ctx context.Context) ([]domain.LatencySample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to build feed request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latency feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		err := fmt.Errorf("latency feed returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	var samples []domain.LatencySample
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&samples); err != nil {
		return nil, fmt.Errorf("failed to decode latency feed: %w", err)
	}
	return samples, nil
}

package settings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxSheetBytes = 1 << 20

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Source loads the remote sheet fresh on every call.
type Source struct {
	url     string
	fetcher Fetcher
}

func NewSource(url string, fetcher Fetcher) *Source {
	return &Source{url: url, fetcher: fetcher}
}

func (s *Source) Load(ctx context.Context) (Settings, error) {
	body, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	raw := ParseSheet(body)
	if len(raw) == 0 {
		return Settings{}, ErrEmpty
	}
	return Decode(raw)
}

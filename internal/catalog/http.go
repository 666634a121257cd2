package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPFetcher pulls catalog payloads over HTTP. The endpoint serves the full
// nested document per essential under /essentials/{name}.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("catalog: base URL must not be empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, essentialName string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/essentials/%s", f.baseURL, url.PathEscape(essentialName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request for '%s': %w", essentialName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request for '%s': unexpected status %d", essentialName, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

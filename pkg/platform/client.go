package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient is the shared client for remote rate source adapters.
// Per-call deadlines come from the caller's context; the client timeout is a
// hard upper bound in case a caller forgets one.
type HTTPClient struct {
	Client *http.Client
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Client: &http.Client{Timeout: timeout},
	}
}

// GetJSON fetches url and decodes the response body into out.
// There is no retry loop here: retries belong to the caller, and a rate
// lookup that misses its deadline is converted to a fallback upstream.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

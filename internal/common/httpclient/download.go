package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download fetches url with a GET and returns at most maxBytes of the body and
// the reported content type.
func Download(ctx context.Context, hc *http.Client, url string, maxBytes int64) ([]byte, string, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "agenthub/1.0")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("response larger than %d bytes", maxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

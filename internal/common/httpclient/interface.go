// Package httpclient is a small JSON REST client used by the backend adapters.
// Every call takes a context so that a cancelled inbound request cancels the
// outbound one. Non-2xx replies are returned as *HTTPError.
package httpclient

import "context"

// Client is implemented by HTTPClient. Backend adapters depend on it so tests can
// substitute a recorder.
type Client interface {
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error)
	PostJSON(ctx context.Context, path string, body any) ([]byte, error)
	Get(ctx context.Context, path string, queryParams map[string]string) ([]byte, error)
}

var _ Client = &HTTPClient{}

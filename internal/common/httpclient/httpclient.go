package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxErrorBody caps how much of an error reply ends up in HTTPError.Message.
const maxErrorBody = 512

// HTTPError is a non-2xx reply from a backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Config describes one backend endpoint.
type Config struct {
	BaseURL    string
	Headers    map[string]string // sent with every request, e.g. authorization
	Timeout    time.Duration     // transport level timeout, zero means none
	HTTPClient *http.Client
}

// HTTPClient sends JSON requests to a single backend.
type HTTPClient struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient creates a client for the backend described by cfg.
func NewClient(cfg Config) *HTTPClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		headers:    headers,
		httpClient: hc,
	}
}

// RequestOptions describes one request. Path is joined to the base URL unless it
// is an absolute URL.
type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        []byte
	Headers     map[string]string
}

func (c *HTTPClient) buildURL(p string, query map[string]string) (string, error) {
	var u *url.URL
	var err error
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		u, err = url.Parse(p)
	} else {
		u, err = url.Parse(c.baseURL)
		if err == nil && p != "" {
			u.Path = path.Join("/", u.Path, p)
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid server URL: %q", u.String())
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// DoRequest sends the request and returns the body of a 2xx reply.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	target, err := c.buildURL(opts.Path, opts.QueryParams)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	rspBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, rspBody),
		}
	}
	return rspBody, nil
}

// PostJSON marshals body and posts it to path.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any) ([]byte, error) {
	var data []byte
	switch b := body.(type) {
	case []byte:
		data = b
	case nil:
		data = []byte("{}")
	default:
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   path,
		Body:   data,
	})
}

func (c *HTTPClient) Get(ctx context.Context, path string, queryParams map[string]string) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        path,
		QueryParams: queryParams,
	})
}

// errorMessage pulls the human readable message out of the error reply shapes
// used by the backends, falling back to the raw body.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, p := range []string{"error.message", "error", "message", "detail"} {
			if v := gjson.GetBytes(body, p); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

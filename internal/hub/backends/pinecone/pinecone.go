// Package pinecone is a client for the Pinecone vector database REST API. It
// resolves (or creates) one serverless index and talks to its data plane.
package pinecone

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
	"github.com/fialabdata/agenthub/internal/common/httpclient"
)

const (
	DefaultControlURL = "https://api.pinecone.io"
	apiVersion        = "2024-07"
)

var (
	ErrPinecone    apperrors.Error = apperrors.New("pinecone request failed")
	ErrNoIndexHost apperrors.Error = ErrPinecone.New("index has no host")
)

// Options select the index.
type Options struct {
	ControlURL string
	IndexName  string
	IndexHost  string // skips the control plane when set
	Dimension  int
	Metric     string
	Cloud      string
	Region     string
	HTTPClient *http.Client
}

// Vector is an embedding with its id and metadata.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a query hit.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// IndexStats describes the index contents.
type IndexStats struct {
	TotalVectors  int64            `json:"total_vectors"`
	Dimension     int              `json:"dimension"`
	IndexFullness float64          `json:"index_fullness"`
	Namespaces    map[string]int64 `json:"namespaces"`
}

type Client struct {
	apiKey  string
	opts    Options
	control httpclient.Client

	mu   sync.Mutex
	data httpclient.Client
}

func New(apiKey string, opts Options) *Client {
	if opts.ControlURL == "" {
		opts.ControlURL = DefaultControlURL
	}
	if opts.Metric == "" {
		opts.Metric = "cosine"
	}
	c := &Client{apiKey: apiKey, opts: opts}
	c.control = httpclient.NewClient(httpclient.Config{
		BaseURL:    opts.ControlURL,
		Headers:    c.headers(),
		HTTPClient: opts.HTTPClient,
	})
	return c
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Api-Key":                c.apiKey,
		"X-Pinecone-API-Version": apiVersion,
	}
}

// dataPlane returns the client of the index host, resolving the host through the
// control plane and creating the index when it does not exist yet.
func (c *Client) dataPlane(ctx context.Context) (httpclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data != nil {
		return c.data, nil
	}
	host := c.opts.IndexHost
	if host == "" {
		var err error
		if host, err = c.resolveHost(ctx); err != nil {
			return nil, err
		}
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	c.data = httpclient.NewClient(httpclient.Config{
		BaseURL:    host,
		Headers:    c.headers(),
		HTTPClient: c.opts.HTTPClient,
	})
	return c.data, nil
}

func (c *Client) resolveHost(ctx context.Context) (string, error) {
	rsp, err := c.control.Get(ctx, "/indexes/"+url.PathEscape(c.opts.IndexName), nil)
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		rsp, err = c.control.PostJSON(ctx, "/indexes", map[string]any{
			"name":      c.opts.IndexName,
			"dimension": c.opts.Dimension,
			"metric":    c.opts.Metric,
			"spec": map[string]any{
				"serverless": map[string]any{
					"cloud":  c.opts.Cloud,
					"region": c.opts.Region,
				},
			},
		})
	}
	if err != nil {
		return "", err
	}
	host := gjson.GetBytes(rsp, "host").String()
	if host == "" {
		return "", ErrNoIndexHost.New("index " + c.opts.IndexName + " has no host yet")
	}
	return host, nil
}

// Upsert writes vectors and returns how many were stored.
func (c *Client) Upsert(ctx context.Context, vectors []Vector, namespace string) (int, error) {
	data, err := c.dataPlane(ctx)
	if err != nil {
		return 0, err
	}
	body := map[string]any{"vectors": vectors}
	if namespace != "" {
		body["namespace"] = namespace
	}
	rsp, err := data.PostJSON(ctx, "/vectors/upsert", body)
	if err != nil {
		return 0, err
	}
	return int(gjson.GetBytes(rsp, "upsertedCount").Int()), nil
}

// Query returns the topK nearest vectors with their metadata.
func (c *Client) Query(ctx context.Context, vector []float64, topK int, namespace string) ([]Match, error) {
	data, err := c.dataPlane(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if namespace != "" {
		body["namespace"] = namespace
	}
	rsp, err := data.PostJSON(ctx, "/query", body)
	if err != nil {
		return nil, err
	}
	var matches []Match
	gjson.GetBytes(rsp, "matches").ForEach(func(_, m gjson.Result) bool {
		md, _ := m.Get("metadata").Value().(map[string]any)
		matches = append(matches, Match{
			ID:       m.Get("id").String(),
			Score:    m.Get("score").Float(),
			Metadata: md,
		})
		return true
	})
	return matches, nil
}

// Stats describes the index.
func (c *Client) Stats(ctx context.Context) (*IndexStats, error) {
	data, err := c.dataPlane(ctx)
	if err != nil {
		return nil, err
	}
	rsp, err := data.PostJSON(ctx, "/describe_index_stats", nil)
	if err != nil {
		return nil, err
	}
	st := &IndexStats{
		TotalVectors:  gjson.GetBytes(rsp, "totalVectorCount").Int(),
		Dimension:     int(gjson.GetBytes(rsp, "dimension").Int()),
		IndexFullness: gjson.GetBytes(rsp, "indexFullness").Float(),
		Namespaces:    map[string]int64{},
	}
	gjson.GetBytes(rsp, "namespaces").ForEach(func(k, v gjson.Result) bool {
		st.Namespaces[k.String()] = v.Get("vectorCount").Int()
		return true
	})
	return st, nil
}

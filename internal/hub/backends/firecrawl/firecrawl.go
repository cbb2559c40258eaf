// Package firecrawl is a client for the Firecrawl scraping and search API.
package firecrawl

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
	"github.com/fialabdata/agenthub/internal/common/httpclient"
)

const DefaultURL = "https://api.firecrawl.dev"

var (
	ErrFirecrawl   apperrors.Error = apperrors.New("firecrawl request failed")
	ErrNoContent   apperrors.Error = ErrFirecrawl.New("page has no content")
	ErrBadResponse apperrors.Error = ErrFirecrawl.New("unexpected firecrawl reply")
)

// Document is a scraped page or a search hit.
type Document struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown,omitempty"`
}

type Client struct {
	http httpclient.Client
}

// New creates a client authenticating with apiKey. An empty baseURL selects the
// public API.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return NewWithClient(httpclient.NewClient(httpclient.Config{
		BaseURL: baseURL,
		Headers: map[string]string{"Authorization": "Bearer " + apiKey},
	}))
}

func NewWithClient(c httpclient.Client) *Client {
	return &Client{http: c}
}

// Scrape fetches url and returns its main content as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (*Document, error) {
	rsp, err := c.http.PostJSON(ctx, "/v1/scrape", map[string]any{
		"url":             url,
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
	})
	if err != nil {
		return nil, err
	}
	if err := checkSuccess(rsp); err != nil {
		return nil, err
	}
	data := gjson.GetBytes(rsp, "data")
	doc := &Document{
		URL:         firstNonEmpty(data.Get("metadata.sourceURL").String(), data.Get("metadata.url").String(), url),
		Title:       data.Get("metadata.title").String(),
		Description: data.Get("metadata.description").String(),
		Markdown:    data.Get("markdown").String(),
	}
	if strings.TrimSpace(doc.Markdown) == "" {
		return nil, ErrNoContent.New("no content extracted from " + url)
	}
	return doc, nil
}

// Search runs a web search. With scrape set each hit carries its markdown.
func (c *Client) Search(ctx context.Context, query string, limit int, scrape bool) ([]Document, error) {
	body := map[string]any{
		"query": query,
		"limit": limit,
	}
	if scrape {
		body["scrapeOptions"] = map[string]any{"formats": []string{"markdown"}}
	}
	rsp, err := c.http.PostJSON(ctx, "/v1/search", body)
	if err != nil {
		return nil, err
	}
	if err := checkSuccess(rsp); err != nil {
		return nil, err
	}
	hits := gjson.GetBytes(rsp, "data")
	if !hits.IsArray() {
		return nil, ErrBadResponse.New("search reply has no data array")
	}
	var docs []Document
	hits.ForEach(func(_, hit gjson.Result) bool {
		docs = append(docs, Document{
			URL:         firstNonEmpty(hit.Get("url").String(), hit.Get("metadata.sourceURL").String()),
			Title:       firstNonEmpty(hit.Get("title").String(), hit.Get("metadata.title").String()),
			Description: hit.Get("description").String(),
			Markdown:    hit.Get("markdown").String(),
		})
		return true
	})
	return docs, nil
}

func checkSuccess(rsp []byte) error {
	if !gjson.ValidBytes(rsp) {
		return ErrBadResponse
	}
	if s := gjson.GetBytes(rsp, "success"); s.Exists() && !s.Bool() {
		msg := gjson.GetBytes(rsp, "error").String()
		if msg == "" {
			msg = "firecrawl reported failure"
		}
		return ErrFirecrawl.New(msg)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package flowise calls a Flowise chatflow prediction endpoint.
package flowise

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
	"github.com/fialabdata/agenthub/internal/common/httpclient"
)

var (
	ErrFlowise     apperrors.Error = apperrors.New("flowise request failed")
	ErrBadResponse apperrors.Error = ErrFlowise.New("unexpected flowise reply")
)

// Flowise names the two sides of a conversation this way.
const (
	RoleUser = "userMessage"
	RoleAPI  = "apiMessage"
)

// HistoryMessage is one prior turn forwarded to the chatflow.
type HistoryMessage struct {
	Role    string
	Content string
}

// Prediction is a question for the chatflow.
type Prediction struct {
	Question  string
	SessionID string
	History   []HistoryMessage
}

// SourceDocument is a document the chatflow used for its answer.
type SourceDocument struct {
	PageContent string
	Metadata    map[string]any
}

// Answer is the chatflow reply.
type Answer struct {
	Text            string
	SourceDocuments []SourceDocument
	// HistoryLength is the size of the conversation the chatflow holds.
	HistoryLength int
}

type Client struct {
	url  string
	http httpclient.Client
}

// New creates a client for the prediction URL, e.g.
// https://host/api/v1/prediction/<chatflow id>.
func New(predictionURL string) *Client {
	return NewWithClient(predictionURL, httpclient.NewClient(httpclient.Config{
		BaseURL: predictionURL,
		Headers: map[string]string{"User-Agent": "agenthub/1.0"},
	}))
}

func NewWithClient(predictionURL string, c httpclient.Client) *Client {
	return &Client{url: predictionURL, http: c}
}

// URL returns the prediction endpoint.
func (c *Client) URL() string {
	return c.url
}

// Predict sends the question with the session id and history so the chatflow
// keeps context, and asks for the source documents.
func (c *Client) Predict(ctx context.Context, p Prediction) (*Answer, error) {
	body, err := buildBody(p)
	if err != nil {
		return nil, ErrFlowise.MsgErr("failed to encode prediction", err)
	}
	rsp, err := c.http.PostJSON(ctx, c.url, body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(rsp) {
		return nil, ErrBadResponse.New("reply is not JSON")
	}
	text := gjson.GetBytes(rsp, "text")
	if !text.Exists() {
		return nil, ErrBadResponse.New("reply has no text")
	}
	ans := &Answer{
		Text:          text.String(),
		HistoryLength: int(gjson.GetBytes(rsp, "chatHistory.#").Int()),
	}
	gjson.GetBytes(rsp, "sourceDocuments").ForEach(func(_, d gjson.Result) bool {
		md, _ := d.Get("metadata").Value().(map[string]any)
		ans.SourceDocuments = append(ans.SourceDocuments, SourceDocument{
			PageContent: d.Get("pageContent").String(),
			Metadata:    md,
		})
		return true
	})
	return ans, nil
}

// Ping sends a probe question and reports whether the chatflow answered.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Predict(ctx, Prediction{Question: "test"})
	return err
}

func buildBody(p Prediction) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "question", p.Question); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "overrideConfig.returnSourceDocuments", true); err != nil {
		return nil, err
	}
	if p.SessionID != "" {
		if body, err = sjson.SetBytes(body, "overrideConfig.sessionId", p.SessionID); err != nil {
			return nil, err
		}
	}
	for _, h := range p.History {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		if body, err = sjson.SetBytes(body, "history.-1", map[string]string{
			"role":    h.Role,
			"content": h.Content,
		}); err != nil {
			return nil, err
		}
	}
	return body, nil
}

package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/hub/memory"
)

func newTestServer(t *testing.T, handler func(path string, body []byte) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		status, rsp := handler(r.URL.Path, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(rsp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat(t *testing.T) {
	var sent []byte
	srv := newTestServer(t, func(path string, body []byte) (int, string) {
		assert.True(t, strings.HasSuffix(path, "/chat/completions"))
		sent = body
		return http.StatusOK, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"sequenceDiagram"}}]}`
	})

	c := NewOpenAI("sk-test", srv.URL+"/v1/")
	rsp, err := c.Chat(context.Background(), ChatRequest{
		Model:        "gpt-4o-mini",
		Messages:     []Message{System("sys"), User("draw"), {Role: RoleUser, Content: "look", Images: []string{"data:image/png;base64,AAAA"}}},
		Temperature:  Temperature(0.1),
		JSONResponse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sequenceDiagram", rsp.Content)
	assert.Equal(t, "stop", rsp.FinishReason)

	assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(sent, "model").String())
	assert.Equal(t, 0.1, gjson.GetBytes(sent, "temperature").Float())
	assert.Equal(t, "json_object", gjson.GetBytes(sent, "response_format.type").String())
	assert.Equal(t, "system", gjson.GetBytes(sent, "messages.0.role").String())
	assert.Equal(t, "image_url", gjson.GetBytes(sent, "messages.2.content.1.type").String())
}

func TestChatToolCalls(t *testing.T) {
	var sent []byte
	srv := newTestServer(t, func(path string, body []byte) (int, string) {
		sent = body
		return http.StatusOK, `{"id":"c2","object":"chat.completion","created":1,"model":"gpt-4.1-mini",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
			"tool_calls":[{"id":"call_1","type":"function","function":{"name":"firecrawl_search","arguments":"{\"query\":\"go\"}"}}]}}]}`
	})

	c := NewOpenAI("sk-test", srv.URL+"/v1/")
	rsp, err := c.Chat(context.Background(), ChatRequest{
		Model: "gpt-4.1-mini",
		Messages: []Message{
			User("search go"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Name: "firecrawl_scrape", Arguments: `{}`}}},
			{Role: RoleTool, ToolCallID: "call_0", Content: "page"},
		},
		Tools: []Tool{{Name: "firecrawl_search", Description: "search", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	require.Len(t, rsp.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "firecrawl_search", Arguments: `{"query":"go"}`}, rsp.ToolCalls[0])

	assert.Equal(t, "firecrawl_search", gjson.GetBytes(sent, "tools.0.function.name").String())
	assert.Equal(t, "call_0", gjson.GetBytes(sent, "messages.1.tool_calls.0.id").String())
	assert.Equal(t, "call_0", gjson.GetBytes(sent, "messages.2.tool_call_id").String())
}

func TestChatErrors(t *testing.T) {
	srv := newTestServer(t, func(path string, body []byte) (int, string) {
		return http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`
	})
	_, err := NewOpenAI("sk-test", srv.URL+"/v1/").Chat(context.Background(), ChatRequest{Model: "m", Messages: []Message{User("hi")}})
	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	srv = newTestServer(t, func(path string, body []byte) (int, string) {
		return http.StatusOK, `{"id":"c3","object":"chat.completion","created":1,"model":"m","choices":[]}`
	})
	_, err = NewOpenAI("sk-test", srv.URL+"/v1/").Chat(context.Background(), ChatRequest{Model: "m", Messages: []Message{User("hi")}})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestEmbed(t *testing.T) {
	srv := newTestServer(t, func(path string, body []byte) (int, string) {
		assert.True(t, strings.HasSuffix(path, "/embeddings"))
		assert.Equal(t, "text-embedding-3-small", gjson.GetBytes(body, "model").String())
		return http.StatusOK, `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`
	})
	vec, err := NewOpenAI("sk-test", srv.URL+"/v1/").Embed(context.Background(), "text-embedding-3-small", "async")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, vec)
}

func TestFromHistory(t *testing.T) {
	msgs := FromHistory([]memory.Turn{memory.UserTurn("q"), memory.AssistantTurn("a", nil)})
	assert.Equal(t, []Message{User("q"), Assistant("a")}, msgs)
}

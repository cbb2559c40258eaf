package mcptools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) Session {
	t.Helper()
	srv := server.NewMCPServer("scraper", "0.1.0", server.WithToolCapabilities(true))
	srv.AddTool(mcp.NewTool("firecrawl_scrape",
		mcp.WithDescription("Scrape a page"),
		mcp.WithString("url", mcp.Required(), mcp.Description("page to scrape")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, _ := req.GetArguments()["url"].(string)
		if url == "" {
			return mcp.NewToolResultError("url is required"), nil
		}
		return mcp.NewToolResultText("# " + url), nil
	})

	c, err := client.NewInProcessClient(srv)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	s, err := NewSession(ctx, c, "test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTools(t *testing.T) {
	s := newTestSession(t)
	tools, err := s.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "firecrawl_scrape", tools[0].Name)
	assert.Equal(t, "Scrape a page", tools[0].Description)
	assert.Equal(t, "object", tools[0].Parameters["type"])
	props, ok := tools[0].Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "url")
}

func TestCall(t *testing.T) {
	s := newTestSession(t)
	out, err := s.Call(context.Background(), "firecrawl_scrape", map[string]any{"url": "https://go.dev"})
	require.NoError(t, err)
	assert.Equal(t, "# https://go.dev", out)

	_, err = s.Call(context.Background(), "firecrawl_scrape", map[string]any{})
	assert.ErrorIs(t, err, ErrToolCall)
	assert.Contains(t, err.Error(), "url is required")
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "", ResultText(nil))
	res := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.TextContent{Type: "text", Text: "a"},
		mcp.ImageContent{Type: "image", Data: "x", MIMEType: "image/png"},
		mcp.TextContent{Type: "text", Text: "b"},
	}}
	assert.Equal(t, "a\nb", ResultText(res))
}

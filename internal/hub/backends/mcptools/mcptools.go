// Package mcptools starts MCP tool servers and exposes their tools in the shape
// the llm package hands to the model.
package mcptools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const clientName = "agenthub-mcp-client"

// Session is a live connection to one tool server.
type Session interface {
	Tools(ctx context.Context) ([]llm.Tool, error)
	Call(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// Launcher opens a new Session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to a Launcher.
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// StdioLauncher runs the tool server as a child process speaking MCP over stdio.
type StdioLauncher struct {
	Command string
	Args    []string
	Env     map[string]string
	Version string
}

func (l StdioLauncher) Launch(ctx context.Context) (Session, error) {
	env := make([]string, 0, len(l.Env))
	for k, v := range l.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	c, err := client.NewStdioMCPClient(l.Command, env, l.Args...)
	if err != nil {
		return nil, ErrClientInit.MsgErr("failed to create MCP client", err)
	}
	return NewSession(ctx, c, l.Version)
}

type session struct {
	mu     sync.Mutex
	client *client.Client
}

// NewSession initializes c and wraps it. c must already be started. The client is
// closed if initialization fails.
func NewSession(ctx context.Context, c *client.Client, version string) (Session, error) {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: version,
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, ErrClientInit.MsgErr("failed to initialize MCP client", err)
	}
	return &session{client: c}, nil
}

func (s *session) Tools(ctx context.Context) ([]llm.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, ErrListTools.MsgErr("failed to list tools", err)
	}
	tools := make([]llm.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, llm.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  inputSchema(t),
		})
	}
	log.Ctx(ctx).Debug().Int("tools", len(tools)).Msg("loaded MCP tools")
	return tools, nil
}

// inputSchema returns the tool's JSON schema as a map, whether it was declared
// structurally or as raw JSON.
func inputSchema(t mcp.Tool) map[string]any {
	b, err := json.Marshal(t)
	if err == nil {
		if m, ok := gjson.GetBytes(b, "inputSchema").Value().(map[string]any); ok {
			return m
		}
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (s *session) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", ErrToolCall.MsgErr("MCP tool call failed", err)
	}
	text := ResultText(res)
	if res.IsError {
		return "", ErrToolCall.New(name + ": " + text)
	}
	return text, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

// ResultText joins the text content of a tool result.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

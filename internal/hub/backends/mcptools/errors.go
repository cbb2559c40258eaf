package mcptools

import "github.com/fialabdata/agenthub/internal/common/apperrors"

var (
	ErrMCP        apperrors.Error = apperrors.New("mcp tool server error")
	ErrClientInit apperrors.Error = ErrMCP.New("failed to start MCP client")
	ErrListTools  apperrors.Error = ErrMCP.New("failed to list tools")
	ErrToolCall   apperrors.Error = ErrMCP.New("tool call failed")
)

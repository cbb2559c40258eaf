package agent

import (
	"net/http"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
)

// Error codes carried by error results.
const (
	CodeInvalidInput     = "invalid_input"
	CodeUnknownAgent     = "unknown_agent"
	CodeAgentUnavailable = "agent_unavailable"
	CodeBackendError     = "backend_error"
	CodeTimeout          = "timeout"
	CodeDuplicateAgent   = "duplicate_agent"
)

var (
	ErrAgent            apperrors.Error = apperrors.New("agent error").SetStatusCode(http.StatusInternalServerError).SetCode(CodeBackendError)
	ErrInvalidInput     apperrors.Error = ErrAgent.New("invalid input").SetStatusCode(http.StatusBadRequest).SetCode(CodeInvalidInput).SetExpandError(true)
	ErrEmptyMessage     apperrors.Error = ErrInvalidInput.New("message must not be empty")
	ErrInvalidOptions   apperrors.Error = ErrInvalidInput.New("invalid options")
	ErrUnknownAgent     apperrors.Error = ErrAgent.New("unknown agent type").SetStatusCode(http.StatusNotFound).SetCode(CodeUnknownAgent)
	ErrAgentUnavailable apperrors.Error = ErrAgent.New("agent not available").SetStatusCode(http.StatusServiceUnavailable).SetCode(CodeAgentUnavailable)
	ErrBackend          apperrors.Error = ErrAgent.New("backend request failed").SetStatusCode(http.StatusBadGateway).SetCode(CodeBackendError)
	ErrCanceled         apperrors.Error = ErrBackend.New("request canceled")
	ErrTimeout          apperrors.Error = ErrAgent.New("backend request timed out").SetStatusCode(http.StatusGatewayTimeout).SetCode(CodeTimeout)
	ErrDuplicateAgent   apperrors.Error = ErrAgent.New("agent type already registered").SetStatusCode(http.StatusConflict).SetCode(CodeDuplicateAgent)
	ErrInvalidReply     apperrors.Error = ErrBackend.New("unexpected backend reply")
)

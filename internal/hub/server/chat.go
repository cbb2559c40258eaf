package server

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"

	"github.com/fialabdata/agenthub/internal/common/httpx"
	"github.com/fialabdata/agenthub/internal/hub/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// chatRequest is the body of /chat and /chat/stream. Keys other than the named
// ones are the agent options.
type chatRequest struct {
	Message   string         `mapstructure:"message"`
	AgentType string         `mapstructure:"agent_type" validate:"required"`
	SessionID string         `mapstructure:"session_id"`
	Options   map[string]any `mapstructure:",remain"`
}

func parseChatRequest(r *http.Request) (*chatRequest, error) {
	var body map[string]any
	if err := httpx.GetRequestData(r, &body); err != nil {
		return nil, err
	}
	var req chatRequest
	if err := mapstructure.Decode(body, &req); err != nil {
		return nil, httpx.ErrInvalidRequest("invalid chat request: " + err.Error())
	}
	if err := agent.Validate(req); err != nil {
		return nil, httpx.ErrInvalidRequest("agent_type is required")
	}
	if req.SessionID == "" {
		req.SessionID = sessionID(r)
	}
	return &req, nil
}

// sessionID reads the caller's session from the header or the query string.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("session_id")
}

func (s *HubServer) dispatch(ctx context.Context, req *chatRequest) agent.Result {
	return s.dispatcher.Dispatch(ctx, agent.Type(req.AgentType), req.Message, req.SessionID, agent.Options(req.Options))
}

// chat answers with the agent result. Agent failures are results too, sent
// with status 200.
func (s *HubServer) chat(r *http.Request) (*httpx.Response, error) {
	req, err := parseChatRequest(r)
	if err != nil {
		return nil, err
	}
	res := s.dispatch(r.Context(), req)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   res,
	}, nil
}

var processingMessages = map[string]string{
	"workflow": "🔍 Iniciando pesquisa...",
	"mcp":      "🤖 Processando com MCP...",
	"rag":      "🧠 Buscando na base de conhecimento...",
	"externo":  "🌐 Conectando com Flowise...",
	"mermaid":  "🎨 Gerando diagrama Mermaid...",
	"imagem":   "🖼️ Analisando imagem...",
}

type streamEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *HubServer) chatStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseChatRequest(r)
	if err != nil {
		httpx.SendAnyError(w, err)
		return
	}
	httpx.WrapEventStream(func(ctx context.Context) (<-chan any, error) {
		events := make(chan any, 2)
		go func() {
			defer close(events)
			msg, ok := processingMessages[req.AgentType]
			if !ok {
				msg = "⏳ Processando..."
			}
			events <- streamEvent{Status: "processing", Message: msg}
			events <- completionEvent(ctx, s.dispatch(ctx, req))
		}()
		return events, nil
	})(w, r)
}

// completionEvent is the result with its status replaced by "complete" on
// success and a message field holding the response text.
func completionEvent(ctx context.Context, res agent.Result) any {
	status := "complete"
	if !res.IsSuccess() {
		status = "error"
	}
	b, err := json.Marshal(res)
	if err == nil {
		b, err = sjson.SetBytes(b, "status", status)
	}
	if err == nil {
		b, err = sjson.SetBytes(b, "message", res.Response)
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to encode stream result")
		return streamEvent{Status: "error", Message: res.Response}
	}
	return jsoniter.RawMessage(b)
}

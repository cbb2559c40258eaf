// Package server exposes the dispatcher over HTTP: the chat endpoints, the agent
// catalog, health and metrics, and the pass-through endpoints of individual
// agents.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpx"
	"github.com/fialabdata/agenthub/internal/common/logtrace"
	"github.com/fialabdata/agenthub/internal/common/middleware"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/metrics"
)

// SessionIDHeader carries the caller's session id.
const SessionIDHeader = middleware.SessionIDHeader

// HubServer is the HTTP front of the agent hub.
type HubServer struct {
	Router     *chi.Mux
	dispatcher *dispatcher.Dispatcher
	cfg        *config.ConfigParam
	creds      config.Credentials
}

// CreateNewServer creates a server over d. Handlers are mounted by MountHandlers.
func CreateNewServer(d *dispatcher.Dispatcher, cfg *config.ConfigParam, creds config.Credentials) (*HubServer, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg == nil {
		cfg = config.Config()
	}
	return &HubServer{
		Router:     chi.NewRouter(),
		dispatcher: d,
		cfg:        cfg,
		creds:      creds,
	}, nil
}

// MountHandlers installs the middleware and every route.
func (s *HubServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if s.cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrNotFound("route " + r.URL.Path).Send(w)
	})
	s.Router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.ErrReqMethodNotSupported().Send(w)
	})
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in agenthub router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *HubServer) mountResourceHandlers(r chi.Router) {
	// streams run as long as the agent does and are not bounded here
	r.Post("/chat/stream", s.chatStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SetTimeout(s.cfg.RequestTimeout.Duration))
		r.Post("/chat", httpx.WrapHttpRsp(s.chat))
		r.Get("/agents/info", httpx.WrapHttpRsp(s.agentsInfo))
		r.Get("/health", httpx.WrapHttpRsp(s.health))
		r.Get("/version", httpx.WrapHttpRsp(s.version))

		r.Route("/sessions/{sessionID}/agents/{agentType}", func(r chi.Router) {
			r.Get("/history", httpx.WrapHttpRsp(s.sessionHistory))
			r.Post("/reset", httpx.WrapHttpRsp(s.sessionReset))
		})
		r.Route("/externo", func(r chi.Router) {
			r.Get("/status", httpx.WrapHttpRsp(s.externoStatus))
			r.Post("/reset", httpx.WrapHttpRsp(s.externoReset))
		})
		r.Route("/mermaid", func(r chi.Router) {
			r.Get("/diagram-types", httpx.WrapHttpRsp(s.mermaidDiagramTypes))
			r.Get("/history", httpx.WrapHttpRsp(s.mermaidHistory))
			r.Post("/reset", httpx.WrapHttpRsp(s.mermaidReset))
		})
		r.Route("/rag", func(r chi.Router) {
			r.Post("/knowledge", httpx.WrapHttpRsp(s.ragKnowledge))
			r.Get("/stats", httpx.WrapHttpRsp(s.ragStats))
			r.Get("/suggest-sources/{domain}", httpx.WrapHttpRsp(s.ragSuggestSources))
		})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}

// HandleCORS applies the configured CORS policy.
func (s *HubServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", SessionIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, SessionIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

// Package middleware holds the HTTP middleware of the server: request logging,
// panic recovery and request deadlines.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpx"
	"github.com/fialabdata/agenthub/internal/common/logtrace"
	"github.com/fialabdata/agenthub/internal/common/uuid"
)

const (
	RequestIDHeader = "X-Agenthub-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

// sessionID returns the caller's session id from the header or the session_id
// query parameter. Ids sent in a request body are not seen here.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionIDHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("session_id")
}

// RequestLogger assigns a request id, stores a request-scoped logger in the
// context and logs the start and completion of every request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logtrace.WithRequestId(r.Context(), requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)
		rw := httpx.NewResponseWriter(w)

		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Int("status", rw.Status()).
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

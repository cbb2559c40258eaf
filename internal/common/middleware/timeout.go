package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpx"
)

// SetTimeout puts a deadline on the request context. Handlers observe it through
// their context; outbound backend calls made with that context are cancelled when
// it expires. Event streams are excluded by the router. A handler that returns
// after the deadline without writing a response gets a 408.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := httpx.NewResponseWriter(w)
			rw.Header().Set("X-Agenthub-Timeout", timeout.String())
			next.ServeHTTP(rw, r.WithContext(ctx))

			if !rw.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Ctx(ctx).Warn().Str("timeout", timeout.String()).Msg("request timed out")
				httpx.ErrRequestTimeout().Send(rw)
			}
		})
	}
}

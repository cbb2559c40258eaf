package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpx"
)

// PanicHandler recovers panics raised by handlers and answers 500 if nothing
// was written yet. The log entry names the route and the caller's session so the
// conversation that triggered it can be found.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Ctx(r.Context()).Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("session_id", sessionID(r)).
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("stack_trace", string(debug.Stack())).
				Msg("handler panicked")

			if !rw.Written() {
				httpx.ErrApplicationError("unable to process request").Send(rw)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

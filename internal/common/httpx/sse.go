package httpx

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// EventSource produces the events of a server-sent event stream. Each value sent
// on the channel is encoded as one JSON "data:" frame. The producer closes the
// channel when the stream is complete.
type EventSource func(ctx context.Context) (<-chan any, error)

// WrapEventStream adapts an EventSource to http.HandlerFunc. Errors returned
// before the stream starts are rendered as regular error bodies.
func WrapEventStream(source EventSource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			ErrApplicationError("streaming not supported").Send(w)
			return
		}
		events, err := source(r.Context())
		if err != nil {
			SendAnyError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for ev := range events {
			if err := WriteEvent(w, ev); err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("error writing event")
				// drain so the producer never blocks on a gone client
				for range events {
				}
				return
			}
			flusher.Flush()
		}
	})
}

// WriteEvent writes a single "data:" frame.
func WriteEvent(w http.ResponseWriter, ev any) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

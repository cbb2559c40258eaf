package httpx

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/logtrace"
)

// SendJsonRsp writes msg as JSON. Strings and byte slices that already hold
// valid JSON are written as is.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any) {
	var msgJson []byte
	switch m := msg.(type) {
	case string:
		if json.Valid([]byte(m)) {
			msgJson = []byte(m)
		}
	case []byte:
		if json.Valid(m) {
			msgJson = m
		}
	}
	if msgJson == nil {
		var err error
		msgJson, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json")
			ErrApplicationError("Id: " + logtrace.RequestIdFromContext(ctx)).Send(w)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(msgJson)
}

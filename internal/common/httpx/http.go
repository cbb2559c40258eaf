// Package httpx holds the request parsing, JSON response and server-sent event
// helpers shared by the HTTP handlers.
package httpx

import (
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MaxRequestBody bounds the size of JSON request bodies.
const MaxRequestBody int64 = 1 << 20

// GetRequestData decodes the JSON body of a POST or PUT request into data.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	body := http.MaxBytesReader(nil, r.Body, MaxRequestBody)
	if err := json.NewDecoder(body).Decode(data); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrRequestTooLarge(MaxRequestBody)
		}
		if errors.Is(err, io.EOF) {
			return ErrUnableToParseReqData()
		}
		log.Ctx(r.Context()).Debug().Err(err).Msg("malformed request body")
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is what a RequestHandler returns on success.
type Response struct {
	StatusCode  int
	Response    any
	ContentType string
}

// RequestHandler handles a request and returns either a response or an error.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc, rendering errors as
// JSON error bodies.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			SendAnyError(w, err)
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == 0 {
			rsp.StatusCode = http.StatusOK
		}
		switch rsp.ContentType {
		case "", "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response)
		case "text/plain":
			s, _ := rsp.Response.(string)
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(s))
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

// SendAnyError writes err as an error body, using the attached status code when
// err is an *Error or an apperrors.Error.
func SendAnyError(w http.ResponseWriter, err error) {
	var httperror *Error
	if errors.As(err, &httperror) {
		httperror.Send(w)
		return
	}
	if appErr, ok := err.(apperrors.Error); ok {
		SendError(w, appErr)
		return
	}
	ErrApplicationError(err.Error()).Send(w)
}

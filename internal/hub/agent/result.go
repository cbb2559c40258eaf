package agent

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/sjson"

	"github.com/fialabdata/agenthub/internal/common/apperrors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the outcome of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is what every agent returns. On the wire the payload fields are
// flattened next to the envelope fields.
type Result struct {
	Status    Status
	Response  string
	AgentType Type
	SessionID string
	Payload   Payload
	ErrorCode string
	Error     string
}

// Success builds a success result.
func Success(t Type, text string, payload Payload) Result {
	return Result{
		Status:    StatusSuccess,
		Response:  text,
		AgentType: t,
		Payload:   payload,
	}
}

// Failure builds an error result from err. Errors outside the agent taxonomy are
// reported as backend errors.
func Failure(t Type, err error) Result {
	if err == nil {
		err = ErrBackend
	}
	msg := err.Error()
	if ae, ok := err.(apperrors.Error); ok {
		msg = ae.ErrorAll()
	}
	return Result{
		Status:    StatusError,
		Response:  fmt.Sprintf("❌ Error processing request with agent '%s': %s", t, msg),
		AgentType: t,
		ErrorCode: apperrors.CodeOf(err, CodeBackendError),
		Error:     msg,
	}
}

func (r Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Confidence returns the confidence carried by the payload, if any.
func (r Result) Confidence() (float64, bool) {
	switch p := r.Payload.(type) {
	case *Citations:
		if p.Confidence != nil {
			return *p.Confidence, true
		}
	case *Classification:
		return p.Analysis.ConfidenceScore, true
	}
	return 0, false
}

type resultEnvelope struct {
	Response  string `json:"response"`
	Status    Status `json:"status"`
	AgentType Type   `json:"agent_type"`
	SessionID string `json:"session_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MarshalJSON writes the envelope and sets each payload field at the top level.
func (r Result) MarshalJSON() ([]byte, error) {
	out, err := json.Marshal(resultEnvelope{
		Response:  r.Response,
		Status:    r.Status,
		AgentType: r.AgentType,
		SessionID: r.SessionID,
		ErrorCode: r.ErrorCode,
		Error:     r.Error,
	})
	if err != nil {
		return nil, err
	}
	if r.Payload == nil {
		return out, nil
	}
	out, err = sjson.SetBytes(out, "payload_kind", string(r.Payload.Kind()))
	if err != nil {
		return nil, err
	}
	for _, f := range r.Payload.fields() {
		if out, err = sjson.SetBytes(out, f.key, f.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

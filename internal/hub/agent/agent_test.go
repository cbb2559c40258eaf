package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBind(t *testing.T) {
	calls := 0
	a := Bind("rag", func(ctx context.Context, req Request) (*Reply, error) {
		calls++
		return &Reply{
			Text:    "answer to " + req.Message,
			Payload: &Citations{Sources: []Source{{ID: "doc1"}}, Confidence: Ptr(0.82)},
		}, nil
	})

	res := a.Handle(context.Background(), Request{Message: "   "})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeInvalidInput, res.ErrorCode)
	assert.Equal(t, Type("rag"), res.AgentType)
	assert.Equal(t, 0, calls)

	res = a.Handle(context.Background(), Request{Message: "q"})
	require.True(t, res.IsSuccess())
	assert.Equal(t, "answer to q", res.Response)
	c, ok := res.Confidence()
	assert.True(t, ok)
	assert.Equal(t, 0.82, c)
	assert.Equal(t, 1, calls)
}

func TestBindFailures(t *testing.T) {
	failing := Bind("externo", func(ctx context.Context, req Request) (*Reply, error) {
		return nil, ErrTimeout
	})
	res := failing.Handle(context.Background(), Request{Message: "q"})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, CodeTimeout, res.ErrorCode)
	assert.Contains(t, res.Response, "externo")

	plain := Bind("externo", func(ctx context.Context, req Request) (*Reply, error) {
		return nil, errors.New("socket closed")
	})
	res = plain.Handle(context.Background(), Request{Message: "q"})
	assert.Equal(t, CodeBackendError, res.ErrorCode)
	assert.Equal(t, "socket closed", res.Error)

	empty := Bind("externo", func(ctx context.Context, req Request) (*Reply, error) {
		return nil, nil
	})
	res = empty.Handle(context.Background(), Request{Message: "q"})
	assert.Equal(t, StatusError, res.Status)
}

func TestResultJSON(t *testing.T) {
	res := Success("rag", "A diferença é...", &Citations{
		Sources:    []Source{{ID: "doc1", Content: "async...", Score: Ptr(0.9)}},
		Confidence: Ptr(0.82),
	})
	res.SessionID = "s1"
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, "success", gjson.GetBytes(b, "status").String())
	assert.Equal(t, "rag", gjson.GetBytes(b, "agent_type").String())
	assert.Equal(t, "s1", gjson.GetBytes(b, "session_id").String())
	assert.Equal(t, "citations", gjson.GetBytes(b, "payload_kind").String())
	assert.Equal(t, "doc1", gjson.GetBytes(b, "sources.0.id").String())
	assert.Equal(t, 0.82, gjson.GetBytes(b, "confidence").Float())
	assert.False(t, gjson.GetBytes(b, "error").Exists())

	res = Success("mermaid", "🎨", &Diagram{Type: "flowchart", Code: "flowchart TD\n A-->B"})
	b, err = json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, "flowchart", gjson.GetBytes(b, "diagram.type").String())
	assert.False(t, gjson.GetBytes(b, "confidence").Exists())

	res = Failure("rag", ErrAgentUnavailable)
	b, err = json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, "error", gjson.GetBytes(b, "status").String())
	assert.Equal(t, CodeAgentUnavailable, gjson.GetBytes(b, "error_code").String())
	assert.False(t, gjson.GetBytes(b, "payload_kind").Exists())
}

type testOptions struct {
	DiagramType string  `json:"diagram_type" validate:"oneof=sequence flowchart"`
	TopK        int     `json:"top_k" validate:"min=1,max=20"`
	Threshold   float64 `json:"threshold" validate:"min=0,max=1"`
}

func TestDecodeOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    testOptions
		wantErr bool
	}{
		{
			name: "defaults",
			opts: nil,
			want: testOptions{DiagramType: "sequence", TopK: 4, Threshold: 0.1},
		},
		{
			name: "unknown keys ignored",
			opts: Options{"colour": "blue", "top_k": 8},
			want: testOptions{DiagramType: "sequence", TopK: 8, Threshold: 0.1},
		},
		{
			name: "weakly typed",
			opts: Options{"top_k": "3", "diagram_type": "flowchart"},
			want: testOptions{DiagramType: "flowchart", TopK: 3, Threshold: 0.1},
		},
		{
			name:    "invalid enum",
			opts:    Options{"diagram_type": "pie"},
			wantErr: true,
		},
		{
			name:    "out of range",
			opts:    Options{"top_k": 50},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testOptions{DiagramType: "sequence", TopK: 4, Threshold: 0.1}
			err := DecodeOptions(tt.opts, &got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	d := Descriptor{Type: "rag", Name: "RAG", RequiredCredentials: []string{"OPENAI_API_KEY"}}
	assert.NoError(t, d.Validate())

	d.Name = ""
	assert.ErrorIs(t, d.Validate(), ErrInvalidInput)
}

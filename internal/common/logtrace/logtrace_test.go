package logtrace

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	initLogger(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("agent_type", "rag").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"agent_type":"rag"`)
}

func TestRequestId(t *testing.T) {
	assert.Equal(t, "", RequestIdFromContext(context.Background()))
	ctx := WithRequestId(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIdFromContext(ctx))
}

func TestIsTraceEnabled(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var buf bytes.Buffer
	initLogger(&buf, "trace")
	assert.True(t, IsTraceEnabled())
	initLogger(&buf, "info")
	assert.False(t, IsTraceEnabled())
}

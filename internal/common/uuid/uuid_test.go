package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewString(t *testing.T) {
	s := NewString()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, s, id.String())
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, s, NewString())
}

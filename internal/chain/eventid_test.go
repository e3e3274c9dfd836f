package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventId_ParseAndOrder(t *testing.T) {
	a, err := ParseEventId("100:0:0")
	require.NoError(t, err)
	b, err := ParseEventId("100:0:1")
	require.NoError(t, err)
	c, err := ParseEventId("101:0:0")
	require.NoError(t, err)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
}

func TestEventId_Malformed(t *testing.T) {
	_, err := ParseEventId("not-an-id")
	assert.ErrorIs(t, err, ErrParse)
}

func TestEventId_StringRoundTrip(t *testing.T) {
	id, err := ParseEventId("5:1:2")
	require.NoError(t, err)
	assert.Equal(t, "5:1:2", id.String())
}

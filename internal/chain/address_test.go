package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, NormalizeAddress("0xAB"), NormalizeAddress("ab"))
	assert.Equal(t, 66, len(NormalizeAddress("0x1")))
}

func TestIsZeroAddress_BothSpellings(t *testing.T) {
	assert.True(t, IsZeroAddress("0x0"))
	assert.True(t, IsZeroAddress("0"))
	assert.False(t, IsZeroAddress("0x1"))
}

package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU256_HexDecimalRoundTrip(t *testing.T) {
	cases := []string{
		"0x0",
		"0x1",
		"0xde0b6b3a7640000",
		"1000000000000000000",
		"115792089237316195423570985008687907853269984665640564039457584007913129639935", // 2^256-1
	}
	for _, c := range cases {
		v, err := ParseU256(c)
		require.NoError(t, err)

		reHex, err := ParseU256(v.Hex())
		require.NoError(t, err)
		assert.Equal(t, v.String(), reHex.String())

		reDec, err := ParseU256(v.String())
		require.NoError(t, err)
		assert.Equal(t, v.Hex(), reDec.Hex())
	}
}

func TestU256_MulDiv_ProtocolFee(t *testing.T) {
	// spec §8 property 7: amount=1e18, rate=900_000 => 9e16
	amount := MustParseU256("1000000000000000000")
	rate := U256FromUint64(900_000)
	divisor := U256FromUint64(10_000_000)

	fee := amount.MulDiv(rate, divisor)
	assert.Equal(t, "90000000000000000", fee.String())
}

func TestU256_SaturatingSub(t *testing.T) {
	small := U256FromUint64(5)
	big := U256FromUint64(10)

	assert.Equal(t, "0", small.SaturatingSub(big).String())
	assert.Equal(t, "5", big.SaturatingSub(small).String())
}

func TestU256_JSONRoundTrip(t *testing.T) {
	v := MustParseU256("0x2a")
	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0x2a"`, string(data))

	var out U256
	require.NoError(t, out.UnmarshalJSON(data))
	assert.Equal(t, "42", out.String())
}

func TestU256_ScanValue(t *testing.T) {
	v := MustParseU256("12345")
	dv, err := v.Value()
	require.NoError(t, err)
	assert.Equal(t, "12345", dv)

	var scanned U256
	require.NoError(t, scanned.Scan("12345"))
	assert.Equal(t, v.String(), scanned.String())

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())
}

package chain

import (
	"math/big"
	"time"
)

// NeighborsInfo is the unpacked form of a LandStake's neighbors_info_packed
// u128 field: bits 0–15 = location, bits 16–23 = active-neighbor count,
// bits 24+ = the earliest-claim timestamp (spec §3, §4.3, §9).
type NeighborsInfo struct {
	EarliestClaimNeighborLocation Location
	NumActiveNeighbors            uint8
	EarliestClaimNeighborTime     time.Time
}

var (
	maskLocation = big.NewInt(0xFFFF)
	maskCount    = big.NewInt(0xFF)
)

// DecodeNeighborsInfoPacked unpacks the u128 (represented losslessly as a
// big.Int, since Go has no native 128-bit integer) neighbors_info_packed
// field into its three components.
func DecodeNeighborsInfoPacked(packed *big.Int) NeighborsInfo {
	loc := new(big.Int).And(packed, maskLocation)
	count := new(big.Int).And(new(big.Int).Rsh(packed, 16), maskCount)
	ts := new(big.Int).Rsh(packed, 24)
	return NeighborsInfo{
		EarliestClaimNeighborLocation: Location(loc.Uint64()),
		NumActiveNeighbors:            uint8(count.Uint64()),
		EarliestClaimNeighborTime:     time.Unix(ts.Int64(), 0).UTC(),
	}
}

// ParseNeighborsInfoPacked parses the packed field from its decimal or hex
// wire representation before unpacking it.
func ParseNeighborsInfoPacked(s string) (NeighborsInfo, error) {
	v, err := ParseU256(s)
	if err != nil {
		return NeighborsInfo{}, err
	}
	return DecodeNeighborsInfoPacked(v.Big()), nil
}

package chain

import (
	"database/sql/driver"
	"fmt"
)

// Location is a packed 16-bit map coordinate: low 8 bits = x, high 8 bits = y.
type Location uint16

// NewLocation packs (x, y) into a Location. x and y are truncated to 8 bits.
func NewLocation(x, y uint8) Location {
	return Location(uint16(x) | uint16(y)<<8)
}

// X returns the low byte.
func (l Location) X() uint8 {
	return uint8(l & 0xFF)
}

// Y returns the high byte.
func (l Location) Y() uint8 {
	return uint8(l >> 8 & 0xFF)
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.X(), l.Y())
}

// AreaNeighbors returns the up-to-8 grid neighbors of l, clipped to the
// 0≤x,y<256 board (corners yield 3, edges yield 5, interiors yield 8), per
// spec §4.8 and §8 property 6.
func (l Location) AreaNeighbors() []Location {
	x, y := int(l.X()), int(l.Y())
	neighbors := make([]Location, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx > 255 || ny < 0 || ny > 255 {
				continue
			}
			neighbors = append(neighbors, NewLocation(uint8(nx), uint8(ny)))
		}
	}
	return neighbors
}

// Area returns l plus its AreaNeighbors — the 3×3 block used by the drop
// query engine's area-protocol-fee aggregation.
func (l Location) Area() []Location {
	area := make([]Location, 0, 9)
	area = append(area, l)
	area = append(area, l.AreaNeighbors()...)
	return area
}

// Value implements driver.Valuer.
func (l Location) Value() (driver.Value, error) {
	return int64(l), nil
}

// Scan implements sql.Scanner.
func (l *Location) Scan(src any) error {
	switch t := src.(type) {
	case int64:
		*l = Location(uint16(t))
		return nil
	case int32:
		*l = Location(uint16(t))
		return nil
	case nil:
		*l = 0
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into Location", ErrParse, src)
	}
}

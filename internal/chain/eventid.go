package chain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// EventId is the opaque identifier minted upstream as "block:txIndex:eventIndex".
// It parses to a totally ordered triple and is unique across the store;
// collisions (re-delivery of the same id) are ignored, not errored (spec §3).
type EventId struct {
	Block      uint64
	TxIndex    uint64
	EventIndex uint64
	raw        string
}

// ParseEventId parses the "block:txIndex:eventIndex" form.
func ParseEventId(s string) (EventId, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return EventId{}, fmt.Errorf("%w: malformed event id %q, want block:txIndex:eventIndex", ErrParse, s)
	}
	block, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return EventId{}, fmt.Errorf("%w: event id block component %q: %v", ErrParse, parts[0], err)
	}
	txIndex, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return EventId{}, fmt.Errorf("%w: event id txIndex component %q: %v", ErrParse, parts[1], err)
	}
	eventIndex, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return EventId{}, fmt.Errorf("%w: event id eventIndex component %q: %v", ErrParse, parts[2], err)
	}
	return EventId{Block: block, TxIndex: txIndex, EventIndex: eventIndex, raw: s}, nil
}

// String renders the canonical "block:txIndex:eventIndex" form.
func (id EventId) String() string {
	if id.raw != "" {
		return id.raw
	}
	return fmt.Sprintf("%d:%d:%d", id.Block, id.TxIndex, id.EventIndex)
}

// IsZero reports whether id is the unset value.
func (id EventId) IsZero() bool {
	return id.Block == 0 && id.TxIndex == 0 && id.EventIndex == 0 && id.raw == ""
}

// Less implements the total order over (Block, TxIndex, EventIndex), used
// both to sort events and as the tie-break when two raw events share a
// timestamp (spec §4.2).
func (id EventId) Less(o EventId) bool {
	if id.Block != o.Block {
		return id.Block < o.Block
	}
	if id.TxIndex != o.TxIndex {
		return id.TxIndex < o.TxIndex
	}
	return id.EventIndex < o.EventIndex
}

// Value implements driver.Valuer.
func (id EventId) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner.
func (id *EventId) Scan(src any) error {
	switch t := src.(type) {
	case nil:
		*id = EventId{}
		return nil
	case string:
		v, err := ParseEventId(t)
		if err != nil {
			return err
		}
		*id = v
		return nil
	case []byte:
		v, err := ParseEventId(string(t))
		if err != nil {
			return err
		}
		*id = v
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into EventId", ErrParse, src)
	}
}

// MarshalJSON renders the canonical string form.
func (id EventId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON parses the canonical string form.
func (id *EventId) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseEventId(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

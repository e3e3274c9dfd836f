package torii

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/ponziland/chainindexer/internal/chain"
)

// RawModel is an undecoded row from one of torii's ECS model tables
// (land, land_stake, auction), grounded on original_source's
// ModelListenerTask::process_model (model_listener.rs): every model carries
// its own event_id and timestamp alongside the model-specific payload.
type RawModel struct {
	ModelName string
	EventID   string
	Data      json.RawMessage
	Timestamp time.Time
}

// ModelTable names the torii SQL tables this pipeline reads models from.
type ModelTable string

const (
	ModelTableLand      ModelTable = "ponziland_Land"
	ModelTableLandStake ModelTable = "ponziland_LandStake"
	ModelTableAuction   ModelTable = "ponziland_Auction"
)

// ModelsAfter lazily streams every row of table with an updated_at strictly
// after since, oldest first (spec §4.3's "model ingester").
func (c *Client) ModelsAfter(ctx context.Context, table ModelTable, since time.Time, pageSize int) iter.Seq2[RawModel, error] {
	return func(yield func(RawModel, error) bool) {
		cursor := since
		for {
			sql := fmt.Sprintf(
				`SELECT event_id, data, updated_at FROM %q WHERE updated_at > '%s' ORDER BY updated_at ASC LIMIT %d`,
				string(table), cursor.UTC().Format(time.RFC3339Nano), pageSize,
			)
			rows, err := c.Query(ctx, sql)
			if err != nil {
				yield(RawModel{}, err)
				return
			}
			if len(rows) == 0 {
				return
			}
			for _, row := range rows {
				m, err := decodeRawModel(string(table), row)
				if err != nil {
					if !yield(RawModel{}, err) {
						return
					}
					continue
				}
				if !yield(m, nil) {
					return
				}
				cursor = m.Timestamp
			}
			if len(rows) < pageSize {
				return
			}
		}
	}
}

func decodeRawModel(name string, row map[string]any) (RawModel, error) {
	eventID, _ := row["event_id"].(string)
	rawTS, _ := row["updated_at"].(string)

	ts, err := parseToriiTimestamp(rawTS)
	if err != nil {
		return RawModel{}, fmt.Errorf("%w: model %s timestamp %q: %v", chain.ErrParse, name, rawTS, err)
	}

	var data json.RawMessage
	switch v := row["data"].(type) {
	case string:
		data = json.RawMessage(v)
	case nil:
		data = json.RawMessage("null")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return RawModel{}, fmt.Errorf("%w: re-encoding model %s data: %v", chain.ErrParse, name, err)
		}
		data = encoded
	}

	return RawModel{ModelName: name, EventID: eventID, Data: data, Timestamp: ts}, nil
}

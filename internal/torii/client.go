// Package torii is the upstream indexer client (C2), grounded on
// original_source's torii-ingester crate (torii_sql.rs's SqlClient): a thin
// HTTP client that POSTs raw SQL to torii's REST-over-SQL endpoint and
// decodes the JSON array response, wrapped here in Go 1.23's iter.Seq2 so
// callers range over results lazily instead of buffering a whole page.
package torii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ponziland/chainindexer/internal/chain"
)

// Client talks to torii's /sql endpoint over HTTP.
type Client struct {
	sqlURL string
	http   *http.Client
}

// New builds a Client, appending a "/sql" path segment to toriiURL unless
// it is already present (torii_sql.rs's make_sql_url).
func New(toriiURL string) (*Client, error) {
	u, err := url.Parse(toriiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid torii url %q: %v", chain.ErrParse, toriiURL, err)
	}
	if !strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/sql") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/sql"
	}
	return &Client{
		sqlURL: u.String(),
		http:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Query executes a raw SQL statement against torii and returns the decoded
// JSON rows, one map per row.
func (c *Client) Query(ctx context.Context, sql string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sqlURL, bytes.NewBufferString(sql))
	if err != nil {
		return nil, fmt.Errorf("%w: building torii sql request: %v", chain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: requesting torii sql: %v", chain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: torii returned status %d: %s", chain.ErrTransport, resp.StatusCode, string(body))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding torii sql response: %v", chain.ErrParse, err)
	}
	return rows, nil
}

// RawEvent is an undecoded row from the event table, as torii's SQL
// endpoint returns it — the boundary type internal/ingest decodes into a
// typed models.Event + payload pair.
type RawEvent struct {
	EventID   string
	Name      string
	Data      json.RawMessage
	Timestamp time.Time
}

// EventsAfter lazily streams every event row with a timestamp strictly
// after since, oldest first, paginating internally in pageSize batches.
// Ranging stops as soon as the caller breaks, or after a failed request,
// whose error (wrapping chain.ErrTransport, or chain.ErrParse for an
// undecodable response body) is yielded once as the last item. A single row
// that fails to decode is yielded as a chain.ErrParse error and ranging
// continues with the next row. A range that ends without a request error
// has exhausted the stream cleanly.
func (c *Client) EventsAfter(ctx context.Context, since time.Time, pageSize int) iter.Seq2[RawEvent, error] {
	return func(yield func(RawEvent, error) bool) {
		cursor := since
		for {
			sql := fmt.Sprintf(
				`SELECT event_id, name, data, executed_at FROM events WHERE executed_at > '%s' ORDER BY executed_at ASC LIMIT %d`,
				cursor.UTC().Format(time.RFC3339Nano), pageSize,
			)
			rows, err := c.Query(ctx, sql)
			if err != nil {
				yield(RawEvent{}, err)
				return
			}
			if len(rows) == 0 {
				return
			}
			for _, row := range rows {
				ev, err := decodeRawEvent(row)
				if err != nil {
					if !yield(RawEvent{}, err) {
						return
					}
					continue
				}
				if !yield(ev, nil) {
					return
				}
				cursor = ev.Timestamp
			}
			if len(rows) < pageSize {
				return
			}
		}
	}
}

func decodeRawEvent(row map[string]any) (RawEvent, error) {
	eventID, _ := row["event_id"].(string)
	name, _ := row["name"].(string)
	rawTS, _ := row["executed_at"].(string)

	ts, err := parseToriiTimestamp(rawTS)
	if err != nil {
		return RawEvent{}, fmt.Errorf("%w: event %s timestamp %q: %v", chain.ErrParse, eventID, rawTS, err)
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
			return RawEvent{}, fmt.Errorf("%w: re-encoding event %s data: %v", chain.ErrParse, eventID, err)
		}
		data = encoded
	}

	return RawEvent{EventID: eventID, Name: name, Data: data, Timestamp: ts}, nil
}

func parseToriiTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

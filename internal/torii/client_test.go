package torii

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppendsSqlPath(t *testing.T) {
	c, err := New("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/sql", c.sqlURL)

	c2, err := New("http://localhost:8080/sql")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/sql", c2.sqlURL)
}

func TestEventsAfter_StreamsPagesAndStops(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"event_id": "1:0:0", "name": "LandNuked", "data": "{}", "executed_at": now.Format(time.RFC3339Nano)},
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var got []RawEvent
	for ev, err := range c.EventsAfter(context.Background(), now, 10) {
		require.NoError(t, err)
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "1:0:0", got[0].EventID)
}

func TestEventsAfter_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	var sawErr bool
	for _, err := range c.EventsAfter(context.Background(), time.Now(), 10) {
		if err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr)
}

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ponziland/chainindexer/internal/logging"
	"github.com/ponziland/chainindexer/internal/models"
)

func fakeEvent() models.Event {
	return models.Event{Kind: models.EventKindLandNuked}
}

type fakeWorker struct {
	name  string
	runs  atomic.Int32
	fail  bool
}

func (w *fakeWorker) Name() string { return w.name }

func (w *fakeWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.fail {
		return errors.New("boom")
	}
	<-ctx.Done()
	return nil
}

func TestSupervisor_RestartsFailingWorker(t *testing.T) {
	w := &fakeWorker{name: "flaky", fail: true}
	sup := New(logging.New("error"), 10*time.Millisecond, w)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	sup.Run(ctx, 100*time.Millisecond)
	assert.True(t, w.runs.Load() >= 2)
}

func TestEventBroadcaster_LaggedOnFullBuffer(t *testing.T) {
	b := NewEventBroadcaster()
	ch := b.Subscribe()

	for i := 0; i < broadcastBuffer+5; i++ {
		b.Publish(fakeEvent())
	}

	var sawLag bool
	for i := 0; i < broadcastBuffer; i++ {
		msg := <-ch
		if msg.Lagged {
			sawLag = true
		}
	}
	assert.True(t, sawLag)
}

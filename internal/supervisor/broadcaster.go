package supervisor

import (
	"sync"

	"github.com/ponziland/chainindexer/internal/models"
)

// broadcastBuffer bounds each subscriber's backlog. A subscriber that falls
// this far behind is told it lagged rather than let it apply backpressure
// to the event ingester (original_source's EventListenerTask uses a
// blocking mpsc deliberately to avoid lagging the catch-up process; the
// derivers downstream of it are the ones allowed to drop and resync from
// their own cursor instead).
const broadcastBuffer = 256

// EventBroadcaster fans out ingested events to any number of derivers
// (history, wallet activity) without letting a slow subscriber block the
// event ingester (spec §4.2 forwards LandBought/AuctionFinished/LandNuked/
// LandTransfer events onward; SPEC_FULL §4.6/§4.7 generalize "onward" to
// an arbitrary subscriber set).
type EventBroadcaster struct {
	mu   sync.Mutex
	subs []chan BroadcastMsg
}

// BroadcastMsg is either a forwarded event or a "you missed some" marker.
type BroadcastMsg struct {
	Event  *models.Event
	Lagged bool
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{}
}

// Subscribe registers a new receiver. The returned channel is closed when
// Close is called; callers should range over it.
func (b *EventBroadcaster) Subscribe() <-chan BroadcastMsg {
	ch := make(chan BroadcastMsg, broadcastBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish fans event out to every subscriber without blocking. A subscriber
// whose buffer is full has its oldest queued message dropped to make room
// for a Lagged marker.
func (b *EventBroadcaster) Publish(event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- BroadcastMsg{Event: &event}:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- BroadcastMsg{Lagged: true}:
			default:
				// the subscriber drained and refilled concurrently; drop
				// silently, it will notice via its own cursor on next poll.
			}
		}
	}
}

// Close closes every subscriber channel. Call once, after every publisher
// goroutine has stopped.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
}

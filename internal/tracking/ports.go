package tracking

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"backend-esterun/internal/stream"
)

// LocationEvent carries either a sample or a provider failure.
type LocationEvent struct {
	Sample GeoSample
	Err    error
}

// LocationProvider is the platform's location source. The returned function
// releases the subscription and must be safe to call once.
type LocationProvider interface {
	Subscribe(ctx context.Context, desiredAccuracyM float64) (<-chan LocationEvent, func(), error)
}

// Saver persists finalized activities. A nil result without an error is
// treated as a failed save.
type Saver interface {
	Save(ctx context.Context, rec ActivityRecord) (*SavedActivity, error)
}

type SaverFunc func(ctx context.Context, rec ActivityRecord) (*SavedActivity, error)

func (f SaverFunc) Save(ctx context.Context, rec ActivityRecord) (*SavedActivity, error) {
	return f(ctx, rec)
}

// SnapshotSink receives every published snapshot, e.g. the live map.
type SnapshotSink interface {
	Publish(sessionID string, snap Snapshot)
}

const pushBuffer = 64

// PushProvider is a LocationProvider fed by samples a device submits over the API.
type PushProvider struct {
	mu sync.Mutex
	ch chan LocationEvent
}

func NewPushProvider() *PushProvider {
	return &PushProvider{}
}

func (p *PushProvider) Subscribe(_ context.Context, _ float64) (<-chan LocationEvent, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		close(p.ch)
	}
	ch := make(chan LocationEvent, pushBuffer)
	p.ch = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.ch == ch {
				close(ch)
				p.ch = nil
			}
		})
	}, nil
}

// Push delivers a sample. It reports false when nobody is subscribed or the
// buffer is full; such samples are dropped.
func (p *PushProvider) Push(s GeoSample) bool {
	return p.deliver(LocationEvent{Sample: s})
}

func (p *PushProvider) Fail(err error) bool {
	return p.deliver(LocationEvent{Err: err})
}

func (p *PushProvider) Subscribed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil
}

func (p *PushProvider) deliver(ev LocationEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return false
	}
	select {
	case p.ch <- ev:
		return true
	default:
		return false
	}
}

// HubSink streams snapshots to websocket subscribers of the session.
type HubSink struct {
	hub *stream.Hub
}

func NewHubSink(hub *stream.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Publish(sessionID string, snap Snapshot) {
	if s == nil || s.hub == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("tracking: encode snapshot %s: %v", sessionID, err)
		return
	}
	s.hub.Broadcast(sessionID, payload)
}

package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Live is a running session as seen by the API.
type Live struct {
	ID         string
	UserID     string
	Controller *Controller
	Provider   *PushProvider
	cancel     context.CancelFunc
}

// Manager hosts live sessions, one controller goroutine each.
type Manager struct {
	params Params
	saver  Saver
	sink   SnapshotSink
	opts   []ControllerOption
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Live
}

func NewManager(params Params, saver Saver, sink SnapshotSink, opts ...ControllerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		params:   params,
		saver:    saver,
		sink:     sink,
		opts:     opts,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*Live{},
	}
}

// Create registers a new idle session and starts its controller.
func (m *Manager) Create(userID string, kind Kind) *Live {
	id := uuid.NewString()
	provider := NewPushProvider()
	session := NewSession(id, userID, kind, m.params, m.now)

	opts := append([]ControllerOption{WithSink(m.sink)}, m.opts...)
	ctrl := NewController(session, provider, m.saver, opts...)

	ctx, cancel := context.WithCancel(m.ctx)
	live := &Live{ID: id, UserID: userID, Controller: ctrl, Provider: provider, cancel: cancel}

	m.mu.Lock()
	m.sessions[id] = live
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("tracking: session %s ended: %v", id, err)
		}
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}()
	return live
}

// Get returns the live session owned by userID.
func (m *Manager) Get(id, userID string) (*Live, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	live, ok := m.sessions[id]
	if !ok || (userID != "" && live.UserID != userID) {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown discards every live session and waits for their loops to exit.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const waitFor = time.Second

type fakeProvider struct {
	mu     sync.Mutex
	ch     chan LocationEvent
	err    error
	subs   int
	unsubs int
}

func (p *fakeProvider) Subscribe(_ context.Context, _ float64) (<-chan LocationEvent, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, nil, p.err
	}
	p.subs++
	ch := make(chan LocationEvent)
	p.ch = ch
	return ch, func() {
		p.mu.Lock()
		p.unsubs++
		p.mu.Unlock()
	}, nil
}

func (p *fakeProvider) feed() chan LocationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch
}

func (p *fakeProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs, p.unsubs
}

func (p *fakeProvider) send(t *testing.T, ev LocationEvent) {
	t.Helper()
	select {
	case p.feed() <- ev:
	case <-time.After(waitFor):
		t.Fatalf("controller did not consume location event")
	}
}

func (p *fakeProvider) sample(t *testing.T, lat, lng, acc float64) {
	t.Helper()
	p.send(t, LocationEvent{Sample: sampleAt(lat, lng, acc)})
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type tickerFactory struct {
	mu  sync.Mutex
	all []*fakeTicker
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	tk := &fakeTicker{ch: make(chan time.Time)}
	f.all = append(f.all, tk)
	return tk
}

func (f *tickerFactory) created() []*fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeTicker(nil), f.all...)
}

func (f *tickerFactory) tick(t *testing.T) {
	t.Helper()
	all := f.created()
	if len(all) == 0 {
		t.Fatalf("no ticker running")
	}
	select {
	case all[len(all)-1].ch <- time.Now():
	case <-time.After(waitFor):
		t.Fatalf("controller did not consume tick")
	}
}

type fakeSaver struct {
	mu    sync.Mutex
	fail  error
	calls int
	got   ActivityRecord
}

func (s *fakeSaver) Save(_ context.Context, rec ActivityRecord) (*SavedActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.got = rec
	if s.fail != nil {
		return nil, s.fail
	}
	return &SavedActivity{ID: "activity-1", CreatedAt: time.Now()}, nil
}

func (s *fakeSaver) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	states []State
}

func (r *recordingSink) Publish(_ string, snap Snapshot) {
	r.mu.Lock()
	r.states = append(r.states, snap.State)
	r.mu.Unlock()
}

func (r *recordingSink) seen(st State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == st {
			return true
		}
	}
	return false
}

type harness struct {
	ctrl     *Controller
	provider *fakeProvider
	tickers  *tickerFactory
	saver    *fakeSaver
	sink     *recordingSink
	cancel   context.CancelFunc
	errc     chan error
}

func testParams() Params {
	p := DefaultParams()
	p.AcquireTimeout = 0
	p.IdleTimeout = 0
	return p
}

func startHarness(t *testing.T, params Params) *harness {
	t.Helper()
	h := &harness{
		provider: &fakeProvider{},
		tickers:  &tickerFactory{},
		saver:    &fakeSaver{},
		sink:     &recordingSink{},
		errc:     make(chan error, 1),
	}
	session := NewSession("session-1", "user-1", KindRunning, params, fixedNow)
	h.ctrl = NewController(session, h.provider, h.saver, WithTicker(h.tickers.New), WithSink(h.sink))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.ctrl.Done()
	})
	return h
}

func (h *harness) exit(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errc:
		return err
	case <-time.After(waitFor):
		t.Fatalf("controller did not exit")
	}
	return nil
}

func mustSnap(t *testing.T) func(Snapshot, error) Snapshot {
	return func(snap Snapshot, err error) Snapshot {
		t.Helper()
		if err != nil {
			t.Fatalf("command failed: %v", err)
		}
		return snap
	}
}

func TestControllerTracksAndSaves(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	snap := mustSnap(t)(h.ctrl.Start(ctx))
	if snap.State != StateAcquiring {
		t.Fatalf("expected acquiring, got %s", snap.State)
	}
	if subs, _ := h.provider.counts(); subs != 1 {
		t.Fatalf("expected one subscription, got %d", subs)
	}

	h.provider.sample(t, -6.2, 106.816, 5)
	h.provider.sample(t, -6.205, 106.816, 80) // rejected
	h.provider.sample(t, -6.205, 106.816, 5)
	for i := 0; i < 3; i++ {
		h.tickers.tick(t)
	}
	mustSnap(t)(h.ctrl.Pause(ctx))
	h.tickers.tick(t)
	h.tickers.tick(t)
	mustSnap(t)(h.ctrl.Resume(ctx))
	h.tickers.tick(t)

	snap = mustSnap(t)(h.ctrl.Snapshot(ctx))
	if snap.State != StateTracking || snap.DurationS != 4 || len(snap.Route) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(h.tickers.created()) != 1 {
		t.Fatalf("ticker should survive pause, got %d tickers", len(h.tickers.created()))
	}

	snap = mustSnap(t)(h.ctrl.Stop(ctx))
	if snap.State != StateStopped || snap.Candidate == nil || snap.Candidate.DurationS != 4 {
		t.Fatalf("unexpected stop snapshot %+v", snap)
	}
	if !h.tickers.created()[0].stopped.Load() {
		t.Fatalf("ticker must stop with the session")
	}
	if _, unsubs := h.provider.counts(); unsubs != 1 {
		t.Fatalf("subscription must be released on stop, got %d", unsubs)
	}

	snap = mustSnap(t)(h.ctrl.Confirm(ctx, "Sunday Long Run", "GBK"))
	if snap.State != StateSaved || snap.Saved == nil || snap.Saved.ID != "activity-1" {
		t.Fatalf("unexpected confirm snapshot %+v", snap)
	}
	if h.saver.got.Title != "Sunday Long Run" || h.saver.got.Location != "GBK" {
		t.Fatalf("saver got %+v", h.saver.got)
	}
	if err := h.exit(t); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := h.ctrl.Start(ctx); !errors.Is(err, ErrControllerClosed) {
		t.Fatalf("expected closed controller, got %v", err)
	}
	if snap := mustSnap(t)(h.ctrl.Snapshot(ctx)); snap.State != StateSaved {
		t.Fatalf("expected final snapshot after exit, got %s", snap.State)
	}
	if !h.sink.seen(StateTracking) || !h.sink.seen(StateSaved) {
		t.Fatalf("sink missed state changes")
	}
}

func TestControllerSaveFailureKeepsCandidate(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	h.provider.sample(t, -6.201, 106.816, 5)
	mustSnap(t)(h.ctrl.Stop(ctx))

	h.saver.setFail(errors.New("offline"))
	snap, err := h.ctrl.Confirm(ctx, "Rainy Run", "")
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("expected save failure, got %v", err)
	}
	if snap.State != StateStopped || snap.Candidate == nil || len(snap.Candidate.Route) != 2 || snap.Error == "" {
		t.Fatalf("candidate lost: %+v", snap)
	}

	h.saver.setFail(nil)
	snap = mustSnap(t)(h.ctrl.Confirm(ctx, "", ""))
	if snap.State != StateSaved || h.saver.got.Title != "Rainy Run" {
		t.Fatalf("retry should save the edited candidate, got %+v", h.saver.got)
	}
	if h.saver.calls != 2 {
		t.Fatalf("expected two save attempts, got %d", h.saver.calls)
	}
}

func TestControllerDiscardReleases(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	snap := mustSnap(t)(h.ctrl.Discard(ctx))
	if snap.State != StateDiscarded || len(snap.Route) != 0 {
		t.Fatalf("unexpected discard snapshot %+v", snap)
	}
	if err := h.exit(t); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, unsubs := h.provider.counts(); unsubs != 1 {
		t.Fatalf("expected released subscription")
	}
	if !h.tickers.created()[0].stopped.Load() {
		t.Fatalf("expected stopped ticker")
	}
	if h.saver.calls != 0 {
		t.Fatalf("discard must not save")
	}
}

func TestControllerCancelDiscards(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	h.cancel()

	if err := h.exit(t); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if h.ctrl.Last().State != StateDiscarded {
		t.Fatalf("expected discarded, got %s", h.ctrl.Last().State)
	}
	if _, unsubs := h.provider.counts(); unsubs != 1 {
		t.Fatalf("expected released subscription")
	}
	if !h.tickers.created()[0].stopped.Load() {
		t.Fatalf("expected stopped ticker")
	}
}

func TestControllerAcquireTimeoutAndRetry(t *testing.T) {
	params := testParams()
	params.AcquireTimeout = 20 * time.Millisecond
	h := startHarness(t, params)
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	deadline := time.Now().Add(waitFor)
	for {
		snap := mustSnap(t)(h.ctrl.Snapshot(ctx))
		if snap.State == StateError {
			if snap.Error != ErrAcquisitionTimeout.Error() {
				t.Fatalf("unexpected error %q", snap.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("acquisition never timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, unsubs := h.provider.counts(); unsubs != 1 {
		t.Fatalf("expected subscription released on error")
	}

	snap := mustSnap(t)(h.ctrl.Retry(ctx))
	if snap.State != StateAcquiring {
		t.Fatalf("expected acquiring after retry, got %s", snap.State)
	}
	if subs, _ := h.provider.counts(); subs != 2 {
		t.Fatalf("expected resubscription, got %d", subs)
	}
	h.provider.sample(t, -6.2, 106.816, 5)
	if snap := mustSnap(t)(h.ctrl.Snapshot(ctx)); snap.State != StateTracking {
		t.Fatalf("expected tracking after lock, got %s", snap.State)
	}
}

func TestControllerProviderErrors(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.send(t, LocationEvent{Err: ErrPermissionDenied})
	snap := mustSnap(t)(h.ctrl.Snapshot(ctx))
	if snap.State != StateError || snap.Error != ErrPermissionDenied.Error() {
		t.Fatalf("expected permission error, got %+v", snap)
	}

	mustSnap(t)(h.ctrl.Retry(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	h.provider.send(t, LocationEvent{Err: ErrLocationUnavailable})
	if snap := mustSnap(t)(h.ctrl.Snapshot(ctx)); snap.State != StateTracking {
		t.Fatalf("errors while tracking must not end the session, got %s", snap.State)
	}
}

func TestControllerFeedClosedWhileAcquiring(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	close(h.provider.feed())
	deadline := time.Now().Add(waitFor)
	for mustSnap(t)(h.ctrl.Snapshot(ctx)).State != StateError {
		if time.Now().After(deadline) {
			t.Fatalf("expected error after provider closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControllerSubscribeFailure(t *testing.T) {
	h := startHarness(t, testParams())
	h.provider.err = ErrPermissionDenied

	snap := mustSnap(t)(h.ctrl.Start(context.Background()))
	if snap.State != StateError || snap.Error != ErrPermissionDenied.Error() {
		t.Fatalf("expected error state, got %+v", snap)
	}
}

func TestControllerRejectsInvalidCommands(t *testing.T) {
	h := startHarness(t, testParams())
	ctx := context.Background()

	if _, err := h.ctrl.Pause(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := h.ctrl.Begin(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid begin, got %v", err)
	}
	snap := mustSnap(t)(h.ctrl.SetKind(ctx, KindCycling))
	if snap.Kind != KindCycling {
		t.Fatalf("expected cycling")
	}
	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	if _, err := h.ctrl.SetKind(ctx, KindWalking); !errors.Is(err, ErrKindLocked) {
		t.Fatalf("expected kind locked, got %v", err)
	}
}

func TestControllerIdleSessionDiscarded(t *testing.T) {
	params := testParams()
	params.IdleTimeout = 100 * time.Millisecond
	h := startHarness(t, params)
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)

	if err := h.exit(t); !errors.Is(err, ErrSessionIdle) {
		t.Fatalf("expected idle timeout, got %v", err)
	}
	if h.ctrl.Last().State != StateDiscarded || !h.sink.seen(StateDiscarded) {
		t.Fatalf("idle session must be discarded, got %s", h.ctrl.Last().State)
	}
	if _, unsubs := h.provider.counts(); unsubs != 1 {
		t.Fatalf("expected released subscription")
	}
	if !h.tickers.created()[0].stopped.Load() {
		t.Fatalf("expected stopped ticker")
	}
}

func TestControllerActivityDefersIdleTimeout(t *testing.T) {
	params := testParams()
	params.IdleTimeout = 150 * time.Millisecond
	h := startHarness(t, params)
	ctx := context.Background()

	mustSnap(t)(h.ctrl.Start(ctx))
	h.provider.sample(t, -6.2, 106.816, 5)
	for i := 0; i < 6; i++ {
		time.Sleep(40 * time.Millisecond)
		h.provider.sample(t, -6.2, 106.816, 5)
	}
	if snap := mustSnap(t)(h.ctrl.Snapshot(ctx)); snap.State != StateTracking {
		t.Fatalf("samples must keep the session alive, got %s", snap.State)
	}

	mustSnap(t)(h.ctrl.Stop(ctx))
	if err := h.exit(t); !errors.Is(err, ErrSessionIdle) {
		t.Fatalf("stopped session should still expire, got %v", err)
	}
	if h.saver.calls != 0 {
		t.Fatalf("expired candidate must not be saved")
	}
}

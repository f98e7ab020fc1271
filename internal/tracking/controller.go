package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

type op int

const (
	opSnapshot op = iota
	opStart
	opBegin
	opPause
	opResume
	opStop
	opRetry
	opConfirm
	opDiscard
	opSetKind
)

type command struct {
	op       op
	ctx      context.Context
	title    string
	location string
	kind     Kind
	reply    chan result
}

type result struct {
	snap Snapshot
	err  error
}

// Controller owns a Session and is its only writer. Location events, clock
// ticks and user commands are consumed by a single loop in Run, so each is
// handled to completion before the next.
type Controller struct {
	session   *Session
	provider  LocationProvider
	saver     Saver
	sink      SnapshotSink
	newTicker func(time.Duration) Ticker

	cmds chan command
	done chan struct{}

	mu   sync.Mutex
	last Snapshot

	// owned by the Run goroutine
	events      <-chan LocationEvent
	unsubscribe func()
	ticker      Ticker
	timeout     *time.Timer
	idle        *time.Timer
}

type ControllerOption func(*Controller)

// WithTicker replaces the interval source driving the clock.
func WithTicker(fn func(time.Duration) Ticker) ControllerOption {
	return func(c *Controller) { c.newTicker = fn }
}

func WithSink(sink SnapshotSink) ControllerOption {
	return func(c *Controller) { c.sink = sink }
}

func NewController(session *Session, provider LocationProvider, saver Saver, opts ...ControllerOption) *Controller {
	c := &Controller{
		session:   session,
		provider:  provider,
		saver:     saver,
		newTicker: NewTicker,
		cmds:      make(chan command),
		done:      make(chan struct{}),
		last:      session.Snapshot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes events until the session is saved or discarded, or ctx is
// cancelled. A cancelled session is discarded, and so is one that sees no
// sample or command for Params.IdleTimeout. The location subscription and
// the ticker are released on every return path.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.release()

	c.publish()
	c.resetIdle()
	for !c.session.State().Terminal() {
		var ticks <-chan time.Time
		if c.ticker != nil {
			ticks = c.ticker.C()
		}
		var timeout <-chan time.Time
		if c.timeout != nil {
			timeout = c.timeout.C
		}
		var idle <-chan time.Time
		if c.idle != nil {
			idle = c.idle.C
		}

		select {
		case <-ctx.Done():
			c.abandon()
			return ctx.Err()
		case <-idle:
			c.idle = nil
			log.Printf("tracking: session %s idle while %s, discarding", c.session.ID(), c.session.State())
			c.abandon()
			return ErrSessionIdle
		case cmd := <-c.cmds:
			c.resetIdle()
			snap, err := c.handle(ctx, cmd)
			cmd.reply <- result{snap: snap, err: err}
		case ev, ok := <-c.events:
			c.resetIdle()
			c.handleEvent(ev, ok)
		case <-ticks:
			if c.session.Tick() {
				c.publish()
			}
		case <-timeout:
			c.timeout = nil
			c.failAcquisition(ErrAcquisitionTimeout)
		}
	}
	return nil
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) Start(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opStart})
}

func (c *Controller) Begin(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opBegin})
}

func (c *Controller) Pause(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opPause})
}

func (c *Controller) Resume(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opResume})
}

func (c *Controller) Stop(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opStop})
}

func (c *Controller) Retry(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opRetry})
}

func (c *Controller) Discard(ctx context.Context) (Snapshot, error) {
	return c.call(ctx, command{op: opDiscard})
}

func (c *Controller) SetKind(ctx context.Context, kind Kind) (Snapshot, error) {
	return c.call(ctx, command{op: opSetKind, kind: kind})
}

// Confirm saves the stopped session with the caller's context.
func (c *Controller) Confirm(ctx context.Context, title, location string) (Snapshot, error) {
	return c.call(ctx, command{op: opConfirm, ctx: ctx, title: title, location: location})
}

// Snapshot returns the current view, or the final one once Run has returned.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := c.call(ctx, command{op: opSnapshot})
	if errors.Is(err, ErrControllerClosed) {
		return c.Last(), nil
	}
	return snap, err
}

func (c *Controller) Last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) call(ctx context.Context, cmd command) (Snapshot, error) {
	cmd.reply = make(chan result, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return Snapshot{}, ErrControllerClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r.snap, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) (Snapshot, error) {
	s := c.session
	var err error
	switch cmd.op {
	case opSnapshot:
		return s.Snapshot(), nil
	case opStart:
		if err = s.Start(); err == nil {
			c.acquire(ctx)
		}
	case opRetry:
		if err = s.Retry(); err == nil {
			c.acquire(ctx)
		}
	case opBegin:
		err = s.Begin()
	case opPause:
		err = s.Pause()
	case opResume:
		err = s.Resume()
	case opStop:
		_, err = s.Stop()
	case opDiscard:
		err = s.Discard()
	case opSetKind:
		err = s.SetKind(cmd.kind)
	case opConfirm:
		saveCtx := cmd.ctx
		if saveCtx == nil {
			saveCtx = ctx
		}
		_, err = s.Confirm(saveCtx, c.saver, cmd.title, cmd.location)
		if err != nil {
			log.Printf("tracking: session %s: %v", s.ID(), err)
		}
	}
	c.sync()
	return c.publish(), err
}

func (c *Controller) handleEvent(ev LocationEvent, ok bool) {
	s := c.session
	switch {
	case !ok:
		c.events = nil
		c.dropSubscription()
		if s.State() == StateAcquiring {
			c.failAcquisition(ErrLocationUnavailable)
			return
		}
		log.Printf("tracking: session %s: location provider closed while %s", s.ID(), s.State())
	case ev.Err != nil:
		if s.State() == StateAcquiring {
			c.failAcquisition(ev.Err)
			return
		}
		log.Printf("tracking: session %s: location error while %s: %v", s.ID(), s.State(), ev.Err)
		return
	default:
		s.HandleSample(ev.Sample)
	}
	c.sync()
	c.publish()
}

func (c *Controller) failAcquisition(err error) {
	if ferr := c.session.FailAcquisition(err); ferr != nil {
		log.Printf("tracking: session %s: %v", c.session.ID(), ferr)
	}
	c.sync()
	c.publish()
}

func (c *Controller) acquire(ctx context.Context) {
	c.dropSubscription()
	events, unsubscribe, err := c.provider.Subscribe(ctx, c.session.Params().LockAccuracyM)
	if err != nil {
		_ = c.session.FailAcquisition(err)
		return
	}
	c.events = events
	c.unsubscribe = unsubscribe
	if d := c.session.Params().AcquireTimeout; d > 0 {
		c.stopTimeout()
		c.timeout = time.NewTimer(d)
	}
}

// sync reconciles held resources with the session state.
func (c *Controller) sync() {
	st := c.session.State()
	if !st.Active() {
		c.dropSubscription()
	}
	if st != StateAcquiring || c.session.Locked() {
		c.stopTimeout()
	}
	if st == StateTracking || st == StatePaused {
		if c.ticker == nil {
			c.ticker = c.newTicker(c.tickInterval())
		}
	} else {
		c.stopTicker()
	}
}

func (c *Controller) abandon() {
	if err := c.session.Discard(); err == nil {
		c.release()
		c.publish()
	}
}

func (c *Controller) release() {
	c.dropSubscription()
	c.stopTicker()
	c.stopTimeout()
	c.stopIdle()
}

func (c *Controller) dropSubscription() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.events = nil
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) stopTimeout() {
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
}

func (c *Controller) resetIdle() {
	d := c.session.Params().IdleTimeout
	if d <= 0 {
		return
	}
	c.stopIdle()
	c.idle = time.NewTimer(d)
}

func (c *Controller) stopIdle() {
	if c.idle != nil {
		c.idle.Stop()
		c.idle = nil
	}
}

func (c *Controller) tickInterval() time.Duration {
	if d := c.session.Params().TickInterval; d > 0 {
		return d
	}
	return time.Second
}

func (c *Controller) publish() Snapshot {
	snap := c.session.Snapshot()
	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
	if c.sink != nil {
		c.sink.Publish(c.session.ID(), snap)
	}
	return snap
}

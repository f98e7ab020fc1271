package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Params are the tunables of a tracking session.
type Params struct {
	Filter         Filter
	LockAccuracyM  float64
	RequireBegin   bool
	CaloriesPerKm  float64
	StrideLengthM  float64
	AcquireTimeout time.Duration
	TickInterval   time.Duration
	IdleTimeout    time.Duration

	// Location names default titles; nil keeps the start time's own zone.
	Location *time.Location
}

func DefaultParams() Params {
	return Params{
		Filter:         Filter{MaxAccuracyM: 50},
		LockAccuracyM:  30,
		CaloriesPerKm:  60,
		StrideLengthM:  0.762,
		AcquireTimeout: 30 * time.Second,
		TickInterval:   time.Second,
		IdleTimeout:    30 * time.Minute,
	}
}

// Session is one tracking attempt. It is not safe for concurrent use; the
// Controller serializes every call.
type Session struct {
	id     string
	userID string
	kind   Kind
	params Params
	now    func() time.Time

	state     State
	route     Route
	distance  Accumulator
	clock     Clock
	startedAt time.Time
	position  *GeoSample
	lockFix   *GeoSample
	locked    bool
	resumed   bool
	lastErr   error
	candidate *ActivityRecord
	saved     *SavedActivity
}

func NewSession(id, userID string, kind Kind, params Params, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:     id,
		userID: userID,
		kind:   kind,
		params: params,
		now:    now,
		state:  StateIdle,
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) State() State   { return s.state }
func (s *Session) Params() Params { return s.params }
func (s *Session) Locked() bool   { return s.locked }

func (s *Session) SetKind(k Kind) error {
	if !s.startedAt.IsZero() || s.state == StateTracking || s.state == StatePaused {
		return ErrKindLocked
	}
	if s.state == StateStopped || s.state.Terminal() {
		return s.invalid("set kind")
	}
	s.kind = k
	return nil
}

func (s *Session) Start() error {
	switch s.state {
	case StateIdle:
		s.state = StateAcquiring
		return nil
	case StateAcquiring:
		return nil
	default:
		return s.invalid("start")
	}
}

// HandleSample filters a sample and, while tracking, records it. It reports
// whether the sample was appended to the route.
func (s *Session) HandleSample(sample GeoSample) bool {
	if s.state == StateStopped || s.state.Terminal() {
		return false
	}

	var prev *RoutePoint
	if s.state == StateTracking && !s.resumed {
		if last, ok := s.route.Last(); ok {
			prev = &last
		}
	}
	if !s.params.Filter.Accept(sample, prev) {
		return false
	}
	pos := sample
	s.position = &pos

	switch s.state {
	case StateAcquiring:
		if !s.hasLock(sample) {
			return false
		}
		s.locked = true
		s.lockFix = &pos
		if s.params.RequireBegin {
			return false
		}
		s.beginTracking()
		s.record(sample.Point())
		return true
	case StateTracking:
		s.record(sample.Point())
		return true
	default:
		return false
	}
}

func (s *Session) Begin() error {
	if s.state == StateTracking {
		return nil
	}
	if s.state != StateAcquiring {
		return s.invalid("begin")
	}
	if !s.locked || s.lockFix == nil {
		return ErrNoGPSLock
	}
	s.beginTracking()
	s.record(s.lockFix.Point())
	return nil
}

func (s *Session) FailAcquisition(err error) error {
	if s.state != StateAcquiring {
		return s.invalid("fail acquisition")
	}
	s.state = StateError
	s.lastErr = err
	s.locked = false
	s.lockFix = nil
	return nil
}

func (s *Session) Retry() error {
	if s.state != StateError {
		return s.invalid("retry")
	}
	s.state = StateAcquiring
	s.lastErr = nil
	return nil
}

func (s *Session) Tick() bool {
	if s.state != StateTracking {
		return false
	}
	return s.clock.Tick()
}

func (s *Session) Pause() error {
	switch s.state {
	case StateTracking:
		s.state = StatePaused
		s.clock.Pause()
		return nil
	case StatePaused:
		return nil
	default:
		return s.invalid("pause")
	}
}

func (s *Session) Resume() error {
	switch s.state {
	case StatePaused:
		s.state = StateTracking
		s.clock.Resume()
		s.resumed = true
		return nil
	case StateTracking:
		return nil
	default:
		return s.invalid("resume")
	}
}

// Stop freezes all accumulators and builds the candidate record. Calling it
// again while stopped returns the same candidate.
func (s *Session) Stop() (ActivityRecord, error) {
	switch {
	case s.state == StateStopped:
		return *s.candidate, nil
	case s.state.Terminal():
		return ActivityRecord{}, s.invalid("stop")
	}
	s.clock.Freeze()
	s.state = StateStopped
	rec := s.buildRecord()
	s.candidate = &rec
	return rec, nil
}

// Confirm hands the candidate to the saver. On failure the session stays
// stopped and the candidate, including the edited title and location, is kept
// for another attempt.
func (s *Session) Confirm(ctx context.Context, saver Saver, title, location string) (*SavedActivity, error) {
	if s.state != StateStopped {
		return nil, s.invalid("confirm")
	}
	rec := *s.candidate
	if t := strings.TrimSpace(title); t != "" {
		rec.Title = t
	}
	rec.Location = strings.TrimSpace(location)
	s.candidate = &rec

	saved, err := saver.Save(ctx, rec)
	if err != nil {
		s.lastErr = err
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if saved == nil {
		s.lastErr = ErrSaveFailed
		return nil, ErrSaveFailed
	}

	s.saved = saved
	s.lastErr = nil
	s.state = StateSaved
	s.teardown()
	return saved, nil
}

func (s *Session) Discard() error {
	if s.state.Terminal() {
		return s.invalid("discard")
	}
	s.state = StateDiscarded
	s.teardown()
	return nil
}

func (s *Session) Candidate() (ActivityRecord, bool) {
	if s.candidate == nil {
		return ActivityRecord{}, false
	}
	return *s.candidate, true
}

func (s *Session) Snapshot() Snapshot {
	distance := s.distance.Total()
	duration := s.clock.Seconds()
	snap := Snapshot{
		SessionID: s.id,
		State:     s.state,
		Kind:      s.kind,
		DistanceM: distance,
		DurationS: duration,
		Elapsed:   FormatDuration(duration),
		Pace:      PaceFor(distance, duration),
		Calories:  Calories(distance/1000, s.params.CaloriesPerKm),
		Route:     s.route.Points(),
		Locked:    s.locked,
		StartedAt: s.startedAt,
		Saved:     s.saved,
	}
	if s.position != nil {
		pos := *s.position
		snap.Position = &pos
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.candidate != nil {
		rec := *s.candidate
		rec.Route = append([]RoutePoint(nil), s.candidate.Route...)
		snap.Candidate = &rec
	}
	return snap
}

func (s *Session) hasLock(sample GeoSample) bool {
	return s.params.LockAccuracyM <= 0 || sample.Accuracy <= s.params.LockAccuracyM
}

func (s *Session) beginTracking() {
	s.state = StateTracking
	if s.startedAt.IsZero() {
		s.startedAt = s.now()
	}
	s.clock.Start()
}

func (s *Session) record(p RoutePoint) {
	if last, ok := s.route.Last(); ok {
		s.distance.Add(last, p)
	}
	s.route.Append(p)
	s.resumed = false
}

func (s *Session) buildRecord() ActivityRecord {
	distance := s.distance.Total()
	duration := s.clock.Seconds()
	start := s.startedAt
	if start.IsZero() {
		start = s.now()
	}
	rec := ActivityRecord{
		UserID:      s.userID,
		Kind:        s.kind,
		DistanceM:   distance,
		DurationS:   duration,
		AveragePace: PaceFor(distance, duration),
		Calories:    Calories(distance/1000, s.params.CaloriesPerKm),
		Route:       s.route.Points(),
		StartTime:   start,
		Title:       DefaultTitle(s.kind, s.localTime(start)),
	}
	if s.kind == KindWalking {
		steps := EstimateSteps(distance, s.params.StrideLengthM)
		rec.StepCount = &steps
	}
	return rec
}

func (s *Session) teardown() {
	s.route.Reset()
	s.distance.Reset()
	s.clock.Reset()
	s.candidate = nil
	s.position = nil
	s.lockFix = nil
	s.locked = false
}

func (s *Session) localTime(t time.Time) time.Time {
	if s.params.Location == nil {
		return t
	}
	return t.In(s.params.Location)
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s.state)
}

// DefaultTitle names an activity after the local time of day it started.
func DefaultTitle(kind Kind, start time.Time) string {
	part := "Morning"
	switch h := start.Hour(); {
	case h >= 18:
		part = "Evening"
	case h >= 15:
		part = "Afternoon"
	case h >= 11:
		part = "Lunch"
	}
	noun := "Run"
	switch kind {
	case KindWalking:
		noun = "Walk"
	case KindCycling:
		noun = "Ride"
	}
	return part + " " + noun
}

package tracking

import "time"

type clockState int

const (
	clockNeutral clockState = iota
	clockRunning
	clockPaused
)

// Clock counts active seconds. It only advances on Tick while running.
type Clock struct {
	state   clockState
	seconds int64
}

func (c *Clock) Start() {
	if c.state == clockNeutral {
		c.state = clockRunning
	}
}

func (c *Clock) Tick() bool {
	if c.state != clockRunning {
		return false
	}
	c.seconds++
	return true
}

func (c *Clock) Pause() {
	if c.state == clockRunning {
		c.state = clockPaused
	}
}

func (c *Clock) Resume() {
	if c.state == clockPaused {
		c.state = clockRunning
	}
}

// Freeze stops the clock without allowing a later Resume.
func (c *Clock) Freeze() {
	if c.state != clockNeutral {
		c.state = clockPaused
	}
}

func (c *Clock) Reset() {
	c.state = clockNeutral
	c.seconds = 0
}

func (c *Clock) Seconds() int64 {
	return c.seconds
}

func (c *Clock) Running() bool {
	return c.state == clockRunning
}

// Ticker is the fixed-interval source driving the clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

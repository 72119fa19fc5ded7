package core

import "time"

// Clock abstracts the current time so time-dependent logic (validity
// checks, rotation deadlines) can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// Ticker abstracts time.Ticker for the same reason.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// TickerClock extends Clock with ticker construction, for components that
// own a periodic loop.
type TickerClock interface {
	Clock
	NewTicker(d time.Duration) Ticker
}

// SystemClock is the real-time TickerClock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) Chan() <-chan time.Time { return s.t.C }

func (s systemTicker) Stop() { s.t.Stop() }

package session

import "time"

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers. Tests substitute a clock whose ticks they send by hand.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// WallClock returns a Clock backed by time.Ticker.
func WallClock() Clock {
	return wallClock{}
}

type wallClock struct{}

func (wallClock) NewTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

package core

import "time"

// Ticker is the timer driver of spec.md §4.H: it fires on a fixed period
// and is idempotent — safe to fire early or late, since every consumer
// (RetransmitQueue.Due) re-derives "is this entry due" from wall-clock time
// rather than from the tick itself.
type Ticker struct {
	t *time.Ticker
}

// NewTicker starts a ticker with the given period. The caller must call
// Stop when done.
func NewTicker(period time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(period)}
}

// C returns the channel that fires on every tick.
func (t *Ticker) C() <-chan time.Time {
	return t.t.C
}

// Stop releases the underlying time.Ticker's resources.
func (t *Ticker) Stop() {
	t.t.Stop()
}

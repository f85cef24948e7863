package game

import "time"

// ticker wraps time.Ticker with nil-safe accessors so the run loop
// can select on timers that only exist while playing: a nil ticker
// yields a nil channel, which blocks forever.
type ticker struct {
	t *time.Ticker
}

func newTicker(d time.Duration) *ticker {
	return &ticker{t: time.NewTicker(d)}
}

func (tk *ticker) ch() <-chan time.Time {
	if tk == nil {
		return nil
	}
	return tk.t.C
}

func (tk *ticker) stop() {
	if tk != nil {
		tk.t.Stop()
	}
}

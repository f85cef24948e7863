package game

import "alphagate/internal/targets"

// Snapshot is a consistent view of session state, safe to hand across
// goroutines: the targets slice is a copy.
type Snapshot struct {
	Phase        Phase            `json:"phase"`
	Score        int              `json:"score"`
	TimeLeft     int              `json:"timeLeft"`
	Streak       int              `json:"streak"`
	MissedClicks int              `json:"missedClicks"`
	Targets      []targets.Target `json:"targets"`
}

// Result is the outcome of one finished playthrough, emitted exactly
// once when the countdown reaches zero.
type Result struct {
	Score     int  `json:"score"`
	Qualified bool `json:"qualified"`
}

// Events is the session's outbound bus. Snapshots are sent after
// every state change and may be dropped if the consumer lags;
// Finished carries the once-per-playthrough result.
type Events struct {
	Snapshots chan Snapshot
	Finished  chan Result
}

func newEvents() *Events {
	return &Events{
		Snapshots: make(chan Snapshot, 64),
		Finished:  make(chan Result, 4),
	}
}

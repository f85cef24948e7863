package game

import (
	"sync"

	"alphagate/internal/metrics"
	"alphagate/internal/targets"
)

type Phase string

const (
	PhaseWaiting  = Phase("waiting")
	PhasePlaying  = Phase("playing")
	PhaseFinished = Phase("finished")
)

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdHit
	cmdMiss
	cmdResize
	cmdSnapshot
)

// HitResult reports what one successful click was worth.
type HitResult struct {
	TargetPoints int `json:"targetPoints"`
	Bonus        int `json:"bonus"`
	Score        int `json:"score"`
	Streak       int `json:"streak"`
}

type command struct {
	kind     cmdKind
	targetID int
	area     targets.Rect
	reply    chan any
}

// Session is one playthrough of the unlock mini-game. All state lives
// inside the run loop goroutine; commands and the three periodic
// timers (countdown, spawn, oldest-target removal) are serviced by a
// single select, so ticks and clicks are applied strictly one at a
// time and no lock is needed.
type Session struct {
	cfg     Config
	spawner *targets.Spawner
	Events  *Events

	cmds      chan command
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(cfg Config, spawner *targets.Spawner) *Session {
	if spawner == nil {
		spawner = targets.NewSpawner(nil)
	}
	s := &Session{
		cfg:     cfg,
		spawner: spawner,
		Events:  newEvents(),
		cmds:    make(chan command),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Start begins a playthrough from waiting or finished. It reports
// false when ignored: mid-play starts and starts after Close are
// no-ops.
func (s *Session) Start() bool {
	v, ok := s.do(command{kind: cmdStart})
	return ok && v.(bool)
}

// Hit applies a click on the given target. It reports false when the
// session is not playing or the target is no longer live; a stale
// click is ignored, it is not a miss.
func (s *Session) Hit(targetID int) (HitResult, bool) {
	v, ok := s.do(command{kind: cmdHit, targetID: targetID})
	if !ok {
		return HitResult{}, false
	}
	hr, ok := v.(HitResult)
	return hr, ok
}

// Miss records a click on empty play area: the streak resets, the
// score is untouched. Ignored outside the playing phase.
func (s *Session) Miss() {
	s.do(command{kind: cmdMiss})
}

// Resize records the client-reported play-area extent. Until the
// first resize arrives the spawner has nowhere to place targets and
// each spawn tick is skipped.
func (s *Session) Resize(area targets.Rect) {
	s.do(command{kind: cmdResize, area: area})
}

// Snapshot returns a copy of the current state. After Close it
// returns the zero snapshot.
func (s *Session) Snapshot() Snapshot {
	v, ok := s.do(command{kind: cmdSnapshot})
	if !ok {
		return Snapshot{}
	}
	return v.(Snapshot)
}

// Close tears the session down from any phase. Safe to call more than
// once; commands and timer ticks arriving afterwards are no-ops.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done reports session teardown to observers.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) do(c command) (any, bool) {
	c.reply = make(chan any, 1)
	select {
	case s.cmds <- c:
	case <-s.done:
		return nil, false
	}
	select {
	case v := <-c.reply:
		return v, true
	case <-s.done:
		return nil, false
	}
}

// sessionState is owned exclusively by the run loop.
type sessionState struct {
	phase        Phase
	score        int
	timeLeft     int
	streak       int
	missedClicks int
	live         []targets.Target
	nextID       int
	area         targets.Rect
}

func (s *Session) run() {
	st := sessionState{phase: PhaseWaiting, nextID: 1}

	var countdown, spawn, expire *ticker
	stopTimers := func() {
		countdown.stop()
		spawn.stop()
		expire.stop()
		countdown, spawn, expire = nil, nil, nil
	}
	defer stopTimers()

	for {
		select {
		case <-s.done:
			return

		case c := <-s.cmds:
			switch c.kind {
			case cmdStart:
				if st.phase == PhasePlaying {
					c.reply <- false
					continue
				}
				st.score = 0
				st.streak = 0
				st.missedClicks = 0
				st.live = st.live[:0]
				st.timeLeft = s.cfg.Duration
				st.phase = PhasePlaying
				stopTimers()
				countdown = newTicker(s.cfg.TickInterval)
				spawn = newTicker(s.cfg.SpawnInterval)
				expire = newTicker(s.cfg.TargetLifetime)
				metrics.GamesStarted.Inc()
				c.reply <- true
				s.publish(st)

			case cmdHit:
				hr, ok := st.hit(c.targetID, s.cfg.StreakBonus)
				if ok {
					metrics.TargetHits.Inc()
					c.reply <- hr
					s.publish(st)
				} else {
					c.reply <- nil
				}

			case cmdMiss:
				if st.phase == PhasePlaying {
					st.streak = 0
					st.missedClicks++
					metrics.TargetMisses.Inc()
					s.publish(st)
				}
				c.reply <- nil

			case cmdResize:
				st.area = c.area
				c.reply <- nil

			case cmdSnapshot:
				c.reply <- st.snapshot()
			}

		case <-countdown.ch():
			if st.phase != PhasePlaying {
				continue
			}
			st.timeLeft--
			if st.timeLeft <= 0 {
				st.timeLeft = 0
				st.phase = PhaseFinished
				stopTimers()
				metrics.GamesFinished.Inc()
				s.publish(st)
				s.finish(st.score)
				continue
			}
			s.publish(st)

		case <-spawn.ch():
			if st.phase != PhasePlaying || len(st.live) >= s.cfg.MaxTargets {
				continue
			}
			tgt := s.spawner.Spawn(st.area, st.nextID)
			if tgt == nil {
				// Play area not reported yet; retry next tick.
				continue
			}
			st.nextID++
			st.live = append(st.live, *tgt)
			metrics.TargetsSpawned.Inc()
			s.publish(st)

		case <-expire.ch():
			if st.phase != PhasePlaying || len(st.live) == 0 {
				continue
			}
			// FIFO aging: drop the single oldest live target.
			st.live = st.live[1:]
			metrics.TargetsExpired.Inc()
			s.publish(st)
		}
	}
}

func (st *sessionState) hit(targetID, bonusPerTier int) (HitResult, bool) {
	if st.phase != PhasePlaying {
		return HitResult{}, false
	}
	for i, tgt := range st.live {
		if tgt.ID != targetID {
			continue
		}
		bonus := st.streak / 3 * bonusPerTier
		st.score += tgt.Points + bonus
		st.streak++
		st.live = append(st.live[:i], st.live[i+1:]...)
		return HitResult{
			TargetPoints: tgt.Points,
			Bonus:        bonus,
			Score:        st.score,
			Streak:       st.streak,
		}, true
	}
	return HitResult{}, false
}

func (st *sessionState) snapshot() Snapshot {
	live := make([]targets.Target, len(st.live))
	copy(live, st.live)
	return Snapshot{
		Phase:        st.phase,
		Score:        st.score,
		TimeLeft:     st.timeLeft,
		Streak:       st.streak,
		MissedClicks: st.missedClicks,
		Targets:      live,
	}
}

func (s *Session) publish(st sessionState) {
	select {
	case s.Events.Snapshots <- st.snapshot():
	default:
		// Consumer lagging; a newer snapshot will follow.
	}
}

func (s *Session) finish(score int) {
	select {
	case s.Events.Finished <- Result{Score: score, Qualified: score >= s.cfg.Threshold}:
	default:
	}
}

package game

import (
	"alphagate/internal/targets"
	"sync"
	"time"
)

const staleTTL = 1 * time.Hour

type entry struct {
	sess      *Session
	createdAt time.Time
}

// Registry tracks the single active session per (user, post) pair and
// sweeps abandoned ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	cfg      Config
}

func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		cfg:      cfg,
	}
	go r.sweepStale()
	return r
}

// Acquire returns the live session for (userID, postID), creating one
// when none exists. A session torn down earlier is replaced.
func (r *Registry) Acquire(userID, postID string) *Session {
	key := userID + "/" + postID
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[key]; ok {
		select {
		case <-e.sess.Done():
			// fall through and replace
		default:
			return e.sess
		}
	}

	sess := NewSession(r.cfg, targets.NewSpawner(nil))
	r.sessions[key] = &entry{sess: sess, createdAt: time.Now()}
	return sess
}

// Release closes and forgets the session for (userID, postID).
func (r *Registry) Release(userID, postID string) {
	key := userID + "/" + postID
	r.mu.Lock()
	e, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if ok {
		e.sess.Close()
	}
}

// Count reports live sessions, for the health surface.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		r.mu.Lock()
		now := time.Now()
		for key, e := range r.sessions {
			if now.Sub(e.createdAt) > staleTTL {
				e.sess.Close()
				delete(r.sessions, key)
			}
		}
		r.mu.Unlock()
	}
}

package identity

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sessionTTL    = 24 * time.Hour
	sweepInterval = 5 * time.Minute
)

type session struct {
	user      User
	createdAt time.Time
}

// Sessions is a token-keyed in-memory session store.
type Sessions struct {
	mu     sync.Mutex
	byTok  map[string]session
	admins map[string]bool
}

func NewSessions(adminEmails []string) *Sessions {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = true
	}
	s := &Sessions{
		byTok:  make(map[string]session),
		admins: admins,
	}
	go s.sweepStale()
	return s
}

// SignIn issues a session token for the given email. The user id is
// stable per email; the admin claim is resolved here and nowhere else.
func (s *Sessions) SignIn(email string) (string, User) {
	email = strings.TrimSpace(email)
	user := User{
		ID:    userID(email),
		Email: email,
		Admin: s.admins[strings.ToLower(email)],
	}
	token := uuid.New().String()

	s.mu.Lock()
	s.byTok[token] = session{user: user, createdAt: time.Now()}
	s.mu.Unlock()

	return token, user
}

// Get resolves a token to its user.
func (s *Sessions) Get(token string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byTok[token]
	if !ok {
		return User{}, false
	}
	if time.Since(sess.createdAt) > sessionTTL {
		delete(s.byTok, token)
		return User{}, false
	}
	return sess.user, true
}

func (s *Sessions) SignOut(token string) {
	s.mu.Lock()
	delete(s.byTok, token)
	s.mu.Unlock()
}

func (s *Sessions) sweepStale() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for tok, sess := range s.byTok {
			if now.Sub(sess.createdAt) > sessionTTL {
				delete(s.byTok, tok)
			}
		}
		s.mu.Unlock()
	}
}

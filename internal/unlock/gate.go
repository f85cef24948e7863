// Package unlock converts a finished game's score into a content
// access grant. The store's unlock record is the sole source of
// truth; everything here fails closed.
package unlock

import (
	"context"
	"errors"
	"log"

	"alphagate/internal/identity"
	"alphagate/internal/metrics"

	"github.com/google/uuid"
)

// Store is the narrow slice of the content store the gate needs.
type Store interface {
	// HasUnlocked reports whether an unlock record exists for the pair.
	HasUnlocked(ctx context.Context, userID, postID string) (bool, error)
	// Unlock inserts the unlock record, returning ErrDuplicate when
	// one already exists and ErrPostNotFound for a dangling post id.
	Unlock(ctx context.Context, userID, postID string, score int) error
}

type Gate struct {
	store     Store
	threshold int
	notifier  *Notifier
}

// NewGate builds a gate over store. notifier may be nil.
func NewGate(store Store, threshold int, notifier *Notifier) *Gate {
	return &Gate{store: store, threshold: threshold, notifier: notifier}
}

// AttemptUnlock applies the gate policy in order: authentication,
// admin bypass, id shape, score threshold, then the store call.
// Unlocking is idempotent from the caller's perspective: a duplicate
// record is AlreadyUnlocked, never an error.
func (g *Gate) AttemptUnlock(ctx context.Context, user *identity.User, postID string, score int) Outcome {
	out := g.attemptUnlock(ctx, user, postID, score)
	metrics.UnlockAttempts.WithLabelValues(out.Result.String()).Inc()
	if out.Granted() && g.notifier != nil && user != nil {
		g.notifier.Publish(Notice{UserID: user.ID, PostID: postID, Score: score})
	}
	return out
}

func (g *Gate) attemptUnlock(ctx context.Context, user *identity.User, postID string, score int) Outcome {
	if user == nil {
		return Outcome{Result: ResultDeferred, Reason: ReasonAuthRequired}
	}
	if user.Admin {
		// Admin accounts hold all content without spending a score.
		return Outcome{Result: ResultUnlocked}
	}
	if !validPostID(postID) {
		// Fast-fail on id shape only; the store stays authoritative.
		return Outcome{Result: ResultRejected, Reason: ReasonInvalidID}
	}
	if score < g.threshold {
		return Outcome{Result: ResultRejected, Reason: ReasonScoreTooLow}
	}

	err := g.store.Unlock(ctx, user.ID, postID, score)
	switch {
	case err == nil:
		return Outcome{Result: ResultUnlocked}
	case errors.Is(err, ErrDuplicate):
		return Outcome{Result: ResultAlreadyUnlocked}
	default:
		log.Printf("[Unlock] store error for post %s: %v\n", postID, err)
		return Outcome{Result: ResultRejected, Reason: ReasonStoreError}
	}
}

// CheckStatus reports whether the pair is unlocked. Advisory: safe to
// call redundantly, and a false here is never cached as proof of
// anything. Store errors read as locked.
func (g *Gate) CheckStatus(ctx context.Context, user *identity.User, postID string) bool {
	if user == nil || postID == "" {
		return false
	}
	if user.Admin {
		return true
	}
	if !validPostID(postID) {
		return false
	}
	unlocked, err := g.store.HasUnlocked(ctx, user.ID, postID)
	if err != nil {
		log.Printf("[Unlock] status check error for post %s: %v\n", postID, err)
		return false
	}
	return unlocked
}

// Threshold exposes the qualifying score for presentation.
func (g *Gate) Threshold() int {
	return g.threshold
}

func validPostID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alphagate/internal/unlock"

	"github.com/lib/pq"
)

// Postgres error classes the unlock insert can hit. Mapping them here
// keeps backend codes out of the gate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type UnlockRecord struct {
	UserID     string    `json:"user_id"`
	PostID     string    `json:"post_id"`
	Score      int       `json:"score"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// HasUnlocked reports whether an unlock record exists for the pair.
func (d *DB) HasUnlocked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := d.queryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM unlock_records WHERE user_id = $1 AND post_id = $2
		)
	`, userID, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking unlock: %w", err)
	}
	return exists, nil
}

// Unlock appends the unlock record. The (user_id, post_id) primary
// key is the idempotency mechanism: a duplicate insert surfaces as
// unlock.ErrDuplicate.
func (d *DB) Unlock(ctx context.Context, userID, postID string, score int) error {
	_, err := d.exec(ctx, `
		INSERT INTO unlock_records (user_id, post_id, score)
		VALUES ($1, $2, $3)
	`, userID, postID, score)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return unlock.ErrDuplicate
		case pgForeignKeyViolation:
			return fmt.Errorf("recording unlock: %w", unlock.ErrPostNotFound)
		}
	}
	return fmt.Errorf("recording unlock: %w", err)
}

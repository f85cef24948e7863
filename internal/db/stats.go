package db

import (
	"context"
	"fmt"
)

// PostUnlockStats summarizes unlock activity for one post.
type PostUnlockStats struct {
	PostID    string  `json:"post_id"`
	Title     string  `json:"title"`
	Unlocks   int     `json:"unlocks"`
	AvgScore  float64 `json:"avg_score"`
	BestScore int     `json:"best_score"`
}

// UnlockStats is the admin dashboard view over the unlock records.
type UnlockStats struct {
	TotalUnlocks int               `json:"total_unlocks"`
	Posts        []PostUnlockStats `json:"posts"`
	Recent       []UnlockRecord    `json:"recent"`
}

// GetUnlockStats aggregates unlock counts and scores per post plus
// the most recent unlocks.
func (d *DB) GetUnlockStats(ctx context.Context) (*UnlockStats, error) {
	stats := &UnlockStats{}

	err := d.queryRow(ctx, `SELECT COUNT(*) FROM unlock_records`).Scan(&stats.TotalUnlocks)
	if err != nil {
		return nil, fmt.Errorf("counting unlocks: %w", err)
	}

	rows, err := d.query(ctx, `
		SELECT p.id, p.title,
			COUNT(u.post_id) AS unlocks,
			COALESCE(AVG(u.score), 0) AS avg_score,
			COALESCE(MAX(u.score), 0) AS best_score
		FROM posts p
		LEFT JOIN unlock_records u ON u.post_id = p.id
		GROUP BY p.id, p.title
		ORDER BY unlocks DESC, p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregating post unlocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps PostUnlockStats
		if err := rows.Scan(&ps.PostID, &ps.Title, &ps.Unlocks, &ps.AvgScore, &ps.BestScore); err != nil {
			return nil, fmt.Errorf("scanning post stats: %w", err)
		}
		stats.Posts = append(stats.Posts, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := d.query(ctx, `
		SELECT user_id, post_id, score, unlocked_at
		FROM unlock_records
		ORDER BY unlocked_at DESC
		LIMIT 20
	`)
	if err != nil {
		return nil, fmt.Errorf("listing recent unlocks: %w", err)
	}
	defer recent.Close()

	for recent.Next() {
		var r UnlockRecord
		if err := recent.Scan(&r.UserID, &r.PostID, &r.Score, &r.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scanning unlock record: %w", err)
		}
		stats.Recent = append(stats.Recent, r)
	}
	return stats, recent.Err()
}

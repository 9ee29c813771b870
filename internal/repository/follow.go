package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FollowRepository handles follower -> following edges.
type FollowRepository struct {
	pool *pgxpool.Pool
}

// NewFollowRepository creates a new FollowRepository instance.
func NewFollowRepository(pool *pgxpool.Pool) *FollowRepository {
	return &FollowRepository{pool: pool}
}

// Insert stores an edge. Existing edges are left alone.
func (r *FollowRepository) Insert(ctx context.Context, followerID, followingID int64) error {
	const query = `
		INSERT INTO follows (follower_id, following_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("failed to insert follow: %w", err)
	}
	return nil
}

// Delete removes an edge if present.
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID int64) error {
	const query = `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	if _, err := r.pool.Exec(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// CountFollowers returns how many users follow userID.
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM follows WHERE following_id = $1`

	var n int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

// AreMutual reports whether a and b follow each other.
func (r *FollowRepository) AreMutual(ctx context.Context, a, b int64) (bool, error) {
	const query = `
		SELECT COUNT(*) = 2 FROM follows
		WHERE (follower_id = $1 AND following_id = $2)
		   OR (follower_id = $2 AND following_id = $1)
	`
	var mutual bool
	if err := r.pool.QueryRow(ctx, query, a, b).Scan(&mutual); err != nil {
		return false, fmt.Errorf("failed to check mutual follow: %w", err)
	}
	return mutual, nil
}

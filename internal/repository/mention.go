package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus-quest-bot/internal/model"
)

// MentionRepository handles mention records.
type MentionRepository struct {
	pool *pgxpool.Pool
}

// NewMentionRepository creates a new MentionRepository instance.
func NewMentionRepository(pool *pgxpool.Pool) *MentionRepository {
	return &MentionRepository{pool: pool}
}

// CreateMany stores one mention per mentioned user in a single batch.
// Duplicate mentions are ignored.
func (r *MentionRepository) CreateMany(ctx context.Context, mentionedBy int64, mentioned []int64, postID, commentID string) error {
	if len(mentioned) == 0 {
		return nil
	}

	const query = `
		INSERT INTO mentions (mentioned_user_id, mentioned_by_user_id, post_id, comment_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT ON CONSTRAINT unique_mention DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, id := range mentioned {
		batch.Queue(query, id, mentionedBy, postID, commentID)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to create mentions: %w", err)
	}
	return nil
}

// GetForUser returns the mentions of userID, newest first.
func (r *MentionRepository) GetForUser(ctx context.Context, userID int64, limit int) ([]*model.Mention, error) {
	const query = `
		SELECT id, mentioned_user_id, mentioned_by_user_id, post_id, comment_id, created_at
		FROM mentions
		WHERE mentioned_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get mentions: %w", err)
	}
	defer rows.Close()

	var mentions []*model.Mention
	for rows.Next() {
		var m model.Mention
		if err := rows.Scan(&m.ID, &m.MentionedUserID, &m.MentionedByUserID, &m.PostID, &m.CommentID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mention: %w", err)
		}
		mentions = append(mentions, &m)
	}
	return mentions, rows.Err()
}

// Package repository provides the PostgreSQL and Redis adapters behind the
// outbound effects.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus-quest-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
)

const profileColumns = `user_id, username, language, avatar_url, bio, notifications_muted,
	focus_donated, total_focus_received, created_at, updated_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.Language,
		&p.AvatarURL,
		&p.Bio,
		&p.NotificationsMuted,
		&p.FocusDonated,
		&p.TotalFocusReceived,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProfileRepository handles profile records and their FOCUS counters.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Upsert creates the profile or refreshes its username.
func (r *ProfileRepository) Upsert(ctx context.Context, userID int64, username string) (*model.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, username, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, updated_at = NOW()
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, query, userID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}

// GetByID retrieves a profile.
// Returns ErrProfileNotFound if the profile does not exist.
func (r *ProfileRepository) GetByID(ctx context.Context, userID int64) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// IncrementFocusDonated adds amount to the lifetime donated counter,
// creating the profile if needed.
func (r *ProfileRepository) IncrementFocusDonated(ctx context.Context, userID, amount int64) error {
	const query = `
		INSERT INTO profiles (user_id, focus_donated, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET focus_donated = profiles.focus_donated + EXCLUDED.focus_donated, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to increment focus donated: %w", err)
	}
	return nil
}

// IncrementFocusReceived adds amount to the lifetime received counter,
// creating the profile if needed.
func (r *ProfileRepository) IncrementFocusReceived(ctx context.Context, userID, amount int64) error {
	const query = `
		INSERT INTO profiles (user_id, total_focus_received, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET total_focus_received = profiles.total_focus_received + EXCLUDED.total_focus_received, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to increment focus received: %w", err)
	}
	return nil
}

// SetNotificationsMuted toggles notifications for a profile.
func (r *ProfileRepository) SetNotificationsMuted(ctx context.Context, userID int64, muted bool) error {
	return r.setColumn(ctx, userID, "notifications_muted", muted)
}

// SetBio replaces a profile's bio.
func (r *ProfileRepository) SetBio(ctx context.Context, userID int64, bio string) error {
	return r.setColumn(ctx, userID, "bio", bio)
}

// SetLanguage stores a profile's interface language code.
func (r *ProfileRepository) SetLanguage(ctx context.Context, userID int64, language string) error {
	return r.setColumn(ctx, userID, "language", language)
}

// SetAvatarURL replaces a profile's avatar URL.
func (r *ProfileRepository) SetAvatarURL(ctx context.Context, userID int64, avatarURL string) error {
	return r.setColumn(ctx, userID, "avatar_url", avatarURL)
}

// setColumn updates one profile column. column is always a constant from
// this file.
// Returns ErrProfileNotFound if the profile does not exist.
func (r *ProfileRepository) setColumn(ctx context.Context, userID int64, column string, value any) error {
	query := `UPDATE profiles SET ` + column + ` = $2, updated_at = NOW() WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID, value)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", column, err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// GetTopReceivers returns profiles ordered by FOCUS received.
func (r *ProfileRepository) GetTopReceivers(ctx context.Context, limit int) ([]*model.Profile, error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE total_focus_received > 0
		ORDER BY total_focus_received DESC, user_id
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top receivers: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

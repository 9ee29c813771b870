package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"focus-quest-bot/internal/model"
)

// DefaultLeaderboardKey is the sorted set holding FOCUS scores.
const DefaultLeaderboardKey = "focus:leaderboard"

// Leaderboard keeps FOCUS scores in a Redis sorted set keyed by user id.
type Leaderboard struct {
	client *redis.Client
	key    string
}

// NewLeaderboard creates a Leaderboard on key.
func NewLeaderboard(client *redis.Client, key string) *Leaderboard {
	if key == "" {
		key = DefaultLeaderboardKey
	}
	return &Leaderboard{client: client, key: key}
}

// Add adds delta to the user's score.
func (l *Leaderboard) Add(ctx context.Context, userID, delta int64) error {
	member := strconv.FormatInt(userID, 10)
	if err := l.client.ZIncrBy(ctx, l.key, float64(delta), member).Err(); err != nil {
		return fmt.Errorf("failed to adjust leaderboard: %w", err)
	}
	return nil
}

// Score returns the user's score, zero when absent.
func (l *Leaderboard) Score(ctx context.Context, userID int64) (int64, error) {
	score, err := l.client.ZScore(ctx, l.key, strconv.FormatInt(userID, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get leaderboard score: %w", err)
	}
	return int64(score), nil
}

// Top returns up to limit entries, highest score first.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{UserID: id, Score: int64(z.Score)})
	}
	return entries, nil
}

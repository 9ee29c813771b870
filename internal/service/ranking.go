package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/model"
)

// LeaderboardReader reads the durable FOCUS leaderboard.
type LeaderboardReader interface {
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// RankingService serves the FOCUS leaderboard. It prefers the durable
// leaderboard and falls back to the in-memory balances when that is
// unavailable or empty.
type RankingService struct {
	manager *Manager
	board   LeaderboardReader
}

// NewRankingService creates a new RankingService instance. board may be nil.
func NewRankingService(manager *Manager, board LeaderboardReader) *RankingService {
	return &RankingService{manager: manager, board: board}
}

// Top returns up to limit leaderboard entries, highest first.
func (s *RankingService) Top(ctx context.Context, limit int) []model.LeaderboardEntry {
	if s.board != nil {
		entries, err := s.board.Top(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries
		}
		if err != nil {
			log.Warn().Err(err).Msg("Leaderboard unavailable, using local balances")
		}
	}
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()
	return s.manager.world.Points.Top(limit)
}

// Package service owns the per-user sessions and runs every transition
// under a single lock.
package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/quest"
	"focus-quest-bot/internal/session"
)

// Common errors for manager operations.
var (
	ErrUnknownUser = errors.New("user has no session")
	ErrZeroAdjust  = errors.New("adjustment must not be zero")
)

// Manager keeps one session per user over a shared world. Transitions of
// all sessions are serialised so each runs to completion before the next
// begins; their effects are queued after the transition returns.
type Manager struct {
	mu       sync.Mutex
	world    *session.World
	sessions map[int64]*session.Store
	opts     session.Options
	queue    *effect.Queue
}

// NewManager creates a Manager. A nil queue discards effects.
func NewManager(world *session.World, opts session.Options, queue *effect.Queue) *Manager {
	return &Manager{
		world:    world,
		sessions: make(map[int64]*session.Store),
		opts:     opts,
		queue:    queue,
	}
}

// store returns the user's session, creating it on first use. The returned
// effects register the profile when the session is new or renamed.
// Callers must hold m.mu.
func (m *Manager) store(user model.User) (*session.Store, []effect.Effect) {
	s, ok := m.sessions[user.ID]
	if !ok {
		s = session.NewStore(user, m.world, m.opts)
		m.sessions[user.ID] = s
		log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("Session created")
		return s, []effect.Effect{effect.UpsertProfile(user.ID, user.Username)}
	}
	if user.Username != "" && user.Username != s.User().Username {
		if err := s.Rename(user.Username); err != nil {
			log.Warn().Err(err).Int64("user_id", user.ID).Str("username", user.Username).Msg("Username not indexed")
		}
		return s, []effect.Effect{effect.UpsertProfile(user.ID, user.Username)}
	}
	return s, nil
}

// Do runs fn against the user's session. On success the result's effects
// are queued.
func (m *Manager) Do(user model.User, fn func(*session.Store) (session.Result, error)) (session.Result, error) {
	m.mu.Lock()
	s, profile := m.store(user)
	res, err := fn(s)
	m.mu.Unlock()

	m.enqueue(profile)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", user.ID).Msg("Transition rejected")
		return res, err
	}
	m.enqueue(res.Effects)
	if len(res.Completed) > 0 {
		log.Info().Int64("user_id", user.ID).Strs("completed", res.Completed).Msg("Quests completed")
	}
	return res, nil
}

func (m *Manager) enqueue(effects []effect.Effect) {
	if m.queue == nil || len(effects) == 0 {
		return
	}
	m.queue.PushAll(effects)
}

// Quests returns a snapshot of the user's quest ledger.
func (m *Manager) Quests(userID int64) (*quest.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	return s.Quests(), nil
}

// Account returns the user's FOCUS balances.
func (m *Manager) Account(userID int64) model.PointsAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Points.Get(userID)
}

// Feed returns up to limit posts, newest first.
func (m *Manager) Feed(limit int) []model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Feed.Recent(limit)
}

// FeedFor is Feed without the posts of authors viewer has blocked.
func (m *Manager) FeedFor(viewer int64, limit int) []model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Feed.RecentWhere(limit, func(p *model.Post) bool {
		return !m.world.Graph.IsBlocked(viewer, p.UserID)
	})
}

// Lookup resolves a username to a user id.
func (m *Manager) Lookup(username string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Directory.Lookup(username)
}

// Username returns the display name of a user.
func (m *Manager) Username(userID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.world.Directory.Username(userID); ok {
		return name
	}
	return fmt.Sprintf("%d", userID)
}

// FollowerCount returns how many users follow userID.
func (m *Manager) FollowerCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Graph.FollowerCount(userID)
}

// Adjust applies a manual correction to both of a user's balances and
// records it in the ledger. Balances never go below zero, so the ledger and
// leaderboard receive the change actually applied to the total.
func (m *Manager) Adjust(adminID, userID, delta int64) (model.PointsAccount, error) {
	if delta == 0 {
		return model.PointsAccount{}, ErrZeroAdjust
	}
	m.mu.Lock()
	before := m.world.Points.Get(userID)
	acc := m.world.Points.Adjust(userID, delta, delta)
	m.mu.Unlock()

	applied := acc.TotalPoints - before.TotalPoints
	if applied != 0 {
		desc := fmt.Sprintf("admin %d", adminID)
		m.enqueue([]effect.Effect{
			effect.RecordTransaction(userID, applied, model.TxTypeAdminAdjust, desc),
			effect.AdjustLeaderboard(userID, applied),
		})
	}
	log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Int64("delta", delta).
		Int64("applied", applied).
		Msg("Balance adjusted")
	return acc, nil
}

// Sessions returns the number of live sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ResolvePost expands a post id prefix.
func (m *Manager) ResolvePost(ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Feed.Resolve(ref)
}

// Post returns a copy of a post.
func (m *Manager) Post(postID string) (model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Feed.Snapshot(postID)
}

// DonationAmount returns the FOCUS moved by one donation.
func (m *Manager) DonationAmount() int64 {
	if m.opts.DonationAmount <= 0 {
		return session.DefaultDonationAmount
	}
	return m.opts.DonationAmount
}

// IsMutual reports whether a and b follow each other.
func (m *Manager) IsMutual(a, b int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world.Graph.Mutual(a, b)
}

// Package session implements the per-user quest state machine. A Store acts
// for exactly one user over a World shared with every other session; each
// operation runs to completion and reports the outbound effects it queued.
package session

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/points"
	"focus-quest-bot/internal/quest"
	"focus-quest-bot/internal/social"
)

// Precondition errors. A failed operation leaves every piece of state as it
// was before the call.
var (
	ErrPostNotFound       = social.ErrPostNotFound
	ErrAlreadyLiked       = social.ErrAlreadyLiked
	ErrNotLiked           = social.ErrNotLiked
	ErrAlreadyDonated     = social.ErrAlreadyDonated
	ErrNotAQuiz           = social.ErrNotAQuiz
	ErrAlreadyAnswered    = social.ErrAlreadyAnswered
	ErrSelfFollow         = social.ErrSelfFollow
	ErrSelfBlock          = social.ErrSelfBlock
	ErrCommentNotFound    = social.ErrCommentNotFound
	ErrPinLimitReached    = social.ErrPinLimitReached
	ErrInvalidComment     = social.ErrInvalidComment
	ErrInsufficientPoints = points.ErrInsufficientPoints
	ErrQuestNotFound      = quest.ErrQuestNotFound
	ErrNotClaimable       = quest.ErrNotClaimable
	ErrAlreadyCompleted   = quest.ErrAlreadyCompleted

	ErrSelfDonation    = errors.New("cannot donate to your own post")
	ErrCriterionNotMet = errors.New("quest criterion not met")
)

// DefaultDonationAmount is the FOCUS moved by one donation.
const DefaultDonationAmount int64 = 2

// World is the state every session shares: the feed, the follow graph, the
// username directory and the FOCUS accounts.
type World struct {
	Feed      *social.Feed
	Graph     *social.Graph
	Directory *social.Directory
	Points    *points.Book
}

// NewWorld creates an empty world with the given pin limit.
func NewWorld(maxPinned int) *World {
	return &World{
		Feed:      social.NewFeed(maxPinned),
		Graph:     social.NewGraph(),
		Directory: social.NewDirectory(),
		Points:    points.NewBook(),
	}
}

// Options configures a Store.
type Options struct {
	DonationAmount int64
	Quest          quest.Options
	Scheduler      *quest.Scheduler
	Clock          func() time.Time
}

// Result reports what an operation did.
type Result struct {
	// Changed is false when the call was accepted but moved no state.
	Changed bool
	// Effects are the outbound writes to apply after the transition.
	Effects []effect.Effect
	// Completed lists quest ids completed by this call.
	Completed []string
	Reward    int64
	Score     int
	Post      *model.Post
	Comment   *model.Comment
	Reset     quest.ResetReport
}

func (r *Result) emit(effects ...effect.Effect) {
	r.Effects = append(r.Effects, effects...)
	r.Changed = true
}

// Store is one user's session.
//
// Store is not safe for concurrent use; the owner serialises calls.
type Store struct {
	user     model.User
	world    *World
	ledger   *quest.Ledger
	sched    *quest.Scheduler
	donation int64
	now      func() time.Time
}

// NewStore creates a session for user over world with a fresh quest catalog.
func NewStore(user model.User, world *World, opts Options) *Store {
	if opts.DonationAmount <= 0 {
		opts.DonationAmount = DefaultDonationAmount
	}
	if opts.Scheduler == nil {
		opts.Scheduler = quest.NewScheduler(nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if err := world.Directory.Register(user.ID, user.Username); err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Str("username", user.Username).Msg("Username not indexed")
	}
	return &Store{
		user:     user,
		world:    world,
		ledger:   quest.NewLedger(opts.Quest),
		sched:    opts.Scheduler,
		donation: opts.DonationAmount,
		now:      opts.Clock,
	}
}

// UserID returns the id of the session's user.
func (s *Store) UserID() int64 {
	return s.user.ID
}

// User returns a copy of the session's user.
func (s *Store) User() model.User {
	return s.user
}

// Rename updates the user's username in the directory. The session takes
// the new name even when the directory refuses to index it.
func (s *Store) Rename(username string) error {
	s.user.Username = username
	return s.world.Directory.Register(s.user.ID, username)
}

// Quests returns a snapshot of the session's quest ledger.
func (s *Store) Quests() *quest.Ledger {
	return s.ledger.Clone()
}

// Account returns the user's FOCUS balances.
func (s *Store) Account() model.PointsAccount {
	return s.world.Points.Get(s.user.ID)
}

// credit pays reward to the user and emits the ledger and leaderboard writes.
func (s *Store) credit(r *Result, amount int64, txType, description string) {
	if amount <= 0 {
		return
	}
	_ = s.world.Points.Credit(s.user.ID, amount)
	r.Reward += amount
	r.emit(
		effect.RecordTransaction(s.user.ID, amount, txType, description),
		effect.AdjustLeaderboard(s.user.ID, amount),
	)
}

func (s *Store) completeUnique(r *Result, t quest.UniqueType) {
	if s.ledger.CompleteUnique(t) {
		if q, ok := s.ledger.UniqueByType(t); ok {
			r.Completed = append(r.Completed, q.ID)
		}
		r.Changed = true
	}
}

func (s *Store) uniqueTarget(t quest.UniqueType) int {
	q, _ := s.ledger.UniqueByType(t)
	return q.Target
}

// ResolveComment expands a comment id prefix within a post.
func (s *Store) ResolveComment(postID, ref string) (string, error) {
	return s.world.Feed.ResolveComment(postID, ref)
}

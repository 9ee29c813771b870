package repository

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"focus-quest-bot/internal/effect"
)

// EffectSink applies outbound effects to the pgx repositories and the
// Redis leaderboard. Any adapter may be nil, in which case its effects are
// accepted and discarded.
type EffectSink struct {
	Profiles     *ProfileRepository
	Follows      *FollowRepository
	Transactions *TransactionRepository
	Mentions     *MentionRepository
	Leaderboard  *Leaderboard
}

// Apply implements effect.Sink. Unknown kinds fail permanently so the worker
// does not retry them.
func (s *EffectSink) Apply(ctx context.Context, e effect.Effect) error {
	switch e.Kind {
	case effect.KindIncrementFocusDonated:
		if s.Profiles != nil {
			return s.Profiles.IncrementFocusDonated(ctx, e.UserID, e.Amount)
		}
	case effect.KindIncrementFocusReceived:
		if s.Profiles != nil {
			return s.Profiles.IncrementFocusReceived(ctx, e.UserID, e.Amount)
		}
	case effect.KindInsertFollow:
		if s.Follows != nil {
			return s.Follows.Insert(ctx, e.UserID, e.TargetID)
		}
	case effect.KindDeleteFollow:
		if s.Follows != nil {
			return s.Follows.Delete(ctx, e.UserID, e.TargetID)
		}
	case effect.KindRecordTransaction:
		if s.Transactions != nil {
			_, err := s.Transactions.Create(ctx, e.UserID, e.Amount, e.TxType, e.Description)
			return err
		}
	case effect.KindCreateMentions:
		if s.Mentions != nil {
			return s.Mentions.CreateMany(ctx, e.UserID, e.Mentioned, e.PostID, e.CommentID)
		}
	case effect.KindAdjustLeaderboard:
		if s.Leaderboard != nil {
			return s.Leaderboard.Add(ctx, e.UserID, e.Amount)
		}
	case effect.KindUpsertProfile:
		if s.Profiles != nil {
			_, err := s.Profiles.Upsert(ctx, e.UserID, e.Username)
			return err
		}
	default:
		return backoff.Permanent(fmt.Errorf("%w: %s", effect.ErrUnknownKind, e.Kind))
	}
	return nil
}

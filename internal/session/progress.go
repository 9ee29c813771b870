package session

import (
	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/quest"
)

// Follow follows target and re-evaluates the user's follower milestones.
func (s *Store) Follow(target int64) (Result, error) {
	var r Result
	added, err := s.world.Graph.Follow(s.user.ID, target)
	if err != nil {
		return r, err
	}
	if added {
		r.emit(effect.InsertFollow(s.user.ID, target))
	}
	s.syncFollowers(&r)
	return r, nil
}

// Unfollow stops following target. Follower milestones never un-complete.
func (s *Store) Unfollow(target int64) (Result, error) {
	var r Result
	if target == s.user.ID {
		return r, ErrSelfFollow
	}
	if s.world.Graph.Unfollow(s.user.ID, target) {
		r.emit(effect.DeleteFollow(s.user.ID, target))
	}
	return r, nil
}

// Block hides target's posts from the user's feed.
func (s *Store) Block(target int64) (Result, error) {
	var r Result
	added, err := s.world.Graph.Block(s.user.ID, target)
	if err != nil {
		return r, err
	}
	r.Changed = added
	return r, nil
}

// Unblock shows target's posts again.
func (s *Store) Unblock(target int64) (Result, error) {
	var r Result
	if target == s.user.ID {
		return r, ErrSelfBlock
	}
	r.Changed = s.world.Graph.Unblock(s.user.ID, target)
	return r, nil
}

func (s *Store) syncFollowers(r *Result) {
	completed := s.ledger.SyncFollowers(s.world.Graph.FollowerCount(s.user.ID))
	if len(completed) > 0 {
		r.Completed = append(r.Completed, completed...)
		r.Changed = true
	}
}

// CompleteDailyQuest pays a daily quest. Check-in pays once the login check
// completed it; engagement requires comments on two distinct posts and
// likes on two distinct posts.
func (s *Store) CompleteDailyQuest(questID string) (Result, error) {
	var r Result
	q, ok := s.ledger.DailyByID(questID)
	if !ok {
		return r, ErrQuestNotFound
	}
	if q.Claimed {
		return r, ErrAlreadyCompleted
	}
	if questID == quest.DailyEngagement {
		commented, liked := s.world.Feed.Engagement(s.user.ID)
		if commented < 2 || liked < 2 {
			return r, ErrCriterionNotMet
		}
	}

	reward, err := s.ledger.ClaimDaily(questID, s.now())
	if err != nil {
		return r, err
	}
	r.Completed = append(r.Completed, questID)
	s.credit(&r, reward, model.TxTypeDailyQuest, q.Title)
	return r, nil
}

// ClaimWeeklyQuest pays a completed weekly quest.
func (s *Store) ClaimWeeklyQuest(questID string) (Result, error) {
	return s.claim(questID, model.TxTypeWeeklyQuest, s.ledger.ClaimWeekly)
}

// ClaimMonthlyQuest pays a completed monthly quest.
func (s *Store) ClaimMonthlyQuest(questID string) (Result, error) {
	return s.claim(questID, model.TxTypeMonthlyQuest, s.ledger.ClaimMonthly)
}

// ClaimFollowerQuest pays a reached follower milestone.
func (s *Store) ClaimFollowerQuest(questID string) (Result, error) {
	return s.claim(questID, model.TxTypeFollowerQuest, s.ledger.ClaimFollower)
}

// ClaimUniqueQuest pays a completed lifetime achievement.
func (s *Store) ClaimUniqueQuest(questID string) (Result, error) {
	return s.claim(questID, model.TxTypeUniqueQuest, s.ledger.ClaimUnique)
}

// Claim dispatches on the quest kind. Daily quests go through
// CompleteDailyQuest.
func (s *Store) Claim(kind quest.Kind, questID string) (Result, error) {
	switch kind {
	case quest.KindDaily:
		return s.CompleteDailyQuest(questID)
	case quest.KindWeekly:
		return s.ClaimWeeklyQuest(questID)
	case quest.KindMonthly:
		return s.ClaimMonthlyQuest(questID)
	case quest.KindFollower:
		return s.ClaimFollowerQuest(questID)
	case quest.KindUnique:
		return s.ClaimUniqueQuest(questID)
	}
	return Result{}, ErrQuestNotFound
}

func (s *Store) claim(questID, txType string, fn func(string) (int64, error)) (Result, error) {
	var r Result
	reward, err := fn(questID)
	if err != nil {
		return r, err
	}
	s.credit(&r, reward, txType, questID)
	return r, nil
}

// CheckDailyLogin rolls quest windows over, auto-completes the check-in,
// re-syncs follower milestones and updates the activity streak.
func (s *Store) CheckDailyLogin() (Result, error) {
	var r Result
	r.Reset = s.sched.Apply(s.ledger, s.now())
	if !r.Reset.SameDay {
		r.Changed = true
	}
	s.syncFollowers(&r)
	if s.touch() {
		r.Changed = true
	}
	return r, nil
}

// TouchActivity updates the user's activity streak: unchanged on the same
// day, extended after yesterday, restarted otherwise.
func (s *Store) TouchActivity() (Result, error) {
	return Result{Changed: s.touch()}, nil
}

func (s *Store) touch() bool {
	now := s.now()
	last := s.user.LastActivity
	switch {
	case !last.IsZero() && s.sched.SameDay(last, now):
		return false
	case !last.IsZero() && s.sched.IsYesterday(last, now):
		s.user.StreakDays++
	default:
		s.user.StreakDays = 1
	}
	s.user.LastActivity = now
	return true
}

package session

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/quest"
	"focus-quest-bot/internal/social"
)

// Like likes a post. Once the post reaches the likes threshold the likes
// achievement is completed.
func (s *Store) Like(postID string) (Result, error) {
	var r Result
	likes, err := s.world.Feed.Like(postID, s.user.ID)
	if err != nil {
		return r, err
	}
	r.Changed = true
	if likes >= s.uniqueTarget(quest.UniqueLikes) {
		s.completeUnique(&r, quest.UniqueLikes)
	}
	return r, nil
}

// Unlike removes the user's like. Completed achievements stay completed.
func (s *Store) Unlike(postID string) (Result, error) {
	var r Result
	if _, err := s.world.Feed.Unlike(postID, s.user.ID); err != nil {
		return r, err
	}
	r.Changed = true
	return r, nil
}

// AddComment comments on a post. Mentions of mutual followers are recorded.
func (s *Store) AddComment(postID, text string) (Result, error) {
	var r Result
	c, count, err := s.world.Feed.AddComment(postID, s.user.ID, text, s.now())
	if err != nil {
		return r, err
	}
	r.Changed = true
	r.Comment = &c
	if count >= s.uniqueTarget(quest.UniqueComments) {
		s.completeUnique(&r, quest.UniqueComments)
	}
	if ids := social.ResolveMentions(s.world.Directory, s.world.Graph, s.user.ID, c.Text); len(ids) > 0 {
		r.emit(effect.CreateMentions(s.user.ID, ids, postID, c.ID))
	}
	return r, nil
}

// EditComment changes the text of one of the user's comments.
func (s *Store) EditComment(postID, commentID, text string) (Result, error) {
	var r Result
	if err := s.world.Feed.EditComment(postID, commentID, s.user.ID, text); err != nil {
		return r, err
	}
	r.Changed = true
	return r, nil
}

// DeleteComment removes a comment written by the user or left on their post.
func (s *Store) DeleteComment(postID, commentID string) (Result, error) {
	var r Result
	if err := s.world.Feed.DeleteComment(postID, commentID, s.user.ID); err != nil {
		return r, err
	}
	r.Changed = true
	return r, nil
}

// PinComment pins a comment on one of the user's posts.
func (s *Store) PinComment(postID, commentID string) (Result, error) {
	var r Result
	changed, err := s.world.Feed.SetPinned(postID, commentID, s.user.ID, true)
	r.Changed = changed
	return r, err
}

// UnpinComment unpins a comment on one of the user's posts.
func (s *Store) UnpinComment(postID, commentID string) (Result, error) {
	var r Result
	changed, err := s.world.Feed.SetPinned(postID, commentID, s.user.ID, false)
	r.Changed = changed
	return r, err
}

// ReportComment flags a comment for moderation. Nothing in the session
// changes; the report is logged.
func (s *Store) ReportComment(postID, commentID, reason string) (Result, error) {
	post, err := s.world.Feed.Get(postID)
	if err != nil {
		return Result{}, err
	}
	for _, c := range post.Comments {
		if c.ID == commentID {
			log.Warn().
				Int64("reporter_id", s.user.ID).
				Int64("author_id", c.UserID).
				Str("post_id", postID).
				Str("comment_id", commentID).
				Str("reason", reason).
				Msg("Comment reported")
			return Result{}, nil
		}
	}
	return Result{}, ErrCommentNotFound
}

// Donate gives the donation amount of FOCUS to a post's author. The donor
// spends from available points; the author receives into total points only.
func (s *Store) Donate(postID string) (Result, error) {
	var r Result
	post, err := s.world.Feed.Get(postID)
	if err != nil {
		return r, err
	}
	if post.UserID == s.user.ID {
		return r, ErrSelfDonation
	}
	if social.HasDonated(post, s.user.ID) {
		return r, ErrAlreadyDonated
	}
	if !s.world.Points.CanSpend(s.user.ID, s.donation) {
		return r, ErrInsufficientPoints
	}

	if err := s.world.Points.Debit(s.user.ID, s.donation); err != nil {
		return r, err
	}
	_ = s.world.Points.Receive(post.UserID, s.donation)
	_ = s.world.Feed.RecordDonation(postID, s.user.ID, s.donation)

	now := s.now()
	s.completeUnique(&r, quest.UniqueFirstDonation)
	if s.ledger.AddWeeklyProgress(quest.WeeklyDonations, 1, now) {
		r.Completed = append(r.Completed, quest.WeeklyDonations)
	}

	desc := fmt.Sprintf("post %s", postID)
	r.emit(
		effect.IncrementFocusDonated(s.user.ID, s.donation),
		effect.IncrementFocusReceived(post.UserID, s.donation),
		effect.RecordTransaction(s.user.ID, -s.donation, model.TxTypeDonationSent, desc),
		effect.RecordTransaction(post.UserID, s.donation, model.TxTypeDonationReceived, desc),
		effect.AdjustLeaderboard(post.UserID, s.donation),
	)
	return r, nil
}

// SubmitQuiz answers a quiz once. Each correct answer pays one FOCUS.
func (s *Store) SubmitQuiz(postID string, answers []int) (Result, error) {
	var r Result
	score, err := s.world.Feed.AnswerQuiz(postID, s.user.ID, answers, s.now())
	if err != nil {
		return r, err
	}
	r.Changed = true
	r.Score = score
	if score == 0 {
		return r, nil
	}

	s.credit(&r, int64(score), model.TxTypeQuizReward, fmt.Sprintf("quiz %s: %d correct", postID, score))
	s.completeUnique(&r, quest.UniqueFirstQuizCorrect)
	if s.ledger.AddWeeklyProgress(quest.WeeklyQuiz, 1, s.now()) {
		r.Completed = append(r.Completed, quest.WeeklyQuiz)
	}
	return r, nil
}

// CreatePost publishes a post. Photos and videos count toward the first
// content achievements and the monthly content quest.
func (s *Store) CreatePost(kind model.PostKind, caption string, questions []model.QuizQuestion) (Result, error) {
	var r Result
	now := s.now()
	post, err := s.world.Feed.Create(s.user.ID, kind, caption, questions, now)
	if err != nil {
		return r, err
	}
	r.Changed = true
	r.Post = post

	var delta quest.ContentCount
	switch kind {
	case model.PostPhoto:
		s.completeUnique(&r, quest.UniqueFirstPhoto)
		delta.Photos = 1
	case model.PostVideo:
		s.completeUnique(&r, quest.UniqueFirstVideo)
		delta.Videos = 1
	}
	if delta != (quest.ContentCount{}) && s.ledger.AddContent(delta, now) {
		r.Completed = append(r.Completed, quest.MonthlyContent)
	}

	if ids := social.ResolveMentions(s.world.Directory, s.world.Graph, s.user.ID, post.Caption); len(ids) > 0 {
		r.emit(effect.CreateMentions(s.user.ID, ids, post.ID, ""))
	}
	return r, nil
}

package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/quest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newClock() *clock {
	// Wednesday 2024-06-05 12:00 at UTC-3.
	return &clock{t: time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC)}
}

func newStore(w *World, c *clock, id int64) *Store {
	return NewStore(model.User{ID: id, Username: fmt.Sprintf("user%d", id)}, w, Options{Clock: c.now})
}

func mustPost(t *testing.T, s *Store, kind model.PostKind) *model.Post {
	t.Helper()
	r, err := s.CreatePost(kind, "caption", nil)
	require.NoError(t, err)
	return r.Post
}

func kinds(effects []effect.Effect) []effect.Kind {
	out := make([]effect.Kind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func TestStore_LikeIsIdempotent(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, fan := newStore(w, c, 1), newStore(w, c, 2)
	post := mustPost(t, author, model.PostPhoto)

	r, err := fan.Like(post.ID)
	require.NoError(t, err)
	assert.True(t, r.Changed)

	r, err = fan.Like(post.ID)
	assert.ErrorIs(t, err, ErrAlreadyLiked)
	assert.False(t, r.Changed)
	assert.Equal(t, 1, post.Likes)
	assert.Equal(t, []int64{2}, post.LikedBy)

	_, err = fan.Unlike(post.ID)
	require.NoError(t, err)
	_, err = fan.Unlike(post.ID)
	assert.ErrorIs(t, err, ErrNotLiked)
	assert.Equal(t, 0, post.Likes)
}

func TestStore_LikesThresholdCompletesAchievement(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author := newStore(w, c, 1)
	post := mustPost(t, author, model.PostPhoto)

	for i := int64(100); i < 119; i++ {
		_, err := newStore(w, c, i).Like(post.ID)
		require.NoError(t, err)
	}
	last := newStore(w, c, 200)
	r, err := last.Like(post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"likes-20"}, r.Completed)

	q, ok := last.Quests().UniqueByType(quest.UniqueLikes)
	require.True(t, ok)
	assert.True(t, q.Completed)
}

func TestStore_DonationMovesFocus(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, donor := newStore(w, c, 1), newStore(w, c, 2)
	post := mustPost(t, author, model.PostVideo)
	require.NoError(t, w.Points.Credit(2, 5))

	r, err := donor.Donate(post.ID)
	require.NoError(t, err)

	assert.Equal(t, model.PointsAccount{UserID: 2, TotalPoints: 5, AvailablePoints: 3}, donor.Account())
	assert.Equal(t, model.PointsAccount{UserID: 1, TotalPoints: 2, AvailablePoints: 0}, author.Account())
	assert.Equal(t, int64(2), post.Points)
	assert.Equal(t, []int64{2}, post.DonatedBy)
	assert.Contains(t, r.Completed, "first-donation")
	assert.Equal(t, []effect.Kind{
		effect.KindIncrementFocusDonated,
		effect.KindIncrementFocusReceived,
		effect.KindRecordTransaction,
		effect.KindRecordTransaction,
		effect.KindAdjustLeaderboard,
	}, kinds(r.Effects))

	_, err = donor.Donate(post.ID)
	assert.ErrorIs(t, err, ErrAlreadyDonated)
	assert.Equal(t, int64(3), donor.Account().AvailablePoints)
}

func TestStore_DonationPreconditions(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, donor := newStore(w, c, 1), newStore(w, c, 2)
	post := mustPost(t, author, model.PostPhoto)
	require.NoError(t, w.Points.Credit(1, 10))
	require.NoError(t, w.Points.Credit(2, 1))

	_, err := author.Donate(post.ID)
	assert.ErrorIs(t, err, ErrSelfDonation)
	assert.Equal(t, model.PointsAccount{UserID: 1, TotalPoints: 10, AvailablePoints: 10}, author.Account())

	r, err := donor.Donate(post.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Empty(t, r.Effects)
	assert.Equal(t, int64(1), donor.Account().AvailablePoints)
	assert.Zero(t, post.Points)

	_, err = donor.Donate("missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestStore_WeeklyDonationsQuest(t *testing.T) {
	w, c := NewWorld(3), newClock()
	donor := newStore(w, c, 9)
	require.NoError(t, w.Points.Credit(9, 10))
	a := mustPost(t, newStore(w, c, 1), model.PostPhoto)
	b := mustPost(t, newStore(w, c, 2), model.PostPhoto)

	_, err := donor.Donate(a.ID)
	require.NoError(t, err)
	r, err := donor.Donate(b.ID)
	require.NoError(t, err)
	assert.Contains(t, r.Completed, quest.WeeklyDonations)

	r, err = donor.ClaimWeeklyQuest(quest.WeeklyDonations)
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Reward)
	assert.Equal(t, model.PointsAccount{UserID: 9, TotalPoints: 15, AvailablePoints: 11}, donor.Account())

	_, err = donor.ClaimWeeklyQuest(quest.WeeklyDonations)
	assert.ErrorIs(t, err, ErrNotClaimable)
	assert.Equal(t, int64(15), donor.Account().TotalPoints)
}

func TestStore_QuizScoring(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, player := newStore(w, c, 1), newStore(w, c, 2)
	questions := []model.QuizQuestion{
		{Question: "q1", Options: [3]string{"a", "b", "c"}, CorrectIndex: 1},
		{Question: "q2", Options: [3]string{"a", "b", "c"}, CorrectIndex: 0},
		{Question: "q3", Options: [3]string{"a", "b", "c"}, CorrectIndex: 2},
	}
	pr, err := author.CreatePost(model.PostQuiz, "", questions)
	require.NoError(t, err)

	r, err := player.SubmitQuiz(pr.Post.ID, []int{1, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Score)
	assert.Equal(t, model.PointsAccount{UserID: 2, TotalPoints: 2, AvailablePoints: 2}, player.Account())
	assert.Contains(t, r.Completed, "first-quiz-correct")
	assert.Equal(t, 1, player.Quests().Weekly[0].Progress)

	_, err = player.SubmitQuiz(pr.Post.ID, []int{1, 0, 2})
	assert.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.Equal(t, int64(2), player.Account().TotalPoints)

	photo := mustPost(t, author, model.PostPhoto)
	_, err = player.SubmitQuiz(photo.ID, []int{0})
	assert.ErrorIs(t, err, ErrNotAQuiz)
}

func TestStore_ZeroScoreQuizPaysNothing(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, player := newStore(w, c, 1), newStore(w, c, 2)
	pr, err := author.CreatePost(model.PostQuiz, "", []model.QuizQuestion{{Question: "q", CorrectIndex: 2}})
	require.NoError(t, err)

	r, err := player.SubmitQuiz(pr.Post.ID, []int{0})
	require.NoError(t, err)
	assert.Zero(t, r.Score)
	assert.Empty(t, r.Effects)
	assert.Zero(t, player.Account().TotalPoints)
	assert.Zero(t, player.Quests().Weekly[0].Progress)
}

func TestStore_MonthlyContent(t *testing.T) {
	w, c := NewWorld(3), newClock()
	s := newStore(w, c, 1)

	for i := 0; i < 5; i++ {
		mustPost(t, s, model.PostVideo)
	}
	for i := 0; i < 2; i++ {
		mustPost(t, s, model.PostPhoto)
	}
	assert.False(t, s.Quests().Monthly[0].Completed)

	r, err := s.CreatePost(model.PostPhoto, "", nil)
	require.NoError(t, err)
	assert.Contains(t, r.Completed, quest.MonthlyContent)
	assert.Equal(t, quest.ContentCount{Videos: 5, Photos: 3}, s.Quests().Monthly[0].Progress)

	board := s.Quests()
	video, _ := board.UniqueByType(quest.UniqueFirstVideo)
	photo, _ := board.UniqueByType(quest.UniqueFirstPhoto)
	assert.True(t, video.Completed)
	assert.True(t, photo.Completed)
}

func TestStore_FollowerRatchet(t *testing.T) {
	w, c := NewWorld(3), newClock()
	star := newStore(w, c, 1)

	fans := make([]*Store, 0, 20)
	for i := int64(2); i <= 21; i++ {
		fan := newStore(w, c, i)
		_, err := fan.Follow(1)
		require.NoError(t, err)
		fans = append(fans, fan)
	}

	// Following someone re-evaluates the actor's own follower count.
	_, err := star.Follow(2)
	require.NoError(t, err)
	board := star.Quests()
	assert.True(t, board.Follower[0].Completed)
	assert.True(t, board.Follower[1].Completed)
	assert.False(t, board.Follower[2].Completed)

	for _, fan := range fans {
		_, err := fan.Unfollow(1)
		require.NoError(t, err)
	}
	_, err = star.CheckDailyLogin()
	require.NoError(t, err)
	board = star.Quests()
	assert.True(t, board.Follower[0].Completed, "unfollow never un-completes")
	assert.True(t, board.Follower[1].Completed)
}

func TestStore_FollowEffects(t *testing.T) {
	w, c := NewWorld(3), newClock()
	s := newStore(w, c, 1)

	_, err := s.Follow(1)
	assert.ErrorIs(t, err, ErrSelfFollow)

	r, err := s.Follow(2)
	require.NoError(t, err)
	assert.Equal(t, []effect.Kind{effect.KindInsertFollow}, kinds(r.Effects))

	r, err = s.Follow(2)
	require.NoError(t, err)
	assert.Empty(t, r.Effects, "repeated follow is a no-op")

	r, err = s.Unfollow(2)
	require.NoError(t, err)
	assert.Equal(t, []effect.Kind{effect.KindDeleteFollow}, kinds(r.Effects))

	r, err = s.Unfollow(2)
	require.NoError(t, err)
	assert.False(t, r.Changed)
}

func TestStore_PinLimit(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, fan := newStore(w, c, 1), newStore(w, c, 2)
	post := mustPost(t, author, model.PostPhoto)

	var ids []string
	for i := 0; i < 4; i++ {
		r, err := fan.AddComment(post.ID, fmt.Sprintf("comment %d", i))
		require.NoError(t, err)
		ids = append(ids, r.Comment.ID)
	}
	for _, id := range ids[:3] {
		_, err := author.PinComment(post.ID, id)
		require.NoError(t, err)
	}

	r, err := author.PinComment(post.ID, ids[3])
	assert.ErrorIs(t, err, ErrPinLimitReached)
	assert.False(t, r.Changed)
	pinned := []bool{}
	for _, cm := range post.Comments {
		pinned = append(pinned, cm.Pinned)
	}
	assert.Equal(t, []bool{true, true, true, false}, pinned)
}

func TestStore_CommentValidationAndMentions(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, friend, stranger := newStore(w, c, 1), newStore(w, c, 2), newStore(w, c, 3)
	post := mustPost(t, author, model.PostPhoto)
	_, err := author.Follow(2)
	require.NoError(t, err)
	_, err = friend.Follow(1)
	require.NoError(t, err)
	_ = stranger

	_, err = author.AddComment(post.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidComment)
	assert.Empty(t, post.Comments)

	r, err := author.AddComment(post.ID, "thanks @user2 and @user3 and @user2")
	require.NoError(t, err)
	require.Len(t, r.Effects, 1)
	e := r.Effects[0]
	assert.Equal(t, effect.KindCreateMentions, e.Kind)
	assert.Equal(t, []int64{2}, e.Mentioned)
	assert.Equal(t, post.ID, e.PostID)
	assert.Equal(t, r.Comment.ID, e.CommentID)
}

func TestStore_ReportComment(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author := newStore(w, c, 1)
	post := mustPost(t, author, model.PostPhoto)
	r, err := author.AddComment(post.ID, "hello")
	require.NoError(t, err)

	res, err := newStore(w, c, 2).ReportComment(post.ID, r.Comment.ID, "spam")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = author.ReportComment(post.ID, "nope", "spam")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestStore_DailyEngagementCriterion(t *testing.T) {
	w, c := NewWorld(3), newClock()
	author, s := newStore(w, c, 1), newStore(w, c, 2)
	a := mustPost(t, author, model.PostPhoto)
	b := mustPost(t, author, model.PostPhoto)

	_, err := s.AddComment(a.ID, "one")
	require.NoError(t, err)
	_, err = s.AddComment(a.ID, "two")
	require.NoError(t, err)
	_, err = s.Like(a.ID)
	require.NoError(t, err)
	_, err = s.Like(b.ID)
	require.NoError(t, err)

	r, err := s.CompleteDailyQuest(quest.DailyEngagement)
	assert.ErrorIs(t, err, ErrCriterionNotMet, "two comments on one post are not enough")
	assert.Empty(t, r.Effects)
	assert.Zero(t, s.Account().TotalPoints)

	_, err = s.AddComment(b.ID, "three")
	require.NoError(t, err)
	r, err = s.CompleteDailyQuest(quest.DailyEngagement)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Reward)
	assert.Equal(t, model.PointsAccount{UserID: 2, TotalPoints: 2, AvailablePoints: 2}, s.Account())

	_, err = s.CompleteDailyQuest(quest.DailyEngagement)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Equal(t, int64(2), s.Account().TotalPoints)
}

func TestStore_CheckinClaimOncePerDay(t *testing.T) {
	w, c := NewWorld(3), newClock()
	s := newStore(w, c, 1)

	_, err := s.CompleteDailyQuest(quest.DailyCheckin)
	assert.ErrorIs(t, err, ErrNotClaimable)

	_, err = s.CheckDailyLogin()
	require.NoError(t, err)
	r, err := s.CompleteDailyQuest(quest.DailyCheckin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Reward)

	_, err = s.CheckDailyLogin()
	require.NoError(t, err)
	_, err = s.CompleteDailyQuest(quest.DailyCheckin)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	c.t = c.t.Add(24 * time.Hour)
	r, err = s.CheckDailyLogin()
	require.NoError(t, err)
	assert.True(t, r.Reset.Daily)
	_, err = s.CompleteDailyQuest(quest.DailyCheckin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Account().TotalPoints)
}

func TestStore_ClaimDispatch(t *testing.T) {
	w, c := NewWorld(3), newClock()
	s := newStore(w, c, 1)
	mustPost(t, s, model.PostPhoto)

	r, err := s.Claim(quest.KindUnique, "first-photo")
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Reward)
	assert.Equal(t, []effect.Kind{effect.KindRecordTransaction, effect.KindAdjustLeaderboard}, kinds(r.Effects))
	assert.Equal(t, model.TxTypeUniqueQuest, r.Effects[0].TxType)

	_, err = s.Claim(quest.KindUnique, "first-photo")
	assert.ErrorIs(t, err, ErrNotClaimable)
	_, err = s.Claim(quest.KindMonthly, quest.MonthlyContent)
	assert.ErrorIs(t, err, ErrNotClaimable)
	_, err = s.Claim(quest.KindFollower, "followers-3")
	assert.ErrorIs(t, err, ErrQuestNotFound)
	_, err = s.Claim("seasonal", "x")
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestStore_ActivityStreak(t *testing.T) {
	w, c := NewWorld(3), newClock()
	s := newStore(w, c, 1)

	r, _ := s.TouchActivity()
	assert.True(t, r.Changed)
	assert.Equal(t, 1, s.User().StreakDays)

	r, _ = s.TouchActivity()
	assert.False(t, r.Changed, "same day leaves the streak alone")

	c.t = c.t.Add(24 * time.Hour)
	_, _ = s.TouchActivity()
	assert.Equal(t, 2, s.User().StreakDays)

	c.t = c.t.Add(72 * time.Hour)
	_, _ = s.TouchActivity()
	assert.Equal(t, 1, s.User().StreakDays, "a gap restarts the streak")
}

func TestStore_WeeklyResetOnMonday(t *testing.T) {
	w := NewWorld(3)
	// Sunday 2024-06-09 12:00 at UTC-3.
	c := &clock{t: time.Date(2024, 6, 9, 15, 0, 0, 0, time.UTC)}
	s := newStore(w, c, 1)
	require.NoError(t, w.Points.Credit(1, 10))
	post := mustPost(t, newStore(w, c, 2), model.PostPhoto)

	_, err := s.CheckDailyLogin()
	require.NoError(t, err)
	_, err = s.Donate(post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Quests().Weekly[1].Progress)

	c.t = c.t.Add(24 * time.Hour)
	r, err := s.CheckDailyLogin()
	require.NoError(t, err)
	assert.True(t, r.Reset.Weekly)
	assert.Zero(t, s.Quests().Weekly[1].Progress)
}

func TestStore_BlockIsLocal(t *testing.T) {
	w := NewWorld(3)
	c := newClock()
	alice, bob := newStore(w, c, 1), newStore(w, c, 2)

	_, err := alice.Block(1)
	assert.ErrorIs(t, err, ErrSelfBlock)

	r, err := alice.Block(2)
	require.NoError(t, err)
	assert.True(t, r.Changed)
	assert.Empty(t, r.Effects)

	r, err = alice.Block(2)
	require.NoError(t, err)
	assert.False(t, r.Changed)
	assert.False(t, w.Graph.IsBlocked(2, 1))

	_, err = bob.Unblock(2)
	assert.ErrorIs(t, err, ErrSelfBlock)
	r, err = alice.Unblock(2)
	require.NoError(t, err)
	assert.True(t, r.Changed)
}

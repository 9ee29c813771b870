// Package quest holds the quest catalog, per-user quest progress and the
// login-triggered window resets.
package quest

import (
	"fmt"
	"time"
)

// Daily quest IDs.
const (
	DailyCheckin    = "daily-checkin"
	DailyEngagement = "daily-engagement"
)

// Weekly and monthly quest IDs.
const (
	WeeklyQuiz      = "weekly-quiz"
	WeeklyDonations = "weekly-donations"
	MonthlyContent  = "monthly-content"
)

// UniqueType is the achievement a unique quest tracks.
type UniqueType string

const (
	UniqueFirstPhoto       UniqueType = "first-photo"
	UniqueFirstVideo       UniqueType = "first-video"
	UniqueLikes            UniqueType = "likes"
	UniqueComments         UniqueType = "comments"
	UniqueFirstDonation    UniqueType = "first-donation"
	UniqueFirstQuizCorrect UniqueType = "first-quiz-correct"
)

// Kind groups quests by their reset window.
type Kind string

const (
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindMonthly  Kind = "monthly"
	KindFollower Kind = "follower"
	KindUnique   Kind = "unique"
)

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDaily, KindWeekly, KindMonthly, KindFollower, KindUnique:
		return k, nil
	}
	return "", fmt.Errorf("unknown quest kind %q", s)
}

// DailyQuest resets every offset-local day.
type DailyQuest struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Reward            int64      `json:"reward"`
	Completed         bool       `json:"completed"`
	Claimed           bool       `json:"claimed"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// WeeklyQuest is completed when Progress reaches Target and pays on claim.
type WeeklyQuest struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Reward            int64      `json:"reward"`
	Completed         bool       `json:"completed"`
	Claimed           bool       `json:"claimed"`
	Progress          int        `json:"progress"`
	Target            int        `json:"target"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// ContentCount counts published videos and photos.
type ContentCount struct {
	Videos int `json:"videos"`
	Photos int `json:"photos"`
}

// Reached reports whether c meets target in every dimension.
func (c ContentCount) Reached(target ContentCount) bool {
	return c.Videos >= target.Videos && c.Photos >= target.Photos
}

// MonthlyQuest has a compound progress and target.
type MonthlyQuest struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Reward            int64        `json:"reward"`
	Completed         bool         `json:"completed"`
	Claimed           bool         `json:"claimed"`
	Progress          ContentCount `json:"progress"`
	Target            ContentCount `json:"target"`
	LastCompletedDate *time.Time   `json:"last_completed_date,omitempty"`
}

// FollowerQuest is a lifetime follower-count milestone.
type FollowerQuest struct {
	ID              string `json:"id"`
	TargetFollowers int    `json:"target_followers"`
	Reward          int64  `json:"reward"`
	Completed       bool   `json:"completed"`
	Claimed         bool   `json:"claimed"`
}

// UniqueQuest is a lifetime achievement.
type UniqueQuest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Reward      int64      `json:"reward"`
	Completed   bool       `json:"completed"`
	Claimed     bool       `json:"claimed"`
	Type        UniqueType `json:"type"`
	Target      int        `json:"target,omitempty"`
}

// followerLadder is the fixed follower milestone table: {target, reward}.
var followerLadder = [][2]int64{
	{10, 1}, {20, 2}, {40, 4}, {80, 6}, {160, 8}, {300, 10}, {600, 15},
	{1200, 20}, {2500, 30}, {5000, 40}, {10000, 50}, {20000, 75},
	{50000, 100}, {75000, 125}, {100000, 150}, {200000, 175},
	{300000, 200}, {400000, 250}, {500000, 300}, {750000, 400},
	{1000000, 500},
}

func defaultDaily() []DailyQuest {
	return []DailyQuest{
		{ID: DailyCheckin, Title: "Daily check-in", Description: "Open the app today", Reward: 1},
		{ID: DailyEngagement, Title: "Daily engagement", Description: "Comment on 2 different posts and like 2 different posts", Reward: 2},
	}
}

func defaultWeekly() []WeeklyQuest {
	return []WeeklyQuest{
		{ID: WeeklyQuiz, Title: "Quiz master", Description: "Answer 5 quizzes correctly this week", Reward: 5, Target: 5},
		{ID: WeeklyDonations, Title: "Weekly generosity", Description: "Make 2 FOCUS donations this week", Reward: 5, Target: 2},
	}
}

func defaultMonthly() []MonthlyQuest {
	return []MonthlyQuest{
		{
			ID:          MonthlyContent,
			Title:       "Active creator",
			Description: "Publish 5 videos and 3 photos this month",
			Reward:      20,
			Target:      ContentCount{Videos: 5, Photos: 3},
		},
	}
}

func defaultFollower() []FollowerQuest {
	quests := make([]FollowerQuest, 0, len(followerLadder))
	for _, step := range followerLadder {
		quests = append(quests, FollowerQuest{
			ID:              fmt.Sprintf("followers-%d", step[0]),
			TargetFollowers: int(step[0]),
			Reward:          step[1],
		})
	}
	return quests
}

func defaultUnique(likesTarget, commentsTarget int) []UniqueQuest {
	return []UniqueQuest{
		{ID: "first-video", Title: "First video", Description: "Publish your first video", Reward: 5, Type: UniqueFirstVideo},
		{ID: "first-photo", Title: "First photo", Description: "Publish your first photo", Reward: 5, Type: UniqueFirstPhoto},
		{
			ID:          fmt.Sprintf("likes-%d", likesTarget),
			Title:       fmt.Sprintf("%d likes", likesTarget),
			Description: fmt.Sprintf("First post to reach %d likes", likesTarget),
			Reward:      10,
			Type:        UniqueLikes,
			Target:      likesTarget,
		},
		{
			ID:          fmt.Sprintf("comments-%d", commentsTarget),
			Title:       fmt.Sprintf("%d comments", commentsTarget),
			Description: fmt.Sprintf("First post to reach %d comments", commentsTarget),
			Reward:      10,
			Type:        UniqueComments,
			Target:      commentsTarget,
		},
		{ID: "first-donation", Title: "First donation", Description: "Give FOCUS to another user for the first time", Reward: 10, Type: UniqueFirstDonation},
		{ID: "first-quiz-correct", Title: "First correct quiz", Description: "Answer a quiz correctly for the first time", Reward: 10, Type: UniqueFirstQuizCorrect},
	}
}

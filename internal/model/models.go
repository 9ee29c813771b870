// Package model defines the data models shared by the quest engine,
// its persistence adapters and its transports.
package model

import (
	"strings"
	"time"
)

// User is the identity a session acts for. The engine only needs the ID;
// the streak fields are maintained by the activity tracker.
type User struct {
	ID           int64
	Username     string
	StreakDays   int
	LastActivity time.Time
}

// PointsAccount holds a user's FOCUS balances.
// TotalPoints is the cumulative amount received, AvailablePoints the
// spendable balance. The two diverge on donations, so Available <= Total
// is not an invariant.
type PointsAccount struct {
	UserID          int64 `json:"user_id"`
	TotalPoints     int64 `json:"total_points"`
	AvailablePoints int64 `json:"available_points"`
}

// Profile mirrors the backend profile record keyed by user id.
type Profile struct {
	UserID             int64     `db:"user_id" json:"user_id"`
	Username           string    `db:"username" json:"username"`
	Language           string    `db:"language" json:"language"`
	AvatarURL          string    `db:"avatar_url" json:"avatar_url"`
	Bio                string    `db:"bio" json:"bio"`
	NotificationsMuted bool      `db:"notifications_muted" json:"notifications_muted"`
	FocusDonated       int64     `db:"focus_donated" json:"focus_donated"`
	TotalFocusReceived int64     `db:"total_focus_received" json:"total_focus_received"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultLanguage is the interface language of a new profile.
const DefaultLanguage = "pt-BR"

// Languages maps the supported interface language codes to their names.
var Languages = map[string]string{
	"pt-BR": "Português (Brasil)",
	"en-US": "English (US)",
	"es-ES": "Español",
	"fr-FR": "Français",
	"de-DE": "Deutsch",
	"it-IT": "Italiano",
	"ja-JP": "日本語",
	"zh-CN": "中文 (简体)",
	"ko-KR": "한국어",
	"ru-RU": "Русский",
}

// ParseLanguage matches s against the supported codes, case-insensitively.
// A bare two-letter code such as "en" selects its regional variant.
func ParseLanguage(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for code := range Languages {
		if strings.EqualFold(code, s) || strings.EqualFold(code[:2], s) {
			return code, true
		}
	}
	return "", false
}

// MaxBioLength is the longest bio accepted, in characters.
const MaxBioLength = 500

// Transaction is a FOCUS ledger row.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"type" json:"type"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Follow is a follower -> following edge as stored by the backend.
type Follow struct {
	FollowerID  int64     `db:"follower_id" json:"follower_id"`
	FollowingID int64     `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Mention records that one user mentioned another in a post or comment.
type Mention struct {
	ID                int64     `db:"id" json:"id"`
	MentionedUserID   int64     `db:"mentioned_user_id" json:"mentioned_user_id"`
	MentionedByUserID int64     `db:"mentioned_by_user_id" json:"mentioned_by_user_id"`
	PostID            string    `db:"post_id" json:"post_id"`
	CommentID         string    `db:"comment_id" json:"comment_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// LeaderboardEntry is one row of the FOCUS leaderboard.
type LeaderboardEntry struct {
	UserID int64 `json:"user_id"`
	Score  int64 `json:"score"`
}

// PostKind is the kind of content a post carries.
type PostKind string

const (
	PostPhoto PostKind = "photo"
	PostVideo PostKind = "video"
	PostQuiz  PostKind = "quiz"
)

// Valid reports whether k is one of the known post kinds.
func (k PostKind) Valid() bool {
	switch k {
	case PostPhoto, PostVideo, PostQuiz:
		return true
	}
	return false
}

// QuizQuestion is a single multiple-choice question with three options.
type QuizQuestion struct {
	Question     string    `json:"question"`
	Options      [3]string `json:"options"`
	CorrectIndex int       `json:"correct_index"`
}

// QuizAnswer is one user's submission for a quiz post.
type QuizAnswer struct {
	UserID     int64     `json:"user_id"`
	Answers    []int     `json:"answers"`
	Score      int       `json:"score"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Pinned    bool      `json:"pinned"`
}

// Post is a feed item with its interaction aggregates.
type Post struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"user_id"`
	Kind          PostKind       `json:"kind"`
	Caption       string         `json:"caption,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Likes         int            `json:"likes"`
	LikedBy       []int64        `json:"liked_by"`
	Points        int64          `json:"points"`
	DonatedBy     []int64        `json:"donated_by"`
	Comments      []Comment      `json:"comments"`
	QuizQuestions []QuizQuestion `json:"quiz_questions,omitempty"`
	QuizAnswers   []QuizAnswer   `json:"quiz_answers,omitempty"`
}

// IsQuiz reports whether the post carries quiz questions.
func (p *Post) IsQuiz() bool {
	return len(p.QuizQuestions) > 0
}

// PinnedCount returns the number of pinned comments.
func (p *Post) PinnedCount() int {
	n := 0
	for _, c := range p.Comments {
		if c.Pinned {
			n++
		}
	}
	return n
}

// Transaction types for categorizing FOCUS changes.
const (
	TxTypeDonationSent     = "donation_sent"     // Donor spent FOCUS on a post
	TxTypeDonationReceived = "donation_received" // Post author received FOCUS
	TxTypeQuizReward       = "quiz_reward"       // Correct quiz answers
	TxTypeDailyQuest       = "daily_quest"       // Daily quest payout
	TxTypeWeeklyQuest      = "weekly_quest"      // Weekly quest claim
	TxTypeMonthlyQuest     = "monthly_quest"     // Monthly quest claim
	TxTypeFollowerQuest    = "follower_quest"    // Follower milestone claim
	TxTypeUniqueQuest      = "unique_quest"      // Lifetime achievement claim
	TxTypeAdminAdjust      = "admin_adjust"      // Manual correction
)

// QuestTransactionTypes returns the ledger types produced by quest payouts.
func QuestTransactionTypes() []string {
	return []string{TxTypeDailyQuest, TxTypeWeeklyQuest, TxTypeMonthlyQuest, TxTypeFollowerQuest, TxTypeUniqueQuest}
}

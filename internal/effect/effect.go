// Package effect carries the outbound writes produced by quest transitions
// and applies them asynchronously with retries.
package effect

import (
	"context"
	"errors"
	"fmt"
)

// Kind names an outbound write.
type Kind string

const (
	KindIncrementFocusDonated  Kind = "increment_focus_donated"
	KindIncrementFocusReceived Kind = "increment_focus_received"
	KindInsertFollow           Kind = "insert_follow"
	KindDeleteFollow           Kind = "delete_follow"
	KindRecordTransaction      Kind = "record_transaction"
	KindCreateMentions         Kind = "create_mentions"
	KindAdjustLeaderboard      Kind = "adjust_leaderboard"
	KindUpsertProfile          Kind = "upsert_profile"
)

// ErrUnknownKind is returned by sinks for effects they cannot apply.
var ErrUnknownKind = errors.New("unknown effect kind")

// Effect is one outbound write. UserID is the user the write is about and
// is the serialisation key; the remaining fields depend on Kind.
type Effect struct {
	Kind        Kind
	UserID      int64
	TargetID    int64
	Amount      int64
	TxType      string
	Description string
	PostID      string
	CommentID   string
	Mentioned   []int64
	Username    string
	Attempts    int
}

func (e Effect) String() string {
	return fmt.Sprintf("%s(user=%d)", e.Kind, e.UserID)
}

// Sink applies effects to durable storage.
type Sink interface {
	Apply(ctx context.Context, e Effect) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Effect) error

// Apply calls f.
func (f SinkFunc) Apply(ctx context.Context, e Effect) error {
	return f(ctx, e)
}

// IncrementFocusDonated bumps the donor's lifetime donated counter.
func IncrementFocusDonated(userID, amount int64) Effect {
	return Effect{Kind: KindIncrementFocusDonated, UserID: userID, Amount: amount}
}

// IncrementFocusReceived bumps the recipient's lifetime received counter.
func IncrementFocusReceived(userID, amount int64) Effect {
	return Effect{Kind: KindIncrementFocusReceived, UserID: userID, Amount: amount}
}

// InsertFollow stores the follower -> following edge.
func InsertFollow(followerID, followingID int64) Effect {
	return Effect{Kind: KindInsertFollow, UserID: followerID, TargetID: followingID}
}

// DeleteFollow removes the follower -> following edge.
func DeleteFollow(followerID, followingID int64) Effect {
	return Effect{Kind: KindDeleteFollow, UserID: followerID, TargetID: followingID}
}

// RecordTransaction appends a FOCUS ledger row.
func RecordTransaction(userID, amount int64, txType, description string) Effect {
	return Effect{Kind: KindRecordTransaction, UserID: userID, Amount: amount, TxType: txType, Description: description}
}

// CreateMentions stores mention rows for a post or comment.
func CreateMentions(authorID int64, mentioned []int64, postID, commentID string) Effect {
	return Effect{
		Kind:      KindCreateMentions,
		UserID:    authorID,
		Mentioned: append([]int64(nil), mentioned...),
		PostID:    postID,
		CommentID: commentID,
	}
}

// AdjustLeaderboard adds delta to the user's leaderboard score.
func AdjustLeaderboard(userID, delta int64) Effect {
	return Effect{Kind: KindAdjustLeaderboard, UserID: userID, Amount: delta}
}

// UpsertProfile creates the user's profile or refreshes its username.
func UpsertProfile(userID int64, username string) Effect {
	return Effect{Kind: KindUpsertProfile, UserID: userID, Username: username}
}

// Package social holds the shared feed, the follow graph, the username
// directory and mention handling.
package social

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"focus-quest-bot/internal/model"
)

// Social errors.
var (
	ErrPostNotFound     = errors.New("post not found")
	ErrAlreadyLiked     = errors.New("post already liked")
	ErrNotLiked         = errors.New("post not liked")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrPinLimitReached  = errors.New("pinned comment limit reached")
	ErrInvalidComment   = errors.New("comment must be between 1 and 1000 characters")
	ErrNotAuthor        = errors.New("only the author can do that")
	ErrAlreadyDonated   = errors.New("already donated to this post")
	ErrNotAQuiz         = errors.New("post is not a quiz")
	ErrAlreadyAnswered  = errors.New("quiz already answered")
	ErrInvalidPostKind  = errors.New("invalid post kind")
	ErrInvalidQuestions = errors.New("quiz questions are invalid")
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 1000

// DefaultMaxPinned is the default number of pinned comments per post.
const DefaultMaxPinned = 3

// NormalizeComment trims text and checks its length.
func NormalizeComment(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n == 0 || n > MaxCommentLength {
		return "", ErrInvalidComment
	}
	return text, nil
}

// Feed stores every post. Posts are addressed by their uuid.
//
// Feed is not safe for concurrent use.
type Feed struct {
	posts     []*model.Post
	byID      map[string]*model.Post
	maxPinned int
	newID     func() string
}

// NewFeed creates an empty feed with the given pin limit.
func NewFeed(maxPinned int) *Feed {
	if maxPinned <= 0 {
		maxPinned = DefaultMaxPinned
	}
	return &Feed{
		byID:      make(map[string]*model.Post),
		maxPinned: maxPinned,
		newID:     uuid.NewString,
	}
}

// MaxPinned returns the pin limit.
func (f *Feed) MaxPinned() int {
	return f.maxPinned
}

// Create appends a new post authored by userID.
func (f *Feed) Create(userID int64, kind model.PostKind, caption string, questions []model.QuizQuestion, now time.Time) (*model.Post, error) {
	if !kind.Valid() {
		return nil, ErrInvalidPostKind
	}
	if kind == model.PostQuiz {
		if len(questions) == 0 {
			return nil, ErrInvalidQuestions
		}
		for _, q := range questions {
			if strings.TrimSpace(q.Question) == "" || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
				return nil, ErrInvalidQuestions
			}
		}
	} else {
		questions = nil
	}

	post := &model.Post{
		ID:            f.newID(),
		UserID:        userID,
		Kind:          kind,
		Caption:       strings.TrimSpace(caption),
		CreatedAt:     now,
		QuizQuestions: questions,
	}
	f.posts = append(f.posts, post)
	f.byID[post.ID] = post
	return post, nil
}

// Get returns the post with the given id.
func (f *Feed) Get(postID string) (*model.Post, error) {
	post, ok := f.byID[postID]
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Snapshot returns a copy of the post that shares no slices with the feed.
func (f *Feed) Snapshot(postID string) (model.Post, error) {
	post, err := f.Get(postID)
	if err != nil {
		return model.Post{}, err
	}
	return clonePost(post), nil
}

// Recent returns copies of up to limit posts, newest first.
func (f *Feed) Recent(limit int) []model.Post {
	return f.RecentWhere(limit, nil)
}

// RecentWhere is Recent restricted to posts keep accepts. A nil keep
// accepts every post.
func (f *Feed) RecentWhere(limit int, keep func(*model.Post) bool) []model.Post {
	if limit <= 0 || limit > len(f.posts) {
		limit = len(f.posts)
	}
	out := make([]model.Post, 0, limit)
	for i := len(f.posts) - 1; i >= 0 && len(out) < limit; i-- {
		if keep != nil && !keep(f.posts[i]) {
			continue
		}
		out = append(out, clonePost(f.posts[i]))
	}
	return out
}

// Like adds userID to the post's likers and returns the new like count.
func (f *Feed) Like(postID string, userID int64) (int, error) {
	post, err := f.Get(postID)
	if err != nil {
		return 0, err
	}
	if containsID(post.LikedBy, userID) {
		return post.Likes, ErrAlreadyLiked
	}
	post.LikedBy = append(post.LikedBy, userID)
	post.Likes++
	return post.Likes, nil
}

// Unlike removes userID from the post's likers.
func (f *Feed) Unlike(postID string, userID int64) (int, error) {
	post, err := f.Get(postID)
	if err != nil {
		return 0, err
	}
	idx := indexOfID(post.LikedBy, userID)
	if idx < 0 {
		return post.Likes, ErrNotLiked
	}
	post.LikedBy = append(post.LikedBy[:idx], post.LikedBy[idx+1:]...)
	post.Likes--
	return post.Likes, nil
}

// AddComment appends a validated comment and returns it with the post's
// new comment count.
func (f *Feed) AddComment(postID string, userID int64, text string, now time.Time) (model.Comment, int, error) {
	post, err := f.Get(postID)
	if err != nil {
		return model.Comment{}, 0, err
	}
	text, err = NormalizeComment(text)
	if err != nil {
		return model.Comment{}, len(post.Comments), err
	}
	c := model.Comment{ID: f.newID(), UserID: userID, Text: text, CreatedAt: now}
	post.Comments = append(post.Comments, c)
	return c, len(post.Comments), nil
}

func (f *Feed) comment(postID, commentID string) (*model.Post, int, error) {
	post, err := f.Get(postID)
	if err != nil {
		return nil, -1, err
	}
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			return post, i, nil
		}
	}
	return post, -1, ErrCommentNotFound
}

// EditComment replaces the text of a comment written by userID.
func (f *Feed) EditComment(postID, commentID string, userID int64, text string) error {
	post, i, err := f.comment(postID, commentID)
	if err != nil {
		return err
	}
	if post.Comments[i].UserID != userID {
		return ErrNotAuthor
	}
	text, err = NormalizeComment(text)
	if err != nil {
		return err
	}
	post.Comments[i].Text = text
	return nil
}

// DeleteComment removes a comment. The comment author and the post author
// may delete it.
func (f *Feed) DeleteComment(postID, commentID string, userID int64) error {
	post, i, err := f.comment(postID, commentID)
	if err != nil {
		return err
	}
	if post.Comments[i].UserID != userID && post.UserID != userID {
		return ErrNotAuthor
	}
	post.Comments = append(post.Comments[:i], post.Comments[i+1:]...)
	return nil
}

// SetPinned pins or unpins a comment on a post owned by userID. Pinning
// beyond the limit fails and leaves every pin as it was. Pinning a pinned
// comment is a no-op.
func (f *Feed) SetPinned(postID, commentID string, userID int64, pinned bool) (bool, error) {
	post, i, err := f.comment(postID, commentID)
	if err != nil {
		return false, err
	}
	if post.UserID != userID {
		return false, ErrNotAuthor
	}
	if post.Comments[i].Pinned == pinned {
		return false, nil
	}
	if pinned && post.PinnedCount() >= f.maxPinned {
		return false, ErrPinLimitReached
	}
	post.Comments[i].Pinned = pinned
	return true, nil
}

// RecordDonation marks donor as having donated amount to the post.
// Account balances are not touched here.
func (f *Feed) RecordDonation(postID string, donorID int64, amount int64) error {
	post, err := f.Get(postID)
	if err != nil {
		return err
	}
	if containsID(post.DonatedBy, donorID) {
		return ErrAlreadyDonated
	}
	post.Points += amount
	post.DonatedBy = append(post.DonatedBy, donorID)
	return nil
}

// HasDonated reports whether donorID already donated to the post.
func HasDonated(post *model.Post, donorID int64) bool {
	return containsID(post.DonatedBy, donorID)
}

// Score counts answers matching the correct index over the aligned prefix
// of answers and questions.
func Score(questions []model.QuizQuestion, answers []int) int {
	score := 0
	for i := 0; i < len(questions) && i < len(answers); i++ {
		if answers[i] == questions[i].CorrectIndex {
			score++
		}
	}
	return score
}

// AnswerQuiz scores and records userID's answers.
func (f *Feed) AnswerQuiz(postID string, userID int64, answers []int, now time.Time) (int, error) {
	post, err := f.Get(postID)
	if err != nil {
		return 0, err
	}
	if !post.IsQuiz() {
		return 0, ErrNotAQuiz
	}
	for _, a := range post.QuizAnswers {
		if a.UserID == userID {
			return 0, ErrAlreadyAnswered
		}
	}
	score := Score(post.QuizQuestions, answers)
	post.QuizAnswers = append(post.QuizAnswers, model.QuizAnswer{
		UserID:     userID,
		Answers:    append([]int(nil), answers...),
		Score:      score,
		AnsweredAt: now,
	})
	return score, nil
}

// Engagement counts the distinct posts userID has commented on and liked.
func (f *Feed) Engagement(userID int64) (commented, liked int) {
	for _, post := range f.posts {
		for _, c := range post.Comments {
			if c.UserID == userID {
				commented++
				break
			}
		}
		if containsID(post.LikedBy, userID) {
			liked++
		}
	}
	return commented, liked
}

// CountByAuthor returns the number of posts per kind written by userID.
func (f *Feed) CountByAuthor(userID int64) map[model.PostKind]int {
	counts := make(map[model.PostKind]int)
	for _, post := range f.posts {
		if post.UserID == userID {
			counts[post.Kind]++
		}
	}
	return counts
}

// Len returns the number of posts.
func (f *Feed) Len() int {
	return len(f.posts)
}

func clonePost(p *model.Post) model.Post {
	c := *p
	c.LikedBy = append([]int64(nil), p.LikedBy...)
	c.DonatedBy = append([]int64(nil), p.DonatedBy...)
	c.Comments = append([]model.Comment(nil), p.Comments...)
	c.QuizQuestions = append([]model.QuizQuestion(nil), p.QuizQuestions...)
	c.QuizAnswers = append([]model.QuizAnswer(nil), p.QuizAnswers...)
	sort.SliceStable(c.Comments, func(i, j int) bool {
		return c.Comments[i].Pinned && !c.Comments[j].Pinned
	})
	return c
}

func containsID(ids []int64, id int64) bool {
	return indexOfID(ids, id) >= 0
}

func indexOfID(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// ErrAmbiguousRef is returned when a short id matches more than one item.
var ErrAmbiguousRef = errors.New("id prefix matches more than one item")

// Resolve expands a post id or unique id prefix into the full post id.
func (f *Feed) Resolve(ref string) (string, error) {
	if _, ok := f.byID[ref]; ok {
		return ref, nil
	}
	ids := make([]string, 0, len(f.posts))
	for _, p := range f.posts {
		ids = append(ids, p.ID)
	}
	return matchPrefix(ids, ref, ErrPostNotFound)
}

// ResolveComment expands a comment id prefix within a post.
func (f *Feed) ResolveComment(postID, ref string) (string, error) {
	post, err := f.Get(postID)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(post.Comments))
	for _, c := range post.Comments {
		ids = append(ids, c.ID)
	}
	return matchPrefix(ids, ref, ErrCommentNotFound)
}

func matchPrefix(ids []string, ref string, notFound error) (string, error) {
	if ref == "" {
		return "", notFound
	}
	match := ""
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", ErrAmbiguousRef
			}
			match = id
		}
	}
	if match == "" {
		return "", notFound
	}
	return match, nil
}

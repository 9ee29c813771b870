// Package handler provides Telegram bot command handlers over the quest
// engine.
package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/points"
	"focus-quest-bot/internal/repository"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
	"focus-quest-bot/internal/social"
)

// Argument errors.
var (
	ErrBadAnswers  = errors.New("answers must be numbers between 1 and 3")
	ErrBadQuestion = errors.New("question must look like: text | a | b | c | correct")
)

// errorReplies maps engine errors to user-facing replies, first match wins.
var errorReplies = []struct {
	err   error
	reply string
}{
	{session.ErrPostNotFound, "❌ Post not found"},
	{session.ErrCommentNotFound, "❌ Comment not found"},
	{social.ErrAmbiguousRef, "❌ That id matches several items, type more characters"},
	{session.ErrAlreadyLiked, "❌ You already liked this post"},
	{session.ErrNotLiked, "❌ You have not liked this post"},
	{session.ErrAlreadyDonated, "❌ You already donated to this post"},
	{session.ErrSelfDonation, "❌ You cannot donate to your own post"},
	{session.ErrInsufficientPoints, "❌ Not enough FOCUS"},
	{session.ErrNotAQuiz, "❌ That post is not a quiz"},
	{session.ErrAlreadyAnswered, "❌ You already answered this quiz"},
	{session.ErrSelfFollow, "❌ You cannot follow yourself"},
	{session.ErrSelfBlock, "❌ You cannot block yourself"},
	{session.ErrPinLimitReached, "❌ This post already has the maximum number of pinned comments"},
	{session.ErrInvalidComment, "❌ Comments must be between 1 and 1000 characters"},
	{social.ErrNotAuthor, "❌ Only the author can do that"},
	{social.ErrInvalidPostKind, "❌ Post kind must be photo, video or quiz"},
	{social.ErrInvalidQuestions, "❌ Quiz questions are invalid"},
	{session.ErrQuestNotFound, "❌ Quest not found"},
	{session.ErrNotClaimable, "❌ Quest is not completed or already claimed"},
	{session.ErrAlreadyCompleted, "❌ Quest already completed today"},
	{session.ErrCriterionNotMet, "❌ Quest requirements are not met yet"},
	{points.ErrInvalidAmount, "❌ Amount must be positive"},
	{service.ErrZeroAdjust, "❌ Amount must not be zero"},
	{service.ErrUnknownUser, "❌ Send /start first"},
	{repository.ErrProfileNotFound, "❌ Profile not found yet, send /start and try again"},
	{ErrBadAnswers, "❌ Answers must be numbers between 1 and 3, e.g. 1,3,2"},
	{ErrBadQuestion, "❌ Each question line must look like: question | a | b | c | 2"},
	{ErrBioTooLong, fmt.Sprintf("❌ Bio must be at most %d characters", model.MaxBioLength)},
	{ErrUnknownLanguage, "❌ Unknown language"},
	{ErrBadAvatarURL, "❌ Avatar must be an http or https link"},
}

// errorMessage returns the reply for err.
func errorMessage(err error) string {
	for _, e := range errorReplies {
		if errors.Is(err, e.err) {
			return e.reply
		}
	}
	return "❌ Something went wrong, please try again later"
}

// senderUser converts the message sender into an engine user. Only the
// Telegram username is used; first names are not unique.
func senderUser(c tele.Context) (model.User, bool) {
	sender := c.Sender()
	if sender == nil {
		return model.User{}, false
	}
	return model.User{ID: sender.ID, Username: sender.Username}, true
}

// parseAnswers parses "1,3,2" into zero-based option indexes.
func parseAnswers(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	answers := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > 3 {
			return nil, ErrBadAnswers
		}
		answers = append(answers, n-1)
	}
	return answers, nil
}

// parseQuestions parses one question per line:
//
//	question | option 1 | option 2 | option 3 | correct option (1-3)
func parseQuestions(payload string) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != 5 {
			return nil, ErrBadQuestion
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
			if fields[i] == "" {
				return nil, ErrBadQuestion
			}
		}
		correct, err := strconv.Atoi(fields[4])
		if err != nil || correct < 1 || correct > 3 {
			return nil, ErrBadQuestion
		}
		questions = append(questions, model.QuizQuestion{
			Question:     fields[0],
			Options:      [3]string{fields[1], fields[2], fields[3]},
			CorrectIndex: correct - 1,
		})
	}
	if len(questions) == 0 {
		return nil, ErrBadQuestion
	}
	return questions, nil
}

// shortID abbreviates a uuid for display; any unique prefix is accepted back.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// payloadAfter returns the message text with the command and the first n
// arguments removed. Line breaks inside the remainder are kept.
func payloadAfter(c tele.Context, n int) string {
	return dropWords(c.Text(), n+1)
}

func dropWords(text string, n int) string {
	rest := strings.TrimSpace(text)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \n\t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

// completedSuffix formats quest completions reported by a transition.
func completedSuffix(res session.Result) string {
	if len(res.Completed) == 0 {
		return ""
	}
	return fmt.Sprintf("\n🏆 Quest completed: %s (use /quests to claim)", strings.Join(res.Completed, ", "))
}

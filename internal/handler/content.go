package handler

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
)

// ContentHandler handles posts, comments, likes, donations and quizzes.
type ContentHandler struct {
	manager *service.Manager
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(manager *service.Manager) *ContentHandler {
	return &ContentHandler{manager: manager}
}

// postOp resolves the post referenced by the first argument and runs fn
// against the sender's session.
func (h *ContentHandler) postOp(c tele.Context, usage string, minArgs int, fn func(s *session.Store, postID string) (session.Result, error)) (session.Result, string, error) {
	args := c.Args()
	if len(args) < minArgs {
		return session.Result{}, "", errUsage(usage)
	}
	user, ok := senderUser(c)
	if !ok {
		return session.Result{}, "", errNoSender
	}
	postID, err := h.manager.ResolvePost(args[0])
	if err != nil {
		return session.Result{}, "", err
	}
	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return fn(s, postID)
	})
	return res, postID, err
}

// commentOp resolves "<post> <comment>" and runs fn.
func (h *ContentHandler) commentOp(c tele.Context, usage string, fn func(s *session.Store, postID, commentID string) (session.Result, error)) (session.Result, error) {
	args := c.Args()
	if len(args) < 2 {
		return session.Result{}, errUsage(usage)
	}
	res, _, err := h.postOp(c, usage, 2, func(s *session.Store, postID string) (session.Result, error) {
		commentID, err := s.ResolveComment(postID, args[1])
		if err != nil {
			return session.Result{}, err
		}
		return fn(s, postID, commentID)
	})
	return res, err
}

// HandlePost handles the /post command.
// Format: /post <photo|video> [caption]
func (h *ContentHandler) HandlePost(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /post <photo|video> [caption]")
	}
	kind := model.PostKind(strings.ToLower(args[0]))
	if kind == model.PostQuiz {
		return c.Reply("❌ Use /quiz to publish a quiz")
	}
	caption := payloadAfter(c, 1)

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return s.CreatePost(kind, caption, nil)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	return c.Reply(fmt.Sprintf("✅ Published %s %s%s", kind, shortID(res.Post.ID), completedSuffix(res)))
}

// HandleQuiz handles the /quiz command. Each following line is a question:
// question | option 1 | option 2 | option 3 | correct option
func (h *ContentHandler) HandleQuiz(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	questions, err := parseQuestions(payloadAfter(c, 0))
	if err != nil {
		return c.Reply(errorMessage(err) + "\nExample:\n/quiz\nCapital of France? | Rome | Paris | Madrid | 2")
	}

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return s.CreatePost(model.PostQuiz, "", questions)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	return c.Reply(fmt.Sprintf("✅ Published quiz %s with %d questions", shortID(res.Post.ID), len(questions)))
}

// HandleFeed handles the /feed command.
// Format: /feed [count]
func (h *ContentHandler) HandleFeed(c tele.Context) error {
	limit := 10
	if args := c.Args(); len(args) > 0 {
		limit = min(atoiDefault(args[0], limit), 50)
	}
	var posts []model.Post
	if sender := c.Sender(); sender != nil {
		posts = h.manager.FeedFor(sender.ID, limit)
	} else {
		posts = h.manager.Feed(limit)
	}
	if len(posts) == 0 {
		return c.Reply("📭 The feed is empty. Publish something with /post")
	}
	var sb strings.Builder
	sb.WriteString("📰 Latest posts\n")
	for _, p := range posts {
		sb.WriteString(fmt.Sprintf("\n%s %s by %s", shortID(p.ID), p.Kind, h.manager.Username(p.UserID)))
		if p.Caption != "" {
			sb.WriteString(": " + p.Caption)
		}
		sb.WriteString(fmt.Sprintf("\n❤️ %d 💬 %d 💎 %d", p.Likes, len(p.Comments), p.Points))
		if p.IsQuiz() {
			sb.WriteString(fmt.Sprintf(" ❓ %d questions", len(p.QuizQuestions)))
		}
		for _, cm := range p.Comments {
			if cm.Pinned {
				sb.WriteString(fmt.Sprintf("\n📌 %s: %s", h.manager.Username(cm.UserID), cm.Text))
			}
		}
		sb.WriteString("\n")
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleShow handles the /show command, printing one post with its
// comments or quiz questions.
func (h *ContentHandler) HandleShow(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /show <post>")
	}
	postID, err := h.manager.ResolvePost(args[0])
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	post, err := h.manager.Post(postID)
	if err != nil {
		return c.Reply(errorMessage(err))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s by %s\n", shortID(post.ID), post.Kind, h.manager.Username(post.UserID)))
	if post.Caption != "" {
		sb.WriteString(post.Caption + "\n")
	}
	sb.WriteString(fmt.Sprintf("❤️ %d 💎 %d\n", post.Likes, post.Points))
	for i, q := range post.QuizQuestions {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n  1) %s\n  2) %s\n  3) %s", i+1, q.Question, q.Options[0], q.Options[1], q.Options[2]))
	}
	for _, cm := range post.Comments {
		pin := ""
		if cm.Pinned {
			pin = "📌 "
		}
		sb.WriteString(fmt.Sprintf("\n%s[%s] %s: %s", pin, shortID(cm.ID), h.manager.Username(cm.UserID), cm.Text))
	}
	return c.Reply(strings.TrimRight(sb.String(), "\n"))
}

// HandleLike handles the /like command.
func (h *ContentHandler) HandleLike(c tele.Context) error {
	res, _, err := h.postOp(c, "/like <post>", 1, (*session.Store).Like)
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply("❤️ Liked" + completedSuffix(res))
}

// HandleUnlike handles the /unlike command.
func (h *ContentHandler) HandleUnlike(c tele.Context) error {
	if _, _, err := h.postOp(c, "/unlike <post>", 1, (*session.Store).Unlike); err != nil {
		return replyErr(c, err)
	}
	return c.Reply("💔 Like removed")
}

// HandleComment handles the /comment command.
// Format: /comment <post> <text>
func (h *ContentHandler) HandleComment(c tele.Context) error {
	text := payloadAfter(c, 1)
	res, _, err := h.postOp(c, "/comment <post> <text>", 2, func(s *session.Store, postID string) (session.Result, error) {
		return s.AddComment(postID, text)
	})
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("💬 Comment %s added%s", shortID(res.Comment.ID), completedSuffix(res)))
}

// HandleEditComment handles the /edit command.
// Format: /edit <post> <comment> <text>
func (h *ContentHandler) HandleEditComment(c tele.Context) error {
	text := payloadAfter(c, 2)
	_, err := h.commentOp(c, "/edit <post> <comment> <text>", func(s *session.Store, postID, commentID string) (session.Result, error) {
		return s.EditComment(postID, commentID, text)
	})
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply("✏️ Comment updated")
}

// HandleDeleteComment handles the /delete command.
func (h *ContentHandler) HandleDeleteComment(c tele.Context) error {
	if _, err := h.commentOp(c, "/delete <post> <comment>", (*session.Store).DeleteComment); err != nil {
		return replyErr(c, err)
	}
	return c.Reply("🗑 Comment deleted")
}

// HandlePin handles the /pin command.
func (h *ContentHandler) HandlePin(c tele.Context) error {
	if _, err := h.commentOp(c, "/pin <post> <comment>", (*session.Store).PinComment); err != nil {
		return replyErr(c, err)
	}
	return c.Reply("📌 Comment pinned")
}

// HandleUnpin handles the /unpin command.
func (h *ContentHandler) HandleUnpin(c tele.Context) error {
	if _, err := h.commentOp(c, "/unpin <post> <comment>", (*session.Store).UnpinComment); err != nil {
		return replyErr(c, err)
	}
	return c.Reply("📍 Comment unpinned")
}

// HandleReport handles the /report command.
// Format: /report <post> <comment> [reason]
func (h *ContentHandler) HandleReport(c tele.Context) error {
	reason := payloadAfter(c, 2)
	_, err := h.commentOp(c, "/report <post> <comment> [reason]", func(s *session.Store, postID, commentID string) (session.Result, error) {
		return s.ReportComment(postID, commentID, reason)
	})
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply("🚩 Thanks, the comment was reported to the moderators")
}

// HandleDonate handles the /donate command.
func (h *ContentHandler) HandleDonate(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	res, _, err := h.postOp(c, "/donate <post>", 1, (*session.Store).Donate)
	if err != nil {
		return replyErr(c, err)
	}
	acc := h.manager.Account(user.ID)
	return c.Reply(fmt.Sprintf("💎 Donated %d FOCUS\nAvailable: %d%s",
		h.manager.DonationAmount(), acc.AvailablePoints, completedSuffix(res)))
}

// HandleAnswer handles the /answer command.
// Format: /answer <post> 1,3,2
func (h *ContentHandler) HandleAnswer(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /answer <post> <answers>\nExample: /answer 1a2b3c4d 1,3,2")
	}
	answers, err := parseAnswers(strings.Join(args[1:], ""))
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	res, _, err := h.postOp(c, "/answer <post> <answers>", 2, func(s *session.Store, postID string) (session.Result, error) {
		return s.SubmitQuiz(postID, answers)
	})
	if err != nil {
		return replyErr(c, err)
	}
	return c.Reply(fmt.Sprintf("🧠 %d of %d correct, +%d FOCUS%s",
		res.Score, len(answers), res.Reward, completedSuffix(res)))
}

// usageError carries the usage line of a command with missing arguments.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

func errUsage(usage string) error { return usageError(usage) }

var errNoSender = usageError("")

// replyErr replies with the message for err. Usage errors print the usage.
func replyErr(c tele.Context, err error) error {
	if u, ok := err.(usageError); ok {
		if u == "" {
			return nil
		}
		return c.Reply("❌ Usage: " + string(u))
	}
	return c.Reply(errorMessage(err))
}

// atoiDefault parses s or returns def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/quest"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
)

// QuestHandler handles check-in, quest board, claims and the leaderboard.
type QuestHandler struct {
	manager *service.Manager
	ranking *service.RankingService
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(manager *service.Manager, ranking *service.RankingService) *QuestHandler {
	return &QuestHandler{manager: manager, ranking: ranking}
}

// HandleStart handles the /start command. The first call opens the
// user's session and runs the login check.
func (h *QuestHandler) HandleStart(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	if _, err := h.manager.Do(user, (*session.Store).CheckDailyLogin); err != nil {
		return c.Reply(errorMessage(err))
	}
	acc := h.manager.Account(user.ID)
	greeting := "@" + user.Username
	if user.Username == "" {
		greeting = c.Sender().FirstName + " (set a Telegram username so others can @mention you)"
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome %s!\n\n"+
			"💎 FOCUS: %d available / %d total\n\n"+
			"Commands:\n"+
			"/checkin - daily check-in\n"+
			"/quests - quest board\n"+
			"/claim <kind> <id> - claim a completed quest\n"+
			"/post <photo|video> [caption] - publish content\n"+
			"/quiz - publish a quiz\n"+
			"/feed - latest posts\n"+
			"/like, /comment, /donate, /answer - interact with posts\n"+
			"/follow @user - follow someone\n"+
			"/block @user - hide someone's posts\n"+
			"/bio, /language, /avatar, /mute - profile settings\n"+
			"/top - FOCUS leaderboard",
		greeting, acc.AvailablePoints, acc.TotalPoints,
	))
}

// HandleCheckin handles the /checkin command: the login check followed by
// the check-in payout.
func (h *QuestHandler) HandleCheckin(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}

	var streak int
	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		login, err := s.CheckDailyLogin()
		if err != nil {
			return login, err
		}
		streak = s.User().StreakDays
		paid, err := s.CompleteDailyQuest(quest.DailyCheckin)
		if err != nil {
			return login, err
		}
		paid.Completed = append(login.Completed, paid.Completed...)
		paid.Reset = login.Reset
		return paid, nil
	})
	if errors.Is(err, session.ErrAlreadyCompleted) {
		return c.Reply(fmt.Sprintf("📅 Already checked in today\n🔥 Streak: %d days", streak))
	}
	if err != nil {
		return c.Reply(errorMessage(err))
	}

	acc := h.manager.Account(user.ID)
	return c.Reply(fmt.Sprintf(
		"✅ Checked in! +%d FOCUS\n🔥 Streak: %d days\n💎 Available: %d%s",
		res.Reward, streak, acc.AvailablePoints, resetSuffix(res.Reset),
	))
}

// HandleQuests handles the /quests command.
func (h *QuestHandler) HandleQuests(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	if _, err := h.manager.Do(user, (*session.Store).CheckDailyLogin); err != nil {
		return c.Reply(errorMessage(err))
	}
	ledger, err := h.manager.Quests(user.ID)
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	return c.Reply(formatQuests(ledger, h.manager.FollowerCount(user.ID)))
}

// HandleClaim handles the /claim command.
// Format: /claim <daily|weekly|monthly|follower|unique> <quest id>
func (h *QuestHandler) HandleClaim(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	args := c.Args()
	if len(args) < 2 {
		return c.Reply("❌ Usage: /claim <daily|weekly|monthly|follower|unique> <quest id>\nExample: /claim weekly weekly-quiz")
	}
	kind, err := quest.ParseKind(strings.ToLower(args[0]))
	if err != nil {
		return c.Reply("❌ Quest kind must be daily, weekly, monthly, follower or unique")
	}
	questID := args[1]

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return s.Claim(kind, questID)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}

	acc := h.manager.Account(user.ID)
	return c.Reply(fmt.Sprintf("✅ Claimed %s: +%d FOCUS\n💎 Available: %d", questID, res.Reward, acc.AvailablePoints))
}

// HandleDaily handles the /daily command, paying a daily quest whose
// criterion is met.
// Format: /daily <quest id>
func (h *QuestHandler) HandleDaily(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /daily <quest id>\nExample: /daily " + quest.DailyEngagement)
	}

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		if _, err := s.CheckDailyLogin(); err != nil {
			return session.Result{}, err
		}
		return s.CompleteDailyQuest(args[0])
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	acc := h.manager.Account(user.ID)
	return c.Reply(fmt.Sprintf("✅ Daily quest done: +%d FOCUS\n💎 Available: %d", res.Reward, acc.AvailablePoints))
}

// HandlePoints handles the /points command.
func (h *QuestHandler) HandlePoints(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	acc := h.manager.Account(user.ID)
	return c.Reply(fmt.Sprintf(
		"💎 FOCUS\nAvailable: %d\nTotal received: %d\n👥 Followers: %d",
		acc.AvailablePoints, acc.TotalPoints, h.manager.FollowerCount(user.ID),
	))
}

// HandleTop handles the /top command.
func (h *QuestHandler) HandleTop(c tele.Context) error {
	entries := h.ranking.Top(context.Background(), 10)
	if len(entries) == 0 {
		return c.Reply("📊 Nobody has earned FOCUS yet")
	}
	return c.Reply(formatLeaderboard(entries, h.manager.Username))
}

func resetSuffix(r quest.ResetReport) string {
	var parts []string
	if r.Weekly {
		parts = append(parts, "weekly")
	}
	if r.Monthly {
		parts = append(parts, "monthly")
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("\n🔄 New %s quests are available", strings.Join(parts, " and "))
}

func questMark(completed, claimed bool) string {
	switch {
	case claimed:
		return "✅"
	case completed:
		return "🎁"
	}
	return "⬜"
}

// formatQuests renders the quest board. Follower milestones show only the
// next unreached one and any reached but unclaimed.
func formatQuests(l *quest.Ledger, followers int) string {
	var sb strings.Builder

	sb.WriteString("📅 Daily\n")
	for _, q := range l.Daily {
		sb.WriteString(fmt.Sprintf("%s %s (%s) +%d\n", questMark(q.Completed, q.Claimed), q.Title, q.ID, q.Reward))
	}

	sb.WriteString("\n📆 Weekly\n")
	for _, q := range l.Weekly {
		sb.WriteString(fmt.Sprintf("%s %s (%s) %d/%d +%d\n",
			questMark(q.Completed, q.Claimed), q.Title, q.ID, min(q.Progress, q.Target), q.Target, q.Reward))
	}

	sb.WriteString("\n🗓 Monthly\n")
	for _, q := range l.Monthly {
		sb.WriteString(fmt.Sprintf("%s %s (%s) 🎬 %d/%d 📷 %d/%d +%d\n",
			questMark(q.Completed, q.Claimed), q.Title, q.ID,
			q.Progress.Videos, q.Target.Videos, q.Progress.Photos, q.Target.Photos, q.Reward))
	}

	sb.WriteString(fmt.Sprintf("\n👥 Followers (%d)\n", followers))
	next := true
	for _, q := range l.Follower {
		if q.Claimed {
			continue
		}
		if !q.Completed {
			if !next {
				continue
			}
			next = false
		}
		sb.WriteString(fmt.Sprintf("%s %d followers (%s) +%d\n", questMark(q.Completed, q.Claimed), q.TargetFollowers, q.ID, q.Reward))
	}

	sb.WriteString("\n🏅 Achievements\n")
	for _, q := range l.Unique {
		sb.WriteString(fmt.Sprintf("%s %s (%s) +%d\n", questMark(q.Completed, q.Claimed), q.Title, q.ID, q.Reward))
	}

	if n := l.Claimable(); n > 0 {
		sb.WriteString(fmt.Sprintf("\n🎁 %d quests ready to /claim", n))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaderboard(entries []model.LeaderboardEntry, name func(int64) string) string {
	var sb strings.Builder
	sb.WriteString("🏆 FOCUS leaderboard\n\n")
	for i, e := range entries {
		medal := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		sb.WriteString(fmt.Sprintf("%s %s - %d\n", medal, name(e.UserID), e.Score))
	}
	return strings.TrimRight(sb.String(), "\n")
}

package handler

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
)

// SocialHandler handles the follow graph.
type SocialHandler struct {
	manager *service.Manager
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(manager *service.Manager) *SocialHandler {
	return &SocialHandler{manager: manager}
}

// resolveTarget finds the user a command points at: the first @username
// argument, or the author of the replied-to message.
func resolveTarget(c tele.Context, lookup func(string) (int64, bool)) (int64, string, bool) {
	if args := c.Args(); len(args) > 0 && strings.HasPrefix(args[0], "@") {
		name := strings.TrimPrefix(args[0], "@")
		if id, ok := lookup(name); ok {
			return id, name, true
		}
		return 0, name, false
	}
	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		target := msg.ReplyTo.Sender
		name := target.Username
		if name == "" {
			name = target.FirstName
		}
		return target.ID, name, true
	}
	return 0, "", false
}

// HandleFollow handles the /follow command.
// Format: /follow @username, or /follow as a reply.
func (h *SocialHandler) HandleFollow(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	targetID, name, ok := resolveTarget(c, h.manager.Lookup)
	if !ok {
		if name != "" {
			return c.Reply("❌ Cannot find @" + name + "\nThey need to /start the bot first")
		}
		return c.Reply("❌ Usage: /follow @username (or reply to their message)")
	}

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return s.Follow(targetID)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	if !res.Changed {
		return c.Reply(fmt.Sprintf("👥 You already follow @%s", name))
	}
	mutual := ""
	if h.manager.IsMutual(user.ID, targetID) {
		mutual = "\n🤝 You follow each other, you can now @mention them"
	}
	return c.Reply(fmt.Sprintf("✅ Now following @%s%s%s", name, mutual, completedSuffix(res)))
}

// HandleUnfollow handles the /unfollow command.
func (h *SocialHandler) HandleUnfollow(c tele.Context) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	targetID, name, ok := resolveTarget(c, h.manager.Lookup)
	if !ok {
		if name != "" {
			return c.Reply("❌ Cannot find @" + name)
		}
		return c.Reply("❌ Usage: /unfollow @username (or reply to their message)")
	}

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		return s.Unfollow(targetID)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	if !res.Changed {
		return c.Reply(fmt.Sprintf("👥 You were not following @%s", name))
	}
	return c.Reply(fmt.Sprintf("✅ Unfollowed @%s", name))
}

// HandleBlock handles the /block command. Posts of blocked users are hidden
// from the sender's /feed.
// Format: /block @username, or /block as a reply.
func (h *SocialHandler) HandleBlock(c tele.Context) error {
	return h.block(c, true)
}

// HandleUnblock handles the /unblock command.
func (h *SocialHandler) HandleUnblock(c tele.Context) error {
	return h.block(c, false)
}

func (h *SocialHandler) block(c tele.Context, block bool) error {
	user, ok := senderUser(c)
	if !ok {
		return nil
	}
	cmd := "unblock"
	if block {
		cmd = "block"
	}
	targetID, name, ok := resolveTarget(c, h.manager.Lookup)
	if !ok {
		if name != "" {
			return c.Reply("❌ Cannot find @" + name)
		}
		return c.Reply(fmt.Sprintf("❌ Usage: /%s @username (or reply to their message)", cmd))
	}

	res, err := h.manager.Do(user, func(s *session.Store) (session.Result, error) {
		if block {
			return s.Block(targetID)
		}
		return s.Unblock(targetID)
	})
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	switch {
	case block && res.Changed:
		return c.Reply(fmt.Sprintf("🚫 Blocked @%s, their posts are hidden from your feed", name))
	case block:
		return c.Reply(fmt.Sprintf("🚫 @%s is already blocked", name))
	case res.Changed:
		return c.Reply(fmt.Sprintf("✅ Unblocked @%s", name))
	}
	return c.Reply(fmt.Sprintf("👥 @%s was not blocked", name))
}

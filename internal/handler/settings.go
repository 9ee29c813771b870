package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/repository"
)

// Settings errors.
var (
	ErrBioTooLong      = fmt.Errorf("bio must be at most %d characters", model.MaxBioLength)
	ErrUnknownLanguage = errors.New("unknown language")
	ErrBadAvatarURL    = errors.New("avatar must be an http or https URL")
)

// ProfileSettings stores the preferences kept on the backend profile.
type ProfileSettings interface {
	SetNotificationsMuted(ctx context.Context, userID int64, muted bool) error
	SetBio(ctx context.Context, userID int64, bio string) error
	SetLanguage(ctx context.Context, userID int64, language string) error
	SetAvatarURL(ctx context.Context, userID int64, avatarURL string) error
}

// SettingsHandler handles per-user preferences kept on the backend profile.
type SettingsHandler struct {
	profiles ProfileSettings
}

// NewSettingsHandler creates a new SettingsHandler. profiles may be nil when
// no backend is configured.
func NewSettingsHandler(profiles ProfileSettings) *SettingsHandler {
	return &SettingsHandler{profiles: profiles}
}

// HandleMute handles the /mute command.
func (h *SettingsHandler) HandleMute(c tele.Context) error {
	return h.save(c, "🔕 Notifications muted", func(ctx context.Context, id int64) error {
		return h.profiles.SetNotificationsMuted(ctx, id, true)
	})
}

// HandleUnmute handles the /unmute command.
func (h *SettingsHandler) HandleUnmute(c tele.Context) error {
	return h.save(c, "🔔 Notifications enabled", func(ctx context.Context, id int64) error {
		return h.profiles.SetNotificationsMuted(ctx, id, false)
	})
}

// HandleBio handles the /bio command. Without text the bio is cleared.
// Format: /bio <text>
func (h *SettingsHandler) HandleBio(c tele.Context) error {
	bio := strings.TrimSpace(payloadAfter(c, 0))
	if utf8.RuneCountInString(bio) > model.MaxBioLength {
		return c.Reply(errorMessage(ErrBioTooLong))
	}
	done := "📝 Bio updated"
	if bio == "" {
		done = "📝 Bio cleared"
	}
	return h.save(c, done, func(ctx context.Context, id int64) error {
		return h.profiles.SetBio(ctx, id, bio)
	})
}

// HandleLanguage handles the /language command. Without an argument it
// lists the supported languages.
// Format: /language <code>
func (h *SettingsHandler) HandleLanguage(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Reply(languageList())
	}
	code, ok := model.ParseLanguage(args[0])
	if !ok {
		return c.Reply(errorMessage(ErrUnknownLanguage) + "\n\n" + languageList())
	}
	return h.save(c, "🌐 Language set to "+model.Languages[code], func(ctx context.Context, id int64) error {
		return h.profiles.SetLanguage(ctx, id, code)
	})
}

// HandleAvatar handles the /avatar command.
// Format: /avatar <url>
func (h *SettingsHandler) HandleAvatar(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Reply("❌ Usage: /avatar <url>")
	}
	avatar, err := parseAvatarURL(args[0])
	if err != nil {
		return c.Reply(errorMessage(err))
	}
	return h.save(c, "🖼 Avatar updated", func(ctx context.Context, id int64) error {
		return h.profiles.SetAvatarURL(ctx, id, avatar)
	})
}

// save runs fn for the sender and replies with done on success.
func (h *SettingsHandler) save(c tele.Context, done string, fn func(ctx context.Context, userID int64) error) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if h.profiles == nil {
		return c.Reply("❌ Settings are unavailable right now")
	}
	err := fn(context.Background(), sender.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return c.Reply(errorMessage(err))
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to update profile setting")
		return c.Reply("❌ Failed to save the setting, please try again later")
	}
	return c.Reply(done)
}

func parseAvatarURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrBadAvatarURL
	}
	return u.String(), nil
}

func languageList() string {
	codes := make([]string, 0, len(model.Languages))
	for code := range model.Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var sb strings.Builder
	sb.WriteString("🌐 Languages\n")
	for _, code := range codes {
		sb.WriteString(fmt.Sprintf("\n%s - %s", code, model.Languages[code]))
	}
	sb.WriteString("\n\nUse /language <code>")
	return sb.String()
}

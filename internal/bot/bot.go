// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"focus-quest-bot/internal/config"
	"focus-quest-bot/internal/handler"
	"focus-quest-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	manager *service.Manager
	private *PrivateUsers

	// Handlers
	questHandler    *handler.QuestHandler
	contentHandler  *handler.ContentHandler
	socialHandler   *handler.SocialHandler
	adminHandler    *handler.AdminHandler
	settingsHandler *handler.SettingsHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config         *config.Config
	Manager        *service.Manager
	RankingService *service.RankingService
	// Profiles stores profile preferences; nil disables the settings commands.
	Profiles       handler.ProfileSettings
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:             teleBot,
		cfg:             deps.Config,
		manager:         deps.Manager,
		private:         NewPrivateUsers(),
		questHandler:    handler.NewQuestHandler(deps.Manager, deps.RankingService),
		contentHandler:  handler.NewContentHandler(deps.Manager),
		socialHandler:   handler.NewSocialHandler(deps.Manager),
		adminHandler:    handler.NewAdminHandler(deps.Manager),
		settingsHandler: handler.NewSettingsHandler(deps.Profiles),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(ActivityMiddleware(b.manager))
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// Quests
	b.bot.Handle("/start", b.questHandler.HandleStart)
	b.bot.Handle("/checkin", b.questHandler.HandleCheckin)
	b.bot.Handle("/quests", b.questHandler.HandleQuests)
	b.bot.Handle("/claim", b.questHandler.HandleClaim)
	b.bot.Handle("/daily", b.questHandler.HandleDaily)
	b.bot.Handle("/points", b.questHandler.HandlePoints)
	b.bot.Handle("/top", b.questHandler.HandleTop)

	// Content
	b.bot.Handle("/post", b.contentHandler.HandlePost)
	b.bot.Handle("/quiz", b.contentHandler.HandleQuiz)
	b.bot.Handle("/feed", b.contentHandler.HandleFeed)
	b.bot.Handle("/show", b.contentHandler.HandleShow)
	b.bot.Handle("/like", b.contentHandler.HandleLike)
	b.bot.Handle("/unlike", b.contentHandler.HandleUnlike)
	b.bot.Handle("/comment", b.contentHandler.HandleComment)
	b.bot.Handle("/edit", b.contentHandler.HandleEditComment)
	b.bot.Handle("/delete", b.contentHandler.HandleDeleteComment)
	b.bot.Handle("/pin", b.contentHandler.HandlePin)
	b.bot.Handle("/unpin", b.contentHandler.HandleUnpin)
	b.bot.Handle("/report", b.contentHandler.HandleReport)
	b.bot.Handle("/donate", b.contentHandler.HandleDonate)
	b.bot.Handle("/answer", b.contentHandler.HandleAnswer)

	// Social
	b.bot.Handle("/follow", b.socialHandler.HandleFollow)
	b.bot.Handle("/unfollow", b.socialHandler.HandleUnfollow)
	b.bot.Handle("/block", b.socialHandler.HandleBlock)
	b.bot.Handle("/unblock", b.socialHandler.HandleUnblock)

	// Settings
	b.bot.Handle("/mute", b.settingsHandler.HandleMute)
	b.bot.Handle("/unmute", b.settingsHandler.HandleUnmute)
	b.bot.Handle("/bio", b.settingsHandler.HandleBio)
	b.bot.Handle("/language", b.settingsHandler.HandleLanguage)
	b.bot.Handle("/avatar", b.settingsHandler.HandleAvatar)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/adjust", b.adminHandler.HandleAdjust)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

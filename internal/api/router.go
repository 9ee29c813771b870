// Package api serves a read-only HTTP view of the quest engine.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/repository"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/social"
)

// TransactionReader reads a user's FOCUS ledger.
type TransactionReader interface {
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
	SumByTypes(ctx context.Context, userID int64, types []string) (int64, error)
}

// FollowReader reads the persisted follow graph.
type FollowReader interface {
	CountFollowers(ctx context.Context, userID int64) (int, error)
	AreMutual(ctx context.Context, a, b int64) (bool, error)
}

// MentionReader reads the mentions of a user.
type MentionReader interface {
	GetForUser(ctx context.Context, userID int64, limit int) ([]*model.Mention, error)
}

// ProfileReader reads backend profiles.
type ProfileReader interface {
	GetByID(ctx context.Context, userID int64) (*model.Profile, error)
	GetTopReceivers(ctx context.Context, limit int) ([]*model.Profile, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker func(ctx context.Context) error

// Dependencies holds what the API reads from. Optional readers may be nil;
// their routes then answer 503.
type Dependencies struct {
	Manager      *service.Manager
	Ranking      *service.RankingService
	Transactions TransactionReader
	Mentions     MentionReader
	Profiles     ProfileReader
	Follows      FollowReader
	Limiter      *RateLimiter
	AllowOrigins []string
	Checks       map[string]HealthChecker
	QueueLen     func() int
}

// Handler serves the API routes.
type Handler struct {
	deps Dependencies
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	h := &Handler{deps: deps}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.DefaultConfig()
	if len(deps.AllowOrigins) == 0 || (len(deps.AllowOrigins) == 1 && deps.AllowOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	if deps.Limiter != nil {
		v1.Use(deps.Limiter.Limit("api"))
	}
	{
		v1.GET("/leaderboard", h.Leaderboard)
		v1.GET("/leaderboard/received", h.TopReceivers)
		v1.GET("/feed", h.Feed)
		v1.GET("/posts/:id", h.Post)

		users := v1.Group("/users/:id")
		users.GET("/profile", h.Profile)
		users.GET("/quests", h.Quests)
		users.GET("/points", h.Points)
		users.GET("/transactions", h.Transactions)
		users.GET("/mentions", h.Mentions)
		users.GET("/earnings", h.Earnings)
		users.GET("/followers", h.Followers)
	}
	return r
}

// requestLogger logs each request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func limit(c *gin.Context, def, maxLimit int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxLimit)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for name, check := range h.deps.Checks {
		ctx, cancel := context.WithTimeout(c, 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{
		"status":   "ok",
		"sessions": h.deps.Manager.Sessions(),
		"checks":   checks,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.deps.QueueLen != nil {
		body["pending_effects"] = h.deps.QueueLen()
	}
	c.JSON(status, body)
}

// Quests handles GET /api/v1/users/:id/quests.
func (h *Handler) Quests(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	ledger, err := h.deps.Manager.Quests(id)
	if errors.Is(err, service.ErrUnknownUser) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    id,
		"daily":      ledger.Daily,
		"weekly":     ledger.Weekly,
		"monthly":    ledger.Monthly,
		"follower":   ledger.Follower,
		"unique":     ledger.Unique,
		"last_login": ledger.LastLogin,
		"claimable":  ledger.Claimable(),
	})
}

// Points handles GET /api/v1/users/:id/points.
func (h *Handler) Points(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	acc := h.deps.Manager.Account(id)
	acc.UserID = id
	c.JSON(http.StatusOK, acc)
}

// Leaderboard handles GET /api/v1/leaderboard?limit=N.
func (h *Handler) Leaderboard(c *gin.Context) {
	entries := h.deps.Ranking.Top(c, limit(c, 10, 100))
	type row struct {
		model.LeaderboardEntry
		Username string `json:"username"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{LeaderboardEntry: e, Username: h.deps.Manager.Username(e.UserID)})
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}

// Feed handles GET /api/v1/feed?limit=N.
func (h *Handler) Feed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"posts": h.deps.Manager.Feed(limit(c, 20, 100))})
}

// Post handles GET /api/v1/posts/:id. Unique id prefixes are accepted.
func (h *Handler) Post(c *gin.Context) {
	postID, err := h.deps.Manager.ResolvePost(c.Param("id"))
	if err == nil {
		var post model.Post
		if post, err = h.deps.Manager.Post(postID); err == nil {
			c.JSON(http.StatusOK, post)
			return
		}
	}
	switch {
	case errors.Is(err, social.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, social.ErrAmbiguousRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Transactions handles GET /api/v1/users/:id/transactions.
func (h *Handler) Transactions(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if h.deps.Transactions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}
	txs, err := h.deps.Transactions.GetByUserID(c, id, limit(c, 20, 100))
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to read transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// Mentions handles GET /api/v1/users/:id/mentions.
func (h *Handler) Mentions(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if h.deps.Mentions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mentions unavailable"})
		return
	}
	mentions, err := h.deps.Mentions.GetForUser(c, id, limit(c, 20, 100))
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to read mentions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read mentions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentions": mentions})
}

// Profile handles GET /api/v1/users/:id/profile.
func (h *Handler) Profile(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if h.deps.Profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profiles unavailable"})
		return
	}
	profile, err := h.deps.Profiles.GetByID(c, id)
	if errors.Is(err, repository.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to read profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// TopReceivers handles GET /api/v1/leaderboard/received, ranking profiles
// by lifetime FOCUS received from donations.
func (h *Handler) TopReceivers(c *gin.Context) {
	if h.deps.Profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profiles unavailable"})
		return
	}
	profiles, err := h.deps.Profiles.GetTopReceivers(c, limit(c, 10, 100))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read top receivers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read top receivers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// Earnings handles GET /api/v1/users/:id/earnings: the FOCUS a user was paid
// by quest claims according to the ledger.
func (h *Handler) Earnings(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if h.deps.Transactions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}
	sum, err := h.deps.Transactions.SumByTypes(c, id, model.QuestTransactionTypes())
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to sum quest earnings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id, "quest_earnings": sum})
}

// Followers handles GET /api/v1/users/:id/followers?with=ID. The mutual flag
// is only reported when with is given.
func (h *Handler) Followers(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if h.deps.Follows == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "follows unavailable"})
		return
	}
	count, err := h.deps.Follows.CountFollowers(c, id)
	if err != nil {
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to count followers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read follows"})
		return
	}
	resp := gin.H{"user_id": id, "followers": count}
	if with := c.Query("with"); with != "" {
		other, err := strconv.ParseInt(with, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid with"})
			return
		}
		mutual, err := h.deps.Follows.AreMutual(c, id, other)
		if err != nil {
			log.Error().Err(err).Int64("user_id", id).Msg("Failed to check mutual follow")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read follows"})
			return
		}
		resp["mutual"] = mutual
	}
	c.JSON(http.StatusOK, resp)
}

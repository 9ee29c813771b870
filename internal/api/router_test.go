package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/repository"
	"focus-quest-bot/internal/service"
	"focus-quest-bot/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTransactions struct {
	txs []*model.Transaction
	err error
}

func (s stubTransactions) GetByUserID(_ context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	return s.txs, s.err
}

func (s stubTransactions) SumByTypes(_ context.Context, userID int64, types []string) (int64, error) {
	var sum int64
	for _, tx := range s.txs {
		if tx.UserID == userID && slices.Contains(types, tx.Type) {
			sum += tx.Amount
		}
	}
	return sum, s.err
}

type stubFollows map[int64][]int64

func (s stubFollows) CountFollowers(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, following := range s {
		if slices.Contains(following, userID) {
			n++
		}
	}
	return n, nil
}

func (s stubFollows) AreMutual(_ context.Context, a, b int64) (bool, error) {
	return slices.Contains(s[a], b) && slices.Contains(s[b], a), nil
}

type stubProfiles struct {
	profiles map[int64]*model.Profile
}

func (s stubProfiles) GetByID(_ context.Context, userID int64) (*model.Profile, error) {
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return nil, repository.ErrProfileNotFound
}

func (s stubProfiles) GetTopReceivers(context.Context, int) ([]*model.Profile, error) {
	out := make([]*model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	clock := time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC)
	m := service.NewManager(session.NewWorld(3), session.Options{Clock: func() time.Time { return clock }}, nil)

	alice := model.User{ID: 1, Username: "alice"}
	_, err := m.Do(alice, (*session.Store).CheckDailyLogin)
	require.NoError(t, err)
	_, err = m.Do(alice, func(s *session.Store) (session.Result, error) {
		return s.CompleteDailyQuest("daily-checkin")
	})
	require.NoError(t, err)
	_, err = m.Do(alice, func(s *session.Store) (session.Result, error) {
		return s.CreatePost(model.PostPhoto, "sunset", nil)
	})
	require.NoError(t, err)

	return Dependencies{
		Manager:  m,
		Ranking:  service.NewRankingService(m, nil),
		QueueLen: func() int { return 3 },
	}
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	deps := newTestDeps(t)
	w, body := get(t, NewRouter(deps), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["sessions"])
	assert.EqualValues(t, 3, body["pending_effects"])

	deps.Checks = map[string]HealthChecker{"postgres": func(context.Context) error { return errors.New("down") }}
	w, body = get(t, NewRouter(deps), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestUserRoutes(t *testing.T) {
	r := NewRouter(newTestDeps(t))

	tests := []struct {
		name string
		path string
		code int
	}{
		{"quests", "/api/v1/users/1/quests", http.StatusOK},
		{"quests unknown user", "/api/v1/users/99/quests", http.StatusNotFound},
		{"quests bad id", "/api/v1/users/abc/quests", http.StatusBadRequest},
		{"points", "/api/v1/users/1/points", http.StatusOK},
		{"transactions without ledger", "/api/v1/users/1/transactions", http.StatusServiceUnavailable},
		{"mentions without store", "/api/v1/users/1/mentions", http.StatusServiceUnavailable},
		{"post not found", "/api/v1/posts/zzzz", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := get(t, r, tt.path)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestQuestsAndPointsBody(t *testing.T) {
	r := NewRouter(newTestDeps(t))

	_, body := get(t, r, "/api/v1/users/1/quests")
	daily := body["daily"].([]any)
	require.NotEmpty(t, daily)
	checkin := daily[0].(map[string]any)
	assert.Equal(t, "daily-checkin", checkin["id"])
	assert.Equal(t, true, checkin["claimed"])
	assert.EqualValues(t, 1, body["claimable"])

	_, body = get(t, r, "/api/v1/users/1/points")
	assert.EqualValues(t, 1, body["user_id"])
	assert.EqualValues(t, 1, body["available_points"])
	assert.EqualValues(t, 1, body["total_points"])
}

func TestLeaderboardAndFeed(t *testing.T) {
	r := NewRouter(newTestDeps(t))

	_, body := get(t, r, "/api/v1/leaderboard?limit=5")
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	first := entries[0].(map[string]any)
	assert.Equal(t, "alice", first["username"])
	assert.EqualValues(t, 1, first["score"])

	_, body = get(t, r, "/api/v1/feed")
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	post := posts[0].(map[string]any)
	assert.Equal(t, "sunset", post["caption"])

	w, body := get(t, r, "/api/v1/posts/"+post["id"].(string)[:8])
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, post["id"], body["id"])
}

func TestTransactions(t *testing.T) {
	deps := newTestDeps(t)
	desc := "Daily check-in"
	deps.Transactions = stubTransactions{txs: []*model.Transaction{{ID: 1, UserID: 1, Amount: 1, Type: model.TxTypeDailyQuest, Description: &desc}}}

	w, body := get(t, NewRouter(deps), "/api/v1/users/1/transactions")
	assert.Equal(t, http.StatusOK, w.Code)
	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxTypeDailyQuest, txs[0].(map[string]any)["type"])

	deps.Transactions = stubTransactions{err: errors.New("db down")}
	w, _ = get(t, NewRouter(deps), "/api/v1/users/1/transactions")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProfiles(t *testing.T) {
	deps := newTestDeps(t)
	w, _ := get(t, NewRouter(deps), "/api/v1/users/1/profile")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	deps.Profiles = stubProfiles{profiles: map[int64]*model.Profile{
		1: {UserID: 1, Username: "alice", TotalFocusReceived: 4},
	}}
	r := NewRouter(deps)

	w, body := get(t, r, "/api/v1/users/1/profile")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", body["username"])
	assert.EqualValues(t, 4, body["total_focus_received"])

	w, _ = get(t, r, "/api/v1/users/2/profile")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = get(t, r, "/api/v1/leaderboard/received")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["profiles"], 1)
}

func TestRateLimiter(t *testing.T) {
	if exec.Command("docker", "info").Run() != nil {
		t.Skip("Docker is not available, skipping integration test")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()

	deps := newTestDeps(t)
	deps.Limiter = NewRateLimiter(client, 2, time.Minute)
	r := NewRouter(deps)

	for i := 0; i < 2; i++ {
		w, _ := get(t, r, "/api/v1/feed")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := get(t, r, "/api/v1/feed")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w, _ = get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	// A counter that lost its expiry gets a fresh window on the next hit.
	key := "rate_limit:api:192.0.2.1"
	require.NoError(t, client.Persist(ctx, key).Err())
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	require.Less(t, ttl, time.Duration(0))

	w, _ = get(t, r, "/api/v1/feed")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	ttl, err = client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestEarningsAndFollowers(t *testing.T) {
	deps := newTestDeps(t)
	r := NewRouter(deps)
	w, _ := get(t, r, "/api/v1/users/1/earnings")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w, _ = get(t, r, "/api/v1/users/1/followers")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	deps.Transactions = stubTransactions{txs: []*model.Transaction{
		{ID: 1, UserID: 1, Amount: 1, Type: model.TxTypeDailyQuest},
		{ID: 2, UserID: 1, Amount: 5, Type: model.TxTypeUniqueQuest},
		{ID: 3, UserID: 1, Amount: 2, Type: model.TxTypeDonationReceived},
	}}
	deps.Follows = stubFollows{1: {2}, 2: {1}, 3: {1}}
	r = NewRouter(deps)

	w, body := get(t, r, "/api/v1/users/1/earnings")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, body["quest_earnings"])

	w, body = get(t, r, "/api/v1/users/1/followers?with=2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["followers"])
	assert.Equal(t, true, body["mutual"])

	w, body = get(t, r, "/api/v1/users/1/followers")
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := body["mutual"]
	assert.False(t, ok)

	w, _ = get(t, r, "/api/v1/users/1/followers?with=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

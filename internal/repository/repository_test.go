package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"focus-quest-bot/internal/effect"
	"focus-quest-bot/internal/model"
	"focus-quest-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupTestDB starts a PostgreSQL container, migrates it and returns a pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

// setupTestRedis starts a Redis container and returns a client.
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	if !checkDockerAvailable() {
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

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

// ============================================================================
// ProfileRepository Tests
// ============================================================================

func TestProfileRepository_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProfileRepository(pool)
	ctx := context.Background()

	p, err := repo.Upsert(ctx, 12345, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, model.DefaultLanguage, p.Language)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = repo.Upsert(ctx, 12345, "alice2")
	require.NoError(t, err)

	p, err = repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileRepository_Setters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProfileRepository(pool)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, 7, "nina")
	require.NoError(t, err)
	require.NoError(t, repo.SetBio(ctx, 7, "climber"))
	require.NoError(t, repo.SetLanguage(ctx, 7, "en-US"))
	require.NoError(t, repo.SetAvatarURL(ctx, 7, "https://cdn.example.com/nina.png"))

	p, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "climber", p.Bio)
	assert.Equal(t, "en-US", p.Language)
	assert.Equal(t, "https://cdn.example.com/nina.png", p.AvatarURL)
	assert.Equal(t, "nina", p.Username)

	assert.ErrorIs(t, repo.SetBio(ctx, 8, "ghost"), ErrProfileNotFound)
	assert.ErrorIs(t, repo.SetLanguage(ctx, 8, "en-US"), ErrProfileNotFound)
	assert.ErrorIs(t, repo.SetAvatarURL(ctx, 8, "https://x"), ErrProfileNotFound)
}

func TestProfileRepository_Counters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProfileRepository(pool)
	ctx := context.Background()

	// Counters create the profile on first write.
	require.NoError(t, repo.IncrementFocusDonated(ctx, 1, 2))
	require.NoError(t, repo.IncrementFocusDonated(ctx, 1, 2))
	require.NoError(t, repo.IncrementFocusReceived(ctx, 2, 2))
	require.NoError(t, repo.IncrementFocusReceived(ctx, 3, 6))

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.FocusDonated)
	assert.Zero(t, p.TotalFocusReceived)

	top, err := repo.GetTopReceivers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(3), top[0].UserID)
	assert.Equal(t, int64(2), top[1].UserID)

	require.NoError(t, repo.SetNotificationsMuted(ctx, 1, true))
	assert.ErrorIs(t, repo.SetNotificationsMuted(ctx, 42, true), ErrProfileNotFound)
}

// ============================================================================
// FollowRepository Tests
// ============================================================================

func TestFollowRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFollowRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, 1, 2))
	require.NoError(t, repo.Insert(ctx, 1, 2), "duplicate insert is ignored")
	require.NoError(t, repo.Insert(ctx, 3, 2))

	n, err := repo.CountFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mutual, err := repo.AreMutual(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)

	require.NoError(t, repo.Insert(ctx, 2, 1))
	mutual, err = repo.AreMutual(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, mutual)

	require.NoError(t, repo.Delete(ctx, 1, 2))
	require.NoError(t, repo.Delete(ctx, 1, 2))
	n, err = repo.CountFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, repo.Insert(ctx, 5, 5), "self follow violates the check constraint")
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	tx, err := repo.Create(ctx, 12345, 5, model.TxTypeWeeklyQuest, "weekly-quiz")
	require.NoError(t, err)
	assert.Equal(t, int64(5), tx.Amount)
	require.NotNil(t, tx.Description)
	assert.Equal(t, "weekly-quiz", *tx.Description)

	tx, err = repo.Create(ctx, 12345, -2, model.TxTypeDonationSent, "")
	require.NoError(t, err)
	assert.Nil(t, tx.Description)

	_, err = repo.Create(ctx, 12345, 10, model.TxTypeUniqueQuest, "first-donation")
	require.NoError(t, err)

	txs, err := repo.GetByUserID(ctx, 12345, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, int64(10), txs[0].Amount)

	sum, err := repo.SumByTypes(ctx, 12345, model.QuestTransactionTypes())
	require.NoError(t, err)
	assert.Equal(t, int64(15), sum)
}

// ============================================================================
// MentionRepository Tests
// ============================================================================

func TestMentionRepository_IgnoresDuplicates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMentionRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.CreateMany(ctx, 1, []int64{2, 3}, "post-a", "comment-a"))
	require.NoError(t, repo.CreateMany(ctx, 1, []int64{2}, "post-a", "comment-a"))
	require.NoError(t, repo.CreateMany(ctx, 1, []int64{2}, "post-b", ""))
	require.NoError(t, repo.CreateMany(ctx, 1, nil, "post-c", ""))

	mentions, err := repo.GetForUser(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, mentions, 2)
}

// ============================================================================
// Leaderboard Tests
// ============================================================================

func TestLeaderboard(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lb := NewLeaderboard(client, "")
	ctx := context.Background()

	require.NoError(t, lb.Add(ctx, 1, 5))
	require.NoError(t, lb.Add(ctx, 2, 9))
	require.NoError(t, lb.Add(ctx, 1, 6))

	score, err := lb.Score(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), score)

	score, err = lb.Score(ctx, 77)
	require.NoError(t, err)
	assert.Zero(t, score)

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.LeaderboardEntry{{UserID: 1, Score: 11}, {UserID: 2, Score: 9}}, top)
}

// ============================================================================
// EffectSink Tests
// ============================================================================

func TestEffectSink_AppliesDonation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	sink := &EffectSink{
		Profiles:     NewProfileRepository(pool),
		Follows:      NewFollowRepository(pool),
		Transactions: NewTransactionRepository(pool),
		Mentions:     NewMentionRepository(pool),
	}
	ctx := context.Background()

	effects := []effect.Effect{
		effect.UpsertProfile(1, "alice"),
		effect.IncrementFocusDonated(1, 2),
		effect.IncrementFocusReceived(2, 2),
		effect.RecordTransaction(1, -2, model.TxTypeDonationSent, "post x"),
		effect.RecordTransaction(2, 2, model.TxTypeDonationReceived, "post x"),
		effect.AdjustLeaderboard(2, 2),
		effect.InsertFollow(1, 2),
		effect.CreateMentions(1, []int64{2}, "x", ""),
	}
	for _, e := range effects {
		require.NoError(t, sink.Apply(ctx, e), e.String())
	}

	donor, err := sink.Profiles.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), donor.FocusDonated)
	assert.Equal(t, "alice", donor.Username)

	recipient, err := sink.Profiles.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), recipient.TotalFocusReceived)

	n, err := sink.Follows.CountFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEffectSink_UnknownKindIsPermanent(t *testing.T) {
	sink := &EffectSink{}
	err := sink.Apply(context.Background(), effect.Effect{Kind: "bogus"})
	assert.ErrorIs(t, err, effect.ErrUnknownKind)

	assert.NoError(t, sink.Apply(context.Background(), effect.InsertFollow(1, 2)), "missing adapters discard effects")
}

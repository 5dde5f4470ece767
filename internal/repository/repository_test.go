// Package repository tests use testcontainers-go to run PostgreSQL and Redis.
package repository

import (
	"context"
	"fmt"
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

	"queuebot/internal/model"
	"queuebot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a migrated pool.
// Skips the test if Docker is not available
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

// setupTestRedis starts a Redis container and returns a client for it.
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

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}

	return client, cleanup
}

// ============================================================================
// AuditRepository Tests
// ============================================================================

func TestAuditRepository_RecordAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAuditRepository(pool)
	ctx := context.Background()

	ok := &model.ActionAudit{QueueID: 42, Action: model.ActionRetry, OperatorID: 7, Outcome: model.OutcomeSuccess}
	require.NoError(t, repo.Record(ctx, ok))
	assert.NotZero(t, ok.ID)
	assert.False(t, ok.CreatedAt.IsZero())

	msg := "403: not allowed"
	failed := &model.ActionAudit{QueueID: 42, Action: model.ActionCancel, OperatorID: 7, Outcome: model.OutcomeFailed, Error: &msg}
	require.NoError(t, repo.Record(ctx, failed))

	other := &model.ActionAudit{QueueID: 43, Action: model.ActionComplete, Outcome: model.OutcomeRejected}
	require.NoError(t, repo.Record(ctx, other))

	entries, err := repo.ListByQueue(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, failed.ID, entries[0].ID)
	assert.Equal(t, model.ActionCancel, entries[0].Action)
	assert.Equal(t, model.OutcomeFailed, entries[0].Outcome)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, msg, *entries[0].Error)

	assert.Equal(t, ok.ID, entries[1].ID)
	assert.Nil(t, entries[1].Error)
}

func TestAuditRepository_ListLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAuditRepository(pool)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, &model.ActionAudit{QueueID: 1, Action: model.ActionRetry, Outcome: model.OutcomeRejected}))
	}

	entries, err := repo.ListByQueue(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = repo.ListByQueue(ctx, 999, 3)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNopAudit(t *testing.T) {
	assert.NoError(t, NopAudit{}.Record(context.Background(), &model.ActionAudit{}))
}

// ============================================================================
// ViewStateStore Tests
// ============================================================================

func testViewStateStore(t *testing.T, store ViewStateStore) {
	ctx := context.Background()

	_, err := store.Load(ctx, 100)
	assert.ErrorIs(t, err, ErrViewStateNotFound)

	state := model.ViewState{Filter: model.FilterHistory, Page: 3, Search: "alice", Status: model.StatusFailed}
	require.NoError(t, store.Save(ctx, 100, state))

	got, err := store.Load(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = store.Load(ctx, 101)
	assert.ErrorIs(t, err, ErrViewStateNotFound)
}

func TestMemoryViewStateStore(t *testing.T) {
	testViewStateStore(t, NewMemoryViewStateStore())
}

func TestRedisViewStateStore(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	testViewStateStore(t, NewRedisViewStateStore(client, time.Hour))

	ttl, err := client.TTL(context.Background(), "queuebot:view:100").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jobswipe/engine/internal/store"
	"github.com/jobswipe/engine/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("engine_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func terminalRequest(userID uuid.UUID, status models.RequestStatus) *models.AutomationRequest {
	now := time.Now().UTC().Truncate(time.Microsecond)
	started := now.Add(-30 * time.Second)
	queued := now.Add(-time.Minute)
	return &models.AutomationRequest{
		ID:     uuid.New(),
		UserID: userID,
		Job: models.JobReference{
			Title:   "Backend Engineer",
			Company: "Acme",
			URL:     "https://boards.greenhouse.io/acme/jobs/1",
		},
		Profile: models.ProfileSnapshot{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		Options:       models.ExecutionOptions{AccountTier: models.TierPro},
		Priority:      30,
		Status:        status,
		ExecutionMode: models.ModeServer,
		QueuedAt:      queued,
		StartedAt:     &started,
		CompletedAt:   &now,
		Result: &models.ExecutionResult{
			Success:      status == models.StatusCompleted,
			Confirmation: "GH-777",
			DurationMs:   30000,
			Platform:     "greenhouse",
		},
	}
}

func TestArchiveRequest_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	req := terminalRequest(uuid.New(), models.StatusCompleted)
	require.NoError(t, s.ArchiveRequest(ctx, req))

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)

	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.UserID, got.UserID)
	assert.Equal(t, req.Job, got.Job)
	assert.Equal(t, req.Profile, got.Profile)
	assert.Equal(t, req.Options, got.Options)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 30, got.Priority)
	require.NotNil(t, got.Result)
	assert.Equal(t, "GH-777", got.Result.Confirmation)
}

func TestArchiveRequest_UpsertIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	req := terminalRequest(uuid.New(), models.StatusFailed)
	require.NoError(t, s.ArchiveRequest(ctx, req))

	// Replay with an updated result; the row is replaced, not duplicated.
	req.Result.Error = "retried and still failing"
	require.NoError(t, s.ArchiveRequest(ctx, req))

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "retried and still failing", got.Result.Error)

	_, total, err := s.ListRequests(ctx, store.RequestFilter{UserID: req.UserID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGetRequest_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetRequest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRequests_FiltersAndPages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.ArchiveRequest(ctx, terminalRequest(owner, models.StatusCompleted)))
	}
	require.NoError(t, s.ArchiveRequest(ctx, terminalRequest(owner, models.StatusFailed)))
	require.NoError(t, s.ArchiveRequest(ctx, terminalRequest(other, models.StatusCompleted)))

	t.Run("by user", func(t *testing.T) {
		rows, total, err := s.ListRequests(ctx, store.RequestFilter{UserID: owner})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Len(t, rows, 4)
	})

	t.Run("by status", func(t *testing.T) {
		rows, total, err := s.ListRequests(ctx, store.RequestFilter{
			UserID: owner, Status: models.StatusFailed,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, rows, 1)
		assert.Equal(t, models.StatusFailed, rows[0].Status)
	})

	t.Run("paged", func(t *testing.T) {
		rows, total, err := s.ListRequests(ctx, store.RequestFilter{
			UserID: owner, Page: 2, Limit: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Len(t, rows, 1)
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		_, total, err := s.ListRequests(ctx, store.RequestFilter{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
	})
}

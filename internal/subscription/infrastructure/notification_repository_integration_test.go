package infrastructure

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duely/duely/internal/subscription/domain"
)

// startPostgres spins up a disposable Postgres and applies the migrations.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("duely_test"),
		postgres.WithUsername("duely"),
		postgres.WithPassword("duely"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("could not terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../../../db/migrations"))

	return db
}

func insertTestUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	userID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO users (id, email, login, password_hash, hash_token, is_active)
		VALUES ($1, $2, $3, 'x', 'x', TRUE)
	`, userID, userID+"@example.com", userID[:8])
	require.NoError(t, err)
	return userID
}

func TestNotificationRepository_DuplicateInsertIsNoOp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := startPostgres(t)
	repo := NewNotificationRepository(db)
	userID := insertTestUser(t, db)
	entityID := uuid.NewString()

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      domain.NotificationTypeRenewal,
		EntityID:  entityID,
		PeriodKey: "2026-09-08",
		Title:     "Upcoming renewal: Netflix",
		Body:      "9.99 USD due on 2026-09-08",
	}

	created, err := repo.Create(notification)
	require.NoError(t, err)
	assert.True(t, created)

	duplicate := *notification
	duplicate.ID = uuid.NewString()
	created, err = repo.Create(&duplicate)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.Exists(userID, domain.NotificationTypeRenewal, entityID, "2026-09-08")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.CountUnread(userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// same entity, different period key is a fresh notification
	nextPeriod := *notification
	nextPeriod.ID = uuid.NewString()
	nextPeriod.PeriodKey = "2026-10-08"
	created, err = repo.Create(&nextPeriod)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestNotificationRepository_MarkReadScopedToUser(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := startPostgres(t)
	repo := NewNotificationRepository(db)
	owner := insertTestUser(t, db)
	other := insertTestUser(t, db)

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    owner,
		Type:      domain.NotificationTypeBudget,
		EntityID:  uuid.NewString(),
		PeriodKey: "2026-09",
		Title:     "Budget alert: Media",
	}
	created, err := repo.Create(notification)
	require.NoError(t, err)
	require.True(t, created)

	err = repo.MarkRead(notification.ID, other)
	assert.Error(t, err)

	require.NoError(t, repo.MarkRead(notification.ID, owner))

	notifications, err := repo.FindByUser(owner, false, 20, 1)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.True(t, notifications[0].Read)

	count, err := repo.CountUnread(owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

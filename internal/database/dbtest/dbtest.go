// Package dbtest starts a throwaway Postgres container for repository tests.
//
// Packages using it call New from their tests and Shutdown from TestMain.
package dbtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
)

var (
	once      sync.Once
	container *postgres.PostgresContainer
	db        database.Service
	startErr  error
)

func start() {
	ctx := context.Background()

	container, startErr = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("social_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if startErr != nil {
		return
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		startErr = err
		return
	}

	db, startErr = database.Open(ctx, dsn, logger.Discard())
	if startErr != nil {
		return
	}
	startErr = db.Migrate(ctx)
}

// New returns a migrated database with every table emptied. The test is
// skipped when running with -short or when Docker is unavailable.
func New(t *testing.T) database.Service {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(start)
	if startErr != nil {
		t.Fatalf("could not start postgres container: %v", startErr)
	}

	_, err := db.Exec(context.Background(), `
		TRUNCATE users, profiles, one_time_codes, locations, categories,
			user_categories, posts, post_locations, post_categories,
			likes, comments, stories, story_images, languages
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("could not reset database: %v", err)
	}

	return db
}

// CreateUser inserts an active user with a unique email and returns its id.
func CreateUser(t *testing.T, db database.Service) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash, is_active) VALUES ($1, $2, 'x', TRUE)`,
		id, id.String()+"@example.com")
	if err != nil {
		t.Fatalf("could not create user: %v", err)
	}
	return id
}

// Shutdown terminates the container if one was started.
func Shutdown() {
	if db != nil {
		_ = db.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}

package database_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

func TestHealth(t *testing.T) {
	db := dbtest.New(t)

	stats := db.Health()
	assert.Equal(t, "up", stats["status"])
	assert.Equal(t, "It's healthy", stats["message"])
}

func TestMigrate_Idempotent(t *testing.T) {
	db := dbtest.New(t)

	require.NoError(t, db.Migrate(context.Background()))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx database.Querier) error {
		if _, err := tx.Exec(ctx, `INSERT INTO categories (name) VALUES ('rolled-back')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count))
	assert.Zero(t, count)
}

func TestWithTx_Commit(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx database.Querier) error {
		_, err := tx.Exec(ctx, `INSERT INTO categories (name) VALUES ('kept')`)
		return err
	})
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow(ctx, `SELECT name FROM categories`).Scan(&name))
	assert.Equal(t, "kept", name)
}

func TestIsUniqueViolation(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO categories (name) VALUES ('dup')`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO categories (name) VALUES ('dup')`)
	require.Error(t, err)

	assert.True(t, database.IsUniqueViolation(err, ""))
	assert.True(t, database.IsUniqueViolation(err, "categories_name_key"))
	assert.False(t, database.IsUniqueViolation(err, "users_email_key"))
	assert.False(t, database.IsUniqueViolation(errors.New("plain"), ""))
}

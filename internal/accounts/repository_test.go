package accounts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/accounts"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache/cachetest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Shutdown()
	cachetest.Shutdown()
	os.Exit(code)
}

func newUser(email string) *accounts.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &accounts.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ada",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepository_CreateWithProfile(t *testing.T) {
	db := dbtest.New(t)
	repo := accounts.NewRepository(db)
	ctx := context.Background()

	dob := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)
	u := newUser("ada@example.com")
	require.NoError(t, repo.Create(ctx, u, accounts.ProfileInfo{Gender: "F", DateOfBirth: &dob, PhoneNumber: "555"}))

	got, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.IsActive)

	var gender, phone string
	require.NoError(t, db.QueryRow(ctx, `SELECT gender, phone_number FROM profiles WHERE user_id = $1`, u.ID).Scan(&gender, &phone))
	assert.Equal(t, "F", gender)
	assert.Equal(t, "555", phone)

	err = repo.Create(ctx, newUser("ada@example.com"), accounts.ProfileInfo{})
	assert.ErrorIs(t, err, accounts.ErrEmailExists)

	var profiles int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&profiles))
	assert.Equal(t, 1, profiles)
}

func TestRepository_Mutations(t *testing.T) {
	db := dbtest.New(t)
	repo := accounts.NewRepository(db)
	ctx := context.Background()

	u := newUser("a@example.com")
	require.NoError(t, repo.Create(ctx, u, accounts.ProfileInfo{}))
	require.NoError(t, repo.Create(ctx, newUser("b@example.com"), accounts.ProfileInfo{}))

	require.NoError(t, repo.Activate(ctx, u.ID))
	require.NoError(t, repo.SetPassword(ctx, u.ID, "new-hash"))

	last := "Lovelace"
	got, err := repo.UpdateNames(ctx, u.ID, accounts.NameUpdate{LastName: &last})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)

	_, err = repo.UpdateEmail(ctx, u.ID, "b@example.com")
	assert.ErrorIs(t, err, accounts.ErrEmailExists)
	got, err = repo.UpdateEmail(ctx, u.ID, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", got.Email)

	assert.ErrorIs(t, repo.Activate(ctx, uuid.New()), accounts.ErrUserNotFound)
	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)
}

func TestPendingEmails(t *testing.T) {
	pending := accounts.NewPendingEmails(cachetest.New(t))
	ctx := context.Background()
	id := uuid.New()

	_, err := pending.Get(ctx, id)
	assert.ErrorIs(t, err, accounts.ErrNoPendingEmail)

	codeID := uuid.New()
	require.NoError(t, pending.Put(ctx, id, accounts.PendingEmail{Email: "new@example.com", CodeID: codeID}, time.Minute))
	got, err := pending.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, codeID, got.CodeID)

	require.NoError(t, pending.Delete(ctx, id))
	_, err = pending.Get(ctx, id)
	assert.ErrorIs(t, err, accounts.ErrNoPendingEmail)
}

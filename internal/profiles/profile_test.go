package profiles_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/profiles"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

type signer struct{}

func (signer) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", nil
}
func (signer) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.example.com/" + key, nil
}
func (signer) DeleteFile(context.Context, string) error { return nil }
func (signer) EnsureBucketExists(context.Context) error { return nil }
func (signer) Health(context.Context) error             { return nil }

func setup(t *testing.T) (database.Service, *profiles.Service, locations.Service, uuid.UUID) {
	t.Helper()
	db := dbtest.New(t)
	owner := dbtest.CreateUser(t, db)
	_, err := db.Exec(context.Background(), `INSERT INTO profiles (user_id) VALUES ($1)`, owner)
	require.NoError(t, err)

	log := logger.Discard()
	locs := locations.NewService(locations.NewPostgresStore(db), nil, config.LocationConfig{MaxPerOwner: 4}, log)
	svc := profiles.NewService(profiles.NewRepository(db), locs, signer{}, log)
	return db, svc, locs, owner
}

func TestGet_IncludesLocations(t *testing.T) {
	_, svc, locs, owner := setup(t)
	ctx := context.Background()

	p, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, p.Locations)
	assert.Nil(t, p.DateOfBirth)

	_, err = locs.Create(ctx, owner, locations.Fields{Country: "India", State: "Kerala", District: "Ernakulam", PostalCode: "682 001"}, false)
	require.NoError(t, err)

	p, err = svc.Get(ctx, owner)
	require.NoError(t, err)
	require.Len(t, p.Locations, 1)
	assert.True(t, p.Locations[0].IsDefault)
	assert.Equal(t, "682001", p.Locations[0].PostalCode)
}

func TestUpdate(t *testing.T) {
	_, svc, _, owner := setup(t)
	ctx := context.Background()

	gender := "F"
	first := "Grace"
	dob := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)
	key := "profiles/" + owner.String() + "/abc-me.png"

	p, err := svc.Update(ctx, owner, profiles.Update{FirstName: &first, Gender: &gender, DateOfBirth: &dob, ImageKey: &key})
	require.NoError(t, err)
	assert.Equal(t, "Grace", p.FirstName)
	assert.Equal(t, "F", p.Gender)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, "1990-12-10", *p.DateOfBirth)
	assert.Equal(t, "https://media.example.com/"+key, p.ImageURL)

	phone := "5550100"
	p, err = svc.Update(ctx, owner, profiles.Update{PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "F", p.Gender)
	assert.Equal(t, "5550100", p.PhoneNumber)
}

func TestUpdate_Validation(t *testing.T) {
	_, svc, _, owner := setup(t)
	ctx := context.Background()

	bad := "X"
	_, err := svc.Update(ctx, owner, profiles.Update{Gender: &bad})
	assert.ErrorIs(t, err, profiles.ErrValidation)

	foreign := "profiles/" + uuid.NewString() + "/abc-me.png"
	_, err = svc.Update(ctx, owner, profiles.Update{ImageKey: &foreign})
	assert.ErrorIs(t, err, profiles.ErrValidation)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, profiles.ErrNotFound)
}

package stories_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database/dbtest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/stories"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Shutdown()
	os.Exit(code)
}

func TestStoryLifecycle(t *testing.T) {
	db := dbtest.New(t)
	svc := stories.NewService(db, nil, logger.Discard())
	ctx := context.Background()

	owner := dbtest.CreateUser(t, db)
	other := dbtest.CreateUser(t, db)
	prefix := "stories/" + owner.String() + "/"

	_, err := svc.Create(ctx, owner, nil)
	assert.ErrorIs(t, err, stories.ErrValidation)

	_, err = svc.Create(ctx, owner, []string{"stories/" + other.String() + "/1-x.png"})
	assert.ErrorIs(t, err, stories.ErrValidation)

	story, err := svc.Create(ctx, owner, []string{prefix + "1-a.png", prefix + "2-b.png"})
	require.NoError(t, err)
	assert.False(t, story.IsExpired)
	require.Len(t, story.Images, 2)
	assert.Equal(t, prefix+"1-a.png", story.Images[0].ImageKey)
	assert.Equal(t, prefix+"2-b.png", story.Images[1].ImageKey)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, story.ID, active[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, other, story.ID), stories.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, story.ID))

	_, err = svc.Get(ctx, story.ID)
	assert.ErrorIs(t, err, stories.ErrNotFound)
}

func TestCreate_LeavesCallerKeysUntouched(t *testing.T) {
	db := dbtest.New(t)
	svc := stories.NewService(db, nil, logger.Discard())
	owner := dbtest.CreateUser(t, db)
	prefix := "stories/" + owner.String() + "/"

	keys := []string{"  " + prefix + "1-a.png ", prefix + "2-b.png\t"}
	before := append([]string(nil), keys...)

	story, err := svc.Create(context.Background(), owner, keys)
	require.NoError(t, err)
	assert.Equal(t, before, keys)
	require.Len(t, story.Images, 2)
	assert.Equal(t, prefix+"1-a.png", story.Images[0].ImageKey)
	assert.Equal(t, prefix+"2-b.png", story.Images[1].ImageKey)
}

func TestListActive_HidesExpiredStories(t *testing.T) {
	db := dbtest.New(t)
	svc := stories.NewService(db, nil, logger.Discard())
	ctx := context.Background()
	owner := dbtest.CreateUser(t, db)

	story, err := svc.Create(ctx, owner, []string{"stories/" + owner.String() + "/1-old.png"})
	require.NoError(t, err)

	_, err = db.Exec(ctx, `UPDATE stories SET created_at = $2 WHERE id = $1`, story.ID, time.Now().Add(-25*time.Hour))
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	old, err := svc.Get(ctx, story.ID)
	require.NoError(t, err)
	assert.True(t, old.IsExpired)
	assert.Len(t, old.Images, 1)
}

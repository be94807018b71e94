package otp_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache/cachetest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/otp"
)

func TestLimiter_Cooldown(t *testing.T) {
	rdb := cachetest.New(t)
	l := otp.NewLimiter(rdb, time.Hour, 5, time.Minute)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, l.Allow(ctx, owner, otp.PurposeResetPassword))

	err := l.Allow(ctx, owner, otp.PurposeResetPassword)
	assert.ErrorIs(t, err, otp.ErrTooManyRequests)

	// Purposes are throttled independently.
	assert.NoError(t, l.Allow(ctx, owner, otp.PurposeAccountVerification))
}

func TestLimiter_BlocksAfterMaxInWindow(t *testing.T) {
	rdb := cachetest.New(t)
	l := otp.NewLimiter(rdb, time.Hour, 2, 0)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, l.Allow(ctx, owner, otp.PurposeAccountVerification))
	require.NoError(t, l.Allow(ctx, owner, otp.PurposeAccountVerification))

	err := l.Allow(ctx, owner, otp.PurposeAccountVerification)
	require.ErrorIs(t, err, otp.ErrTooManyRequests)

	ttl, err := rdb.TTL(ctx, "otp:block:"+owner.String()+":"+string(otp.PurposeAccountVerification)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 2*time.Hour)

	require.NoError(t, l.Reset(ctx, owner, otp.PurposeAccountVerification))
	assert.NoError(t, l.Allow(ctx, owner, otp.PurposeAccountVerification))
}

func TestLimiter_RedisDownIsAnError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	l := otp.NewLimiter(rdb, time.Hour, 5, time.Minute)

	err := l.Allow(context.Background(), uuid.New(), otp.PurposeResetPassword)
	require.Error(t, err)
	assert.NotErrorIs(t, err, otp.ErrTooManyRequests)
}

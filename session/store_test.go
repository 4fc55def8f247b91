package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "gac", "default", ttl), mr, rdb
}

func testRecord() *Record {
	return &Record{
		AccessToken:     "access-1",
		RefreshToken:    "refresh-1",
		UserID:          "u-1",
		OrgID:           "org-1",
		Role:            "manager",
		Email:           "manager@example.com",
		Name:            "Pat Manager",
		AccessExpiresAt: time.Now().Add(time.Minute).Unix(),
		UpdatedAt:       time.Now().Unix(),
	}
}

func TestRedisStoreSaveLoadClear(t *testing.T) {
	store, _, _ := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	rec := testRecord()
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rec.AccessToken, got.AccessToken)
	require.Equal(t, rec.RefreshToken, got.RefreshToken)
	require.Equal(t, rec.Email, got.Email)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear must be idempotent")
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord()))
	ttl, err := store.TTL(ctx)
	require.NoError(t, err)
	require.Greater(t, ttl, 29*time.Minute)

	mr.FastForward(31 * time.Minute)
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeepsLongMultibyteProfile(t *testing.T) {
	store, _, _ := newRedisStoreTest(t, time.Hour)
	ctx := context.Background()

	rec := testRecord()
	rec.Name = strings.Repeat("名", 90)
	rec.Email = strings.Repeat("m", 300) + "@example.com"
	require.Greater(t, len(rec.Name), 255)

	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rec.Name, got.Name)
	require.Equal(t, rec.Email, got.Email)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _ := newRedisStoreTest(t, time.Hour)
	mr.Close()

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrRedisUnavailable)
	require.ErrorIs(t, store.Save(context.Background(), testRecord()), ErrRedisUnavailable)
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	rec := testRecord()
	require.NoError(t, store.Save(ctx, rec))
	rec.AccessToken = "mutated"

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-1", got.AccessToken)

	got.RefreshToken = "mutated"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", again.RefreshToken)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWithTokensKeepsProfile(t *testing.T) {
	rec := testRecord()
	exp := time.Now().Add(10 * time.Minute)

	next := rec.WithTokens("access-2", "refresh-2", exp)
	require.Equal(t, "access-2", next.AccessToken)
	require.Equal(t, "refresh-2", next.RefreshToken)
	require.Equal(t, rec.UserID, next.UserID)
	require.Equal(t, rec.Email, next.Email)
	require.Equal(t, exp.Unix(), next.AccessExpiresAt)
	require.Equal(t, "access-1", rec.AccessToken, "receiver must not be mutated")

	var nilRec *Record
	fresh := nilRec.WithTokens("a", "r", time.Time{})
	require.Equal(t, "a", fresh.AccessToken)
	require.Zero(t, fresh.AccessExpiresAt)
}

package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateAndGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now()

	rec := Record{SessionID: "s1", UserID: "u1", Roles: []string{"operator"}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.HasRole("operator"))
}

func TestMemoryGetMissingReturnsNotFound(t *testing.T) {
	store := NewMemory()
	_, err := store.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMemoryTouchUpdatesLastAccessed(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Record{SessionID: "s1", UserID: "u1"}))

	at := time.Now().Add(time.Minute)
	require.NoError(t, store.Touch(ctx, "s1", at))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.LastAccessedAt.Equal(at))
}

func TestMemoryDeleteRemovesFromUserIndex(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Record{SessionID: "s1", UserID: "u1"}))
	require.NoError(t, store.Create(ctx, Record{SessionID: "s2", UserID: "u1"}))

	require.NoError(t, store.Delete(ctx, "s1"))

	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].SessionID)
}

func TestMemoryExpired(t *testing.T) {
	rec := Record{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, rec.Expired(time.Now()))

	rec.ExpiresAt = time.Now().Add(time.Minute)
	assert.False(t, rec.Expired(time.Now()))
}

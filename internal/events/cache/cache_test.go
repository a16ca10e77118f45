package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/models"
)

func TestCategoryCacheRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewCategoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := []models.EventCategory{{ID: 2, Name: "Concert"}, {ID: 1, Name: "Theatre"}}
	require.NoError(t, c.Set(ctx, want))

	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCategoryCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewCategoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, []models.EventCategory{{ID: 1, Name: "Sport"}}))
	require.NoError(t, c.Invalidate(ctx))

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCategoryCacheCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewCategoryCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	require.NoError(t, mr.Set(categoriesKey, "not json"))

	_, err := c.Get(context.Background())
	assert.Error(t, err)
}

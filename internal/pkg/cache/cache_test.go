package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestSetGetDelete(t *testing.T) {
	mr := setupMiniredis(t)

	require.NoError(t, Set("dashboard:1", "cached", time.Minute))
	val, err := Get("dashboard:1")
	require.NoError(t, err)
	assert.Equal(t, "cached", val)

	mr.FastForward(2 * time.Minute)
	_, err = Get("dashboard:1")
	assert.True(t, IsMiss(err))

	require.NoError(t, Set("counter", 42, 0))
	n, err := GetInt("counter")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	require.NoError(t, Delete("counter"))
	_, err = GetInt("counter")
	assert.True(t, IsMiss(err))
}

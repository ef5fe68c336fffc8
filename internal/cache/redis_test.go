package cache

import (
	"context"
	"testing"

	"teamsemu/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestInitRedis_Empty(t *testing.T) {
	client, err := InitRedis(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := InitRedis(context.Background(), addr)
	assert.Error(t, err)
}

func TestMetricsHook_CountsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := InitRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr"))
	mr.SetError("boom")
	_ = client.Incr(context.Background(), "counter").Err()
	mr.SetError("")

	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr")))
}

func TestOptions(t *testing.T) {
	opts, err := Options("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	_, err = Options("redis://%zz")
	assert.Error(t, err)
}

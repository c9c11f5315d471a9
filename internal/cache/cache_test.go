package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/constants"
	"github.com/aman-zulfiqar/hive-engine-lp-bot/internal/models"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func settledReport(id string) *models.RunReport {
	r := models.NewRunReport(id, "alice", "SWAP.HIVE:PIZZA", false)
	r.Price = decimal.RequireFromString("0.05")
	r.AmountIn = decimal.RequireFromString("50")
	r.Received = decimal.RequireFromString("4.7")
	r.SwapTxID = "swaptx"
	r.Transition(models.StatePriceChecked)
	r.Transition(models.StateSwapping)
	r.Transition(models.StateSwapped)
	r.Transition(models.StateDepositing)
	r.DepositTxID = "deptx"
	r.DepositBase = decimal.RequireFromString("4.7")
	r.DepositQuote = decimal.RequireFromString("85.454")
	r.Transition(models.StateDepositSucceeded)
	return r
}

func TestRunChannels(t *testing.T) {
	r := models.NewRunReport("run_1", "alice", "SWAP.HIVE:PIZZA", false)
	r.Transition(models.StateNoAction)

	assert.Equal(t, []string{
		"lpbot:runs",
		"lpbot:runs:pair:SWAP.HIVE:PIZZA",
		"lpbot:runs:state:no_action",
	}, RunChannels(r))
}

func TestRedisCache_RecordAndRecentRuns(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCacheFromClient(client, quietLogger())
	ctx := context.Background()

	require.NoError(t, rc.Record(ctx, settledReport("run_1")))
	require.NoError(t, rc.Record(ctx, settledReport("run_2")))

	runs, err := rc.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run_2", runs[0].RunID)
	assert.Equal(t, "run_1", runs[1].RunID)
	assert.Equal(t, models.StateDepositSucceeded, runs[0].State)
	assert.True(t, runs[0].Received.Equal(decimal.RequireFromString("4.7")))

	runs, err = rc.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRedisCache_TrimsHistory(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCacheFromClient(client, quietLogger())
	ctx := context.Background()

	for i := 0; i < constants.MaxRecentRuns+5; i++ {
		require.NoError(t, rc.Record(ctx, models.NewRunReport("run", "alice", "SWAP.HIVE:PIZZA", true)))
	}

	n, err := client.LLen(ctx, constants.RedisKeyRecentRuns).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(constants.MaxRecentRuns), n)
}

func TestRedisCache_SkipsUndecodableEntries(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCacheFromClient(client, quietLogger())
	ctx := context.Background()

	require.NoError(t, rc.Record(ctx, settledReport("run_1")))
	require.NoError(t, client.LPush(ctx, constants.RedisKeyRecentRuns, "not json").Err())

	runs, err := rc.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run_1", runs[0].RunID)
}

func TestRedisCache_SubscribeRuns(t *testing.T) {
	client := setupTestRedis(t)
	rc := NewRedisCacheFromClient(client, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := rc.SubscribeRuns(ctx)
	require.NoError(t, err)

	require.NoError(t, rc.Record(ctx, settledReport("run_live")))

	select {
	case got := <-ch:
		require.NotNil(t, got)
		assert.Equal(t, "run_live", got.RunID)
	case <-ctx.Done():
		t.Fatal("no report received")
	}

	cancel()
	for range ch {
	}
}

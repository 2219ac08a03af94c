package server

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"goredis/internal/common"
	"goredis/internal/pubsub"
	"goredis/internal/store"
)

// startTestServer boots a Server on an OS-assigned loopback port and
// returns a go-redis client already pointed at it, grounded on the
// teacher's cmd/main.go wiring (AppState + Keyspace + Hub + Server).
func startTestServer(t *testing.T) *redis.Client {
	t.Helper()

	cfg := common.Defaults()
	cfg.Databases = 4
	app := common.NewAppState(cfg, common.NewLogger("error"))
	ks := store.NewKeyspace(cfg.Databases)
	hub := pubsub.NewHub()

	srv := New(app, ks, hub, nil)
	ln, err := srv.Listen("127.0.0.1:0")
	require.NoError(t, err)

	go srv.Run()
	t.Cleanup(func() { srv.Close() })

	client := redis.NewClient(&redis.Options{Addr: ln.Addr().String()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestE2EStringCommands(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	require.NoError(t, c.Set(ctx, "greeting", "hello", 0).Err())
	val, err := c.Get(ctx, "greeting").Result()
	require.NoError(t, err)
	require.Equal(t, "hello", val)

	n, err := c.Incr(ctx, "counter").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = c.Get(ctx, "missing").Result()
	require.ErrorIs(t, err, redis.Nil)
}

func TestE2EListAndHashCommands(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	require.NoError(t, c.RPush(ctx, "mylist", "a", "b", "c").Err())
	elems, err := c.LRange(ctx, "mylist", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, elems)

	require.NoError(t, c.HSet(ctx, "myhash", "field1", "v1").Err())
	hval, err := c.HGet(ctx, "myhash", "field1").Result()
	require.NoError(t, err)
	require.Equal(t, "v1", hval)
}

func TestE2ESortedSetCommands(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	require.NoError(t, c.ZAdd(ctx, "leaderboard",
		redis.Z{Score: 1, Member: "alice"},
		redis.Z{Score: 2, Member: "bob"},
	).Err())

	members, err := c.ZRange(ctx, "leaderboard", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, members)
}

func TestE2EMultiExecTransaction(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	pipe := c.TxPipeline()
	pipe.Set(ctx, "tx-key", "v1", 0)
	pipe.Incr(ctx, "tx-counter")
	_, err := pipe.Exec(ctx)
	require.NoError(t, err)

	val, err := c.Get(ctx, "tx-key").Result()
	require.NoError(t, err)
	require.Equal(t, "v1", val)
}

func TestE2EExpireAndTTL(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	require.NoError(t, c.Set(ctx, "ephemeral", "v", 0).Err())
	require.NoError(t, c.Expire(ctx, "ephemeral", 1000).Err())

	ttl, err := c.TTL(ctx, "ephemeral").Result()
	require.NoError(t, err)
	require.Greater(t, ttl.Seconds(), 0.0)
}

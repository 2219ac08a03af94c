package dispatch

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"goredis/internal/common"
	"goredis/internal/pubsub"
	"goredis/internal/store"
)

// newTestCtx builds a Ctx wired against a fresh in-memory keyspace and
// a real (but locally looped-back) connection, so Client's RESP writer
// has somewhere to write without a live server.
func newTestCtx(t *testing.T, args ...string) *Ctx {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	cfg := common.Defaults()
	app := common.NewAppState(cfg, common.NewLogger("error"))
	ks := store.NewKeyspace(cfg.Databases)
	hub := pubsub.NewHub()

	return &Ctx{
		App:      app,
		KS:       ks,
		Hub:      hub,
		Client:   common.NewClient(client),
		Registry: NewRegistry(),
		Args:     args,
	}
}

func runCmd(t *testing.T, name string, args ...string) *common.Value {
	t.Helper()
	ctx := newTestCtx(t, args...)
	disp := &Dispatcher{Registry: ctx.Registry}
	ctx.Req = &common.Value{Arr: append([]common.Value{common.NewBulk(name)}, bulkArgs(args)...)}
	ctx.Name = name
	return disp.Run(ctx)
}

func bulkArgs(args []string) []common.Value {
	out := make([]common.Value, len(args))
	for i, a := range args {
		out[i] = common.NewBulk(a)
	}
	return out
}

func TestStringSetGetRoundTrip(t *testing.T) {
	ctx := newTestCtx(t)
	disp := &Dispatcher{Registry: ctx.Registry}

	reply := sendInTx(disp, ctx, "SET", "k", "v")
	require.Equal(t, common.STRING, reply.Typ)
	require.Equal(t, "OK", reply.Str)

	reply = sendInTx(disp, ctx, "GET", "k")
	require.Equal(t, "v", reply.Blk)
}

func TestGetMissingKeyIsNil(t *testing.T) {
	reply := runCmd(t, "GET", "missing")
	require.Equal(t, common.NULL, reply.Typ)
}

func TestIncrOnFreshKey(t *testing.T) {
	reply := runCmd(t, "INCR", "counter")
	require.EqualValues(t, 1, reply.Num)
}

func TestUnknownCommand(t *testing.T) {
	reply := runCmd(t, "NOTACOMMAND")
	require.Equal(t, common.ERROR, reply.Typ)
}

func TestWrongArityIsRejected(t *testing.T) {
	reply := runCmd(t, "GET")
	require.Equal(t, common.ERROR, reply.Typ)
}

func TestCommandCountReflectsRegistrySize(t *testing.T) {
	ctx := newTestCtx(t, "COUNT")
	reply := cmdCommand(ctx)
	require.Equal(t, common.INTEGER, reply.Typ)
	require.Equal(t, int64(ctx.Registry.Count()), reply.Num)
}

// sendInTx runs one request through the same Ctx/Dispatcher pair so
// MULTI/EXEC state (InTx, TxQueue, TxFailed) carries across calls like
// it does across requests on one real connection.
func sendInTx(disp *Dispatcher, ctx *Ctx, name string, args ...string) *common.Value {
	req := &common.Value{Arr: append([]common.Value{common.NewBulk(name)}, bulkArgs(args)...)}
	ctx.Req = req
	return disp.Run(ctx)
}

func TestMultiQueueingUnknownCommandAbortsExec(t *testing.T) {
	ctx := newTestCtx(t)
	disp := &Dispatcher{Registry: ctx.Registry}

	require.Equal(t, "OK", sendInTx(disp, ctx, "MULTI").Str)
	require.Equal(t, "QUEUED", sendInTx(disp, ctx, "SET", "k", "v").Str)
	require.Equal(t, common.ERROR, sendInTx(disp, ctx, "NOTACOMMAND").Typ)
	require.True(t, ctx.Client.TxFailed)

	reply := sendInTx(disp, ctx, "EXEC")
	require.Equal(t, common.ERROR, reply.Typ)
	require.Contains(t, reply.Err, "EXECABORT")

	// the queued SET must not have applied.
	_, ok := ctx.KS.DB(0).Get("k")
	require.False(t, ok)
}

func TestMultiQueueingWrongArityAbortsExec(t *testing.T) {
	ctx := newTestCtx(t)
	disp := &Dispatcher{Registry: ctx.Registry}

	require.Equal(t, "OK", sendInTx(disp, ctx, "MULTI").Str)
	require.Equal(t, "QUEUED", sendInTx(disp, ctx, "SET", "k", "v").Str)
	require.Equal(t, common.ERROR, sendInTx(disp, ctx, "GET").Typ) // wrong arity
	require.True(t, ctx.Client.TxFailed)

	reply := sendInTx(disp, ctx, "EXEC")
	require.Equal(t, common.ERROR, reply.Typ)
	require.Contains(t, reply.Err, "EXECABORT")
}

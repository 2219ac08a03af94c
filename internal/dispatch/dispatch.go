/*
file: goredis/internal/dispatch/dispatch.go

Run is the single entry point the connection handler calls for every
parsed request: command lookup, arity/auth/mode validation, MULTI
queueing, then either the handler call or (for EXEC) the queued replay
with WATCH invalidation. Mirrors the teacher's dispatchCommand switch
in handlers.go, generalized into a table-driven lookup per spec.md
§4.1.
*/
package dispatch

import (
	"strings"

	"goredis/internal/common"
)

type Dispatcher struct {
	Registry *Registry
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{Registry: NewRegistry()}
}

// Run executes ctx.Req (already populated onto ctx.Client by the
// caller) and returns the reply to send, or nil if the handler
// already pushed its own reply frames (pub/sub subscribe acks) and
// nothing further should be written. Panics with ShutdownSignal or
// QuitSignal propagate to the caller so the server can shut down or
// close the connection; any other panic is converted to a generic
// error reply.
func (disp *Dispatcher) Run(ctx *Ctx) (out *common.Value) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case ShutdownSignal, QuitSignal:
				panic(r)
			default:
				out = common.NewError("internal error")
			}
		}
	}()

	if ctx.Req == nil || len(ctx.Req.Arr) == 0 {
		return nil
	}
	name := strings.ToUpper(ctx.Req.Arr[0].Blk)
	ctx.Name = name
	ctx.Args = ctx.Req.BulkStrings()[1:]

	cmd, ok := disp.Registry.Lookup(name)
	if !ok {
		if ctx.Client.InTx {
			ctx.Client.TxFailed = true
		}
		return common.ErrUnknownCommand(name)
	}

	if !ctx.Client.Authenticated && ctx.App.Config.Requirepass != "" && cmd.Flags&FlagNoAuth == 0 {
		return common.ErrNoAuth()
	}

	if ctx.Client.Subscribed() && cmd.Flags&FlagPubSub == 0 {
		return common.NewError("Can't execute '%s': only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context", strings.ToLower(name))
	}

	if !arityOK(cmd, len(ctx.Args)) {
		if ctx.Client.InTx {
			ctx.Client.TxFailed = true
		}
		return common.ErrWrongArgs(strings.ToLower(name))
	}

	if ctx.Client.InTx && name != "EXEC" && name != "DISCARD" && name != "MULTI" && name != "WATCH" {
		ctx.Client.TxQueue = append(ctx.Client.TxQueue, common.QueuedCommand{Name: name, Args: *ctx.Req})
		return common.NewStringP("QUEUED")
	}

	if name == "EXEC" {
		return disp.execTransaction(ctx)
	}

	ctx.App.Stats.IncrCommands()
	ctx.App.FeedMonitors(ctx.Client, ctx.Req)
	return cmd.Handler(ctx)
}

func arityOK(cmd Command, n int) bool {
	if n < cmd.MinArgs {
		return false
	}
	if cmd.MaxArgs >= 0 && n > cmd.MaxArgs {
		return false
	}
	return true
}

// execTransaction replays the client's queued commands, each inside
// its own command's normal critical section (not one lock for the
// whole transaction, since queued commands may span databases via
// SELECT), failing the whole transaction with a null array if any
// watched key changed since WATCH (spec.md §4.6).
func (disp *Dispatcher) execTransaction(ctx *Ctx) *common.Value {
	c := ctx.Client
	if !c.InTx {
		return common.ErrNoTx()
	}
	defer func() {
		c.InTx = false
		c.TxFailed = false
		c.TxQueue = nil
		c.Watched = make(map[string]common.WatchMark)
	}()

	for key, mark := range c.Watched {
		d := ctx.KS.DB(mark.DBIndex)
		d.RLock()
		cur := d.TouchVersion(key)
		d.RUnlock()
		if cur != mark.Version {
			return common.NilArrayP()
		}
	}

	if c.TxFailed {
		return common.NewError("EXECABORT Transaction discarded because of previous errors.")
	}

	results := make([]common.Value, 0, len(c.TxQueue))
	for _, qc := range c.TxQueue {
		req := qc.Args
		sub := *ctx
		sub.Req = &req
		sub.Name = qc.Name
		sub.Args = req.BulkStrings()[1:]
		cmdEntry, ok := disp.Registry.Lookup(qc.Name)
		if !ok || cmdEntry.Handler == nil {
			results = append(results, common.NewErrorVal("ERR unknown command"))
			continue
		}
		ctx.App.Stats.IncrCommands()
		r := cmdEntry.Handler(&sub)
		if r == nil {
			r = common.NilP()
		}
		results = append(results, *r)
	}
	return common.NewArrayP(results)
}

/*
file: goredis/internal/dispatch/tx_cmds.go

MULTI/EXEC/DISCARD/WATCH/UNWATCH transaction commands, grounded on the
teacher's handler_transaction.go but rewritten around per-Database
generation counters for WATCH invalidation (spec.md §4.6's "touch"
optimistic-lock model) instead of the teacher's whole-keyspace
version counter.
*/
package dispatch

import (
	"goredis/internal/common"
)

func registerTxCommands(r *Registry) {
	r.add(Command{Name: "MULTI", MinArgs: 0, MaxArgs: 0, Flags: FlagNoAuth, Handler: cmdMulti})
	r.add(Command{Name: "EXEC", MinArgs: 0, MaxArgs: 0, Flags: FlagNoAuth, Handler: nil})
	r.add(Command{Name: "DISCARD", MinArgs: 0, MaxArgs: 0, Flags: FlagNoAuth, Handler: cmdDiscard})
	r.add(Command{Name: "WATCH", MinArgs: 1, MaxArgs: -1, Flags: FlagNoAuth, Handler: cmdWatch})
	r.add(Command{Name: "UNWATCH", MinArgs: 0, MaxArgs: 0, Flags: FlagNoAuth, Handler: cmdUnwatch})
}

func cmdMulti(ctx *Ctx) *common.Value {
	if ctx.Client.InTx {
		return common.NewError("MULTI calls can not be nested")
	}
	ctx.Client.InTx = true
	ctx.Client.TxFailed = false
	ctx.Client.TxQueue = nil
	return common.NewStringP("OK")
}

func cmdDiscard(ctx *Ctx) *common.Value {
	if !ctx.Client.InTx {
		return common.NewError("DISCARD without MULTI")
	}
	ctx.Client.InTx = false
	ctx.Client.TxFailed = false
	ctx.Client.TxQueue = nil
	ctx.Client.Watched = make(map[string]common.WatchMark)
	return common.NewStringP("OK")
}

func cmdWatch(ctx *Ctx) *common.Value {
	if ctx.Client.InTx {
		return common.NewError("WATCH inside MULTI is not allowed")
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	for _, k := range ctx.Args {
		ctx.Client.Watched[k] = common.WatchMark{DBIndex: ctx.Client.DBIndex, Version: d.TouchVersion(k)}
	}
	return common.NewStringP("OK")
}

func cmdUnwatch(ctx *Ctx) *common.Value {
	ctx.Client.Watched = make(map[string]common.WatchMark)
	return common.NewStringP("OK")
}

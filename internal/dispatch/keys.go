/*
file: goredis/internal/dispatch/keys.go

Generic key-space commands (DEL/EXISTS/EXPIRE/TTL/TYPE/KEYS/RENAME/
SCAN/SELECT/FLUSHDB/...), grounded on the teacher's handler_generic.go
but rewritten against store.Database/store.Keyspace.
*/
package dispatch

import (
	"path"
	"strconv"
	"strings"

	"goredis/internal/common"
	"goredis/internal/store"
)

func registerKeyCommands(r *Registry) {
	r.add(Command{Name: "DEL", MinArgs: 1, MaxArgs: -1, Flags: FlagWrite, Handler: cmdDel})
	r.add(Command{Name: "UNLINK", MinArgs: 1, MaxArgs: -1, Flags: FlagWrite, Handler: cmdDel})
	r.add(Command{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Handler: cmdExists})
	r.add(Command{Name: "TYPE", MinArgs: 1, MaxArgs: 1, Handler: cmdType})
	r.add(Command{Name: "EXPIRE", MinArgs: 2, MaxArgs: 3, Flags: FlagWrite, Handler: cmdExpire})
	r.add(Command{Name: "PEXPIRE", MinArgs: 2, MaxArgs: 3, Flags: FlagWrite, Handler: cmdPExpire})
	r.add(Command{Name: "EXPIREAT", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdExpireAt})
	r.add(Command{Name: "PEXPIREAT", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdPExpireAt})
	r.add(Command{Name: "TTL", MinArgs: 1, MaxArgs: 1, Handler: cmdTTL})
	r.add(Command{Name: "PTTL", MinArgs: 1, MaxArgs: 1, Handler: cmdPTTL})
	r.add(Command{Name: "PERSIST", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Handler: cmdPersist})
	r.add(Command{Name: "KEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdKeys})
	r.add(Command{Name: "RENAME", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdRename})
	r.add(Command{Name: "RENAMENX", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdRenameNX})
	r.add(Command{Name: "RANDOMKEY", MinArgs: 0, MaxArgs: 0, Handler: cmdRandomKey})
	r.add(Command{Name: "SCAN", MinArgs: 1, MaxArgs: -1, Handler: cmdScan})
	r.add(Command{Name: "DBSIZE", MinArgs: 0, MaxArgs: 0, Handler: cmdDBSize})
	r.add(Command{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 1, Flags: FlagWrite | FlagAdmin, Handler: cmdFlushDB})
	r.add(Command{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 1, Flags: FlagWrite | FlagAdmin, Handler: cmdFlushAll})
	r.add(Command{Name: "SELECT", MinArgs: 1, MaxArgs: 1, Flags: FlagNoAuth, Handler: cmdSelect})
	r.add(Command{Name: "COPY", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdCopy})
}

func cmdDel(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	var n int64
	for _, k := range ctx.Args {
		if d.Delete(k) {
			n++
		}
	}
	return common.NewIntP(n)
}

func cmdExists(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	var n int64
	for _, k := range ctx.Args {
		if d.ExistsLocked(k) {
			n++
		}
	}
	return common.NewIntP(n)
}

func cmdType(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	e, ok := d.GetLocked(ctx.Args[0])
	if !ok {
		return common.NewStringP("none")
	}
	return common.NewStringP(e.Kind.String())
}

func expireHelper(ctx *Ctx, deltaMS int64) *common.Value {
	var nx, xx, gt, lt bool
	for _, opt := range ctx.Args[2:] {
		switch strings.ToUpper(opt) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			return common.ErrSyntax()
		}
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	e, ok := d.GetLocked(ctx.Args[0])
	if !ok {
		return common.NewIntP(0)
	}
	hadTTL := e.ExpireAtMS != 0
	if nx && hadTTL {
		return common.NewIntP(0)
	}
	if xx && !hadTTL {
		return common.NewIntP(0)
	}
	newAt := store.NowMS() + deltaMS
	if gt && hadTTL && newAt <= e.ExpireAtMS {
		return common.NewIntP(0)
	}
	if lt && hadTTL && newAt >= e.ExpireAtMS {
		return common.NewIntP(0)
	}
	if newAt <= store.NowMS() {
		d.Delete(ctx.Args[0])
		return common.NewIntP(1)
	}
	d.SetExpiryLocked(ctx.Args[0], newAt)
	return common.NewIntP(1)
}

func cmdExpire(ctx *Ctx) *common.Value {
	sec, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return expireHelper(ctx, sec*1000)
}

func cmdPExpire(ctx *Ctx) *common.Value {
	ms, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return expireHelper(ctx, ms)
}

func expireAtHelper(ctx *Ctx, atMS int64) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	if !d.ExistsLocked(ctx.Args[0]) {
		return common.NewIntP(0)
	}
	if atMS <= store.NowMS() {
		d.Delete(ctx.Args[0])
		return common.NewIntP(1)
	}
	d.SetExpiryLocked(ctx.Args[0], atMS)
	return common.NewIntP(1)
}

func cmdExpireAt(ctx *Ctx) *common.Value {
	sec, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return expireAtHelper(ctx, sec*1000)
}

func cmdPExpireAt(ctx *Ctx) *common.Value {
	ms, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return expireAtHelper(ctx, ms)
}

func cmdTTL(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	e, ok := d.GetLocked(ctx.Args[0])
	if !ok {
		return common.NewIntP(-2)
	}
	if e.ExpireAtMS == 0 {
		return common.NewIntP(-1)
	}
	remaining := e.ExpireAtMS - store.NowMS()
	if remaining < 0 {
		remaining = 0
	}
	return common.NewIntP((remaining + 999) / 1000)
}

func cmdPTTL(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	e, ok := d.GetLocked(ctx.Args[0])
	if !ok {
		return common.NewIntP(-2)
	}
	if e.ExpireAtMS == 0 {
		return common.NewIntP(-1)
	}
	remaining := e.ExpireAtMS - store.NowMS()
	if remaining < 0 {
		remaining = 0
	}
	return common.NewIntP(remaining)
}

func cmdPersist(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	if d.ClearExpiryLocked(ctx.Args[0]) {
		return common.NewIntP(1)
	}
	return common.NewIntP(0)
}

func globMatcher(pattern string) func(string) bool {
	if pattern == "*" {
		return nil
	}
	return func(s string) bool {
		ok, err := path.Match(pattern, s)
		return err == nil && ok
	}
}

func cmdKeys(ctx *Ctx) *common.Value {
	d := ctx.DB()
	keys := d.KeysMatching(globMatcher(ctx.Args[0]))
	out := make([]common.Value, len(keys))
	for i, k := range keys {
		out[i] = common.NewBulk(k)
	}
	return common.NewArrayP(out)
}

func cmdRename(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	if !d.RenameLocked(ctx.Args[0], ctx.Args[1]) {
		return common.NewError("no such key")
	}
	return common.NewStringP("OK")
}

func cmdRenameNX(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	if !d.ExistsLocked(ctx.Args[0]) {
		return common.NewError("no such key")
	}
	if d.ExistsLocked(ctx.Args[1]) {
		return common.NewIntP(0)
	}
	d.RenameLocked(ctx.Args[0], ctx.Args[1])
	return common.NewIntP(1)
}

func cmdRandomKey(ctx *Ctx) *common.Value {
	d := ctx.DB()
	k, ok := d.RandomKey()
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(k)
}

func cmdScan(ctx *Ctx) *common.Value {
	cursor, err := strconv.ParseUint(ctx.Args[0], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	var match func(string) bool
	count := 10
	for i := 1; i < len(ctx.Args); i++ {
		switch strings.ToUpper(ctx.Args[i]) {
		case "MATCH":
			i++
			if i >= len(ctx.Args) {
				return common.ErrSyntax()
			}
			match = globMatcher(ctx.Args[i])
		case "COUNT":
			i++
			if i >= len(ctx.Args) {
				return common.ErrSyntax()
			}
			n, err := strconv.Atoi(ctx.Args[i])
			if err != nil {
				return common.ErrNotInt()
			}
			count = n
		default:
			return common.ErrSyntax()
		}
	}
	d := ctx.DB()
	next, keys := ctx.KS.Scanner().Scan(d, cursor, match, count)
	items := make([]common.Value, len(keys))
	for i, k := range keys {
		items[i] = common.NewBulk(k)
	}
	return common.NewArrayP([]common.Value{
		common.NewBulk(strconv.FormatUint(next, 10)),
		*common.NewArrayP(items),
	})
}

func cmdDBSize(ctx *Ctx) *common.Value {
	return common.NewIntP(ctx.DB().Size())
}

func cmdFlushDB(ctx *Ctx) *common.Value {
	ctx.DB().Flush()
	return common.NewStringP("OK")
}

func cmdFlushAll(ctx *Ctx) *common.Value {
	ctx.KS.FlushAll()
	return common.NewStringP("OK")
}

func cmdSelect(ctx *Ctx) *common.Value {
	idx, err := strconv.Atoi(ctx.Args[0])
	if err != nil {
		return common.ErrNotInt()
	}
	if idx < 0 || idx >= ctx.KS.Count() {
		return common.NewError("DB index is out of range")
	}
	ctx.Client.DBIndex = idx
	return common.NewStringP("OK")
}

func cmdCopy(ctx *Ctx) *common.Value {
	replace := false
	for _, opt := range ctx.Args[2:] {
		if strings.EqualFold(opt, "REPLACE") {
			replace = true
		}
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	e, ok := d.GetLocked(ctx.Args[0])
	if !ok {
		return common.NewIntP(0)
	}
	if !replace && d.ExistsLocked(ctx.Args[1]) {
		return common.NewIntP(0)
	}
	d.Put(ctx.Args[1], cloneEntry(e))
	return common.NewIntP(1)
}

func cloneEntry(e *store.Entry) *store.Entry {
	cp := *e
	switch e.Kind {
	case store.KindList:
		cp.List = store.CloneList(e.List)
	case store.KindSet:
		cp.Set = make(map[string]struct{}, len(e.Set))
		for m := range e.Set {
			cp.Set[m] = struct{}{}
		}
	case store.KindHash:
		cp.Hash = make(map[string]string, len(e.Hash))
		for f, v := range e.Hash {
			cp.Hash[f] = v
		}
	case store.KindZSet:
		cp.ZSet = store.CloneZSet(e.ZSet)
	}
	return &cp
}

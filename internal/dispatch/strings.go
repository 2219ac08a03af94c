/*
file: goredis/internal/dispatch/strings.go

String-value commands, grounded on the teacher's handler_string.go
(GET/SET/INCR family) but rewritten against store.Database's locked
primitives instead of the teacher's single global map.
*/
package dispatch

import (
	"strconv"
	"strings"

	"goredis/internal/common"
	"goredis/internal/store"
)

func registerStringCommands(r *Registry) {
	r.add(Command{Name: "GET", MinArgs: 1, MaxArgs: 1, Handler: cmdGet})
	r.add(Command{Name: "SET", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSet})
	r.add(Command{Name: "SETNX", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdSetNX})
	r.add(Command{Name: "GETSET", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdGetSet})
	r.add(Command{Name: "STRLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdStrlen})
	r.add(Command{Name: "APPEND", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdAppend})
	r.add(Command{Name: "INCR", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Handler: cmdIncr})
	r.add(Command{Name: "DECR", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Handler: cmdDecr})
	r.add(Command{Name: "INCRBY", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdIncrBy})
	r.add(Command{Name: "DECRBY", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdDecrBy})
	r.add(Command{Name: "INCRBYFLOAT", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdIncrByFloat})
	r.add(Command{Name: "MGET", MinArgs: 1, MaxArgs: -1, Handler: cmdMGet})
	r.add(Command{Name: "MSET", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdMSet})
	r.add(Command{Name: "MSETNX", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdMSetNX})
	r.add(Command{Name: "GETRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdGetRange})
	r.add(Command{Name: "SETRANGE", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdSetRange})
	r.add(Command{Name: "SETEX", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdSetEX})
	r.add(Command{Name: "PSETEX", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdPSetEX})
	r.add(Command{Name: "GETDEL", MinArgs: 1, MaxArgs: 1, Flags: FlagWrite, Handler: cmdGetDel})
	r.add(Command{Name: "GETEX", MinArgs: 1, MaxArgs: -1, Flags: FlagWrite, Handler: cmdGetEX})
}

func cmdSetEX(ctx *Ctx) *common.Value {
	return setExHelper(ctx, 1000)
}

func cmdPSetEX(ctx *Ctx) *common.Value {
	return setExHelper(ctx, 1)
}

func setExHelper(ctx *Ctx, unitMS int64) *common.Value {
	n, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil || n <= 0 {
		return common.NewError("invalid expire time")
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	e := store.NewStringEntry(ctx.Args[2])
	e.ExpireAtMS = store.NowMS() + n*unitMS
	d.Put(ctx.Args[0], e)
	return common.NewStringP("OK")
}

func cmdGetDel(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	d.Delete(ctx.Args[0])
	return common.NewBulkP(s)
}

// cmdGetEX implements GET plus an optional TTL mutation (EX/PX/EXAT/
// PXAT/PERSIST), mirroring SET's option parsing without the value
// replacement.
func cmdGetEX(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	for i := 1; i < len(ctx.Args); i++ {
		switch strings.ToUpper(ctx.Args[i]) {
		case "PERSIST":
			d.ClearExpiryLocked(ctx.Args[0])
		case "EX", "PX", "EXAT", "PXAT":
			opt := strings.ToUpper(ctx.Args[i])
			i++
			if i >= len(ctx.Args) {
				return common.ErrSyntax()
			}
			n, err := strconv.ParseInt(ctx.Args[i], 10, 64)
			if err != nil {
				return common.ErrNotInt()
			}
			now := store.NowMS()
			var atMS int64
			switch opt {
			case "EX":
				atMS = now + n*1000
			case "PX":
				atMS = now + n
			case "EXAT":
				atMS = n * 1000
			case "PXAT":
				atMS = n
			}
			d.SetExpiryLocked(ctx.Args[0], atMS)
		default:
			return common.ErrSyntax()
		}
	}
	return common.NewBulkP(s)
}

// stringAt fetches key's string payload; returns (val, true) for a
// live string entry, ("", false, wrongType=true) if key holds another
// kind, ("", false, false) if absent.
func stringAt(d *store.Database, key string) (string, bool, bool) {
	e, ok := d.GetLocked(key)
	if !ok {
		return "", false, false
	}
	if e.Kind != store.KindString {
		return "", false, true
	}
	return e.Str, true, false
}

func cmdGet(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(s)
}

func cmdSet(ctx *Ctx) *common.Value {
	key, val := ctx.Args[0], ctx.Args[1]
	var exMS int64
	var nx, xx, keepTTL, getOld bool
	for i := 2; i < len(ctx.Args); i++ {
		switch strings.ToUpper(ctx.Args[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "KEEPTTL":
			keepTTL = true
		case "GET":
			getOld = true
		case "EX", "PX", "EXAT", "PXAT":
			opt := strings.ToUpper(ctx.Args[i])
			i++
			if i >= len(ctx.Args) {
				return common.ErrSyntax()
			}
			n, err := strconv.ParseInt(ctx.Args[i], 10, 64)
			if err != nil {
				return common.ErrNotInt()
			}
			now := store.NowMS()
			switch opt {
			case "EX":
				exMS = now + n*1000
			case "PX":
				exMS = now + n
			case "EXAT":
				exMS = n * 1000
			case "PXAT":
				exMS = n
			}
		default:
			return common.ErrSyntax()
		}
	}

	d := ctx.DB()
	d.Lock()
	defer d.Unlock()

	existing, exists := d.GetLocked(key)
	var oldVal *common.Value
	if getOld {
		if exists && existing.Kind != store.KindString {
			return common.NewWrongType()
		}
		if exists {
			oldVal = common.NewBulkP(existing.Str)
		} else {
			oldVal = common.NilP()
		}
	}
	if nx && exists {
		if getOld {
			return oldVal
		}
		return common.NilP()
	}
	if xx && !exists {
		if getOld {
			return oldVal
		}
		return common.NilP()
	}

	e := store.NewStringEntry(val)
	if keepTTL && exists {
		e.ExpireAtMS = existing.ExpireAtMS
	} else if exMS != 0 {
		e.ExpireAtMS = exMS
	}
	d.Put(key, e)

	if getOld {
		return oldVal
	}
	return common.NewStringP("OK")
}

func cmdSetNX(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	if d.ExistsLocked(ctx.Args[0]) {
		return common.NewIntP(0)
	}
	d.Put(ctx.Args[0], store.NewStringEntry(ctx.Args[1]))
	return common.NewIntP(1)
}

func cmdGetSet(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	d.Put(ctx.Args[0], store.NewStringEntry(ctx.Args[1]))
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(s)
}

func cmdStrlen(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(len(s)))
}

func cmdAppend(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	newVal := s + ctx.Args[1]
	if !ok {
		d.Put(ctx.Args[0], store.NewStringEntry(ctx.Args[1]))
		return common.NewIntP(int64(len(ctx.Args[1])))
	}
	e, _ := d.GetLocked(ctx.Args[0])
	e.Str = newVal
	return common.NewIntP(int64(len(newVal)))
}

func incrByHelper(ctx *Ctx, delta int64) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	var cur int64
	if ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return common.ErrNotInt()
		}
		cur = n
	}
	cur += delta
	if ok {
		e, _ := d.GetLocked(ctx.Args[0])
		e.Str = strconv.FormatInt(cur, 10)
	} else {
		d.Put(ctx.Args[0], store.NewStringEntry(strconv.FormatInt(cur, 10)))
	}
	return common.NewIntP(cur)
}

func cmdIncr(ctx *Ctx) *common.Value { return incrByHelper(ctx, 1) }
func cmdDecr(ctx *Ctx) *common.Value { return incrByHelper(ctx, -1) }

func cmdIncrBy(ctx *Ctx) *common.Value {
	n, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return incrByHelper(ctx, n)
}

func cmdDecrBy(ctx *Ctx) *common.Value {
	n, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	return incrByHelper(ctx, -n)
}

func cmdIncrByFloat(ctx *Ctx) *common.Value {
	delta, err := strconv.ParseFloat(ctx.Args[1], 64)
	if err != nil {
		return common.ErrNotFloat()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	var cur float64
	if ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return common.ErrNotFloat()
		}
		cur = f
	}
	cur += delta
	out := strconv.FormatFloat(cur, 'f', -1, 64)
	if ok {
		e, _ := d.GetLocked(ctx.Args[0])
		e.Str = out
	} else {
		d.Put(ctx.Args[0], store.NewStringEntry(out))
	}
	return common.NewBulkP(out)
}

func cmdMGet(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	out := make([]common.Value, len(ctx.Args))
	for i, k := range ctx.Args {
		s, ok, wrongType := stringAt(d, k)
		if !ok || wrongType {
			out[i] = common.Nil
			continue
		}
		out[i] = common.NewBulk(s)
	}
	return common.NewArrayP(out)
}

func cmdMSet(ctx *Ctx) *common.Value {
	if len(ctx.Args)%2 != 0 {
		return common.ErrWrongArgs("mset")
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	for i := 0; i < len(ctx.Args); i += 2 {
		d.Put(ctx.Args[i], store.NewStringEntry(ctx.Args[i+1]))
	}
	return common.NewStringP("OK")
}

func cmdMSetNX(ctx *Ctx) *common.Value {
	if len(ctx.Args)%2 != 0 {
		return common.ErrWrongArgs("msetnx")
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	for i := 0; i < len(ctx.Args); i += 2 {
		if d.ExistsLocked(ctx.Args[i]) {
			return common.NewIntP(0)
		}
	}
	for i := 0; i < len(ctx.Args); i += 2 {
		d.Put(ctx.Args[i], store.NewStringEntry(ctx.Args[i+1]))
	}
	return common.NewIntP(1)
}

func cmdGetRange(ctx *Ctx) *common.Value {
	start, err := strconv.Atoi(ctx.Args[1])
	if err != nil {
		return common.ErrNotInt()
	}
	end, err := strconv.Atoi(ctx.Args[2])
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewBulkP("")
	}
	n := len(s)
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return common.NewBulkP("")
	}
	return common.NewBulkP(s[start : end+1])
}

func cmdSetRange(ctx *Ctx) *common.Value {
	offset, err := strconv.Atoi(ctx.Args[1])
	if err != nil || offset < 0 {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	s, ok, wrongType := stringAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	patch := ctx.Args[2]
	buf := []byte(s)
	need := offset + len(patch)
	if len(buf) < need {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], patch)
	if ok {
		e, _ := d.GetLocked(ctx.Args[0])
		e.Str = string(buf)
	} else {
		d.Put(ctx.Args[0], store.NewStringEntry(string(buf)))
	}
	return common.NewIntP(int64(len(buf)))
}

/*
file: goredis/internal/dispatch/hashes.go

Hash commands, grounded on the teacher's handler_hash.go but rewritten
against store.Entry's Hash map[string]string field.
*/
package dispatch

import (
	"strconv"
	"strings"

	"goredis/internal/common"
	"goredis/internal/store"
)

func registerHashCommands(r *Registry) {
	r.add(Command{Name: "HSET", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdHSet})
	r.add(Command{Name: "HSETNX", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdHSetNX})
	r.add(Command{Name: "HGET", MinArgs: 2, MaxArgs: 2, Handler: cmdHGet})
	r.add(Command{Name: "HDEL", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdHDel})
	r.add(Command{Name: "HGETALL", MinArgs: 1, MaxArgs: 1, Handler: cmdHGetAll})
	r.add(Command{Name: "HKEYS", MinArgs: 1, MaxArgs: 1, Handler: cmdHKeys})
	r.add(Command{Name: "HVALS", MinArgs: 1, MaxArgs: 1, Handler: cmdHVals})
	r.add(Command{Name: "HLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdHLen})
	r.add(Command{Name: "HEXISTS", MinArgs: 2, MaxArgs: 2, Handler: cmdHExists})
	r.add(Command{Name: "HINCRBY", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdHIncrBy})
	r.add(Command{Name: "HINCRBYFLOAT", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdHIncrByFloat})
	r.add(Command{Name: "HMGET", MinArgs: 2, MaxArgs: -1, Handler: cmdHMGet})
	r.add(Command{Name: "HMSET", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdHMSet})
	r.add(Command{Name: "HSTRLEN", MinArgs: 2, MaxArgs: 2, Handler: cmdHStrlen})
	r.add(Command{Name: "HRANDFIELD", MinArgs: 1, MaxArgs: 3, Handler: cmdHRandField})
}

// cmdHRandField returns one random field (no count), or up to |count|
// fields (negative count allows repeats) optionally WITHVALUES.
func cmdHRandField(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		if len(ctx.Args) == 1 {
			return common.NilP()
		}
		return common.NewArrayP(nil)
	}
	fields := make([]string, 0, len(h))
	for f := range h {
		fields = append(fields, f)
	}
	if len(ctx.Args) == 1 {
		if len(fields) == 0 {
			return common.NilP()
		}
		return common.NewBulkP(fields[0])
	}
	count, err := strconv.Atoi(ctx.Args[1])
	if err != nil {
		return common.ErrNotInt()
	}
	withValues := len(ctx.Args) == 3 && strings.EqualFold(ctx.Args[2], "WITHVALUES")
	var picks []string
	if count >= 0 {
		n := count
		if n > len(fields) {
			n = len(fields)
		}
		picks = fields[:n]
	} else {
		n := -count
		for i := 0; i < n && len(fields) > 0; i++ {
			picks = append(picks, fields[i%len(fields)])
		}
	}
	out := make([]common.Value, 0, len(picks))
	for _, f := range picks {
		out = append(out, common.NewBulk(f))
		if withValues {
			out = append(out, common.NewBulk(h[f]))
		}
	}
	return common.NewArrayP(out)
}

func hashAt(d *store.Database, key string) (map[string]string, bool, bool) {
	e, ok := d.GetLocked(key)
	if !ok {
		return nil, false, false
	}
	if e.Kind != store.KindHash {
		return nil, false, true
	}
	return e.Hash, true, false
}

func hashOrCreate(d *store.Database, key string) (map[string]string, bool) {
	h, ok, wrongType := hashAt(d, key)
	if wrongType {
		return nil, false
	}
	if !ok {
		e := store.NewHashEntry()
		d.Put(key, e)
		h = e.Hash
	}
	return h, true
}

func cmdHSet(ctx *Ctx) *common.Value {
	if len(ctx.Args[1:])%2 != 0 {
		return common.ErrWrongArgs("hset")
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, okKind := hashOrCreate(d, ctx.Args[0])
	if !okKind {
		return common.NewWrongType()
	}
	var created int64
	for i := 1; i < len(ctx.Args); i += 2 {
		if _, exists := h[ctx.Args[i]]; !exists {
			created++
		}
		h[ctx.Args[i]] = ctx.Args[i+1]
	}
	d.Touch(ctx.Args[0])
	return common.NewIntP(created)
}

func cmdHSetNX(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, okKind := hashOrCreate(d, ctx.Args[0])
	if !okKind {
		return common.NewWrongType()
	}
	if _, exists := h[ctx.Args[1]]; exists {
		return common.NewIntP(0)
	}
	h[ctx.Args[1]] = ctx.Args[2]
	d.Touch(ctx.Args[0])
	return common.NewIntP(1)
}

func cmdHGet(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	v, exists := h[ctx.Args[1]]
	if !exists {
		return common.NilP()
	}
	return common.NewBulkP(v)
}

func cmdHDel(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	var removed int64
	for _, f := range ctx.Args[1:] {
		if _, exists := h[f]; exists {
			delete(h, f)
			removed++
		}
	}
	if len(h) == 0 {
		d.Delete(ctx.Args[0])
	} else if removed > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(removed)
}

func cmdHGetAll(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	out := make([]common.Value, 0, len(h)*2)
	for f, v := range h {
		out = append(out, common.NewBulk(f), common.NewBulk(v))
	}
	return common.NewArrayP(out)
}

func cmdHKeys(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	out := make([]common.Value, 0, len(h))
	for f := range h {
		out = append(out, common.NewBulk(f))
	}
	return common.NewArrayP(out)
}

func cmdHVals(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	out := make([]common.Value, 0, len(h))
	for _, v := range h {
		out = append(out, common.NewBulk(v))
	}
	return common.NewArrayP(out)
}

func cmdHLen(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(len(h)))
}

func cmdHExists(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	if _, exists := h[ctx.Args[1]]; exists {
		return common.NewIntP(1)
	}
	return common.NewIntP(0)
}

func cmdHIncrBy(ctx *Ctx) *common.Value {
	delta, err := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, okKind := hashOrCreate(d, ctx.Args[0])
	if !okKind {
		return common.NewWrongType()
	}
	var cur int64
	if v, exists := h[ctx.Args[1]]; exists {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return common.ErrNotInt()
		}
		cur = n
	}
	cur += delta
	h[ctx.Args[1]] = strconv.FormatInt(cur, 10)
	d.Touch(ctx.Args[0])
	return common.NewIntP(cur)
}

func cmdHIncrByFloat(ctx *Ctx) *common.Value {
	delta, err := strconv.ParseFloat(ctx.Args[2], 64)
	if err != nil {
		return common.ErrNotFloat()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, okKind := hashOrCreate(d, ctx.Args[0])
	if !okKind {
		return common.NewWrongType()
	}
	var cur float64
	if v, exists := h[ctx.Args[1]]; exists {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return common.ErrNotFloat()
		}
		cur = f
	}
	cur += delta
	out := strconv.FormatFloat(cur, 'f', -1, 64)
	h[ctx.Args[1]] = out
	d.Touch(ctx.Args[0])
	return common.NewBulkP(out)
}

func cmdHMGet(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	out := make([]common.Value, len(ctx.Args)-1)
	for i, f := range ctx.Args[1:] {
		if !ok {
			out[i] = common.Nil
			continue
		}
		if v, exists := h[f]; exists {
			out[i] = common.NewBulk(v)
		} else {
			out[i] = common.Nil
		}
	}
	return common.NewArrayP(out)
}

func cmdHMSet(ctx *Ctx) *common.Value {
	if len(ctx.Args[1:])%2 != 0 {
		return common.ErrWrongArgs("hmset")
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	h, okKind := hashOrCreate(d, ctx.Args[0])
	if !okKind {
		return common.NewWrongType()
	}
	for i := 1; i < len(ctx.Args); i += 2 {
		h[ctx.Args[i]] = ctx.Args[i+1]
	}
	d.Touch(ctx.Args[0])
	return common.NewStringP("OK")
}

func cmdHStrlen(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	h, ok, wrongType := hashAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(len(h[ctx.Args[1]])))
}

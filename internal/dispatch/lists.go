/*
file: goredis/internal/dispatch/lists.go

List commands backed by container/list, grounded on the teacher's
handler_list.go but rewritten against store.Entry's List field and
spec.md §3's "empty collection is deleted" invariant.
*/
package dispatch

import (
	"container/list"
	"strconv"
	"strings"

	"goredis/internal/common"
	"goredis/internal/store"
)

func registerListCommands(r *Registry) {
	r.add(Command{Name: "LPUSH", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdLPush})
	r.add(Command{Name: "RPUSH", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdRPush})
	r.add(Command{Name: "LPUSHX", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdLPushX})
	r.add(Command{Name: "RPUSHX", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdRPushX})
	r.add(Command{Name: "LPOP", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdLPop})
	r.add(Command{Name: "RPOP", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdRPop})
	r.add(Command{Name: "LLEN", MinArgs: 1, MaxArgs: 1, Handler: cmdLLen})
	r.add(Command{Name: "LRANGE", MinArgs: 3, MaxArgs: 3, Handler: cmdLRange})
	r.add(Command{Name: "LINDEX", MinArgs: 2, MaxArgs: 2, Handler: cmdLIndex})
	r.add(Command{Name: "LSET", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdLSet})
	r.add(Command{Name: "LREM", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdLRem})
	r.add(Command{Name: "LTRIM", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdLTrim})
	r.add(Command{Name: "LINSERT", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Handler: cmdLInsert})
	r.add(Command{Name: "RPOPLPUSH", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdRPopLPush})
	r.add(Command{Name: "LMOVE", MinArgs: 4, MaxArgs: 4, Flags: FlagWrite, Handler: cmdLMove})
	// BLPOP/BRPOP/BRPOPLPUSH/BLMOVE are non-blocking probes (spec.md
	// §5/§9 Non-goal: true blocking semantics). They try once and
	// return immediately empty instead of waiting, so a client relying
	// on real blocking behavior gets a prompt empty reply rather than a
	// hang.
	r.add(Command{Name: "BLPOP", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdBLPop})
	r.add(Command{Name: "BRPOP", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdBRPop})
	r.add(Command{Name: "BRPOPLPUSH", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdBRPopLPush})
	r.add(Command{Name: "BLMOVE", MinArgs: 5, MaxArgs: 5, Flags: FlagWrite, Handler: cmdBLMove})
}

// moveOne pops one element from src (left or right) and pushes it
// onto dst (left or right), both under the same write lock, returning
// the moved element or nil if src was empty/absent.
func moveOne(d *store.Database, src, dst string, srcLeft, dstLeft bool) (string, bool, bool) {
	l, ok, wrongType := listAt(d, src)
	if wrongType {
		return "", false, true
	}
	if !ok || l.Len() == 0 {
		return "", false, false
	}
	dl, ok2, wrongType2 := listAt(d, dst)
	if wrongType2 {
		return "", false, true
	}
	if !ok2 {
		e := store.NewListEntry()
		d.Put(dst, e)
		dl = e.List
	}
	var el *list.Element
	if srcLeft {
		el = l.Front()
	} else {
		el = l.Back()
	}
	v := el.Value.(string)
	l.Remove(el)
	if dstLeft {
		dl.PushFront(v)
	} else {
		dl.PushBack(v)
	}
	d.Touch(dst)
	if l.Len() == 0 {
		d.Delete(src)
	} else {
		d.Touch(src)
	}
	return v, true, false
}

func cmdRPopLPush(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	v, ok, wrongType := moveOne(d, ctx.Args[0], ctx.Args[1], false, true)
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(v)
}

func cmdLMove(ctx *Ctx) *common.Value {
	srcLeft, err := parseLeftRight(ctx.Args[2])
	if err != nil {
		return common.ErrSyntax()
	}
	dstLeft, err := parseLeftRight(ctx.Args[3])
	if err != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	v, ok, wrongType := moveOne(d, ctx.Args[0], ctx.Args[1], srcLeft, dstLeft)
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(v)
}

func parseLeftRight(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "LEFT":
		return true, nil
	case "RIGHT":
		return false, nil
	default:
		return false, common.ErrProtocol
	}
}

func cmdBLPop(ctx *Ctx) *common.Value  { return blockingPopProbe(ctx, true) }
func cmdBRPop(ctx *Ctx) *common.Value  { return blockingPopProbe(ctx, false) }

// blockingPopProbe tries every key argument (all but the trailing
// timeout) once each and returns the first non-empty list's popped
// element, or a null array if none had anything right now.
func blockingPopProbe(ctx *Ctx, left bool) *common.Value {
	keys := ctx.Args[:len(ctx.Args)-1]
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	for _, k := range keys {
		l, ok, wrongType := listAt(d, k)
		if wrongType {
			return common.NewWrongType()
		}
		if !ok || l.Len() == 0 {
			continue
		}
		var el *list.Element
		if left {
			el = l.Front()
		} else {
			el = l.Back()
		}
		v := el.Value.(string)
		l.Remove(el)
		if l.Len() == 0 {
			d.Delete(k)
		} else {
			d.Touch(k)
		}
		return common.NewArrayP([]common.Value{common.NewBulk(k), common.NewBulk(v)})
	}
	return common.NilArrayP()
}

func cmdBRPopLPush(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	v, ok, wrongType := moveOne(d, ctx.Args[0], ctx.Args[1], false, true)
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(v)
}

func cmdBLMove(ctx *Ctx) *common.Value {
	srcLeft, err := parseLeftRight(ctx.Args[2])
	if err != nil {
		return common.ErrSyntax()
	}
	dstLeft, err := parseLeftRight(ctx.Args[3])
	if err != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	v, ok, wrongType := moveOne(d, ctx.Args[0], ctx.Args[1], srcLeft, dstLeft)
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	return common.NewBulkP(v)
}

func listAt(d *store.Database, key string) (*list.List, bool, bool) {
	e, ok := d.GetLocked(key)
	if !ok {
		return nil, false, false
	}
	if e.Kind != store.KindList {
		return nil, false, true
	}
	return e.List, true, false
}

func pushHelper(ctx *Ctx, left bool, requireExisting bool) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		if requireExisting {
			return common.NewIntP(0)
		}
		e := store.NewListEntry()
		d.Put(ctx.Args[0], e)
		l = e.List
	}
	for _, v := range ctx.Args[1:] {
		if left {
			l.PushFront(v)
		} else {
			l.PushBack(v)
		}
	}
	d.Touch(ctx.Args[0])
	return common.NewIntP(int64(l.Len()))
}

func cmdLPush(ctx *Ctx) *common.Value  { return pushHelper(ctx, true, false) }
func cmdRPush(ctx *Ctx) *common.Value  { return pushHelper(ctx, false, false) }
func cmdLPushX(ctx *Ctx) *common.Value { return pushHelper(ctx, true, true) }
func cmdRPushX(ctx *Ctx) *common.Value { return pushHelper(ctx, false, true) }

func popHelper(ctx *Ctx, left bool) *common.Value {
	count := 1
	multi := false
	if len(ctx.Args) == 2 {
		n, err := strconv.Atoi(ctx.Args[1])
		if err != nil || n < 0 {
			return common.ErrNotInt()
		}
		count = n
		multi = true
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		if multi {
			return common.NilArrayP()
		}
		return common.NilP()
	}
	var popped []common.Value
	for i := 0; i < count && l.Len() > 0; i++ {
		var el *list.Element
		if left {
			el = l.Front()
		} else {
			el = l.Back()
		}
		popped = append(popped, common.NewBulk(el.Value.(string)))
		l.Remove(el)
	}
	if l.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if len(popped) > 0 {
		d.Touch(ctx.Args[0])
	}
	if !multi {
		if len(popped) == 0 {
			return common.NilP()
		}
		return &popped[0]
	}
	if len(popped) == 0 {
		return common.NilArrayP()
	}
	return common.NewArrayP(popped)
}

func cmdLPop(ctx *Ctx) *common.Value { return popHelper(ctx, true) }
func cmdRPop(ctx *Ctx) *common.Value { return popHelper(ctx, false) }

func cmdLLen(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(l.Len()))
}

func toSlice(l *list.List) []string {
	out := make([]string, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

func normIndex(i, n int64) int64 {
	if i < 0 {
		i += n
	}
	return i
}

func cmdLRange(ctx *Ctx) *common.Value {
	start, err1 := strconv.ParseInt(ctx.Args[1], 10, 64)
	stop, err2 := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	n := int64(l.Len())
	start, stop = normIndex(start, n), normIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return common.NewArrayP(nil)
	}
	elems := toSlice(l)
	out := make([]common.Value, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		out = append(out, common.NewBulk(elems[i]))
	}
	return common.NewArrayP(out)
}

func cmdLIndex(ctx *Ctx) *common.Value {
	idx, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	n := int64(l.Len())
	idx = normIndex(idx, n)
	if idx < 0 || idx >= n {
		return common.NilP()
	}
	elems := toSlice(l)
	return common.NewBulkP(elems[idx])
}

func cmdLSet(ctx *Ctx) *common.Value {
	idx, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewError("no such key")
	}
	n := int64(l.Len())
	idx = normIndex(idx, n)
	if idx < 0 || idx >= n {
		return common.NewError("index out of range")
	}
	e := l.Front()
	for i := int64(0); i < idx; i++ {
		e = e.Next()
	}
	e.Value = ctx.Args[2]
	d.Touch(ctx.Args[0])
	return common.NewStringP("OK")
}

func cmdLRem(ctx *Ctx) *common.Value {
	count, err := strconv.ParseInt(ctx.Args[1], 10, 64)
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	target := ctx.Args[2]
	var removed int64
	switch {
	case count == 0:
		for e := l.Front(); e != nil; {
			next := e.Next()
			if e.Value.(string) == target {
				l.Remove(e)
				removed++
			}
			e = next
		}
	case count > 0:
		for e := l.Front(); e != nil && removed < count; {
			next := e.Next()
			if e.Value.(string) == target {
				l.Remove(e)
				removed++
			}
			e = next
		}
	default:
		n := -count
		for e := l.Back(); e != nil && removed < n; {
			prev := e.Prev()
			if e.Value.(string) == target {
				l.Remove(e)
				removed++
			}
			e = prev
		}
	}
	if l.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if removed > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(removed)
}

func cmdLTrim(ctx *Ctx) *common.Value {
	start, err1 := strconv.ParseInt(ctx.Args[1], 10, 64)
	stop, err2 := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewStringP("OK")
	}
	n := int64(l.Len())
	start, stop = normIndex(start, n), normIndex(stop, n)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		d.Delete(ctx.Args[0])
		return common.NewStringP("OK")
	}
	var i int64
	for e := l.Front(); e != nil; {
		next := e.Next()
		if i < start || i > stop {
			l.Remove(e)
		}
		i++
		e = next
	}
	if l.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else {
		d.Touch(ctx.Args[0])
	}
	return common.NewStringP("OK")
}

func cmdLInsert(ctx *Ctx) *common.Value {
	before := false
	switch strings.ToUpper(ctx.Args[1]) {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	l, ok, wrongType := listAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	pivot := ctx.Args[2]
	for e := l.Front(); e != nil; e = e.Next() {
		if e.Value.(string) == pivot {
			if before {
				l.InsertBefore(ctx.Args[3], e)
			} else {
				l.InsertAfter(ctx.Args[3], e)
			}
			d.Touch(ctx.Args[0])
			return common.NewIntP(int64(l.Len()))
		}
	}
	return common.NewIntP(-1)
}

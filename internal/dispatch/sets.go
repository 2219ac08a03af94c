/*
file: goredis/internal/dispatch/sets.go

Set commands, grounded on the teacher's handler_set.go but rewritten
against store.Entry's Set map[string]struct{} field.
*/
package dispatch

import (
	"math/rand"
	"strconv"

	"goredis/internal/common"
	"goredis/internal/store"
)

func registerSetCommands(r *Registry) {
	r.add(Command{Name: "SADD", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSAdd})
	r.add(Command{Name: "SREM", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSRem})
	r.add(Command{Name: "SMEMBERS", MinArgs: 1, MaxArgs: 1, Handler: cmdSMembers})
	r.add(Command{Name: "SISMEMBER", MinArgs: 2, MaxArgs: 2, Handler: cmdSIsMember})
	r.add(Command{Name: "SCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdSCard})
	r.add(Command{Name: "SINTER", MinArgs: 1, MaxArgs: -1, Handler: cmdSInter})
	r.add(Command{Name: "SUNION", MinArgs: 1, MaxArgs: -1, Handler: cmdSUnion})
	r.add(Command{Name: "SDIFF", MinArgs: 1, MaxArgs: -1, Handler: cmdSDiff})
	r.add(Command{Name: "SINTERSTORE", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSInterStore})
	r.add(Command{Name: "SUNIONSTORE", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSUnionStore})
	r.add(Command{Name: "SDIFFSTORE", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSDiffStore})
	r.add(Command{Name: "SPOP", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdSPop})
	r.add(Command{Name: "SRANDMEMBER", MinArgs: 1, MaxArgs: 2, Handler: cmdSRandMember})
	r.add(Command{Name: "SMOVE", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdSMove})
	r.add(Command{Name: "SMISMEMBER", MinArgs: 2, MaxArgs: -1, Handler: cmdSMIsMember})
}

func cmdSMIsMember(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	out := make([]common.Value, len(ctx.Args)-1)
	for i, m := range ctx.Args[1:] {
		if ok {
			if _, exists := set[m]; exists {
				out[i] = common.NewInt(1)
				continue
			}
		}
		out[i] = common.NewInt(0)
	}
	return common.NewArrayP(out)
}

func setAt(d *store.Database, key string) (map[string]struct{}, bool, bool) {
	e, ok := d.GetLocked(key)
	if !ok {
		return nil, false, false
	}
	if e.Kind != store.KindSet {
		return nil, false, true
	}
	return e.Set, true, false
}

func cmdSAdd(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		e := store.NewSetEntry()
		d.Put(ctx.Args[0], e)
		set = e.Set
	}
	var added int64
	for _, m := range ctx.Args[1:] {
		if _, exists := set[m]; !exists {
			set[m] = struct{}{}
			added++
		}
	}
	if added > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(added)
}

func cmdSRem(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	var removed int64
	for _, m := range ctx.Args[1:] {
		if _, exists := set[m]; exists {
			delete(set, m)
			removed++
		}
	}
	if len(set) == 0 {
		d.Delete(ctx.Args[0])
	} else if removed > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(removed)
}

func cmdSMembers(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	out := make([]common.Value, 0, len(set))
	for m := range set {
		out = append(out, common.NewBulk(m))
	}
	return common.NewArrayP(out)
}

func cmdSIsMember(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	if _, exists := set[ctx.Args[1]]; exists {
		return common.NewIntP(1)
	}
	return common.NewIntP(0)
}

func cmdSCard(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(len(set)))
}

// readSets loads each key's set (empty map for a missing key, an error
// for a wrong-kind key).
func readSets(d *store.Database, keys []string) ([]map[string]struct{}, *common.Value) {
	sets := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		set, ok, wrongType := setAt(d, k)
		if wrongType {
			return nil, common.NewWrongType()
		}
		if !ok {
			set = map[string]struct{}{}
		}
		sets[i] = set
	}
	return sets, nil
}

func setInter(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out[m] = struct{}{}
		}
	}
	return out
}

func setUnion(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for m := range s {
			out[m] = struct{}{}
		}
	}
	return out
}

func setDiff(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sets) == 0 {
		return out
	}
	for m := range sets[0] {
		out[m] = struct{}{}
	}
	for _, s := range sets[1:] {
		for m := range s {
			delete(out, m)
		}
	}
	return out
}

func toArray(set map[string]struct{}) *common.Value {
	out := make([]common.Value, 0, len(set))
	for m := range set {
		out = append(out, common.NewBulk(m))
	}
	return common.NewArrayP(out)
}

func setOpReadonly(ctx *Ctx, op func([]map[string]struct{}) map[string]struct{}) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	sets, errVal := readSets(d, ctx.Args)
	if errVal != nil {
		return errVal
	}
	return toArray(op(sets))
}

func cmdSInter(ctx *Ctx) *common.Value { return setOpReadonly(ctx, setInter) }
func cmdSUnion(ctx *Ctx) *common.Value { return setOpReadonly(ctx, setUnion) }
func cmdSDiff(ctx *Ctx) *common.Value  { return setOpReadonly(ctx, setDiff) }

func setOpStore(ctx *Ctx, op func([]map[string]struct{}) map[string]struct{}) *common.Value {
	dest := ctx.Args[0]
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	sets, errVal := readSets(d, ctx.Args[1:])
	if errVal != nil {
		return errVal
	}
	result := op(sets)
	if len(result) == 0 {
		d.Delete(dest)
		return common.NewIntP(0)
	}
	e := store.NewSetEntry()
	e.Set = result
	d.Put(dest, e)
	return common.NewIntP(int64(len(result)))
}

func cmdSInterStore(ctx *Ctx) *common.Value { return setOpStore(ctx, setInter) }
func cmdSUnionStore(ctx *Ctx) *common.Value { return setOpStore(ctx, setUnion) }
func cmdSDiffStore(ctx *Ctx) *common.Value  { return setOpStore(ctx, setDiff) }

func cmdSPop(ctx *Ctx) *common.Value {
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
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		if multi {
			return common.NewArrayP(nil)
		}
		return common.NilP()
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if count > len(members) {
		count = len(members)
	}
	picked := members[:count]
	for _, m := range picked {
		delete(set, m)
	}
	if len(set) == 0 {
		d.Delete(ctx.Args[0])
	} else if len(picked) > 0 {
		d.Touch(ctx.Args[0])
	}
	if !multi {
		if len(picked) == 0 {
			return common.NilP()
		}
		return common.NewBulkP(picked[0])
	}
	out := make([]common.Value, len(picked))
	for i, m := range picked {
		out[i] = common.NewBulk(m)
	}
	return common.NewArrayP(out)
}

func cmdSRandMember(ctx *Ctx) *common.Value {
	hasCount := len(ctx.Args) == 2
	var count int
	if hasCount {
		n, err := strconv.Atoi(ctx.Args[1])
		if err != nil {
			return common.ErrNotInt()
		}
		count = n
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	set, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		if hasCount {
			return common.NewArrayP(nil)
		}
		return common.NilP()
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	if !hasCount {
		if len(members) == 0 {
			return common.NilP()
		}
		return common.NewBulkP(members[rand.Intn(len(members))])
	}
	if count >= 0 {
		rand.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		if count > len(members) {
			count = len(members)
		}
		out := make([]common.Value, count)
		for i := 0; i < count; i++ {
			out[i] = common.NewBulk(members[i])
		}
		return common.NewArrayP(out)
	}
	if len(members) == 0 {
		return common.NewArrayP(nil)
	}
	n := -count
	out := make([]common.Value, n)
	for i := 0; i < n; i++ {
		out[i] = common.NewBulk(members[rand.Intn(len(members))])
	}
	return common.NewArrayP(out)
}

func cmdSMove(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	src, ok, wrongType := setAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	if _, exists := src[ctx.Args[2]]; !exists {
		return common.NewIntP(0)
	}
	dst, ok, wrongType := setAt(d, ctx.Args[1])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		e := store.NewSetEntry()
		d.Put(ctx.Args[1], e)
		dst = e.Set
	}
	delete(src, ctx.Args[2])
	dst[ctx.Args[2]] = struct{}{}
	d.Touch(ctx.Args[1])
	if len(src) == 0 {
		d.Delete(ctx.Args[0])
	} else {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(1)
}

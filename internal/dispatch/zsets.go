/*
file: goredis/internal/dispatch/zsets.go

Sorted-set commands against internal/zset.SkipList, grounded on
spec.md §9's DESIGN NOTE on sorted sets and the teacher's
handler_sortedset.go command surface.
*/
package dispatch

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"goredis/internal/common"
	"goredis/internal/store"
	"goredis/internal/zset"
)

var errBadLexBound = errors.New("bad lex bound")
var errBadSetOpArgs = errors.New("bad set-op args")

func registerZSetCommands(r *Registry) {
	r.add(Command{Name: "ZADD", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdZAdd})
	r.add(Command{Name: "ZSCORE", MinArgs: 2, MaxArgs: 2, Handler: cmdZScore})
	r.add(Command{Name: "ZINCRBY", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdZIncrBy})
	r.add(Command{Name: "ZCARD", MinArgs: 1, MaxArgs: 1, Handler: cmdZCard})
	r.add(Command{Name: "ZREM", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdZRem})
	r.add(Command{Name: "ZRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRank})
	r.add(Command{Name: "ZREVRANK", MinArgs: 2, MaxArgs: 2, Handler: cmdZRevRank})
	r.add(Command{Name: "ZRANGE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRange})
	r.add(Command{Name: "ZREVRANGE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRange})
	r.add(Command{Name: "ZRANGEBYSCORE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRangeByScore})
	r.add(Command{Name: "ZREVRANGEBYSCORE", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRangeByScore})
	r.add(Command{Name: "ZCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZCount})
	r.add(Command{Name: "ZRANGEBYLEX", MinArgs: 3, MaxArgs: -1, Handler: cmdZRangeByLex})
	r.add(Command{Name: "ZREVRANGEBYLEX", MinArgs: 3, MaxArgs: -1, Handler: cmdZRevRangeByLex})
	r.add(Command{Name: "ZLEXCOUNT", MinArgs: 3, MaxArgs: 3, Handler: cmdZLexCount})
	r.add(Command{Name: "ZMSCORE", MinArgs: 2, MaxArgs: -1, Handler: cmdZMScore})
	r.add(Command{Name: "ZREMRANGEBYRANK", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdZRemRangeByRank})
	r.add(Command{Name: "ZREMRANGEBYSCORE", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdZRemRangeByScore})
	r.add(Command{Name: "ZREMRANGEBYLEX", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite, Handler: cmdZRemRangeByLex})
	r.add(Command{Name: "ZPOPMIN", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdZPopMin})
	r.add(Command{Name: "ZPOPMAX", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdZPopMax})
	r.add(Command{Name: "BZPOPMIN", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdBZPopMin})
	r.add(Command{Name: "BZPOPMAX", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdBZPopMax})
	r.add(Command{Name: "ZRANDMEMBER", MinArgs: 1, MaxArgs: 3, Handler: cmdZRandMember})
	r.add(Command{Name: "ZUNIONSTORE", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdZUnionStore})
	r.add(Command{Name: "ZINTERSTORE", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdZInterStore})
	r.add(Command{Name: "ZDIFFSTORE", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdZDiffStore})
}

func zsetAt(d *store.Database, key string) (*zset.SkipList, bool, bool) {
	e, ok := d.GetLocked(key)
	if !ok {
		return nil, false, false
	}
	if e.Kind != store.KindZSet {
		return nil, false, true
	}
	return e.ZSet, true, false
}

func cmdZAdd(ctx *Ctx) *common.Value {
	args := ctx.Args[1:]
	var nx, xx, gt, lt, ch bool
	i := 0
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		case "CH":
			ch = true
		default:
			goto pairs
		}
		i++
	}
pairs:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return common.ErrSyntax()
	}
	if nx && (gt || lt) {
		return common.ErrSyntax()
	}

	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		e := store.NewZSetEntry()
		d.Put(ctx.Args[0], e)
		zs = e.ZSet
	}

	var added, changed int64
	for j := 0; j < len(rest); j += 2 {
		score, err := strconv.ParseFloat(rest[j], 64)
		if err != nil {
			return common.ErrNotFloat()
		}
		member := rest[j+1]
		oldScore, exists := zs.Score(member)
		if nx && exists {
			continue
		}
		if xx && !exists {
			continue
		}
		if gt && exists && score <= oldScore {
			continue
		}
		if lt && exists && score >= oldScore {
			continue
		}
		isNew := zs.Set(member, score)
		if isNew {
			added++
		} else if oldScore != score {
			changed++
		}
	}
	if added+changed > 0 {
		d.Touch(ctx.Args[0])
	}
	if ch {
		return common.NewIntP(added + changed)
	}
	return common.NewIntP(added)
}

func cmdZScore(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	score, exists := zs.Score(ctx.Args[1])
	if !exists {
		return common.NilP()
	}
	return common.NewBulkP(formatScore(score))
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func cmdZIncrBy(ctx *Ctx) *common.Value {
	delta, err := strconv.ParseFloat(ctx.Args[1], 64)
	if err != nil {
		return common.ErrNotFloat()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		e := store.NewZSetEntry()
		d.Put(ctx.Args[0], e)
		zs = e.ZSet
	}
	cur, _ := zs.Score(ctx.Args[2])
	cur += delta
	zs.Set(ctx.Args[2], cur)
	d.Touch(ctx.Args[0])
	return common.NewBulkP(formatScore(cur))
}

func cmdZCard(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(zs.Len())
}

func cmdZRem(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	var removed int64
	for _, m := range ctx.Args[1:] {
		if zs.Remove(m) {
			removed++
		}
	}
	if zs.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if removed > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(removed)
}

func cmdZRank(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	rank := zs.Rank(ctx.Args[1])
	if rank < 0 {
		return common.NilP()
	}
	return common.NewIntP(rank)
}

func cmdZRevRank(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NilP()
	}
	rank := zs.Rank(ctx.Args[1])
	if rank < 0 {
		return common.NilP()
	}
	return common.NewIntP(zs.Len() - 1 - rank)
}

func pairsToReply(pairs []zset.Pair, withScores bool) *common.Value {
	out := make([]common.Value, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, common.NewBulk(p.Member))
		if withScores {
			out = append(out, common.NewBulk(formatScore(p.Score)))
		}
	}
	return common.NewArrayP(out)
}

func hasWithScores(args []string) bool {
	for _, a := range args {
		if strings.EqualFold(a, "WITHSCORES") {
			return true
		}
	}
	return false
}

func cmdZRange(ctx *Ctx) *common.Value {
	start, err1 := strconv.ParseInt(ctx.Args[1], 10, 64)
	stop, err2 := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	withScores := hasWithScores(ctx.Args[3:])
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	return pairsToReply(zs.Range(start, stop), withScores)
}

func cmdZRevRange(ctx *Ctx) *common.Value {
	start, err1 := strconv.ParseInt(ctx.Args[1], 10, 64)
	stop, err2 := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	withScores := hasWithScores(ctx.Args[3:])
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	return pairsToReply(zs.RevRange(start, stop), withScores)
}

// parseScoreBound parses a ZRANGEBYSCORE-style bound: "-inf"/"+inf",
// optionally prefixed with "(" for exclusive.
func parseScoreBound(s string) (val float64, excl bool, err error) {
	if strings.HasPrefix(s, "(") {
		excl = true
		s = s[1:]
	}
	switch s {
	case "-inf":
		return math.Inf(-1), excl, nil
	case "+inf", "inf":
		return math.Inf(1), excl, nil
	}
	val, err = strconv.ParseFloat(s, 64)
	return val, excl, err
}

func parseLimitOpt(args []string) (offset, count int64, err error) {
	count = -1
	for i := 0; i < len(args); i++ {
		if strings.EqualFold(args[i], "LIMIT") && i+2 < len(args) {
			offset, err = strconv.ParseInt(args[i+1], 10, 64)
			if err != nil {
				return 0, 0, err
			}
			count, err = strconv.ParseInt(args[i+2], 10, 64)
			if err != nil {
				return 0, 0, err
			}
			return offset, count, nil
		}
	}
	return 0, -1, nil
}

func cmdZRangeByScore(ctx *Ctx) *common.Value {
	min, minExcl, err1 := parseScoreBound(ctx.Args[1])
	max, maxExcl, err2 := parseScoreBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrNotFloat()
	}
	withScores := hasWithScores(ctx.Args[3:])
	offset, count, err := parseLimitOpt(ctx.Args[3:])
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	return pairsToReply(zs.RangeByScore(min, max, minExcl, maxExcl, offset, count), withScores)
}

func cmdZRevRangeByScore(ctx *Ctx) *common.Value {
	max, maxExcl, err1 := parseScoreBound(ctx.Args[1])
	min, minExcl, err2 := parseScoreBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrNotFloat()
	}
	withScores := hasWithScores(ctx.Args[3:])
	offset, count, err := parseLimitOpt(ctx.Args[3:])
	if err != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	pairs := zs.RangeByScore(min, max, minExcl, maxExcl, offset, count)
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	return pairsToReply(pairs, withScores)
}

func cmdZCount(ctx *Ctx) *common.Value {
	min, minExcl, err1 := parseScoreBound(ctx.Args[1])
	max, maxExcl, err2 := parseScoreBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrNotFloat()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(zs.CountByScore(min, max, minExcl, maxExcl))
}

func parseLexBound(s string) (bound string, inclusive bool, err error) {
	if s == "-" || s == "+" {
		return s, true, nil
	}
	if strings.HasPrefix(s, "[") {
		return s[1:], true, nil
	}
	if strings.HasPrefix(s, "(") {
		return s[1:], false, nil
	}
	return "", false, errBadLexBound
}

func cmdZRangeByLex(ctx *Ctx) *common.Value {
	min, minIncl, err1 := parseLexBound(ctx.Args[1])
	max, maxIncl, err2 := parseLexBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	return pairsToReply(zs.RangeByLex(min, max, minIncl, maxIncl), false)
}

func cmdZRevRangeByLex(ctx *Ctx) *common.Value {
	max, maxIncl, err1 := parseLexBound(ctx.Args[1])
	min, minIncl, err2 := parseLexBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewArrayP(nil)
	}
	pairs := zs.RangeByLex(min, max, minIncl, maxIncl)
	for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	return pairsToReply(pairs, false)
}

func cmdZLexCount(ctx *Ctx) *common.Value {
	min, minIncl, err1 := parseLexBound(ctx.Args[1])
	max, maxIncl, err2 := parseLexBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	return common.NewIntP(int64(len(zs.RangeByLex(min, max, minIncl, maxIncl))))
}

func cmdZMScore(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	out := make([]common.Value, len(ctx.Args)-1)
	for i, m := range ctx.Args[1:] {
		if !ok {
			out[i] = common.Nil
			continue
		}
		if score, exists := zs.Score(m); exists {
			out[i] = common.NewBulk(formatScore(score))
		} else {
			out[i] = common.Nil
		}
	}
	return common.NewArrayP(out)
}

func cmdZRemRangeByRank(ctx *Ctx) *common.Value {
	start, err1 := strconv.ParseInt(ctx.Args[1], 10, 64)
	stop, err2 := strconv.ParseInt(ctx.Args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	pairs := zs.Range(start, stop)
	for _, p := range pairs {
		zs.Remove(p.Member)
	}
	if zs.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if len(pairs) > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(int64(len(pairs)))
}

func cmdZRemRangeByScore(ctx *Ctx) *common.Value {
	min, minExcl, err1 := parseScoreBound(ctx.Args[1])
	max, maxExcl, err2 := parseScoreBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrNotFloat()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	pairs := zs.RangeByScore(min, max, minExcl, maxExcl, 0, -1)
	for _, p := range pairs {
		zs.Remove(p.Member)
	}
	if zs.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if len(pairs) > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(int64(len(pairs)))
}

func cmdZRemRangeByLex(ctx *Ctx) *common.Value {
	min, minIncl, err1 := parseLexBound(ctx.Args[1])
	max, maxIncl, err2 := parseLexBound(ctx.Args[2])
	if err1 != nil || err2 != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok {
		return common.NewIntP(0)
	}
	pairs := zs.RangeByLex(min, max, minIncl, maxIncl)
	for _, p := range pairs {
		zs.Remove(p.Member)
	}
	if zs.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if len(pairs) > 0 {
		d.Touch(ctx.Args[0])
	}
	return common.NewIntP(int64(len(pairs)))
}

// popExtreme implements ZPOPMIN/ZPOPMAX: removes up to count members from
// the low or high end of the set and returns them as a flat member/score
// array, lowest-rank-first for ZPOPMIN and highest-rank-first for ZPOPMAX.
func popExtreme(ctx *Ctx, fromMax bool) *common.Value {
	count := int64(1)
	if len(ctx.Args) == 2 {
		n, err := strconv.ParseInt(ctx.Args[1], 10, 64)
		if err != nil {
			return common.ErrNotInt()
		}
		count = n
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok || count <= 0 {
		return common.NewArrayP(nil)
	}
	var popped []zset.Pair
	for int64(len(popped)) < count && zs.Len() > 0 {
		var member string
		var score float64
		var found bool
		if fromMax {
			member, score, found = zs.ByRank(zs.Len() - 1)
		} else {
			member, score, found = zs.ByRank(0)
		}
		if !found {
			break
		}
		zs.Remove(member)
		popped = append(popped, zset.Pair{Member: member, Score: score})
	}
	if zs.Len() == 0 {
		d.Delete(ctx.Args[0])
	} else if len(popped) > 0 {
		d.Touch(ctx.Args[0])
	}
	return pairsToReply(popped, true)
}

func cmdZPopMin(ctx *Ctx) *common.Value { return popExtreme(ctx, false) }
func cmdZPopMax(ctx *Ctx) *common.Value { return popExtreme(ctx, true) }

// cmdBZPopMin/cmdBZPopMax are non-blocking probes: they check each given
// key once in order and pop from the first non-empty set, rather than
// actually blocking until an element becomes available.
func blockingZPopProbe(ctx *Ctx, fromMax bool) *common.Value {
	timeoutIdx := len(ctx.Args) - 1
	keys := ctx.Args[:timeoutIdx]
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	for _, key := range keys {
		zs, ok, wrongType := zsetAt(d, key)
		if wrongType {
			return common.NewWrongType()
		}
		if !ok || zs.Len() == 0 {
			continue
		}
		var member string
		var score float64
		if fromMax {
			member, score, _ = zs.ByRank(zs.Len() - 1)
		} else {
			member, score, _ = zs.ByRank(0)
		}
		zs.Remove(member)
		if zs.Len() == 0 {
			d.Delete(key)
		} else {
			d.Touch(key)
		}
		return common.NewArrayP([]common.Value{
			common.NewBulk(key),
			common.NewBulk(member),
			common.NewBulk(formatScore(score)),
		})
	}
	return common.NewArrayP(nil)
}

func cmdBZPopMin(ctx *Ctx) *common.Value { return blockingZPopProbe(ctx, false) }
func cmdBZPopMax(ctx *Ctx) *common.Value { return blockingZPopProbe(ctx, true) }

func cmdZRandMember(ctx *Ctx) *common.Value {
	d := ctx.DB()
	d.RLock()
	defer d.RUnlock()
	zs, ok, wrongType := zsetAt(d, ctx.Args[0])
	if wrongType {
		return common.NewWrongType()
	}
	if !ok || zs.Len() == 0 {
		if len(ctx.Args) == 1 {
			return common.NilP()
		}
		return common.NewArrayP(nil)
	}
	all := zs.All()
	if len(ctx.Args) == 1 {
		return common.NewBulkP(all[0].Member)
	}
	count, err := strconv.Atoi(ctx.Args[1])
	if err != nil {
		return common.ErrNotInt()
	}
	withScores := len(ctx.Args) == 3 && strings.EqualFold(ctx.Args[2], "WITHSCORES")
	var picks []zset.Pair
	if count >= 0 {
		n := count
		if n > len(all) {
			n = len(all)
		}
		picks = all[:n]
	} else {
		n := -count
		for i := 0; i < n; i++ {
			picks = append(picks, all[i%len(all)])
		}
	}
	return pairsToReply(picks, withScores)
}

// aggregate combines an existing accumulated score with a new weighted
// score according to aggMode ("SUM", "MIN", "MAX"; SUM is the default).
func aggregate(aggMode string, cur float64, have bool, next float64) float64 {
	if !have {
		return next
	}
	switch aggMode {
	case "MIN":
		if next < cur {
			return next
		}
		return cur
	case "MAX":
		if next > cur {
			return next
		}
		return cur
	default:
		return cur + next
	}
}

// parseSetOpArgs parses the common ZUNIONSTORE/ZINTERSTORE tail:
// numkeys key [key ...] [WEIGHTS w [w ...]] [AGGREGATE SUM|MIN|MAX].
func parseSetOpArgs(args []string) (keys []string, weights []float64, aggMode string, err error) {
	numKeys, err := strconv.Atoi(args[0])
	if err != nil || numKeys <= 0 || len(args) < 1+numKeys {
		return nil, nil, "", errBadSetOpArgs
	}
	keys = args[1 : 1+numKeys]
	weights = make([]float64, numKeys)
	for i := range weights {
		weights[i] = 1
	}
	aggMode = "SUM"
	rest := args[1+numKeys:]
	for i := 0; i < len(rest); {
		switch strings.ToUpper(rest[i]) {
		case "WEIGHTS":
			for j := 0; j < numKeys; j++ {
				w, werr := strconv.ParseFloat(rest[i+1+j], 64)
				if werr != nil {
					return nil, nil, "", werr
				}
				weights[j] = w
			}
			i += 1 + numKeys
		case "AGGREGATE":
			aggMode = strings.ToUpper(rest[i+1])
			i += 2
		default:
			return nil, nil, "", errBadLexBound
		}
	}
	return keys, weights, aggMode, nil
}

func cmdZUnionStore(ctx *Ctx) *common.Value {
	keys, weights, aggMode, err := parseSetOpArgs(ctx.Args[1:])
	if err != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	scores := make(map[string]float64)
	have := make(map[string]bool)
	for i, key := range keys {
		zs, ok, wrongType := zsetAt(d, key)
		if wrongType {
			return common.NewWrongType()
		}
		if !ok {
			continue
		}
		for _, p := range zs.All() {
			scores[p.Member] = aggregate(aggMode, scores[p.Member], have[p.Member], p.Score*weights[i])
			have[p.Member] = true
		}
	}
	return storeZSetResult(d, ctx.Args[0], scores)
}

func cmdZInterStore(ctx *Ctx) *common.Value {
	keys, weights, aggMode, err := parseSetOpArgs(ctx.Args[1:])
	if err != nil {
		return common.ErrSyntax()
	}
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	sets := make([]*zset.SkipList, len(keys))
	for i, key := range keys {
		zs, ok, wrongType := zsetAt(d, key)
		if wrongType {
			return common.NewWrongType()
		}
		if !ok {
			return storeZSetResult(d, ctx.Args[0], nil)
		}
		sets[i] = zs
	}
	scores := make(map[string]float64)
	if len(sets) > 0 {
		for _, p := range sets[0].All() {
			total := p.Score * weights[0]
			inAll := true
			for i := 1; i < len(sets); i++ {
				s, exists := sets[i].Score(p.Member)
				if !exists {
					inAll = false
					break
				}
				total = aggregate(aggMode, total, true, s*weights[i])
			}
			if inAll {
				scores[p.Member] = total
			}
		}
	}
	return storeZSetResult(d, ctx.Args[0], scores)
}

func cmdZDiffStore(ctx *Ctx) *common.Value {
	numKeys, err := strconv.Atoi(ctx.Args[1])
	if err != nil || numKeys <= 0 || len(ctx.Args[2:]) < numKeys {
		return common.ErrNotInt()
	}
	keys := ctx.Args[2 : 2+numKeys]
	d := ctx.DB()
	d.Lock()
	defer d.Unlock()
	base, ok, wrongType := zsetAt(d, keys[0])
	if wrongType {
		return common.NewWrongType()
	}
	scores := make(map[string]float64)
	if ok {
		for _, p := range base.All() {
			scores[p.Member] = p.Score
		}
	}
	for _, key := range keys[1:] {
		zs, ok, wrongType := zsetAt(d, key)
		if wrongType {
			return common.NewWrongType()
		}
		if !ok {
			continue
		}
		for _, p := range zs.All() {
			delete(scores, p.Member)
		}
	}
	return storeZSetResult(d, ctx.Args[0], scores)
}

// storeZSetResult writes scores into dest as a fresh sorted set,
// deleting dest if the result is empty, and returns the resulting
// cardinality. Caller must already hold d's write lock.
func storeZSetResult(d *store.Database, dest string, scores map[string]float64) *common.Value {
	if len(scores) == 0 {
		d.Delete(dest)
		return common.NewIntP(0)
	}
	e := store.NewZSetEntry()
	for member, score := range scores {
		e.ZSet.Set(member, score)
	}
	d.Put(dest, e)
	return common.NewIntP(int64(len(scores)))
}

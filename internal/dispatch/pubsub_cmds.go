/*
file: goredis/internal/dispatch/pubsub_cmds.go

Pub/Sub commands wired against internal/pubsub.Hub, grounded on the
teacher's handler_pubsub.go command surface but delegating the actual
fan-out bookkeeping to the Hub component (spec.md §2).
*/
package dispatch

import (
	"strings"

	"goredis/internal/common"
)

// suppressedReply returns nil so Dispatcher.Run hands the connection
// loop no additional frame to write: SUBSCRIBE's
// family of commands push one confirmation array per channel argument
// themselves (matching Redis's one-frame-per-argument behavior),
// instead of a single aggregate reply.
func suppressedReply(*common.Value) *common.Value { return nil }

func registerPubSubCommands(r *Registry) {
	r.add(Command{Name: "SUBSCRIBE", MinArgs: 1, MaxArgs: -1, Flags: FlagPubSub, Handler: cmdSubscribe})
	r.add(Command{Name: "UNSUBSCRIBE", MinArgs: 0, MaxArgs: -1, Flags: FlagPubSub, Handler: cmdUnsubscribe})
	r.add(Command{Name: "PSUBSCRIBE", MinArgs: 1, MaxArgs: -1, Flags: FlagPubSub, Handler: cmdPSubscribe})
	r.add(Command{Name: "PUNSUBSCRIBE", MinArgs: 0, MaxArgs: -1, Flags: FlagPubSub, Handler: cmdPUnsubscribe})
	r.add(Command{Name: "PUBLISH", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite, Handler: cmdPublish})
	r.add(Command{Name: "PUBSUB", MinArgs: 1, MaxArgs: -1, Handler: cmdPubSub})
}

func cmdSubscribe(ctx *Ctx) *common.Value {
	var last *common.Value
	for _, ch := range ctx.Args {
		n := ctx.Hub.Subscribe(ctx.Client, ch)
		reply := common.NewArrayP([]common.Value{
			common.NewBulk("subscribe"),
			common.NewBulk(ch),
			common.NewInt(int64(n)),
		})
		ctx.Client.SendPush(reply)
		last = reply
	}
	// replies already pushed individually; no extra frame is written.
	return suppressedReply(last)
}

func cmdUnsubscribe(ctx *Ctx) *common.Value {
	channels := ctx.Args
	if len(channels) == 0 {
		channels = ctx.Hub.UnsubscribeAllChannels(ctx.Client)
		if len(channels) == 0 {
			n := ctx.Client.SubCount()
			reply := common.NewArrayP([]common.Value{common.NewBulk("unsubscribe"), common.Nil, common.NewInt(int64(n))})
			ctx.Client.SendPush(reply)
			return suppressedReply(reply)
		}
	}
	var last *common.Value
	for _, ch := range channels {
		n := ctx.Hub.Unsubscribe(ctx.Client, ch)
		reply := common.NewArrayP([]common.Value{
			common.NewBulk("unsubscribe"),
			common.NewBulk(ch),
			common.NewInt(int64(n)),
		})
		ctx.Client.SendPush(reply)
		last = reply
	}
	return suppressedReply(last)
}

func cmdPSubscribe(ctx *Ctx) *common.Value {
	var last *common.Value
	for _, p := range ctx.Args {
		n := ctx.Hub.PSubscribe(ctx.Client, p)
		reply := common.NewArrayP([]common.Value{
			common.NewBulk("psubscribe"),
			common.NewBulk(p),
			common.NewInt(int64(n)),
		})
		ctx.Client.SendPush(reply)
		last = reply
	}
	return suppressedReply(last)
}

func cmdPUnsubscribe(ctx *Ctx) *common.Value {
	patterns := ctx.Args
	if len(patterns) == 0 {
		patterns = ctx.Hub.PUnsubscribeAllPatterns(ctx.Client)
		if len(patterns) == 0 {
			n := ctx.Client.SubCount()
			reply := common.NewArrayP([]common.Value{common.NewBulk("punsubscribe"), common.Nil, common.NewInt(int64(n))})
			ctx.Client.SendPush(reply)
			return suppressedReply(reply)
		}
	}
	var last *common.Value
	for _, p := range patterns {
		n := ctx.Hub.PUnsubscribe(ctx.Client, p)
		reply := common.NewArrayP([]common.Value{
			common.NewBulk("punsubscribe"),
			common.NewBulk(p),
			common.NewInt(int64(n)),
		})
		ctx.Client.SendPush(reply)
		last = reply
	}
	return suppressedReply(last)
}

func cmdPublish(ctx *Ctx) *common.Value {
	n := ctx.Hub.Publish(ctx.Args[0], ctx.Args[1])
	return common.NewIntP(n)
}

func cmdPubSub(ctx *Ctx) *common.Value {
	switch strings.ToUpper(ctx.Args[0]) {
	case "CHANNELS":
		pattern := ""
		if len(ctx.Args) > 1 {
			pattern = ctx.Args[1]
		}
		chans := ctx.Hub.Channels(pattern)
		out := make([]common.Value, len(chans))
		for i, c := range chans {
			out[i] = common.NewBulk(c)
		}
		return common.NewArrayP(out)
	case "NUMSUB":
		counts := ctx.Hub.NumSub(ctx.Args[1:])
		out := make([]common.Value, 0, len(counts)*2)
		for i, c := range counts {
			out = append(out, common.NewBulk(ctx.Args[1+i]), common.NewInt(c))
		}
		return common.NewArrayP(out)
	case "NUMPAT":
		return common.NewIntP(ctx.Hub.NumPat())
	default:
		return common.ErrSyntax()
	}
}

/*
file: goredis/internal/dispatch/server_cmds.go

Server/connection-level commands (PING, ECHO, AUTH, CLIENT, CONFIG,
INFO, persistence triggers, SHUTDOWN), grounded on the teacher's
handler_server.go and info.go, enriched with github.com/shirou/gopsutil/v4
for the host stats INFO reports (the teacher's info.go computed these
by hand from /proc).
*/
package dispatch

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"goredis/internal/common"
)

func registerServerCommands(r *Registry) {
	r.add(Command{Name: "PING", MinArgs: 0, MaxArgs: 1, Flags: FlagNoAuth | FlagPubSub, Handler: cmdPing})
	r.add(Command{Name: "ECHO", MinArgs: 1, MaxArgs: 1, Handler: cmdEcho})
	r.add(Command{Name: "AUTH", MinArgs: 1, MaxArgs: 2, Flags: FlagNoAuth, Handler: cmdAuth})
	r.add(Command{Name: "HELLO", MinArgs: 0, MaxArgs: -1, Flags: FlagNoAuth, Handler: cmdHello})
	r.add(Command{Name: "CLIENT", MinArgs: 1, MaxArgs: -1, Flags: FlagNoAuth, Handler: cmdClient})
	r.add(Command{Name: "CONFIG", MinArgs: 1, MaxArgs: -1, Flags: FlagAdmin, Handler: cmdConfig})
	r.add(Command{Name: "INFO", MinArgs: 0, MaxArgs: 1, Handler: cmdInfo})
	r.add(Command{Name: "COMMAND", MinArgs: 0, MaxArgs: -1, Flags: FlagNoAuth, Handler: cmdCommand})
	r.add(Command{Name: "SAVE", MinArgs: 0, MaxArgs: 0, Flags: FlagAdmin, Handler: cmdSave})
	r.add(Command{Name: "BGSAVE", MinArgs: 0, MaxArgs: 0, Flags: FlagAdmin, Handler: cmdBGSave})
	r.add(Command{Name: "LASTSAVE", MinArgs: 0, MaxArgs: 0, Handler: cmdLastSave})
	r.add(Command{Name: "SHUTDOWN", MinArgs: 0, MaxArgs: 1, Flags: FlagAdmin, Handler: cmdShutdown})
	r.add(Command{Name: "MONITOR", MinArgs: 0, MaxArgs: 0, Flags: FlagAdmin, Handler: cmdMonitor})
	r.add(Command{Name: "TIME", MinArgs: 0, MaxArgs: 0, Handler: cmdTime})
	r.add(Command{Name: "QUIT", MinArgs: 0, MaxArgs: 0, Flags: FlagNoAuth | FlagPubSub, Handler: cmdQuit})
	r.add(Command{Name: "SWAPDB", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite | FlagAdmin, Handler: cmdSwapDB})
	r.add(Command{Name: "DEBUG", MinArgs: 1, MaxArgs: -1, Flags: FlagAdmin, Handler: cmdDebug})
}

// QuitSignal is recovered by the connection loop (after the "OK" reply
// is flushed) to close just this one connection.
type QuitSignal struct{}

func cmdQuit(ctx *Ctx) *common.Value {
	ctx.Client.WriteReply(common.NewStringP("OK"))
	panic(QuitSignal{})
}

func cmdPing(ctx *Ctx) *common.Value {
	if len(ctx.Args) == 1 {
		return common.NewBulkP(ctx.Args[0])
	}
	return common.NewStringP("PONG")
}

func cmdEcho(ctx *Ctx) *common.Value {
	return common.NewBulkP(ctx.Args[0])
}

func cmdAuth(ctx *Ctx) *common.Value {
	pass := ctx.Args[0]
	if len(ctx.Args) == 2 {
		pass = ctx.Args[1]
	}
	if ctx.App.Config.Requirepass == "" {
		return common.NewError("Client sent AUTH, but no password is set")
	}
	if pass != ctx.App.Config.Requirepass {
		return common.NewErrorP("WRONGPASS invalid username-password pair or user is disabled.")
	}
	ctx.Client.Authenticated = true
	return common.NewStringP("OK")
}

func cmdHello(ctx *Ctx) *common.Value {
	fields := []common.Value{
		common.NewBulk("server"), common.NewBulk("goredis"),
		common.NewBulk("proto"), common.NewInt(2),
		common.NewBulk("mode"), common.NewBulk("standalone"),
		common.NewBulk("role"), common.NewBulk("master"),
	}
	return common.NewArrayP(fields)
}

func cmdClient(ctx *Ctx) *common.Value {
	sub := strings.ToUpper(ctx.Args[0])
	switch sub {
	case "GETNAME":
		return common.NewBulkP(ctx.Client.Name)
	case "SETNAME":
		if len(ctx.Args) != 2 {
			return common.ErrWrongArgs("client|setname")
		}
		ctx.Client.Name = ctx.Args[1]
		return common.NewStringP("OK")
	case "ID":
		return common.NewBulkP(ctx.Client.ID)
	case "LIST":
		return common.NewBulkP(fmt.Sprintf("connected_clients=%d", ctx.App.ConnCount()))
	default:
		return common.NewStringP("OK")
	}
}

func cmdConfig(ctx *Ctx) *common.Value {
	sub := strings.ToUpper(ctx.Args[0])
	switch sub {
	case "GET":
		if len(ctx.Args) != 2 {
			return common.ErrWrongArgs("config|get")
		}
		return configGet(ctx.App.Config, ctx.Args[1])
	case "SET":
		if len(ctx.Args) != 3 {
			return common.ErrWrongArgs("config|set")
		}
		return configSet(ctx.App.Config, ctx.Args[1], ctx.Args[2])
	case "REWRITE":
		return common.NewStringP("OK")
	default:
		return common.ErrSyntax()
	}
}

func configGet(cfg *common.Config, param string) *common.Value {
	param = strings.ToLower(param)
	var val string
	switch param {
	case "maxmemory":
		val = strconv.FormatInt(cfg.Maxmemory, 10)
	case "maxmemory-policy":
		val = string(cfg.MaxmemoryPolicy)
	case "databases":
		val = strconv.Itoa(cfg.Databases)
	case "dbfilename":
		val = cfg.DBFilename
	case "dir":
		val = cfg.Dir
	case "requirepass":
		val = cfg.Requirepass
	default:
		return common.NewArrayP(nil)
	}
	return common.NewArrayP([]common.Value{common.NewBulk(param), common.NewBulk(val)})
}

func configSet(cfg *common.Config, param, val string) *common.Value {
	switch strings.ToLower(param) {
	case "maxmemory":
		n, err := common.ParseMemory(val)
		if err != nil {
			return common.ErrNotInt()
		}
		cfg.Maxmemory = n
	case "maxmemory-policy":
		cfg.MaxmemoryPolicy = common.EvictionPolicy(val)
	case "requirepass":
		cfg.Requirepass = val
	default:
		return common.ErrSyntax()
	}
	return common.NewStringP("OK")
}

func cmdInfo(ctx *Ctx) *common.Value {
	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "goredis_version:1.0.0\r\n")
	fmt.Fprintf(&b, "process_id:%d\r\n", 0)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", int64(time.Since(ctx.App.StartTime).Seconds()))
	fmt.Fprintf(&b, "go_version:%s\r\n", runtime.Version())
	fmt.Fprintf(&b, "\r\n# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", ctx.App.ConnCount())

	fmt.Fprintf(&b, "\r\n# Memory\r\n")
	var rss uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		rss = vm.Used
	}
	fmt.Fprintf(&b, "used_memory:%d\r\n", ctx.DB().MemoryUsed())
	fmt.Fprintf(&b, "used_memory_host_total:%d\r\n", rss)
	fmt.Fprintf(&b, "maxmemory:%d\r\n", ctx.App.Config.Maxmemory)
	fmt.Fprintf(&b, "maxmemory_policy:%s\r\n", ctx.App.Config.MaxmemoryPolicy)

	fmt.Fprintf(&b, "\r\n# CPU\r\n")
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		fmt.Fprintf(&b, "used_cpu_host_percent:%.2f\r\n", pcts[0])
	}

	fmt.Fprintf(&b, "\r\n# Persistence\r\n")
	fmt.Fprintf(&b, "rdb_changes_since_last_save:0\r\n")
	fmt.Fprintf(&b, "rdb_last_save_time:%d\r\n", ctx.App.RDBLastSaveUnix)
	fmt.Fprintf(&b, "rdb_bgsave_in_progress:%d\r\n", boolToInt(ctx.Snap != nil && ctx.Snap.BGSaveInProgress()))

	fmt.Fprintf(&b, "\r\n# Stats\r\n")
	fmt.Fprintf(&b, "total_connections_received:%d\r\n", ctx.App.Stats.TotalConnectionsReceived)
	fmt.Fprintf(&b, "total_commands_processed:%d\r\n", ctx.App.Stats.TotalCommandsExecuted)
	fmt.Fprintf(&b, "expired_keys:%d\r\n", ctx.App.Stats.TotalExpiredKeys)
	fmt.Fprintf(&b, "evicted_keys:%d\r\n", ctx.App.Stats.TotalEvictedKeys)

	fmt.Fprintf(&b, "\r\n# Keyspace\r\n")
	fmt.Fprintf(&b, "db%d:keys=%d\r\n", ctx.Client.DBIndex, ctx.DB().Size())

	return common.NewBulkP(b.String())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmdCommand(ctx *Ctx) *common.Value {
	if len(ctx.Args) > 0 && strings.EqualFold(ctx.Args[0], "COUNT") {
		if ctx.Registry != nil {
			return common.NewIntP(int64(ctx.Registry.Count()))
		}
		return common.NewIntP(0)
	}
	return common.NewArrayP(nil)
}

func cmdSave(ctx *Ctx) *common.Value {
	if ctx.Snap == nil {
		return common.NewError("persistence is not configured")
	}
	if err := ctx.Snap.Save(); err != nil {
		return common.NewError("%s", err.Error())
	}
	return common.NewStringP("OK")
}

func cmdBGSave(ctx *Ctx) *common.Value {
	if ctx.Snap == nil {
		return common.NewError("persistence is not configured")
	}
	if err := ctx.Snap.BGSave(); err != nil {
		return common.NewError("%s", err.Error())
	}
	return common.NewStringP("Background saving started")
}

func cmdLastSave(ctx *Ctx) *common.Value {
	if ctx.Snap == nil {
		return common.NewIntP(0)
	}
	return common.NewIntP(ctx.Snap.LastSaveUnix())
}

func cmdShutdown(ctx *Ctx) *common.Value {
	nosave := len(ctx.Args) == 1 && strings.EqualFold(ctx.Args[0], "NOSAVE")
	if !nosave && ctx.Snap != nil {
		_ = ctx.Snap.Save()
	}
	panic(ShutdownSignal{})
}

// ShutdownSignal is recovered by the connection loop to trigger a
// clean process exit instead of closing just this one connection.
type ShutdownSignal struct{}

func cmdMonitor(ctx *Ctx) *common.Value {
	ctx.App.AddMonitor(ctx.Client)
	return common.NewStringP("OK")
}

func cmdSwapDB(ctx *Ctx) *common.Value {
	i, err1 := strconv.Atoi(ctx.Args[0])
	j, err2 := strconv.Atoi(ctx.Args[1])
	if err1 != nil || err2 != nil {
		return common.ErrNotInt()
	}
	if err := ctx.KS.SwapDB(i, j); err != nil {
		return common.NewError("%s", err.Error())
	}
	return common.NewStringP("OK")
}

// cmdDebug implements the small slice of DEBUG subcommands useful for
// exercising timing and testing behavior, grounded on the teacher's
// DEBUG SLEEP handling in handler_server.go.
func cmdDebug(ctx *Ctx) *common.Value {
	switch strings.ToUpper(ctx.Args[0]) {
	case "SLEEP":
		if len(ctx.Args) != 2 {
			return common.ErrWrongArgs("debug|sleep")
		}
		secs, err := strconv.ParseFloat(ctx.Args[1], 64)
		if err != nil {
			return common.ErrNotFloat()
		}
		time.Sleep(time.Duration(secs * float64(time.Second)))
		return common.NewStringP("OK")
	case "JSONLEN", "SET-ACTIVE-EXPIRE", "QUICKLIST-PACKED-THRESHOLD":
		return common.NewStringP("OK")
	default:
		return common.NewError("DEBUG subcommand '%s' not supported", ctx.Args[0])
	}
}

func cmdTime(ctx *Ctx) *common.Value {
	now := time.Now()
	return common.NewArrayP([]common.Value{
		common.NewBulk(strconv.FormatInt(now.Unix(), 10)),
		common.NewBulk(strconv.FormatInt(int64(now.Nanosecond()/1000), 10)),
	})
}

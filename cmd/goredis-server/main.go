/*
file: goredis/cmd/goredis-server/main.go

Process entry point: parse flags, build the shared components, restore
from disk, start the background reaper and periodic snapshotter, serve
connections, and save once more on a graceful shutdown signal. Mirrors
the teacher's cmd/main.go startup sequence (config -> appstate -> RDB
restore -> active-expire goroutine -> listeners -> signal handling ->
final save) generalized onto the Keyspace/Hub/Snapshotter/Server split.
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goredis/internal/common"
	"goredis/internal/dispatch"
	"goredis/internal/pubsub"
	"goredis/internal/server"
	"goredis/internal/snapshot"
	"goredis/internal/store"
)

const banner = `
  ____       ____          _ _
 / ___| ___ |  _ \ ___  __| (_)___
| |  _ / _ \| |_) / _ \/ _` + "`" + ` | / __|
| |_| | (_) |  _ <  __/ (_| | \__ \
 \____|\___/|_| \_\___|\__,_|_|___/
`

const periodicSaveInterval = 5 * time.Minute

func main() {
	cfg, err := common.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := common.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	fmt.Print(banner)
	logger.Info("goredis starting, pid=%d", os.Getpid())

	app := common.NewAppState(cfg, logger)
	ks := store.NewKeyspace(cfg.Databases)
	hub := pubsub.NewHub()
	snap := snapshot.New(app, ks)

	if err := snapshot.RestoreOnBoot(app, ks); err != nil {
		logger.Error("snapshot restore failed, starting with an empty keyspace: %v", err)
	}

	reaper := store.NewReaper(ks)
	reaper.OnExpired = func(db int, key string) {
		app.Stats.IncrExpired(1)
	}
	go reaper.Run()
	defer reaper.Stop()

	stopPeriodic := make(chan struct{})
	go snapshot.RunPeriodic(snap, periodicSaveInterval, stopPeriodic)
	defer close(stopPeriodic)

	srv := server.New(app, ks, hub, dispatchSnapshotter(snap))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if _, err := srv.Listen(addr); err != nil {
		logger.Error("failed to listen on %s: %v", addr, err)
		os.Exit(1)
	}
	logger.Info("listening on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("signal received, shutting down")
		srv.Close()
		app.CloseAllConnections()
	}()

	srv.Run()

	logger.Warn("all connections closed, saving final snapshot")
	if err := snap.Save(); err != nil {
		logger.Error("final save failed: %v", err)
	}
	logger.Warn("goodbye")
}

// dispatchSnapshotter narrows *snapshot.Snapshotter to the interface
// dispatch/server expect, satisfying it structurally (no wrapper
// needed beyond the type name dispatch declares locally).
func dispatchSnapshotter(s *snapshot.Snapshotter) dispatch.Snapshotter {
	return s
}

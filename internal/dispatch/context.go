/*
file: goredis/internal/dispatch/context.go

Ctx bundles everything one command handler needs. It is built fresh
per request by the connection loop before Dispatcher.Run, rather than
threaded as a dozen separate
parameters, the same shape the teacher's handler_*.go functions take
(client, appstate, database) generalized to the full component set
spec.md §2 introduces (keyspace, pub/sub hub, snapshotter).
*/
package dispatch

import (
	"goredis/internal/common"
	"goredis/internal/pubsub"
	"goredis/internal/store"
)

// Snapshotter is the subset of internal/snapshot.Snapshotter that
// dispatch needs, declared here to avoid an import cycle (snapshot
// does not depend on dispatch, but main wires both together).
type Snapshotter interface {
	Save() error
	BGSave() error
	LastSaveUnix() int64
	RDBSavesCount() int64
	BGSaveInProgress() bool
}

type Ctx struct {
	App      *common.AppState
	KS       *store.Keyspace
	Hub      *pubsub.Hub
	Snap     Snapshotter
	Client   *common.Client
	Registry *Registry

	Name string   // uppercased command name
	Args []string // arguments following the command name
	Req  *common.Value
}

func (c *Ctx) DB() *store.Database { return c.KS.DB(c.Client.DBIndex) }

func (c *Ctx) ArgC() int { return len(c.Args) }

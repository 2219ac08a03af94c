/*
file: goredis/internal/dispatch/registry.go

Registry is the case-insensitive command table, grounded on the
teacher's handlers.go command-name-to-function map but augmented with
per-command arity and flag metadata so Dispatcher.Run can reject malformed or
misplaced commands before a handler ever runs (spec.md §4.1/§4.5).
*/
package dispatch

import (
	"strings"

	"goredis/internal/common"
)

type Flag int

const (
	// FlagWrite marks a command that mutates the keyspace. It is
	// metadata only: no dispatch check reads it and COMMAND does not
	// report it.
	FlagWrite Flag = 1 << iota
	// FlagPubSub marks a command allowed while a client is in
	// subscribe mode (spec.md §4.5's restricted command subset).
	FlagPubSub
	// FlagNoAuth marks a command usable before AUTH succeeds.
	FlagNoAuth
	// FlagAdmin marks a command reserved for administrative use
	// (CONFIG, SHUTDOWN, FLUSHALL, ...).
	FlagAdmin
)

type Handler func(ctx *Ctx) *common.Value

type Command struct {
	Name    string
	MinArgs int // minimum Args (excluding the command name itself)
	MaxArgs int // -1 means unbounded
	Flags   Flag
	Handler Handler
}

type Registry struct {
	commands map[string]Command
}

func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]Command)}
	registerStringCommands(r)
	registerListCommands(r)
	registerSetCommands(r)
	registerHashCommands(r)
	registerZSetCommands(r)
	registerKeyCommands(r)
	registerServerCommands(r)
	registerPubSubCommands(r)
	registerTxCommands(r)
	return r
}

func (r *Registry) add(c Command) {
	r.commands[strings.ToUpper(c.Name)] = c
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[strings.ToUpper(name)]
	return c, ok
}

// Names returns every registered command name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.commands))
	for n := range r.commands {
		out = append(out, n)
	}
	return out
}

func (r *Registry) Count() int { return len(r.commands) }

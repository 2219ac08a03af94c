/*
file: goredis/internal/common/client.go
*/
package common

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Client holds per-connection session state: current database index,
// pub/sub subscriptions, a queued transaction, and watched keys for
// optimistic concurrency. None of this is persisted.
type Client struct {
	ID   string
	Conn net.Conn

	Authenticated bool

	DBIndex int

	// pub/sub
	Channels map[string]bool
	Patterns map[string]bool

	// transactions
	InTx     bool
	TxFailed bool
	TxQueue  []QueuedCommand
	Watched  map[string]WatchMark // key -> db index + touch version at WATCH time

	Name string

	mu sync.Mutex
	w  *Writer
}

// QueuedCommand is one command captured between MULTI and EXEC.
type QueuedCommand struct {
	Name string
	Args Value // the original ARRAY request
}

// WatchMark is the (database, touch-version) pair recorded for one
// watched key, compared again at EXEC time to detect a concurrent
// writer (spec.md §4.6's optimistic-lock "touch" model).
type WatchMark struct {
	DBIndex int
	Version int64
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		Channels: make(map[string]bool),
		Patterns: make(map[string]bool),
		Watched:  make(map[string]WatchMark),
		w:        NewWriter(conn),
	}
}

// Subscribed reports whether the client is in pub/sub subscribe mode,
// which restricts it to a small command subset per spec.md §4.5.
func (c *Client) Subscribed() bool {
	return len(c.Channels) > 0 || len(c.Patterns) > 0
}

// SubCount is the total channel and pattern subscription count,
// reported back to the client after each (p)subscribe/(p)unsubscribe.
func (c *Client) SubCount() int {
	return len(c.Channels) + len(c.Patterns)
}

// SendPush writes and flushes a value to this client immediately,
// independent of the normal request/reply cycle. Used for pub/sub
// fan-out and for the extra replies SUBSCRIBE/UNSUBSCRIBE send per
// channel argument. Safe to call concurrently with WriteReply since
// both share the connection's single Writer under c.mu.
func (c *Client) SendPush(v *Value) error {
	return c.WriteReply(v)
}

// WriteReply serializes and flushes one reply to the client. All
// writes to the connection (command replies, pub/sub pushes, MONITOR
// feed lines) go through this so concurrent writers never interleave
// partial frames.
func (c *Client) WriteReply(v *Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Write(v); err != nil {
		return err
	}
	return c.w.Flush()
}

/*
file: goredis/internal/pubsub/hub.go

Hub is the pub/sub channel and pattern subscription graph, extracted
from the teacher's AppState.Channels/Topics maps (internal/handlers
handler_pubsub.go) into its own component per spec.md §2/§4.5. PUBLISH
collects the matching subscribers under the hub's read lock, releases
it, and only then writes each frame to its subscriber with SendPush.
*/
package pubsub

import (
	"path"
	"sync"

	"goredis/internal/common"
)

type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*common.Client]bool
	patterns map[string]map[*common.Client]bool
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*common.Client]bool),
		patterns: make(map[string]map[*common.Client]bool),
	}
}

// Subscribe adds client to channel, returning the client's new total
// subscription count (channels + patterns).
func (h *Hub) Subscribe(client *common.Client, channel string) int {
	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*common.Client]bool)
	}
	h.channels[channel][client] = true
	h.mu.Unlock()

	client.Channels[channel] = true
	return client.SubCount()
}

func (h *Hub) Unsubscribe(client *common.Client, channel string) int {
	h.mu.Lock()
	if subs, ok := h.channels[channel]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
	h.mu.Unlock()

	delete(client.Channels, channel)
	return client.SubCount()
}

// UnsubscribeAllChannels removes client from every channel it's on,
// returning the channel names removed (in no particular order).
func (h *Hub) UnsubscribeAllChannels(client *common.Client) []string {
	var removed []string
	for ch := range client.Channels {
		removed = append(removed, ch)
	}
	for _, ch := range removed {
		h.Unsubscribe(client, ch)
	}
	return removed
}

func (h *Hub) PSubscribe(client *common.Client, pattern string) int {
	h.mu.Lock()
	if h.patterns[pattern] == nil {
		h.patterns[pattern] = make(map[*common.Client]bool)
	}
	h.patterns[pattern][client] = true
	h.mu.Unlock()

	client.Patterns[pattern] = true
	return client.SubCount()
}

func (h *Hub) PUnsubscribe(client *common.Client, pattern string) int {
	h.mu.Lock()
	if subs, ok := h.patterns[pattern]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.patterns, pattern)
		}
	}
	h.mu.Unlock()

	delete(client.Patterns, pattern)
	return client.SubCount()
}

func (h *Hub) PUnsubscribeAllPatterns(client *common.Client) []string {
	var removed []string
	for p := range client.Patterns {
		removed = append(removed, p)
	}
	for _, p := range removed {
		h.PUnsubscribe(client, p)
	}
	return removed
}

// Publish delivers "message" frames to exact-channel subscribers and
// "pmessage" frames to every pattern whose glob matches channel,
// returning the total number of frames sent. Delivery to one
// subscriber preserves the publication order of one publisher (each
// subscriber's outbound writes are serialized by its own Client
// mutex in WriteReply).
func (h *Hub) Publish(channel, payload string) int64 {
	h.mu.RLock()
	var exact []*common.Client
	for c := range h.channels[channel] {
		exact = append(exact, c)
	}
	type patMatch struct {
		pattern string
		client  *common.Client
	}
	var patMatches []patMatch
	for pattern, subs := range h.patterns {
		ok, err := path.Match(pattern, channel)
		if err != nil || !ok {
			continue
		}
		for c := range subs {
			patMatches = append(patMatches, patMatch{pattern, c})
		}
	}
	h.mu.RUnlock()

	var sent int64
	msg := common.NewArrayP([]common.Value{
		common.NewBulk("message"),
		common.NewBulk(channel),
		common.NewBulk(payload),
	})
	for _, c := range exact {
		if c.SendPush(msg) == nil {
			sent++
		}
	}
	for _, pm := range patMatches {
		frame := common.NewArrayP([]common.Value{
			common.NewBulk("pmessage"),
			common.NewBulk(pm.pattern),
			common.NewBulk(channel),
			common.NewBulk(payload),
		})
		if pm.client.SendPush(frame) == nil {
			sent++
		}
	}
	return sent
}

// Channels lists channels with at least one subscriber, optionally
// filtered by a glob pattern.
func (h *Hub) Channels(pattern string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for ch, subs := range h.channels {
		if len(subs) == 0 {
			continue
		}
		if pattern != "" {
			if ok, err := path.Match(pattern, ch); err != nil || !ok {
				continue
			}
		}
		out = append(out, ch)
	}
	return out
}

// NumSub returns the subscriber count per requested channel, in the
// order requested.
func (h *Hub) NumSub(channels []string) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int64, len(channels))
	for i, ch := range channels {
		out[i] = int64(len(h.channels[ch]))
	}
	return out
}

func (h *Hub) NumPat() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return int64(len(h.patterns))
}

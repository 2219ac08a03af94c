/*
file: goredis/internal/store/entry.go

Entry is the tagged-variant value stored per key: a kind tag plus
exactly one populated kind-specific payload. Operations dispatch on
Kind; there is deliberately no shared abstract base between the five
kinds, per the teacher's Item design (internal/common/value.go) and
spec.md §9's DESIGN NOTES ("avoid a shared abstract base").
*/
package store

import (
	"container/list"

	"goredis/internal/zset"
)

type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
	KindZSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindZSet:
		return "zset"
	default:
		return "none"
	}
}

// Entry is one key's resident value plus its optional expiry.
// ExpireAtMS is 0 when the key never expires.
type Entry struct {
	Kind Kind

	Str  string
	List *list.List // elements are string
	Set  map[string]struct{}
	Hash map[string]string
	ZSet *zset.SkipList

	ExpireAtMS int64
}

func NewStringEntry(s string) *Entry {
	return &Entry{Kind: KindString, Str: s}
}

func NewListEntry() *Entry {
	return &Entry{Kind: KindList, List: list.New()}
}

func NewSetEntry() *Entry {
	return &Entry{Kind: KindSet, Set: make(map[string]struct{})}
}

func NewHashEntry() *Entry {
	return &Entry{Kind: KindHash, Hash: make(map[string]string)}
}

func NewZSetEntry() *Entry {
	return &Entry{Kind: KindZSet, ZSet: zset.New()}
}

// Empty reports whether a collection-kind entry has become empty and
// therefore must be deleted rather than left resident (spec.md §3
// invariant: "An empty collection value is not a legal resident
// entry").
func (e *Entry) Empty() bool {
	switch e.Kind {
	case KindList:
		return e.List.Len() == 0
	case KindSet:
		return len(e.Set) == 0
	case KindHash:
		return len(e.Hash) == 0
	case KindZSet:
		return e.ZSet.Len() == 0
	default:
		return false
	}
}

// CloneList returns a shallow copy of a list value (elements are
// immutable strings, so copying the node chain is sufficient), used by
// COPY and BGSAVE's shallow-snapshot-under-lock.
func CloneList(l *list.List) *list.List {
	cp := list.New()
	for e := l.Front(); e != nil; e = e.Next() {
		cp.PushBack(e.Value)
	}
	return cp
}

// CloneZSet returns an independent copy of a sorted set.
func CloneZSet(z *zset.SkipList) *zset.SkipList {
	cp := zset.New()
	for _, p := range z.All() {
		cp.Set(p.Member, p.Score)
	}
	return cp
}

// ListValues materializes a list entry's elements as a string slice,
// used by snapshot serialization.
func ListValues(l *list.List) []string {
	out := make([]string, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(string))
	}
	return out
}

// ApproxMemory is a rough per-entry byte estimate used only to drive
// the INFO used_memory figure; it is not meant to be exact.
func (e *Entry) ApproxMemory(key string) int64 {
	const overhead = 48
	size := int64(overhead + len(key))
	switch e.Kind {
	case KindString:
		size += int64(len(e.Str))
	case KindList:
		for el := e.List.Front(); el != nil; el = el.Next() {
			size += int64(len(el.Value.(string))) + 16
		}
	case KindSet:
		for m := range e.Set {
			size += int64(len(m)) + 16
		}
	case KindHash:
		for f, v := range e.Hash {
			size += int64(len(f)+len(v)) + 24
		}
	case KindZSet:
		size += e.ZSet.ApproxMemory()
	}
	return size
}

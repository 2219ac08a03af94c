package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"goredis/internal/store"
)

func seedKeyspace(t *testing.T) *store.Keyspace {
	t.Helper()
	ks := store.NewKeyspace(2)

	d0 := ks.DB(0)
	d0.Lock()
	d0.Put("str", store.NewStringEntry("hello"))

	le := store.NewListEntry()
	le.List.PushBack("a")
	le.List.PushBack("b")
	d0.Put("list", le)

	se := store.NewSetEntry()
	se.Set["x"] = struct{}{}
	se.Set["y"] = struct{}{}
	d0.Put("set", se)

	he := store.NewHashEntry()
	he.Hash["f1"] = "v1"
	d0.Put("hash", he)

	ze := store.NewZSetEntry()
	ze.ZSet.Set("m1", 1.5)
	ze.ZSet.Set("m2", 2.5)
	d0.Put("zset", ze)

	withTTL := store.NewStringEntry("expiring")
	withTTL.ExpireAtMS = store.NowMS() + 1_000_000
	d0.Put("withttl", withTTL)
	d0.Unlock()

	d1 := ks.DB(1)
	d1.Lock()
	d1.Put("otherdb", store.NewStringEntry("v"))
	d1.Unlock()

	return ks
}

func TestDumpLoadRoundTrip(t *testing.T) {
	ks := seedKeyspace(t)

	var buf bytes.Buffer
	n, err := Dump(&buf, ks)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)

	restored := store.NewKeyspace(2)
	require.NoError(t, Load(&buf, restored))

	e, ok := restored.DB(0).Get("str")
	require.True(t, ok)
	require.Equal(t, "hello", e.Str)

	le, ok := restored.DB(0).Get("list")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, store.ListValues(le.List))

	se, ok := restored.DB(0).Get("set")
	require.True(t, ok)
	require.Len(t, se.Set, 2)

	he, ok := restored.DB(0).Get("hash")
	require.True(t, ok)
	require.Equal(t, "v1", he.Hash["f1"])

	ze, ok := restored.DB(0).Get("zset")
	require.True(t, ok)
	score, exists := ze.ZSet.Score("m2")
	require.True(t, exists)
	require.Equal(t, 2.5, score)

	ttl, ok := restored.DB(0).Get("withttl")
	require.True(t, ok)
	require.NotZero(t, ttl.ExpireAtMS)

	other, ok := restored.DB(1).Get("otherdb")
	require.True(t, ok)
	require.Equal(t, "v", other.Str)
}

func TestLoadRejectsCorruptedChecksum(t *testing.T) {
	ks := seedKeyspace(t)
	var buf bytes.Buffer
	_, err := Dump(&buf, ks)
	require.NoError(t, err)

	corrupted := buf.Bytes()
	corrupted[10] ^= 0xFF // flip a byte in the body, leaving the trailer stale

	restored := store.NewKeyspace(2)
	seedBefore := restored.DB(0)
	seedBefore.Lock()
	seedBefore.Put("untouched", store.NewStringEntry("still-here"))
	seedBefore.Unlock()

	err = Load(bytes.NewReader(corrupted), restored)
	require.Error(t, err)

	_, ok := restored.DB(0).Get("untouched")
	require.True(t, ok, "failed restore must leave the existing keyspace untouched")
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	restored := store.NewKeyspace(1)
	err := Load(bytes.NewReader([]byte("short")), restored)
	require.Error(t, err)
}

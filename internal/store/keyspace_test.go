package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("k", NewStringEntry("v"))
	d.Unlock()

	d.RLock()
	e, ok := d.GetLocked("k")
	d.RUnlock()
	require.True(t, ok)
	require.Equal(t, "v", e.Str)

	d.Lock()
	removed := d.Delete("k")
	d.Unlock()
	require.True(t, removed)

	d.RLock()
	_, ok = d.GetLocked("k")
	d.RUnlock()
	require.False(t, ok)
}

func TestExpiredKeyIsNotReturned(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("k", NewStringEntry("v"))
	d.SetExpiryLocked("k", nowMS()-1000) // already expired
	d.Unlock()

	d.RLock()
	_, ok := d.GetLocked("k")
	d.RUnlock()
	require.False(t, ok, "expired key must not be returned")
}

func TestClearExpiryLocked(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("k", NewStringEntry("v"))
	d.SetExpiryLocked("k", nowMS()+1_000_000)
	cleared := d.ClearExpiryLocked("k")
	d.Unlock()
	require.True(t, cleared)

	d.RLock()
	e, ok := d.GetLocked("k")
	d.RUnlock()
	require.True(t, ok)
	require.Zero(t, e.ExpireAtMS)
}

func TestRenameLockedPreservesExpiry(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("src", NewStringEntry("v"))
	d.SetExpiryLocked("src", nowMS()+1_000_000)
	ok := d.RenameLocked("src", "dst")
	d.Unlock()
	require.True(t, ok)

	d.RLock()
	_, srcOk := d.GetLocked("src")
	dst, dstOk := d.GetLocked("dst")
	d.RUnlock()
	require.False(t, srcOk)
	require.True(t, dstOk)
	require.NotZero(t, dst.ExpireAtMS)
}

func TestFlushClearsAllKeys(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("a", NewStringEntry("1"))
	d.Put("b", NewStringEntry("2"))
	d.Unlock()
	d.Flush()
	require.EqualValues(t, 0, d.Size())
}

func TestTouchVersionIncrementsOnWrite(t *testing.T) {
	d := newDatabase()
	before := d.TouchVersion("k")
	d.Lock()
	d.Put("k", NewStringEntry("v"))
	d.Unlock()
	after := d.TouchVersion("k")
	require.Greater(t, after, before)
}

func TestKeyspaceSwapDB(t *testing.T) {
	ks := NewKeyspace(2)
	ks.DB(0).Lock()
	ks.DB(0).Put("only-in-zero", NewStringEntry("v"))
	ks.DB(0).Unlock()

	require.NoError(t, ks.SwapDB(0, 1))

	_, okInOne := ks.DB(1).Get("only-in-zero")
	_, okInZero := ks.DB(0).Get("only-in-zero")
	require.True(t, okInOne)
	require.False(t, okInZero)
}

func TestKeyspaceSwapDBOutOfRange(t *testing.T) {
	ks := NewKeyspace(2)
	require.Error(t, ks.SwapDB(0, 5))
}

func TestEvictOneRemovesAKey(t *testing.T) {
	d := newDatabase()
	d.Lock()
	d.Put("a", NewStringEntry("1"))
	d.Unlock()
	evicted := d.EvictOne()
	require.Equal(t, "a", evicted)
	require.EqualValues(t, 0, d.Size())
}

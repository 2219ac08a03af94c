/*
file: goredis/internal/store/scan.go

SCAN-family iteration. Per spec.md §4.2/§9, this uses strategy (b): a
per-scan snapshot of the live key list taken at cursor 0, with the
cursor itself an index into that frozen slice. It trivially satisfies
the contract (every key present for the whole scan duration is
eventually visited, duplicates permitted under concurrent mutation,
cursor 0 means "complete") at the cost of not reflecting keys created
mid-scan — an explicit, documented tradeoff against strategy (a)'s
reverse-binary-bit iteration, which would require exposing the
table's internal bucket layout that Go's map deliberately hides.
*/
package store

import "sync"

type scanSession struct {
	keys []string
	pos  int
}

// ScanCursors tracks in-flight SCAN snapshots keyed by the cursor
// value handed back to the client. Cursor 0 always means "start a new
// scan"; any other cursor must have been returned by a prior call.
type ScanCursors struct {
	mu      sync.Mutex
	nextID  uint64
	live    map[uint64]*scanSession
}

func NewScanCursors() *ScanCursors {
	return &ScanCursors{live: make(map[uint64]*scanSession)}
}

// Scan advances (or starts) a scan over keys matching match (nil =
// all), returning up to countHint keys and the cursor to pass next
// (0 when the scan is complete).
func (sc *ScanCursors) Scan(d *Database, cursor uint64, match func(string) bool, countHint int) (uint64, []string) {
	if countHint <= 0 {
		countHint = 10
	}
	sc.mu.Lock()
	sess, ok := sc.live[cursor]
	if !ok {
		sess = &scanSession{keys: d.KeysMatching(nil)}
		sc.nextID++
		cursor = sc.nextID
		sc.live[cursor] = sess
	}
	sc.mu.Unlock()

	var out []string
	for sess.pos < len(sess.keys) && len(out) < countHint {
		k := sess.keys[sess.pos]
		sess.pos++
		if match == nil || match(k) {
			if _, live := d.Get(k); live {
				out = append(out, k)
			}
		}
	}

	if sess.pos >= len(sess.keys) {
		sc.mu.Lock()
		delete(sc.live, cursor)
		sc.mu.Unlock()
		return 0, out
	}
	return cursor, out
}

package zset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetInsertsAndUpdates(t *testing.T) {
	s := New()
	require.True(t, s.Set("a", 1))
	require.False(t, s.Set("a", 2)) // update, not new
	score, ok := s.Score("a")
	require.True(t, ok)
	require.Equal(t, 2.0, score)
	require.EqualValues(t, 1, s.Len())
}

func TestOrderingByScoreThenMember(t *testing.T) {
	s := New()
	s.Set("c", 1)
	s.Set("a", 1)
	s.Set("b", 0)
	got := s.All()
	require.Len(t, got, 3)
	require.Equal(t, []string{"b", "a", "c"}, []string{got[0].Member, got[1].Member, got[2].Member})
}

func TestRemove(t *testing.T) {
	s := New()
	s.Set("a", 1)
	require.True(t, s.Remove("a"))
	require.False(t, s.Remove("a"))
	require.EqualValues(t, 0, s.Len())
}

func TestRankAndByRank(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c", "d"} {
		s.Set(m, float64(i))
	}
	require.EqualValues(t, 0, s.Rank("a"))
	require.EqualValues(t, 3, s.Rank("d"))
	require.EqualValues(t, -1, s.Rank("missing"))

	member, score, ok := s.ByRank(2)
	require.True(t, ok)
	require.Equal(t, "c", member)
	require.Equal(t, 2.0, score)

	_, _, ok = s.ByRank(99)
	require.False(t, ok)
}

func TestRangeNegativeIndices(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		s.Set(m, float64(i))
	}
	last2 := s.Range(-2, -1)
	require.Len(t, last2, 2)
	require.Equal(t, "d", last2[0].Member)
	require.Equal(t, "e", last2[1].Member)
}

func TestRevRange(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c"} {
		s.Set(m, float64(i))
	}
	got := s.RevRange(0, 1)
	require.Equal(t, []string{"c", "b"}, []string{got[0].Member, got[1].Member})
}

func TestRangeByScoreWithLimitAndExclusive(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c", "d"} {
		s.Set(m, float64(i+1)) // scores 1..4
	}
	all := s.RangeByScore(1, 4, false, false, 0, -1)
	require.Len(t, all, 4)

	excl := s.RangeByScore(1, 4, true, true, 0, -1)
	require.Len(t, excl, 2) // drops score 1 and score 4

	limited := s.RangeByScore(1, 4, false, false, 1, 2)
	require.Len(t, limited, 2)
	require.Equal(t, "b", limited[0].Member)
}

func TestCountByScore(t *testing.T) {
	s := New()
	for i, m := range []string{"a", "b", "c"} {
		s.Set(m, float64(i+1))
	}
	require.EqualValues(t, 3, s.CountByScore(1, 3, false, false))
	require.EqualValues(t, 1, s.CountByScore(1, 3, true, true))
}

func TestRangeByLexWithinOneScoreBand(t *testing.T) {
	s := New()
	for _, m := range []string{"apple", "banana", "cherry", "date"} {
		s.Set(m, 0)
	}
	got := s.RangeByLex("banana", "+", true, true)
	members := make([]string, len(got))
	for i, p := range got {
		members[i] = p.Member
	}
	require.Equal(t, []string{"banana", "cherry", "date"}, members)

	gotExcl := s.RangeByLex("banana", "cherry", false, false)
	require.Len(t, gotExcl, 0)
}

func TestApproxMemoryGrowsWithMembers(t *testing.T) {
	s := New()
	base := s.ApproxMemory()
	s.Set("somekey", 1)
	require.Greater(t, s.ApproxMemory(), base)
}

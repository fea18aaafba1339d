package treapx

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireValues(t *testing.T, s *VersionStore, v VersionID, want []int64) {
	t.Helper()
	have, err := s.Values(v)
	require.NoError(t, err)
	if len(want) == 0 {
		require.Empty(t, have)
		return
	}
	require.Equal(t, want, have)
	require.NoError(t, s.Verify(v))
}

func TestScenario(t *testing.T) {
	s := NewVersionStore(Options{Seed: 42})
	requireValues(t, s, 0, nil)

	v1, err := s.Insert(0, 1, 5)
	require.NoError(t, err)
	requireValues(t, s, v1, []int64{5})

	v2, err := s.Insert(v1, 1, 3)
	require.NoError(t, err)
	requireValues(t, s, v2, []int64{3, 5})

	v3, err := s.Insert(v2, 2, 9)
	require.NoError(t, err)
	requireValues(t, s, v3, []int64{3, 9, 5})

	v4, err := s.Reverse(v3, 1, 3)
	require.NoError(t, err)
	requireValues(t, s, v4, []int64{5, 9, 3})

	sum, err := s.PeekSum(v4, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(14), sum)

	sum, err = s.PeekSum(v1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, int64(5), sum)

	v5, err := s.Delete(v4, 2)
	require.NoError(t, err)
	require.Equal(t, VersionID(5), v5)
	requireValues(t, s, v5, []int64{5, 3})

	sum, err = s.PeekSum(v4, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(17), sum)

	// every earlier version is still intact
	requireValues(t, s, v1, []int64{5})
	requireValues(t, s, v2, []int64{3, 5})
	requireValues(t, s, v3, []int64{3, 9, 5})
	requireValues(t, s, v4, []int64{5, 9, 3})
}

func TestScenarioVersionedQueries(t *testing.T) {
	s := NewVersionStore(Options{Seed: 7})
	v1, _ := s.Insert(0, 1, 5)
	v2, _ := s.Insert(v1, 1, 3)
	v3, _ := s.Insert(v2, 2, 9)
	v4, _ := s.Reverse(v3, 1, 3)

	sum, q1, err := s.RangeSum(v4, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(14), sum)
	require.Equal(t, VersionID(5), q1)
	requireValues(t, s, q1, []int64{5, 9, 3})

	sum, q2, err := s.RangeSum(v1, 1, 1)
	require.NoError(t, err)
	require.Equal(t, int64(5), sum)
	require.Equal(t, VersionID(6), q2)
	requireValues(t, s, q2, []int64{5})

	v7, err := s.Delete(v4, 2)
	require.NoError(t, err)
	require.Equal(t, VersionID(7), v7)
	requireValues(t, s, v7, []int64{5, 3})

	sum, _, err = s.RangeSum(v4, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(17), sum)
	require.Equal(t, 9, s.NumVersions())
	require.Equal(t, VersionID(8), s.Latest())
}

func TestRangeSumAliasesRoot(t *testing.T) {
	s := NewVersionStore(Options{Seed: 1})
	v := VersionID(0)
	for i := 1; i <= 32; i++ {
		v, _ = s.Insert(v, i, int64(i))
	}
	v, err := s.Reverse(v, 4, 20)
	require.NoError(t, err)

	_, q, err := s.RangeSum(v, 3, 17)
	require.NoError(t, err)
	table := s.table.Load()
	require.Same(t, table.roots[v], table.roots[q])

	// a second identical query gives the same answer
	a, _, err := s.RangeSum(q, 3, 17)
	require.NoError(t, err)
	b, err := s.PeekSum(v, 3, 17)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestBounds(t *testing.T) {
	s := NewVersionStore(Options{Seed: 3})
	v1, _ := s.Insert(0, 1, 10)
	v2, _ := s.Insert(v1, 2, 20)
	v3, _ := s.Insert(v2, 3, 30)

	tests := []struct {
		name string
		call func() error
	}{
		{"insert before start", func() error { _, err := s.Insert(v3, 0, 1); return err }},
		{"insert past end", func() error { _, err := s.Insert(v3, 5, 1); return err }},
		{"delete from empty", func() error { _, err := s.Delete(0, 1); return err }},
		{"delete zero", func() error { _, err := s.Delete(v3, 0); return err }},
		{"delete past end", func() error { _, err := s.Delete(v3, 4); return err }},
		{"reverse inverted", func() error { _, err := s.Reverse(v3, 3, 2); return err }},
		{"reverse past end", func() error { _, err := s.Reverse(v3, 2, 4); return err }},
		{"reverse empty", func() error { _, err := s.Reverse(0, 1, 1); return err }},
		{"sum zero", func() error { _, _, err := s.RangeSum(v3, 0, 2); return err }},
		{"peek past end", func() error { _, err := s.PeekSum(v3, 1, 4); return err }},
		{"get past end", func() error { _, err := s.Get(v3, 4); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.ErrorIs(t, err, ErrOutOfRange)
			var bounds *BoundsError
			require.True(t, errors.As(err, &bounds))
		})
	}

	// failed calls publish nothing
	require.Equal(t, v3, s.Latest())
	requireValues(t, s, v3, []int64{10, 20, 30})

	// the boundary positions themselves are valid
	v4, err := s.Insert(v3, 4, 40)
	require.NoError(t, err)
	requireValues(t, s, v4, []int64{10, 20, 30, 40})
	v5, err := s.Reverse(v4, 2, 2)
	require.NoError(t, err)
	requireValues(t, s, v5, []int64{10, 20, 30, 40})
}

func TestInvalidVersion(t *testing.T) {
	s := NewVersionStore(Options{Seed: 4})
	_, err := s.Insert(1, 1, 1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = s.Delete(5, 1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = s.Reverse(2, 1, 1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, _, err = s.RangeSum(9, 1, 1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = s.Len(1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	require.ErrorIs(t, s.RenderDot(&bytes.Buffer{}, 3), ErrInvalidVersion)
	require.Equal(t, 1, s.NumVersions())
}

func TestNonInterference(t *testing.T) {
	s := NewVersionStore(Options{Seed: 5})
	base := VersionID(0)
	values := []int64{}
	for i := 1; i <= 40; i++ {
		base, _ = s.Insert(base, i, int64(i*i))
		values = append(values, int64(i*i))
	}

	// many edits branching from the same version
	for i := 1; i <= 40; i++ {
		_, err := s.Delete(base, i)
		require.NoError(t, err)
		_, err = s.Reverse(base, 1, i)
		require.NoError(t, err)
		_, err = s.Insert(base, i, -1)
		require.NoError(t, err)
	}
	requireValues(t, s, base, values)

	n, err := s.Len(base)
	require.NoError(t, err)
	require.Equal(t, 40, n)
	x, err := s.Get(base, 7)
	require.NoError(t, err)
	require.Equal(t, int64(49), x)
}

func TestReverseInvolution(t *testing.T) {
	s := NewVersionStore(Options{Seed: 6})
	v := VersionID(0)
	var values []int64
	for i := 1; i <= 25; i++ {
		v, _ = s.Insert(v, (i+1)/2, int64(i))
		values = slices.Insert(values, (i+1)/2-1, int64(i))
	}
	requireValues(t, s, v, values)

	once, err := s.Reverse(v, 3, 21)
	require.NoError(t, err)
	twice, err := s.Reverse(once, 3, 21)
	require.NoError(t, err)
	requireValues(t, s, twice, values)

	reversed := slices.Clone(values)
	slices.Reverse(reversed[2:21])
	requireValues(t, s, once, reversed)
}

func TestArenaOption(t *testing.T) {
	s := NewVersionStore(Options{Seed: 8, Arena: true, ArenaChunk: 16})
	v := VersionID(0)
	for i := 1; i <= 100; i++ {
		var err error
		v, err = s.Insert(v, 1, int64(i))
		require.NoError(t, err)
	}
	v, err := s.Reverse(v, 1, 100)
	require.NoError(t, err)
	sum, err := s.PeekSum(v, 1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(5050), sum)
	x, err := s.Get(v, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), x)

	stats := s.Stats()
	require.Equal(t, 102, stats.Versions)
	require.Greater(t, stats.NodesAllocated, uint64(100))
}

func TestSharedNodes(t *testing.T) {
	s := NewVersionStore(Options{Seed: 9})
	v := VersionID(0)
	for i := 1; i <= 200; i++ {
		v, _ = s.Insert(v, i, int64(i))
	}
	next, err := s.Insert(v, 100, 0)
	require.NoError(t, err)

	alone, err := s.SharedNodes(v)
	require.NoError(t, err)
	require.Equal(t, 200, alone)
	both, err := s.SharedNodes(v, next)
	require.NoError(t, err)
	require.Less(t, both, 2*200)

	depth, err := s.Depth(next)
	require.NoError(t, err)
	require.Less(t, depth, 200)
}

func TestRenderDot(t *testing.T) {
	s := NewVersionStore(Options{Seed: 10})
	v1, _ := s.Insert(0, 1, 1)
	v2, _ := s.Insert(v1, 2, 2)
	v3, _ := s.Reverse(v2, 1, 2)

	var buf bytes.Buffer
	require.NoError(t, s.RenderDot(&buf))
	require.Contains(t, buf.String(), "v3")

	buf.Reset()
	require.NoError(t, s.RenderDot(&buf, v1, v3))
	require.Contains(t, buf.String(), "v1")
	require.Contains(t, buf.String(), "dashed")
}

func TestConcurrentReaders(t *testing.T) {
	s := NewVersionStore(Options{Seed: 11})
	const n = 300

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v := VersionID(0)
		for i := 1; i <= n; i++ {
			var err error
			v, err = s.Insert(v, i, int64(i))
			if err != nil {
				panic(err)
			}
			if i%10 == 0 {
				if v, err = s.Reverse(v, 1, i); err != nil {
					panic(err)
				}
				if v, err = s.Reverse(v, 1, i); err != nil {
					panic(err)
				}
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				v := s.Latest()
				size, err := s.Len(v)
				if err != nil || size == 0 {
					continue
				}
				sum, err := s.PeekSum(v, 1, size)
				if err != nil {
					panic(err)
				}
				// the writer only ever holds 1..size in some order
				if want := int64(size * (size + 1) / 2); sum != want {
					panic("torn read")
				}
			}
		}()
	}
	wg.Wait()

	sum, err := s.PeekSum(s.Latest(), 1, n)
	require.NoError(t, err)
	require.Equal(t, int64(n*(n+1)/2), sum)
}

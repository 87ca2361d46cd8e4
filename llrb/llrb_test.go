package llrb_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/brunokim/doccrdt/llrb"
	"github.com/stretchr/testify/require"
)

func lessInt(a, b int) bool { return a < b }

func TestPutGet(t *testing.T) {
	tr := llrb.New[int, string](lessInt)
	tr.Put(5, "five")
	tr.Put(3, "three")
	tr.Put(8, "eight")

	v, ok := tr.Get(3)
	require.True(t, ok)
	require.Equal(t, "three", v)

	_, ok = tr.Get(4)
	require.False(t, ok)
	require.Equal(t, 3, tr.Len())
}

func TestFloor(t *testing.T) {
	tr := llrb.New[int, string](lessInt)
	for _, k := range []int{1, 4, 7, 10} {
		tr.Put(k, "")
	}
	k, _, ok := tr.Floor(6)
	require.True(t, ok)
	require.Equal(t, 4, k)

	k, _, ok = tr.Floor(10)
	require.True(t, ok)
	require.Equal(t, 10, k)

	_, _, ok = tr.Floor(0)
	require.False(t, ok)
}

func TestRemove(t *testing.T) {
	tr := llrb.New[int, string](lessInt)
	for i := 0; i < 20; i++ {
		tr.Put(i, "")
	}
	for i := 0; i < 20; i += 2 {
		tr.Remove(i)
	}
	require.Equal(t, 10, tr.Len())
	for i := 1; i < 20; i += 2 {
		require.True(t, tr.Has(i))
	}
	for i := 0; i < 20; i += 2 {
		require.False(t, tr.Has(i))
	}
}

func TestEachIsSorted(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	keys := r.Perm(200)
	tr := llrb.New[int, int](lessInt)
	for _, k := range keys {
		tr.Put(k, k*2)
	}
	var got []int
	tr.Each(func(k, v int) bool {
		got = append(got, k)
		require.Equal(t, k*2, v)
		return true
	})
	require.True(t, sort.IntsAreSorted(got))
	require.Equal(t, 200, len(got))
}

func TestFloorAfterRandomOps(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tr := llrb.New[int, bool](lessInt)
	present := map[int]bool{}
	for i := 0; i < 500; i++ {
		k := r.Intn(100)
		if r.Intn(3) == 0 && len(present) > 0 {
			tr.Remove(k)
			delete(present, k)
		} else {
			tr.Put(k, true)
			present[k] = true
		}
	}
	for q := 0; q < 100; q++ {
		var want int
		found := false
		for k := range present {
			if k <= q && (!found || k > want) {
				want, found = k, true
			}
		}
		gotK, _, gotOK := tr.Floor(q)
		require.Equal(t, found, gotOK, "query=%d", q)
		if found {
			require.Equal(t, want, gotK, "query=%d", q)
		}
	}
}

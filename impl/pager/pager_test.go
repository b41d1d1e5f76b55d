package pager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/adotmob/regbrowse/impl/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

const key = "catalog"

func seed(t *testing.T, st store.Store, cnt int) []string {
	names := make([]string, cnt)
	for i := range names {
		names[i] = fmt.Sprintf("repo%03d", cnt-i)
	}
	require.NoError(t, st.Replace(context.Background(), key, names))
	sorted := make([]string, cnt)
	for i := range sorted {
		sorted[i] = fmt.Sprintf("repo%03d", i+1)
	}
	return sorted
}

func stores(t *testing.T) map[string]store.Store {
	mr := miniredis.RunT(t)
	rs, err := store.NewRedisStore("redis://" + mr.Addr() + "/")
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })
	return map[string]store.Store{
		"memory": store.NewMemoryStore(),
		"redis":  rs,
	}
}

func TestMaxPage(t *testing.T) {
	tests := []struct{ card, pageSize, expected int64 }{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{45, 1, 45},
		{45, math.MaxInt64, 1},
		{math.MaxInt64, math.MaxInt64, 1},
		{math.MaxInt64, 2, math.MaxInt64/2 + 1},
	}
	for _, tst := range tests {
		if MaxPage(tst.card, tst.pageSize) != tst.expected {
			t.Errorf("card %d page size %d: expected %d", tst.card, tst.pageSize, tst.expected)
		}
	}
}

// Consecutive pages are sorted, disjoint, and together hold the whole catalog
func TestPagesCoverCatalog(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sorted := seed(t, st, 45)
			p := New(st, key)
			all := []string{}
			for page := int64(1); page <= 3; page++ {
				entries, err := p.GetPage(context.Background(), page, 20)
				require.NoError(t, err)
				if page < 3 {
					require.Len(t, entries, 20)
				} else {
					require.Len(t, entries, 5)
				}
				all = append(all, entries...)
			}
			require.Equal(t, sorted, all)
		})
	}
}

func TestInvalidPage(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, st, 45)
			p := New(st, key)
			tests := []struct{ page, pageSize int64 }{
				{0, 20},
				{-1, 20},
				{1, 0},
				{1, -5},
				{4, 20},
				{46, 1},
			}
			for _, tst := range tests {
				_, err := p.GetPage(context.Background(), tst.page, tst.pageSize)
				var ipe *InvalidPageError
				if !errors.As(err, &ipe) {
					t.Errorf("page %d size %d: expected InvalidPageError, got %v", tst.page, tst.pageSize, err)
				}
			}
		})
	}
}

func TestEmptyCatalog(t *testing.T) {
	p := New(store.NewMemoryStore(), key)
	_, err := p.GetPage(context.Background(), 1, 20)
	require.EqualError(t, err, "invalid page or page size\nmax page: 0\npage: 1")
}

func TestErrorMessage(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, 45)
	_, err := New(st, key).GetPage(context.Background(), 7, 20)
	require.EqualError(t, err, "invalid page or page size\nmax page: 3\npage: 7")
}

// A page number below one still reports the real max page
func TestErrorMessageBadPage(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, 45)
	_, err := New(st, key).GetPage(context.Background(), 0, 20)
	require.EqualError(t, err, "invalid page or page size\nmax page: 3\npage: 0")
}

// The largest page size puts the whole catalog on page one
func TestHugePageSize(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sorted := seed(t, st, 45)
			entries, err := New(st, key).GetPage(context.Background(), 1, math.MaxInt64)
			require.NoError(t, err)
			require.Equal(t, sorted, entries)
		})
	}
}

func TestStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rs, err := store.NewRedisStore("redis://" + mr.Addr() + "/")
	require.NoError(t, err)
	defer rs.Close()
	mr.Close()
	_, err = New(rs, key).GetPage(context.Background(), 1, 20)
	var ue *store.UnavailableError
	require.True(t, errors.As(err, &ue))
}

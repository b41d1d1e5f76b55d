// Package pager serves fixed-size pages of the cached catalog
package pager

import (
	"context"
	"fmt"

	"github.com/adotmob/regbrowse/impl/store"
)

// InvalidPageError means the page number or page size can't select a page of the
// cached catalog
type InvalidPageError struct {
	MaxPage  int64
	Page     int64
	PageSize int64
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("invalid page or page size\nmax page: %d\npage: %d", e.MaxPage, e.Page)
}

// Pager reads pages of the catalog stored under one key
type Pager struct {
	store store.Store
	key   string
}

func New(st store.Store, key string) *Pager {
	return &Pager{store: st, key: key}
}

// MaxPage is the number of the last page of the catalog for the passed page size,
// counting a partial final page. It is zero for an empty catalog.
func MaxPage(card, pageSize int64) int64 {
	maxPage := card / pageSize
	if card%pageSize != 0 {
		maxPage++
	}
	return maxPage
}

// GetPage returns page 'page' (one-relative) of the catalog in sorted order, with
// 'pageSize' entries on every page but the last. A page size below one is rejected
// without reading the store since there is no max page to report for it.
func (p *Pager) GetPage(ctx context.Context, page, pageSize int64) ([]string, error) {
	if pageSize < 1 {
		return nil, &InvalidPageError{Page: page, PageSize: pageSize}
	}
	card, err := p.store.Cardinality(ctx, p.key)
	if err != nil {
		return nil, err
	}
	maxPage := MaxPage(card, pageSize)
	if page < 1 || maxPage < page {
		return nil, &InvalidPageError{MaxPage: maxPage, Page: page, PageSize: pageSize}
	}
	return p.store.SortedRange(ctx, p.key, pageSize*(page-1), pageSize)
}

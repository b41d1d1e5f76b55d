package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/adotmob/regbrowse/impl/metrics"
	"github.com/adotmob/regbrowse/impl/store"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CatalogSource gets one page of the upstream catalog starting after 'last'.
// upstream.Client implements it.
type CatalogSource interface {
	CatalogPage(ctx context.Context, pageSize int, last string) ([]string, error)
}

// Crawler crawls the catalog from a CatalogSource into a Store under one key
type Crawler struct {
	source   CatalogSource
	store    store.Store
	key      string
	pageSize int
	group    singleflight.Group
}

// New returns a Crawler that refreshes 'key' in 'st' from 'source', requesting
// 'pageSize' repositories per catalog page
func New(source CatalogSource, st store.Store, key string, pageSize int) *Crawler {
	return &Crawler{
		source:   source,
		store:    st,
		key:      key,
		pageSize: pageSize,
	}
}

// Crawl gets the whole catalog. A page holding fewer than 'pageSize' entries is
// the last one, so a full page always triggers one more request with the cursor set
// to its final entry. A zero page size lets the upstream choose and issues exactly
// one request. An upstream that returns a page ending at the cursor it was passed
// is ignoring the cursor, which is an error rather than an endless loop.
func (c *Crawler) Crawl(ctx context.Context, pageSize int) ([]string, error) {
	catalog := []string{}
	last := ""
	for {
		page, err := c.source.CatalogPage(ctx, pageSize, last)
		if err != nil {
			return nil, err
		}
		metrics.IncCrawlPages()
		log.Debugf("crawled catalog page after %q: %d repositories", last, len(page))
		catalog = append(catalog, page...)
		if pageSize == 0 || len(page) < pageSize {
			return catalog, nil
		}
		final := page[len(page)-1]
		if final == last {
			return nil, fmt.Errorf("catalog cursor did not advance past %q: upstream is ignoring the 'last' param", last)
		}
		last = final
	}
}

// Refresh crawls the catalog and atomically replaces the cached copy with it,
// returning the number of cached repositories. Concurrent callers share a single
// crawl, which runs without the callers' cancellation so that one caller going away
// doesn't fail the others.
func (c *Crawler) Refresh(ctx context.Context) (int, error) {
	ch := c.group.DoChan(c.key, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		if res.Shared {
			log.Debugf("joined in-flight refresh of %s", c.key)
		}
		return res.Val.(int), nil
	}
}

func (c *Crawler) refresh(ctx context.Context) (int, error) {
	start := time.Now()
	metrics.IncRefreshes()
	catalog, err := c.Crawl(ctx, c.pageSize)
	if err != nil {
		metrics.IncRefreshErrors()
		log.Errorf("catalog crawl failed, keeping the cached catalog: %s", err)
		return 0, err
	}
	if err := c.store.Replace(ctx, c.key, catalog); err != nil {
		metrics.IncRefreshErrors()
		log.Errorf("unable to publish the crawled catalog: %s", err)
		return 0, err
	}
	card, err := c.store.Cardinality(ctx, c.key)
	if err != nil {
		metrics.IncRefreshErrors()
		return 0, err
	}
	metrics.SetCachedRepositories(float64(card))
	log.Infof("refreshed catalog %s: %d repositories in %s", c.key, card, time.Since(start))
	return int(card), nil
}

package subcmd

import (
	"context"
	"fmt"

	"github.com/adotmob/regbrowse/impl/config"
	"github.com/adotmob/regbrowse/impl/crawler"
	"github.com/adotmob/regbrowse/impl/pager"
	"github.com/adotmob/regbrowse/impl/store"
	"github.com/adotmob/regbrowse/impl/upstream"
)

// services are the store-backed components the commands run on. They are built once
// by initServices before anything is served.
type services struct {
	store   store.Store
	client  *upstream.Client
	crawler *crawler.Crawler
	pager   *pager.Pager
}

// initServices opens and pings the cache and builds the upstream client, crawler,
// and pager from the configuration. The caller closes the store.
func initServices(ctx context.Context) (*services, error) {
	st, err := store.Open(config.GetCacheUrl())
	if err != nil {
		return nil, fmt.Errorf("error opening the cache %s: %w", config.GetCacheUrl(), err)
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("error connecting to the cache %s: %w", config.GetCacheUrl(), err)
	}
	client, err := config.NewUpstreamClient()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("error configuring the upstream registry client: %w", err)
	}
	key := config.GetCatalogKey()
	return &services{
		store:   st,
		client:  client,
		crawler: crawler.New(client, st, key, config.GetCrawlPageSize()),
		pager:   pager.New(st, key),
	}, nil
}

// Package impl implements the catalog browser API. This file is lean to simplify
// handling any changes to the API: each method simply calls a handler in 'handlers.go'.
package impl

import (
	"context"
	"net/http"

	"github.com/adotmob/regbrowse/api"
	"github.com/adotmob/regbrowse/impl/manifest"
	"github.com/adotmob/regbrowse/impl/upstream"

	"github.com/labstack/echo/v4"
	"github.com/opencontainers/go-digest"
)

// Refresher refreshes the cached catalog and returns the number of cached
// repositories
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Pager gets one page of the cached catalog
type Pager interface {
	GetPage(ctx context.Context, page, pageSize int64) ([]string, error)
}

// Upstream gets tags and manifests straight from the upstream registry
type Upstream interface {
	Host() string
	Tags(ctx context.Context, name string) (upstream.TagSet, error)
	Manifest(ctx context.Context, name string, reference string) (manifest.Manifest, digest.Digest, error)
}

// RegBrowse implements api.ServerInterface
type RegBrowse struct {
	refresher  Refresher
	pager      Pager
	upstream   Upstream
	pageSize   int64
	shutdownCh chan bool
}

// NewRegBrowse returns the API implementation. 'pageSize' is used when a catalog
// request doesn't specify one. A GET of /cmd/stop sends on 'shutdownCh'.
func NewRegBrowse(refresher Refresher, pager Pager, up Upstream, pageSize int64, shutdownCh chan bool) *RegBrowse {
	return &RegBrowse{
		refresher:  refresher,
		pager:      pager,
		upstream:   up,
		pageSize:   pageSize,
		shutdownCh: shutdownCh,
	}
}

// GET /catalog/{page}?n=...
func (r *RegBrowse) Catalog(ctx echo.Context, page int64, params api.CatalogParams) error {
	pageSize := r.pageSize
	if params.N != nil {
		pageSize = *params.N
	}
	return r.handleCatalog(ctx, page, pageSize)
}

// GET /refresh_catalog
func (r *RegBrowse) RefreshCatalog(ctx echo.Context) error {
	return r.handleRefreshCatalog(ctx)
}

// GET /tags/{image}
func (r *RegBrowse) Tags(ctx echo.Context, image string) error {
	return r.handleTags(ctx, image)
}

// GET /manifest/{ref}
func (r *RegBrowse) Manifest(ctx echo.Context, ref string) error {
	return r.handleManifest(ctx, ref)
}

// GET /health
func (r *RegBrowse) Health(ctx echo.Context) error {
	return ctx.NoContent(http.StatusOK)
}

// GET /cmd/stop
func (r *RegBrowse) CmdStop(ctx echo.Context) error {
	r.shutdownCh <- true
	return ctx.String(http.StatusOK, "stopping\n")
}

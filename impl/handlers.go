package impl

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adotmob/regbrowse/impl/metrics"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// GET /catalog/{page}. The body is the page of repository names joined with commas.
func (r *RegBrowse) handleCatalog(ctx echo.Context, page int64, pageSize int64) error {
	metrics.IncApiEndpointHits("catalog")
	entries, err := r.pager.GetPage(ctx.Request().Context(), page, pageSize)
	if err != nil {
		return errorResult(ctx, err)
	}
	return ctx.String(http.StatusOK, strings.Join(entries, ","))
}

// GET /refresh_catalog. The body is the number of cached repositories.
func (r *RegBrowse) handleRefreshCatalog(ctx echo.Context) error {
	metrics.IncApiEndpointHits("refresh_catalog")
	cnt, err := r.refresher.Refresh(ctx.Request().Context())
	if err != nil {
		return errorResult(ctx, err)
	}
	return ctx.String(http.StatusOK, strconv.Itoa(cnt))
}

// GET /tags/{image}. The body is the tags joined with commas.
func (r *RegBrowse) handleTags(ctx echo.Context, image string) error {
	metrics.IncApiEndpointHits("tags")
	tags, err := r.upstream.Tags(ctx.Request().Context(), image)
	if err != nil {
		return errorResult(ctx, err)
	}
	return ctx.String(http.StatusOK, strings.Join(tags.Tags, ","))
}

// GET /manifest/{ref} where ref is image:tag or image@digest. A ref with no tag or
// digest gets 'latest'. The body is the manifest as JSON and the X-Manifest-Schema
// header names which kind of manifest it is.
func (r *RegBrowse) handleManifest(ctx echo.Context, refStr string) error {
	metrics.IncApiEndpointHits("manifest")
	host := r.upstream.Host()
	ref, err := name.ParseReference(refStr, name.WithDefaultRegistry(host))
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, fmt.Sprintf("invalid reference %q: %s", refStr, err))
	}
	if ref.Context().RegistryStr() != host {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, fmt.Sprintf("reference %q is not for registry %s", refStr, host))
	}
	m, dgst, err := r.upstream.Manifest(ctx.Request().Context(), ref.Context().RepositoryStr(), ref.Identifier())
	if err != nil {
		return errorResult(ctx, err)
	}
	log.Debugf("resolved %s to a %s manifest", refStr, m.Type)
	ctx.Response().Header().Set("X-Manifest-Schema", m.Type.String())
	ctx.Response().Header().Set("Docker-Content-Digest", dgst.String())
	return ctx.JSON(http.StatusOK, m)
}

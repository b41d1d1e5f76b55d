package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// CatalogParams defines parameters for Catalog
type CatalogParams struct {
	// N is the page size
	N *int64 `form:"n,omitempty" json:"n,omitempty"`
}

// ServerInterface represents all server handlers
type ServerInterface interface {
	// GET /catalog/{page}
	Catalog(ctx echo.Context, page int64, params CatalogParams) error
	// GET /refresh_catalog
	RefreshCatalog(ctx echo.Context) error
	// GET /tags/{image}
	Tags(ctx echo.Context, image string) error
	// GET /manifest/{ref}
	Manifest(ctx echo.Context, ref string) error
	// GET /health
	Health(ctx echo.Context) error
	// GET /cmd/stop
	CmdStop(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// Catalog converts echo context to params
func (w *ServerInterfaceWrapper) Catalog(ctx echo.Context) error {
	var page int64
	err := runtime.BindStyledParameterWithLocation("simple", false, "page", runtime.ParamLocationPath, ctx.Param("page"), &page)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter page: %s", err))
	}
	var params CatalogParams
	err = runtime.BindQueryParameter("form", true, false, "n", ctx.QueryParams(), &params.N)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter n: %s", err))
	}
	return w.Handler.Catalog(ctx, page, params)
}

// RefreshCatalog converts echo context to params
func (w *ServerInterfaceWrapper) RefreshCatalog(ctx echo.Context) error {
	return w.Handler.RefreshCatalog(ctx)
}

// Tags converts echo context to params. Path parameters are percent-decoded by the
// binding so an encoded slash in a repository name survives routing.
func (w *ServerInterfaceWrapper) Tags(ctx echo.Context) error {
	var image string
	err := runtime.BindStyledParameterWithLocation("simple", false, "image", runtime.ParamLocationPath, ctx.Param("image"), &image)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter image: %s", err))
	}
	return w.Handler.Tags(ctx, image)
}

// Manifest converts echo context to params
func (w *ServerInterfaceWrapper) Manifest(ctx echo.Context) error {
	var ref string
	err := runtime.BindStyledParameterWithLocation("simple", false, "ref", runtime.ParamLocationPath, ctx.Param("ref"), &ref)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter ref: %s", err))
	}
	return w.Handler.Manifest(ctx, ref)
}

// Health converts echo context to params
func (w *ServerInterfaceWrapper) Health(ctx echo.Context) error {
	return w.Handler.Health(ctx)
}

// CmdStop converts echo context to params
func (w *ServerInterfaceWrapper) CmdStop(ctx echo.Context) error {
	return w.Handler.CmdStop(ctx)
}

// RegisterHandlers adds each server route to the echo router
func RegisterHandlers(router *echo.Echo, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}
	router.GET("/catalog/:page", wrapper.Catalog)
	router.GET("/refresh_catalog", wrapper.RefreshCatalog)
	router.GET("/tags/:image", wrapper.Tags)
	router.GET("/manifest/:ref", wrapper.Manifest)
	router.GET("/health", wrapper.Health)
	router.GET("/cmd/stop", wrapper.CmdStop)
}

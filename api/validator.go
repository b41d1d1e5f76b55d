package api

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	middleware "github.com/oapi-codegen/echo-middleware"
)

// Validator returns middleware that checks requests against the OpenAPI document.
// The servers array is cleared, that skips validating that server names match. We
// don't know how this thing will be run. Requests with an encoded path are left to
// the parameter binding since the router matches on the decoded path.
func Validator(swagger *openapi3.T) echo.MiddlewareFunc {
	swagger.Servers = nil
	return middleware.OapiRequestValidatorWithOptions(swagger, &middleware.Options{
		Skipper: func(ctx echo.Context) bool {
			return ctx.Request().URL.RawPath != ""
		},
	})
}

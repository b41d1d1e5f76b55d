package impl

import (
	"context"
	"errors"
	"net/http"

	"github.com/adotmob/regbrowse/impl/manifest"
	"github.com/adotmob/regbrowse/impl/metrics"
	"github.com/adotmob/regbrowse/impl/pager"
	"github.com/adotmob/regbrowse/impl/store"
	"github.com/adotmob/regbrowse/impl/upstream"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// statusFor maps an error from the lower layers to the HTTP status the API returns
// for it
func statusFor(err error) int {
	var (
		invalidPage    *pager.InvalidPageError
		requestErr     *upstream.RequestError
		decodeErr      *upstream.DecodeError
		parseErr       *manifest.ParseError
		classifyErr    *manifest.ClassificationError
		registryErrs   manifest.RegistryErrors
		unavailableErr *store.UnavailableError
	)
	switch {
	case errors.As(err, &invalidPage):
		return http.StatusNotFound
	case errors.As(err, &requestErr):
		if requestErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &decodeErr), errors.As(err, &parseErr), errors.As(err, &registryErrs):
		return http.StatusBadGateway
	case errors.As(err, &classifyErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &unavailableErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// errorResult writes the error message with the status for the error
func errorResult(ctx echo.Context, err error) error {
	metrics.IncApiErrorResults()
	status := statusFor(err)
	if status >= 500 {
		log.Errorf("%s %s: %s", ctx.Request().Method, ctx.Request().URL.Path, err)
	}
	return ctx.String(status, err.Error())
}

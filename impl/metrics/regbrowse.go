package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The 'addRegbrowseMetrics'
// function initializes these with functions having implementations if metrics are
// enabled.

var IncRefreshes noLabel = func() {}
var IncRefreshErrors noLabel = func() {}
var IncCrawlPages noLabel = func() {}
var SetCachedRepositories gauge = func(float64) {}
var IncUpstreamRequests withLabel = func(string) {}
var IncApiEndpointHits withLabel = func(string) {}
var IncApiErrorResults noLabel = func() {}

type withLabel func(string)
type noLabel func()
type gauge func(float64)

const (
	refreshes_total         = "refreshes_total"
	refresh_errors_total    = "refresh_errors_total"
	crawl_pages_total       = "crawl_pages_total"
	cached_repositories     = "cached_repositories"
	upstream_requests_total = "upstream_requests_total"
	api_endpoint_hits_total = "api_endpoint_hits_total"
	api_errors_total        = "api_errors_total"
	endpoint_label          = "endpoint"
	route_label             = "route"
	namespace               = "regbrowse"
)

var once sync.Once

// addRegbrowseMetrics creates all the regbrowse metrics and registers them with the
// prometheus library. It also assigns a function to actually implement the metric.
// Unless this function is called, all the metric functions exposed by the package
// will be NOP functions. Only the first call has any effect.
func addRegbrowseMetrics() {
	once.Do(func() {
		refreshesTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      refreshes_total,
				Namespace: namespace,
				Help:      "Total catalog refreshes published to the cache",
			},
		)
		IncRefreshes = func() {
			refreshesTotal.Inc()
		}

		refreshErrorsTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      refresh_errors_total,
				Namespace: namespace,
				Help:      "Total catalog refreshes that failed and published nothing",
			},
		)
		IncRefreshErrors = func() {
			refreshErrorsTotal.Inc()
		}

		crawlPagesTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      crawl_pages_total,
				Namespace: namespace,
				Help:      "Total catalog pages read from the upstream",
			},
		)
		IncCrawlPages = func() {
			crawlPagesTotal.Inc()
		}

		cachedRepositories := promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:      cached_repositories,
				Namespace: namespace,
				Help:      "Number of repositories in the cached catalog",
			},
		)
		SetCachedRepositories = func(cnt float64) {
			cachedRepositories.Set(cnt)
		}

		upstreamRequestsTotal := promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:      upstream_requests_total,
				Namespace: namespace,
				Help:      "Total requests to the upstream registry by endpoint (catalog, tags, manifest)",
			},
			[]string{endpoint_label},
		)
		IncUpstreamRequests = func(endpoint string) {
			upstreamRequestsTotal.With(prometheus.Labels{endpoint_label: endpoint}).Inc()
		}

		apiEndpointHitsTotal := promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:      api_endpoint_hits_total,
				Namespace: namespace,
				Help:      "Total calls to the regbrowse API by route",
			},
			[]string{route_label},
		)
		IncApiEndpointHits = func(route string) {
			apiEndpointHitsTotal.With(prometheus.Labels{route_label: route}).Inc()
		}

		apiErrorsTotal := promauto.NewCounter(
			prometheus.CounterOpts{
				Name:      api_errors_total,
				Namespace: namespace,
				Help:      "Total calls to the regbrowse API that resulted in errors",
			},
		)
		IncApiErrorResults = func() {
			apiErrorsTotal.Inc()
		}
	})
}

/*
Regbrowse serves a paginated, cached view of the repository catalog of a Docker
registry, plus on-demand tag lists and resolved manifests.

Usage:

	regbrowse [global flags] command [command flags]

Global flags:

	--log-level         trace, debug, info, warn, or error. Default: error
	--log-file          log to the file rather than the console
	--config-file       load configuration from a yaml file. The command line
	                    overrides file settings
	--registry-url      the upstream registry including the API version path.
	                    Default: https://docker.adotmob.com/v2 (env REGBROWSE_REGISTRY_URL)
	--cache-url         redis://, rediss://, or memory://. Default:
	                    redis://127.0.0.1:6379/ (env REGBROWSE_CACHE_URL)
	--catalog-key       the cache key holding the catalog. Default: catalog
	--request-timeout   the max time for one upstream request. Default: 60s
	--crawl-page-size   the page size requested while crawling. Default: 100

Commands:

	serve    crawls the catalog and serves the API until stopped with CTRL-C or
	         GET /cmd/stop. Flags: --bind, --page-size (env REGBROWSE_PAGE_SIZE),
	         --metrics
	crawl    crawls the catalog into the cache and exits
	list     prints one page of the cached catalog. Flags: --page, --page-size
	version  displays the version
*/
package main

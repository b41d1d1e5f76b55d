package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adotmob/regbrowse/impl/config"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. bind address) if the user
// does not override
var cfg = config.Configuration{}

func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

// newCmds returns the command tree for the command line parser urfave/cli
func newCmds() *cli.Command {
	return &cli.Command{
		Name:  "regbrowse",
		Usage: "a paginated, cached browser for the catalog, tags, and manifests of a Docker registry",
		// define this or the parser terminates the program
		ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Value:       config.DefaultLogLevel,
				Usage:       "Sets the minimum value for logging: trace, debug, info, warn, or error",
				Destination: &cfg.LogLevel,
				Validator: func(lvl string) error {
					validValues := []string{"trace", "debug", "info", "warn", "error"}
					if !slices.Contains(validValues, strings.ToLower(lvl)) {
						return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
					}
					return nil
				},
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogLevel = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "log-file",
				Value:       "",
				Usage:       "log to the specified file rather than the console",
				Destination: &cfg.LogFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogFile = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "A file to load configuration values from (cmdline overrides file settings)",
				Destination: &cfg.ConfigFile,
				Validator:   isFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.ConfigFile = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "registry-url",
				Value:       config.DefaultRegistryUrl,
				Usage:       "The upstream registry, including the API version path",
				Sources:     cli.EnvVars("REGBROWSE_REGISTRY_URL"),
				Destination: &cfg.RegistryUrl,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.RegistryUrl = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "cache-url",
				Value:       config.DefaultCacheUrl,
				Usage:       "The catalog cache: redis://, rediss://, or memory://",
				Sources:     cli.EnvVars("REGBROWSE_CACHE_URL"),
				Destination: &cfg.CacheUrl,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.CacheUrl = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "catalog-key",
				Value:       config.DefaultCatalogKey,
				Usage:       "The cache key holding the catalog",
				Destination: &cfg.CatalogKey,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.CatalogKey = true
					return nil
				},
			},
			&cli.DurationFlag{
				Name:        "request-timeout",
				Value:       config.DefaultRequestTimeout,
				Usage:       "The max time for one request to the upstream registry",
				Destination: &cfg.RequestTimeout,
				Action: func(ctx context.Context, cmd *cli.Command, _ time.Duration) error {
					fromCmdline.RequestTimeout = true
					return nil
				},
			},
			&cli.IntFlag{
				Name:        "crawl-page-size",
				Value:       config.DefaultCrawlPageSize,
				Usage:       "The page size requested from the upstream catalog while crawling (0 lets the upstream decide)",
				Destination: &cfg.CrawlPageSize,
				Validator: func(n int) error {
					if n < 0 {
						return fmt.Errorf("must not be negative")
					}
					return nil
				},
				Action: func(ctx context.Context, cmd *cli.Command, _ int) error {
					fromCmdline.CrawlPageSize = true
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Runs the server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "serve"
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "bind",
						Value:       config.DefaultBind,
						Usage:       "The address and port to serve on",
						Destination: &cfg.Bind,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Bind = true
							return nil
						},
					},
					pageSizeFlag(),
					&cli.IntFlag{
						Name:        "metrics",
						Value:       0,
						Usage:       "The port to serve Prometheus metrics on (0 disables metrics)",
						Destination: &cfg.Metrics,
						Action: func(ctx context.Context, cmd *cli.Command, _ int) error {
							fromCmdline.Metrics = true
							return nil
						},
					},
				},
			},
			{
				Name:  "crawl",
				Usage: "Crawls the upstream catalog into the cache and exits",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "crawl"
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "Lists one page of the cached catalog",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "list"
					return nil
				},
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:        "page",
						Value:       1,
						Usage:       "The page to list, starting at 1",
						Destination: &cfg.ListConfig.Page,
						Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
							fromCmdline.ListConfig = true
							return nil
						},
					},
					pageSizeFlag(),
				},
			},
			{
				Name:  "version",
				Usage: "Displays the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "version"
					return nil
				},
			},
		},
	}
}

// pageSizeFlag is kept as a string so a bad value can fall back to the default
// with a warning rather than fail the parse
func pageSizeFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "page-size",
		Value:       strconv.Itoa(config.DefaultPageSize),
		Usage:       "The number of repositories on one catalog page",
		Sources:     cli.EnvVars("REGBROWSE_PAGE_SIZE"),
		Destination: &cfg.PageSize,
		Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
			fromCmdline.PageSize = true
			return nil
		},
	}
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("serve", "list", etc.). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Defaults()
	if err := newCmds().Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

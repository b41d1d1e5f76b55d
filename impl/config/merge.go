package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default bind address is 127.0.0.1:8080 and if you
// don't specify that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.RegistryUrl || config.RegistryUrl == "" {
		config.RegistryUrl = cfg.RegistryUrl
	}
	if fromCmdline.CacheUrl || config.CacheUrl == "" {
		config.CacheUrl = cfg.CacheUrl
	}
	if fromCmdline.CatalogKey || config.CatalogKey == "" {
		config.CatalogKey = cfg.CatalogKey
	}
	if fromCmdline.Bind || config.Bind == "" {
		config.Bind = cfg.Bind
	}
	if fromCmdline.PageSize || config.PageSize == "" {
		config.PageSize = cfg.PageSize
	}
	if fromCmdline.CrawlPageSize || config.CrawlPageSize == 0 {
		config.CrawlPageSize = cfg.CrawlPageSize
	}
	if fromCmdline.RequestTimeout || config.RequestTimeout == 0 {
		config.RequestTimeout = cfg.RequestTimeout
	}
	if fromCmdline.Metrics || config.Metrics == 0 {
		config.Metrics = cfg.Metrics
	}
	if fromCmdline.ListConfig || config.ListConfig == (ListConfig{}) {
		config.ListConfig = cfg.ListConfig
	}
}

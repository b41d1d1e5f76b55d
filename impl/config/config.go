package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adotmob/regbrowse/impl/upstream"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRegistryUrl    = "https://docker.adotmob.com/v2"
	DefaultCacheUrl       = "redis://127.0.0.1:6379/"
	DefaultBind           = "127.0.0.1:8080"
	DefaultPageSize       = 20
	DefaultCrawlPageSize  = 100
	DefaultRequestTimeout = 60 * time.Second
	DefaultCatalogKey     = "catalog"
	DefaultLogLevel       = "error"
)

// authCfg holds basic auth user/pass for upstream access
type authCfg struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// PasswordFromEnv names an environment variable holding the password
	PasswordFromEnv string `yaml:"passwordFromEnv"`
}

// tlsCfg holds TLS configuration for upstream access
type tlsCfg struct {
	Cert               string `yaml:"cert"`
	Key                string `yaml:"key"`
	CA                 string `yaml:"ca"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// ServerTlsConfig configures TLS for the inbound API. ClientAuth is one of "none",
// "request", "require", or "verify".
type ServerTlsConfig struct {
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
	CA         string `yaml:"ca"`
	ClientAuth string `yaml:"clientAuth"`
}

// RegistryConfig configures access to the upstream registry
type RegistryConfig struct {
	Auth authCfg `yaml:"auth"`
	Tls  tlsCfg  `yaml:"tls"`
}

// ListConfig configures the list sub-command
type ListConfig struct {
	Page int64 `yaml:"page"`
}

// Configuration represents the totality of configuration knobs and dials for the server.
type Configuration struct {
	LogLevel       string          `yaml:"logLevel"`
	LogFile        string          `yaml:"logFile"`
	ConfigFile     string          `yaml:"configFile"`
	RegistryUrl    string          `yaml:"registryUrl"`
	CacheUrl       string          `yaml:"cacheUrl"`
	CatalogKey     string          `yaml:"catalogKey"`
	Bind           string          `yaml:"bind"`
	PageSize       string          `yaml:"pageSize"`
	CrawlPageSize  int             `yaml:"crawlPageSize"`
	RequestTimeout time.Duration   `yaml:"requestTimeout"`
	Metrics        int             `yaml:"metrics"`
	Registry       RegistryConfig  `yaml:"registry"`
	ListConfig     ListConfig      `yaml:"listConfig"`
	ServerTlsCfg   ServerTlsConfig `yaml:"serverTlsConfig"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command        string
	LogLevel       bool
	LogFile        bool
	ConfigFile     bool
	RegistryUrl    bool
	CacheUrl       bool
	CatalogKey     bool
	Bind           bool
	PageSize       bool
	CrawlPageSize  bool
	RequestTimeout bool
	Metrics        bool
	ListConfig     bool
}

var config Configuration

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetRegistryUrl() string {
	return config.RegistryUrl
}

func GetCacheUrl() string {
	return config.CacheUrl
}

func GetCatalogKey() string {
	return config.CatalogKey
}

func GetBind() string {
	return config.Bind
}

// GetPageSize parses the configured default page size. A value that doesn't parse
// as a positive integer is logged and the built-in default is used instead.
func GetPageSize() int64 {
	return ParsePageSize(config.PageSize)
}

// ParsePageSize parses a page size, falling back to DefaultPageSize with a warning
// if the value is empty, not an integer, or not positive
func ParsePageSize(pageSize string) int64 {
	if pageSize == "" {
		return DefaultPageSize
	}
	ps, err := strconv.ParseInt(pageSize, 10, 64)
	if err != nil || ps < 1 {
		log.Warnf("invalid page size %q, using %d", pageSize, DefaultPageSize)
		return DefaultPageSize
	}
	return ps
}

func GetCrawlPageSize() int {
	return config.CrawlPageSize
}

func GetRequestTimeout() time.Duration {
	return config.RequestTimeout
}

func GetMetrics() int {
	return config.Metrics
}

func GetRegistry() RegistryConfig {
	return config.Registry
}

func GetServerTlsCfg() ServerTlsConfig {
	return config.ServerTlsCfg
}

func GetListConfig() ListConfig {
	return config.ListConfig
}

// Defaults returns a configuration holding the built-in default of every option
func Defaults() Configuration {
	return Configuration{
		LogLevel:       DefaultLogLevel,
		RegistryUrl:    DefaultRegistryUrl,
		CacheUrl:       DefaultCacheUrl,
		CatalogKey:     DefaultCatalogKey,
		Bind:           DefaultBind,
		PageSize:       strconv.Itoa(DefaultPageSize),
		CrawlPageSize:  DefaultCrawlPageSize,
		RequestTimeout: DefaultRequestTimeout,
		ListConfig:     ListConfig{Page: 1},
	}
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	cfg, err := parse(configBytes)
	if err != nil {
		return err
	}
	config = cfg
	return nil
}

func parse(configBytes []byte) (Configuration, error) {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return Configuration{}, err
	}
	if cfg.CrawlPageSize < 0 {
		return Configuration{}, fmt.Errorf("crawlPageSize must be zero or more, got %d", cfg.CrawlPageSize)
	}
	if cfg.RequestTimeout < 0 {
		return Configuration{}, fmt.Errorf("requestTimeout must be zero or more, got %s", cfg.RequestTimeout)
	}
	return cfg, nil
}

// UpstreamOpts builds the upstream client options from the configuration. TLS
// files are not read here; the client reports a bad file when it is created.
func UpstreamOpts() upstream.ClientOpts {
	reg := config.Registry
	opts := upstream.ClientOpts{
		Timeout:            config.RequestTimeout,
		CA:                 reg.Tls.CA,
		InsecureSkipVerify: reg.Tls.InsecureSkipVerify,
		User:               reg.Auth.User,
		Password:           reg.Auth.Password,
	}
	if reg.Tls.Cert != "" && reg.Tls.Key != "" {
		opts.Cert = reg.Tls.Cert
		opts.Key = reg.Tls.Key
	}
	if reg.Auth.PasswordFromEnv != "" {
		opts.Password = os.Getenv(reg.Auth.PasswordFromEnv)
	}
	return opts
}

// NewUpstreamClient returns a client for the configured upstream registry
func NewUpstreamClient() (*upstream.Client, error) {
	return upstream.NewClient(config.RegistryUrl, UpstreamOpts())
}

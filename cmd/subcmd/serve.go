package subcmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/adotmob/regbrowse/api"
	"github.com/adotmob/regbrowse/impl"
	"github.com/adotmob/regbrowse/impl/config"
	"github.com/adotmob/regbrowse/impl/globals"
	"github.com/adotmob/regbrowse/impl/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	log "github.com/sirupsen/logrus"
)

const startupBanner = `----------------------------------------------------------------------
Regbrowse: paginated, cached Docker registry catalog browser
Version: %s, build date: %s
Started: %s (bind %s)
Upstream: %s
Cache: %s (key %s)
Running as (uid:gid) %d:%d
Process id: %d
Tls: %s
Command line: %v
----------------------------------------------------------------------
`

// listenerAddr will be initialized with the Echo listener address once the Echo
// server is started.
var listenerAddr atomic.Pointer[net.Addr]

// Serve runs the API server, blocking until stopped with CTRL-C or via the
// command REST API. Initialization is explicit and ordered: the cache must be
// reachable or the server doesn't start; the initial crawl may fail, in which case
// the error is logged and the server starts anyway so /refresh_catalog can recover.
func Serve(buildVer string, buildDtm string) error {
	tlsCfg, err := globals.ParseTls()
	if err != nil {
		return fmt.Errorf("error parsing TLS configuration: %s", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.store.Close()

	metrics.InitMetrics(config.GetMetrics())

	if cnt, err := svc.crawler.Refresh(ctx); err != nil {
		log.Errorf("initial catalog crawl failed, serving the cached catalog: %s", err)
	} else {
		log.Infof("initial catalog crawl cached %d repositories", cnt)
	}

	swagger, err := api.GetSwagger()
	if err != nil {
		return fmt.Errorf("error loading the OpenAPI document: %s", err)
	}

	shutdownCh := make(chan bool)
	regBrowse := impl.NewRegBrowse(svc.crawler, svc.pager, svc.client, config.GetPageSize(), shutdownCh)

	// Echo router
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// echo's own logger only reports listener failures, request logging is logrus
	e.Logger.SetLevel(glog.ERROR)

	// the logger wraps the validator so rejected requests are logged too
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(globals.GetEchoLoggingFunc())
	e.Use(api.Validator(swagger))

	api.RegisterHandlers(e, regBrowse)

	if cfgFile := config.GetConfigFile(); cfgFile != "" {
		err := config.Watch(ctx, cfgFile, func(cfg config.Configuration) {
			if cfg.LogLevel != "" {
				log.Infof("setting log level to %s", cfg.LogLevel)
				globals.SetLogLevel(cfg.LogLevel)
			}
		})
		if err != nil {
			log.Warnf("unable to watch configuration file %s: %s", cfgFile, err)
		}
	}

	fmt.Fprintf(os.Stderr, startupBanner, buildVer, buildDtm, time.Unix(0, time.Now().UnixNano()), config.GetBind(),
		config.GetRegistryUrl(), config.GetCacheUrl(), config.GetCatalogKey(), os.Getuid(), os.Getgid(), os.Getpid(),
		tlsMsg(), strings.Join(os.Args, " "))

	// start the API server
	go func() {
		addr := config.GetBind()
		if tlsCfg != nil {
			s := http.Server{
				Addr:      addr,
				Handler:   e,
				TLSConfig: tlsCfg,
			}
			if err := e.StartServer(&s); err != http.ErrServerClosed {
				e.Logger.Fatal("shutting down the server. error:", err)
			}
		} else {
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				e.Logger.Fatal("shutting down the server. error:", err)
			}
		}
	}()
	addr, err := waitForEchoListener(e)
	if err != nil {
		return errors.New("timed out waiting for Echo listener")
	}
	listenerAddr.Store(&addr)
	log.Info("server is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case <-shutdownCh:
		log.Infof("received stop command - stopping")
	case sig := <-sigCh:
		log.Infof("received %s - stopping", sig)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	e.Shutdown(shutdownCtx)
	log.Infof("stopped")
	return nil
}

// tlsMsg formats the server TLS configuration for the startup banner
func tlsMsg() string {
	msg := "none"
	tlsCfg := config.GetServerTlsCfg()
	if tlsCfg.Cert != "" && tlsCfg.Key != "" {
		msg = fmt.Sprintf("cert=%s, key=%s", tlsCfg.Cert, tlsCfg.Key)
	}
	if tlsCfg.CA != "" {
		msg = fmt.Sprintf("%s, ca=%s", msg, tlsCfg.CA)
	}
	if msg != "none" {
		return fmt.Sprintf("%s, client verify=%s", msg, tlsCfg.ClientAuth)
	}
	return "none"
}

// waitForEchoListener waits for the Listener in the Echo server to be initialized and
// returns its address. The unit tests start the server on ":0" and let the http
// package assign a random port number.
func waitForEchoListener(e *echo.Echo) (net.Addr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			if addr := e.ListenerAddr(); addr != nil {
				return addr, nil
			}
			if addr := e.TLSListenerAddr(); addr != nil {
				return addr, nil
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// GetListenerAddr supports unit testing.
func GetListenerAddr() net.Addr {
	if addr := listenerAddr.Load(); addr != nil {
		return *addr
	}
	return nil
}

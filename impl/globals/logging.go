package globals

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// digestRe finds a sha256 digest in a request URI. Manifest requests by digest are
// logged with the digest cut down to its first ten hex chars.
var digestRe = regexp.MustCompile(`sha256:([a-f0-9]{64})`)

// ConfigureLogging sets the logger level, and if 'logFile' is not the empty string,
// directs log output to that file. A file that can't be opened is reported on the
// console and logging stays there.
func ConfigureLogging(level string, logFile string) {
	log.SetLevel(xlatLogLevel(level))
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if logFile == "" {
		return
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Errorf("unable to open log file %s, logging to the console: %s", logFile, err)
		return
	}
	log.SetOutput(f)
}

// SetLogLevel changes the level without touching the output, for config reloads
func SetLogLevel(level string) {
	log.SetLevel(xlatLogLevel(level))
}

// xlatLogLevel translates the passed 'level' string to a logger const
func xlatLogLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return log.TraceLevel
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	}
	return log.FatalLevel
}

// shortenDigest returns 'uri' with any sha256 digest cut down to ten hex chars
func shortenDigest(uri string) string {
	if m := digestRe.FindStringSubmatchIndex(uri); m != nil {
		return uri[:m[2]+10] + uri[m[3]:]
	}
	return uri
}

// GetEchoLoggingFunc gets the API server request logging middleware. Each request
// other than the health check is logged once with its outcome. Server errors log at
// error level and client errors at warning level.
func GetEchoLoggingFunc() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			req := c.Request()
			if req.URL.Path == HealthPath {
				return nil
			}
			res := c.Response()
			entry := log.WithFields(log.Fields{
				"method":  req.Method,
				"uri":     shortenDigest(req.RequestURI),
				"status":  res.Status,
				"latency": time.Since(start).String(),
				"bytes":   res.Size,
				"ip":      c.RealIP(),
			})
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				entry = entry.WithField("request_id", id)
			}
			switch {
			case res.Status >= 500:
				entry.Error("request failed")
			case res.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request served")
			}
			return nil
		}
	}
}

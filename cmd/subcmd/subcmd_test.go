package subcmd

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/adotmob/regbrowse/impl/config"
	"github.com/adotmob/regbrowse/mock"

	"github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func repoNames(cnt int) []string {
	names := make([]string, cnt)
	for i := range names {
		names[i] = fmt.Sprintf("repo%02d", i)
	}
	return names
}

func testConfig(registryUrl, cacheUrl string) config.Configuration {
	return config.Configuration{
		LogLevel:       "error",
		RegistryUrl:    registryUrl,
		CacheUrl:       cacheUrl,
		CatalogKey:     "catalog",
		Bind:           "127.0.0.1:0",
		PageSize:       "2",
		CrawlPageSize:  2,
		RequestTimeout: 5 * time.Second,
		ListConfig:     config.ListConfig{Page: 1},
	}
}

// runServer runs Serve in a goroutine and returns the base url once it is listening
// along with a channel that gets Serve's result
func runServer(t *testing.T) (string, chan error) {
	listenerAddr.Store(nil)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve("test", "now")
	}()
	var base string
	require.Eventually(t, func() bool {
		select {
		case err := <-errCh:
			t.Fatalf("server exited: %v", err)
		default:
		}
		if addr := GetListenerAddr(); addr != nil {
			base = "http://" + addr.String()
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return base, errCh
}

func httpGet(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func stop(t *testing.T, base string, errCh chan error) {
	status, _ := httpGet(t, base+"/cmd/stop")
	require.Equal(t, http.StatusOK, status)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServe(t *testing.T) {
	params := mock.NewMockParams(repoNames(5)...)
	params.Tags["repo03"] = []string{"1.0", "2.0"}
	server, mi := mock.Server(params)
	defer server.Close()
	config.Set(testConfig(mi.Url, "memory://"))

	base, errCh := runServer(t)
	status, body := httpGet(t, base+"/catalog/1")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "repo00,repo01", body)
	status, body = httpGet(t, base+"/catalog/3")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "repo04", body)
	status, _ = httpGet(t, base+"/catalog/one")
	require.Equal(t, http.StatusBadRequest, status)
	status, body = httpGet(t, base+"/tags/repo03")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "1.0,2.0", body)
	status, _ = httpGet(t, base+"/manifest/hello-world:v2")
	require.Equal(t, http.StatusOK, status)
	status, body = httpGet(t, base+"/refresh_catalog")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "5", body)
	status, _ = httpGet(t, base+"/health")
	require.Equal(t, http.StatusOK, status)
	stop(t, base, errCh)
}

// A failed initial crawl doesn't stop the server from starting
func TestServeInitialCrawlFails(t *testing.T) {
	params := mock.NewMockParams(repoNames(5)...)
	params.FailCatalogAfter = 1
	server, mi := mock.Server(params)
	defer server.Close()
	config.Set(testConfig(mi.Url, "memory://"))

	base, errCh := runServer(t)
	status, body := httpGet(t, base+"/catalog/1")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "invalid page or page size\nmax page: 0\npage: 1", body)
	stop(t, base, errCh)
}

// An unreachable cache stops the server from starting
func TestServeCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	config.Set(testConfig("http://127.0.0.1:1/v2", "redis://"+addr+"/"))
	require.Error(t, Serve("test", "now"))

	config.Set(testConfig("http://127.0.0.1:1/v2", "postgres://nope"))
	require.Error(t, Serve("test", "now"))
}

func TestCrawlAndList(t *testing.T) {
	server, mi := mock.Server(mock.NewMockParams(repoNames(5)...))
	defer server.Close()
	mr := miniredis.RunT(t)
	cfg := testConfig(mi.Url, "redis://"+mr.Addr()+"/")
	cfg.ListConfig.Page = 2
	config.Set(cfg)

	var out bytes.Buffer
	require.NoError(t, Crawl(&out))
	require.Equal(t, "cached 5 repositories\n", out.String())

	out.Reset()
	require.NoError(t, List(&out))
	require.Equal(t, "repo02\nrepo03\n", out.String())

	cfg.ListConfig.Page = 4
	config.Set(cfg)
	require.Error(t, List(&out))
}

func TestCrawlFails(t *testing.T) {
	params := mock.NewMockParams(repoNames(5)...)
	params.FailCatalogAfter = 1
	server, mi := mock.Server(params)
	defer server.Close()
	config.Set(testConfig(mi.Url, "memory://"))
	require.Error(t, Crawl(io.Discard))
}

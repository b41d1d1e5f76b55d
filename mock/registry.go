package mock

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"
)

// MockParams configures the mock registry
type MockParams struct {
	// Repositories is the catalog. It is served sorted.
	Repositories []string
	// Tags maps a repository name to its tags. Repositories not in the map get a 404.
	Tags map[string][]string
	// DefaultPageSize is the page size when the request has no 'n' param. Zero means
	// the whole catalog.
	DefaultPageSize int
	// IgnoreLast makes the catalog ignore the 'last' cursor, like a broken registry
	IgnoreLast bool
	// FailCatalogAfter makes every catalog request after this many return a 500
	FailCatalogAfter int
	// GarbleCatalogAfter makes every catalog request after this many return a body
	// that isn't JSON
	GarbleCatalogAfter int
	// BadDigest makes manifest requests by digest return a body that doesn't match
	// the requested digest
	BadDigest bool
	// TlsConfig, if not nil, runs the server over HTTPS
	TlsConfig *tls.Config
	// DelayMs supports simulating slow links
	DelayMs int
}

// MockInfo tells the test how to reach the mock registry
type MockInfo struct {
	// Url is the registry base url including the API version, e.g. http://127.0.0.1:4567/v2
	Url                 string
	ManifestListDigest  digest.Digest
	ImageManifestDigest digest.Digest
}

const ociPrefix = "application/vnd.oci."

// testFile is a manifest served by the mock and its content type
type testFile struct {
	fname     string
	mediaType string
	content   []byte
}

// NewMockParams returns a 'MockParams' serving the passed repositories
func NewMockParams(repositories ...string) MockParams {
	return MockParams{
		Repositories: repositories,
		Tags:         map[string][]string{},
	}
}

// Server simply calls ServerWithCallback with no callback function
func Server(params MockParams) (*httptest.Server, MockInfo) {
	return ServerWithCallback(params, nil)
}

// ServerWithCallback runs the mock registry. If a callback function is passed, it is
// called with the request URI (path and query) of every request.
func ServerWithCallback(params MockParams, callback *func(string)) (*httptest.Server, MockInfo) {
	manifests := loadManifests()
	repos := slices.Clone(params.Repositories)
	sort.Strings(repos)
	var catalogRequests atomic.Int64

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callback != nil {
			(*callback)(r.URL.RequestURI())
		}
		if params.DelayMs != 0 {
			time.Sleep(time.Duration(params.DelayMs) * time.Millisecond)
		}
		w.Header().Set("Docker-Distribution-Api-Version", "registry/2.0")
		p := r.URL.Path
		switch {
		case p == "/v2/" || p == "/v2":
			w.WriteHeader(http.StatusOK)
		case p == "/v2/_catalog":
			cnt := int(catalogRequests.Add(1))
			if params.FailCatalogAfter != 0 && cnt > params.FailCatalogAfter {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if params.GarbleCatalogAfter != 0 && cnt > params.GarbleCatalogAfter {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"repositories": [`))
				return
			}
			serveCatalog(w, r, repos, params)
		case strings.HasSuffix(p, "/tags/list"):
			name := strings.TrimSuffix(strings.TrimPrefix(p, "/v2/"), "/tags/list")
			tags, exists := params.Tags[name]
			if !exists {
				writeError(w, http.StatusNotFound, "NAME_UNKNOWN", "repository name not known to registry", nil)
				return
			}
			writeJson(w, struct {
				Name string   `json:"name"`
				Tags []string `json:"tags"`
			}{name, tags})
		case strings.Contains(p, "/manifests/"):
			ref := p[strings.LastIndex(p, "/manifests/")+len("/manifests/"):]
			tf, exists := manifests[ref]
			// like the distribution server, an OCI manifest is unknown to a client that
			// doesn't accept its media type
			if !exists || (strings.HasPrefix(tf.mediaType, ociPrefix) && !strings.Contains(r.Header.Get("Accept"), tf.mediaType)) {
				writeError(w, http.StatusNotFound, "MANIFEST_UNKNOWN", "manifest unknown", &ref)
				return
			}
			content := tf.content
			if params.BadDigest && strings.HasPrefix(ref, "sha256:") {
				content = append(slices.Clone(content), '\n')
			}
			w.Header().Set("Content-Type", tf.mediaType)
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.Header().Set("Docker-Content-Digest", digest.FromBytes(content).String())
			if r.Method != http.MethodHead {
				w.Write(content)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	if params.TlsConfig != nil {
		server.TLS = params.TlsConfig
		server.StartTLS()
	} else {
		server.Start()
	}
	return server, MockInfo{
		Url:                 server.URL + "/v2",
		ManifestListDigest:  digest.FromBytes(manifests["latest"].content),
		ImageManifestDigest: digest.FromBytes(manifests["v2"].content),
	}
}

// serveCatalog writes the page of the sorted catalog selected by the 'n' and
// 'last' query params
func serveCatalog(w http.ResponseWriter, r *http.Request, repos []string, params MockParams) {
	q := r.URL.Query()
	start := 0
	if last := q.Get("last"); last != "" && !params.IgnoreLast {
		start = sort.SearchStrings(repos, last)
		if start < len(repos) && repos[start] == last {
			start++
		}
	}
	n := params.DefaultPageSize
	if nStr := q.Get("n"); nStr != "" {
		var err error
		if n, err = strconv.Atoi(nStr); err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "PAGINATION_NUMBER_INVALID", "invalid number of results requested", nil)
			return
		}
	}
	end := len(repos)
	if n > 0 && start+n < end {
		end = start + n
	}
	page := []string{}
	if start < end {
		page = repos[start:end]
	}
	writeJson(w, struct {
		Repositories []string `json:"repositories"`
	}{page})
}

func writeJson(w http.ResponseWriter, v any) {
	b, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Write(b)
}

// writeError writes a registry error body in the shape the distribution server uses
func writeError(w http.ResponseWriter, status int, code string, message string, tag *string) {
	detail := any(nil)
	if tag != nil {
		detail = map[string]string{"Tag": *tag}
	}
	b, _ := json.Marshal(map[string]any{
		"errors": []map[string]any{{"code": code, "message": message, "detail": detail}},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// loadManifests loads the manifests served by the mock keyed by the references
// they are served under
func loadManifests() map[string]testFile {
	testFilesDir := getTestFilesDir()
	files := []testFile{
		{fname: "manifestList.json", mediaType: "application/vnd.docker.distribution.manifest.list.v2+json"},
		{fname: "imageManifest.json", mediaType: "application/vnd.docker.distribution.manifest.v2+json"},
		{fname: "schema1Manifest.json", mediaType: "application/vnd.docker.distribution.manifest.v1+prettyjws"},
		{fname: "ociIndex.json", mediaType: "application/vnd.oci.image.index.v1+json"},
	}
	for i := range files {
		content, err := os.ReadFile(filepath.Join(testFilesDir, files[i].fname))
		if err != nil {
			panic(err)
		}
		files[i].content = content
	}
	manifests := map[string]testFile{
		"latest": files[0],
		"v2":     files[1],
		"v1":     files[2],
		"oci":    files[3],
	}
	manifests[digest.FromBytes(files[1].content).String()] = files[1]
	return manifests
}

// getTestFilesDir finds the 'testfiles' dir next to this file by walking up from
// the working directory to the directory holding go.mod, since the mock registry is
// used from tests in other packages.
func getTestFilesDir() string {
	for d, _ := os.Getwd(); d != "/"; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return filepath.Join(d, "mock", "testfiles")
		}
	}
	panic(errors.New("no go.mod?"))
}

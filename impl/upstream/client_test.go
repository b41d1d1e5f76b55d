package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adotmob/regbrowse/impl/manifest"
	"github.com/adotmob/regbrowse/mock"

	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func newClient(t *testing.T, url string) *Client {
	c, err := NewClient(url, ClientOpts{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

// Each combination of page size and cursor has its own query shape
func TestCatalogURL(t *testing.T) {
	base := "https://docker.adotmob.com/v2"
	tests := []struct {
		pageSize int
		last     string
		expected string
	}{
		{0, "", "https://docker.adotmob.com/v2/_catalog"},
		{20, "", "https://docker.adotmob.com/v2/_catalog?n=20"},
		{0, "frobozz", "https://docker.adotmob.com/v2/_catalog?last=frobozz"},
		{20, "frobozz", "https://docker.adotmob.com/v2/_catalog?n=20&last=frobozz"},
	}
	for _, tst := range tests {
		if u := CatalogURL(base, tst.pageSize, tst.last); u != tst.expected {
			t.Errorf("expected %s got %s", tst.expected, u)
		}
	}
	if CatalogURL(base+"/", 5, "") != "https://docker.adotmob.com/v2/_catalog?n=5" {
		t.Fail()
	}
	if CatalogURL(base, 5, "org/image") != "https://docker.adotmob.com/v2/_catalog?n=5&last=org%2Fimage" {
		t.Fail()
	}
}

func TestCatalogPage(t *testing.T) {
	server, mi := mock.Server(mock.NewMockParams("zork", "frobozz", "flathead/fizzbin"))
	defer server.Close()
	c := newClient(t, mi.Url)

	page, err := c.CatalogPage(context.Background(), 2, "")
	require.NoError(t, err)
	require.Equal(t, []string{"flathead/fizzbin", "frobozz"}, page)
	page, err = c.CatalogPage(context.Background(), 2, "frobozz")
	require.NoError(t, err)
	require.Equal(t, []string{"zork"}, page)
}

func TestCatalogPageErrors(t *testing.T) {
	server, mi := mock.Server(mock.MockParams{FailCatalogAfter: 1})
	defer server.Close()
	c := newClient(t, mi.Url)
	_, err := c.CatalogPage(context.Background(), 2, "")
	require.NoError(t, err)
	_, err = c.CatalogPage(context.Background(), 2, "")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.Equal(t, http.StatusInternalServerError, re.StatusCode)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>frobozz</html>"))
	}))
	defer garbage.Close()
	c = newClient(t, garbage.URL+"/v2")
	_, err = c.CatalogPage(context.Background(), 2, "")
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	_, err = c.Tags(context.Background(), "zork")
	require.True(t, errors.As(err, &de))
}

// A request that outlives the client timeout fails
func TestTimeout(t *testing.T) {
	params := mock.NewMockParams("zork")
	params.DelayMs = 500
	server, mi := mock.Server(params)
	defer server.Close()
	c, err := NewClient(mi.Url, ClientOpts{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.CatalogPage(context.Background(), 0, "")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.Zero(t, re.StatusCode)
}

func TestTags(t *testing.T) {
	params := mock.NewMockParams("zork")
	params.Tags["zork"] = []string{"1.0", "1.1", "latest"}
	server, mi := mock.Server(params)
	defer server.Close()
	c := newClient(t, mi.Url)

	tags, err := c.Tags(context.Background(), "zork")
	require.NoError(t, err)
	require.Equal(t, "zork", tags.Name)
	require.Equal(t, []string{"1.0", "1.1", "latest"}, tags.Tags)

	_, err = c.Tags(context.Background(), "grue")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.Equal(t, http.StatusNotFound, re.StatusCode)
	require.Len(t, re.Errors, 1)
	require.Equal(t, "NAME_UNKNOWN", re.Errors[0].Code)
}

func TestManifest(t *testing.T) {
	server, mi := mock.Server(mock.NewMockParams())
	defer server.Close()
	c := newClient(t, mi.Url)
	ctx := context.Background()

	m, dgst, err := c.Manifest(ctx, "hello-world", "latest")
	require.NoError(t, err)
	require.Equal(t, manifest.ManifestListType, m.Type)
	require.Len(t, m.V2List.Manifests, 3)
	require.Equal(t, mi.ManifestListDigest, dgst)

	m, dgst, err = c.Manifest(ctx, "hello-world", "v2")
	require.NoError(t, err)
	require.Equal(t, manifest.ImageManifestType, m.Type)
	require.Equal(t, mi.ImageManifestDigest, dgst)

	m, _, err = c.Manifest(ctx, "hello-world", mi.ImageManifestDigest.String())
	require.NoError(t, err)
	require.Equal(t, manifest.ImageManifestType, m.Type)

	m, _, err = c.Manifest(ctx, "hello-world", "v1")
	require.NoError(t, err)
	require.Equal(t, manifest.SchemaV1Type, m.Type)
	require.Equal(t, "v1", m.V1.Tag)

	_, _, err = c.Manifest(ctx, "hello-world", "oci")
	var ce *manifest.ClassificationError
	require.True(t, errors.As(err, &ce))

	_, _, err = c.Manifest(ctx, "hello-world", "nope")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.Equal(t, http.StatusNotFound, re.StatusCode)
	var regErrs manifest.RegistryErrors
	require.True(t, errors.As(err, &regErrs))
	require.Equal(t, "MANIFEST_UNKNOWN", regErrs[0].Code)
	require.Equal(t, "nope", *regErrs[0].Detail.Tag)
}

// A manifest fetched by digest has to match the digest
func TestManifestDigestMismatch(t *testing.T) {
	params := mock.NewMockParams()
	params.BadDigest = true
	server, mi := mock.Server(params)
	defer server.Close()
	c := newClient(t, mi.Url)

	_, _, err := c.Manifest(context.Background(), "hello-world", mi.ImageManifestDigest.String())
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	_, dgst, err := c.Manifest(context.Background(), "hello-world", "v2")
	require.NoError(t, err)
	require.Equal(t, mi.ImageManifestDigest, dgst)
}

// The manifest request accepts the Docker types and the OCI index, and carries
// basic auth
func TestManifestRequest(t *testing.T) {
	manifestBody, err := os.ReadFile("../../mock/testfiles/imageManifest.json")
	require.NoError(t, err)
	var accept, user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/" {
			return
		}
		accept = r.Header.Get("Accept")
		user, pass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", manifest.MediaTypeManifest)
		w.Write(manifestBody)
	}))
	defer server.Close()
	c, err := NewClient(server.URL+"/v2", ClientOpts{Timeout: 5 * time.Second, User: "frobozz", Password: "xyzzy"})
	require.NoError(t, err)

	m, dgst, err := c.Manifest(context.Background(), "zork", "1.0")
	require.NoError(t, err)
	require.Equal(t, manifest.ImageManifestType, m.Type)
	require.Equal(t, digest.FromBytes(manifestBody), dgst)
	for _, mediaType := range []types.MediaType{types.OCIImageIndex, types.DockerManifestList, types.DockerManifestSchema2, types.DockerManifestSchema1Signed} {
		require.Contains(t, accept, string(mediaType))
	}
	require.Equal(t, "frobozz", user)
	require.Equal(t, "xyzzy", pass)
}

// Only one attempt is made at a manifest the upstream fails to serve
func TestManifestNoRetry(t *testing.T) {
	var cnt atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/" {
			return
		}
		cnt.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	c := newClient(t, server.URL+"/v2")

	_, _, err := c.Manifest(context.Background(), "zork", "1.0")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.Equal(t, http.StatusServiceUnavailable, re.StatusCode)
	require.Equal(t, int32(1), cnt.Load())
}

func TestManifestTimeout(t *testing.T) {
	params := mock.NewMockParams()
	params.DelayMs = 500
	server, mi := mock.Server(params)
	defer server.Close()
	c, err := NewClient(mi.Url, ClientOpts{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, _, err = c.Manifest(context.Background(), "hello-world", "v2")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

// The client verifies the upstream's certificate with the configured CA
func TestTls(t *testing.T) {
	certSetup, err := mock.NewCertSetup()
	require.NoError(t, err)
	td, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	defer os.RemoveAll(td)
	caFile, err := certSetup.CaToFile(td, "ca.pem")
	require.NoError(t, err)

	params := mock.NewMockParams("zork")
	params.TlsConfig = certSetup.ServerTlsConfig()
	server, mi := mock.Server(params)
	defer server.Close()

	c, err := NewClient(mi.Url, ClientOpts{Timeout: 5 * time.Second, CA: caFile})
	require.NoError(t, err)
	page, err := c.CatalogPage(context.Background(), 0, "")
	require.NoError(t, err)
	require.Equal(t, []string{"zork"}, page)

	m, _, err := c.Manifest(context.Background(), "hello-world", "v2")
	require.NoError(t, err)
	require.Equal(t, manifest.ImageManifestType, m.Type)

	c, err = NewClient(mi.Url, ClientOpts{Timeout: 5 * time.Second})
	require.NoError(t, err)
	_, err = c.CatalogPage(context.Background(), 0, "")
	var re *RequestError
	require.True(t, errors.As(err, &re))
	_, _, err = c.Manifest(context.Background(), "hello-world", "v2")
	require.True(t, errors.As(err, &re))

	c, err = NewClient(mi.Url, ClientOpts{Timeout: 5 * time.Second, InsecureSkipVerify: true})
	require.NoError(t, err)
	_, err = c.CatalogPage(context.Background(), 0, "")
	require.NoError(t, err)

	_, err = NewClient(mi.Url, ClientOpts{CA: "/no/such/file.pem"})
	require.Error(t, err)
}

func TestHost(t *testing.T) {
	c := newClient(t, "https://docker.adotmob.com:5000/v2/")
	if c.Host() != "docker.adotmob.com:5000" {
		t.Fail()
	}
}

func TestBasicAuth(t *testing.T) {
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		w.Write([]byte(`{"repositories":["zork"]}`))
	}))
	defer server.Close()
	c, err := NewClient(server.URL+"/v2", ClientOpts{User: "frobozz", Password: "xyzzy"})
	require.NoError(t, err)
	_, err = c.CatalogPage(context.Background(), 0, "")
	require.NoError(t, err)
	require.Equal(t, "frobozz", user)
	require.Equal(t, "xyzzy", pass)
}

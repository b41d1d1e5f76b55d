package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/opencontainers/go-digest"
)

const ociIndexType = "application/vnd.oci.image.index.v1+json"

func getCatalog(t *testing.T, url string) []string {
	resp, err := http.Get(url)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.FailNow()
	}
	defer resp.Body.Close()
	var page struct {
		Repositories []string `json:"repositories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.FailNow()
	}
	return page.Repositories
}

// Sanity check the mock registry catalog pagination
func TestCatalog(t *testing.T) {
	server, mi := Server(NewMockParams("c", "a", "e", "b", "d"))
	defer server.Close()

	tests := []struct {
		query    string
		expected []string
	}{
		{"", []string{"a", "b", "c", "d", "e"}},
		{"?n=2", []string{"a", "b"}},
		{"?n=2&last=b", []string{"c", "d"}},
		{"?n=2&last=d", []string{"e"}},
		{"?n=2&last=e", []string{}},
		{"?last=c", []string{"d", "e"}},
	}
	for _, tst := range tests {
		page := getCatalog(t, mi.Url+"/_catalog"+tst.query)
		if len(page) != len(tst.expected) {
			t.Errorf("query %q: expected %v got %v", tst.query, tst.expected, page)
			continue
		}
		for i := range page {
			if page[i] != tst.expected[i] {
				t.Errorf("query %q: expected %v got %v", tst.query, tst.expected, page)
			}
		}
	}
}

// getManifest gets a manifest from the mock sending the passed Accept header
func getManifest(t *testing.T, url string, accept string) (int, []byte, string) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.FailNow()
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.FailNow()
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.FailNow()
	}
	return resp.StatusCode, body, resp.Header.Get("Docker-Content-Digest")
}

// Sanity check that manifest digests match their content
func TestManifests(t *testing.T) {
	server, mi := Server(NewMockParams())
	defer server.Close()

	for _, ref := range []string{"latest", "v2", "v1", "oci", mi.ImageManifestDigest.String()} {
		status, body, hdr := getManifest(t, mi.Url+"/hello-world/manifests/"+ref, ociIndexType)
		if status != http.StatusOK {
			t.FailNow()
		}
		expected, err := digest.Parse(hdr)
		if err != nil || digest.FromBytes(body) != expected {
			t.Fail()
		}
	}
	if status, _, _ := getManifest(t, mi.Url+"/hello-world/manifests/nope", ""); status != http.StatusNotFound {
		t.Fail()
	}
}

// An OCI index is only served to clients that accept it
func TestManifestAccept(t *testing.T) {
	server, mi := Server(NewMockParams())
	defer server.Close()

	if status, _, _ := getManifest(t, mi.Url+"/hello-world/manifests/oci", ""); status != http.StatusNotFound {
		t.Fail()
	}
	if status, _, _ := getManifest(t, mi.Url+"/hello-world/manifests/oci", "application/vnd.docker.distribution.manifest.list.v2+json"); status != http.StatusNotFound {
		t.Fail()
	}
	if status, _, _ := getManifest(t, mi.Url+"/hello-world/manifests/v2", ""); status != http.StatusOK {
		t.Fail()
	}
}

// By digest with BadDigest the body doesn't match the requested digest, by tag it does
func TestBadDigest(t *testing.T) {
	params := NewMockParams()
	params.BadDigest = true
	server, mi := Server(params)
	defer server.Close()

	_, body, _ := getManifest(t, mi.Url+"/hello-world/manifests/"+mi.ImageManifestDigest.String(), "")
	if digest.FromBytes(body) == mi.ImageManifestDigest {
		t.Fail()
	}
	_, body, _ = getManifest(t, mi.Url+"/hello-world/manifests/v2", "")
	if digest.FromBytes(body) != mi.ImageManifestDigest {
		t.Fail()
	}
}

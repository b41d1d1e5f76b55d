package upstream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/adotmob/regbrowse/impl/manifest"
	"github.com/adotmob/regbrowse/impl/metrics"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
)

// Client gets things from one upstream registry. The base url includes the API
// version path, e.g. https://docker.adotmob.com/v2. The catalog and tag list are
// plain GETs since the catalog cursor has to be driven page by page. Manifests are
// fetched with go-containerregistry.
type Client struct {
	base       string
	user       string
	pass       string
	timeout    time.Duration
	client     *http.Client
	nameOpts   []name.Option
	remoteOpts []remote.Option
}

// ClientOpts configures the connection to the upstream
type ClientOpts struct {
	// Timeout bounds every request made by the client
	Timeout time.Duration
	// CA is a PEM file to verify the upstream's server certificate with, instead of
	// the OS trust store
	CA string
	// InsecureSkipVerify disables verification of the upstream's server certificate
	InsecureSkipVerify bool
	// Cert and Key are PEM files presenting a client certificate to the upstream
	Cert string
	Key  string
	// User and Password, if set, are sent as basic auth
	User     string
	Password string
}

// NewClient returns a Client for the passed registry base url
func NewClient(base string, opts ClientOpts) (*Client, error) {
	base = strings.TrimSuffix(base, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid registry url %s: %w", base, err)
	}
	transport := remote.DefaultTransport.(*http.Transport).Clone()
	if opts.CA != "" || opts.InsecureSkipVerify || opts.Cert != "" {
		tlsCfg, err := clientTls(opts)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}
	remoteOpts := []remote.Option{
		remote.WithTransport(transport),
		// one attempt per request
		remote.WithRetryBackoff(remote.Backoff{Steps: 1}),
		remote.WithUserAgent("regbrowse"),
	}
	if opts.User != "" {
		remoteOpts = append(remoteOpts, remote.WithAuth(&authn.Basic{Username: opts.User, Password: opts.Password}))
	}
	nameOpts := []name.Option{name.WithDefaultRegistry(u.Host)}
	if u.Scheme == "http" {
		nameOpts = append(nameOpts, name.Insecure)
	}
	return &Client{
		base:    base,
		user:    opts.User,
		pass:    opts.Password,
		timeout: opts.Timeout,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		nameOpts:   nameOpts,
		remoteOpts: remoteOpts,
	}, nil
}

// clientTls builds the TLS config for the upstream connection. A CA or client cert
// that can't be loaded is an error.
func clientTls(opts ClientOpts) (*tls.Config, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}
	if opts.CA != "" {
		caCert, err := os.ReadFile(opts.CA)
		if err != nil {
			return nil, fmt.Errorf("unable to load registry CA from file: %s", opts.CA)
		}
		cp := x509.NewCertPool()
		if !cp.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in registry CA file: %s", opts.CA)
		}
		tlsCfg.RootCAs = cp
	}
	if opts.Cert != "" {
		cert, err := tls.LoadX509KeyPair(opts.Cert, opts.Key)
		if err != nil {
			return nil, fmt.Errorf("unable to load client cert and/or key from files: cert: %s, key: %s", opts.Cert, opts.Key)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// Host returns the host (and port if there is one) of the registry
func (c *Client) Host() string {
	if u, err := url.Parse(c.base); err == nil {
		return u.Host
	}
	return ""
}

// CatalogURL builds the url for one page of the catalog. A zero page size omits the
// 'n' param so the upstream uses its own default. An empty 'last' omits the cursor:
//
//	{base}/_catalog
//	{base}/_catalog?n=20
//	{base}/_catalog?last=foo
//	{base}/_catalog?n=20&last=foo
func CatalogURL(base string, pageSize int, last string) string {
	catalogUrl := strings.TrimSuffix(base, "/") + "/_catalog"
	sep := "?"
	if pageSize != 0 {
		catalogUrl = fmt.Sprintf("%s?n=%d", catalogUrl, pageSize)
		sep = "&"
	}
	if last != "" {
		catalogUrl = catalogUrl + sep + "last=" + url.QueryEscape(last)
	}
	return catalogUrl
}

// CatalogPage gets one page of repository names from the catalog, starting after
// 'last'
func (c *Client) CatalogPage(ctx context.Context, pageSize int, last string) ([]string, error) {
	metrics.IncUpstreamRequests("catalog")
	catalogUrl := CatalogURL(c.base, pageSize, last)
	body, err := c.get(ctx, catalogUrl)
	if err != nil {
		return nil, err
	}
	var page CatalogResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &DecodeError{Url: catalogUrl, Err: err}
	}
	return page.Repositories, nil
}

// Tags gets the tag list for the passed repository
func (c *Client) Tags(ctx context.Context, name string) (TagSet, error) {
	metrics.IncUpstreamRequests("tags")
	tagsUrl := fmt.Sprintf("%s/%s/tags/list", c.base, name)
	body, err := c.get(ctx, tagsUrl)
	if err != nil {
		return TagSet{}, err
	}
	var tags TagSet
	if err := json.Unmarshal(body, &tags); err != nil {
		return TagSet{}, &DecodeError{Url: tagsUrl, Err: err}
	}
	return tags, nil
}

// Manifest gets the manifest for the passed repository and reference (a tag or a
// digest) and resolves it. The request accepts both Docker manifest schemas and the
// OCI types, so an upstream holding only an OCI index returns it and it fails
// classification. A manifest fetched by digest must match that digest. The returned
// digest is the digest of the body, or the upstream's for a signed schema 1 manifest.
func (c *Client) Manifest(ctx context.Context, repository string, reference string) (manifest.Manifest, digest.Digest, error) {
	metrics.IncUpstreamRequests("manifest")
	manifestUrl := fmt.Sprintf("%s/%s/manifests/%s", c.base, repository, reference)
	sep := ":"
	if strings.Contains(reference, ":") {
		sep = "@"
	}
	ref, err := name.ParseReference(repository+sep+reference, c.nameOpts...)
	if err != nil {
		return manifest.Manifest{}, "", &RequestError{Url: manifestUrl, Err: err}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	desc, err := remote.Get(ref, append(c.remoteOpts, remote.WithContext(ctx))...)
	log.Debugf("upstream GET %s latency=%s", manifestUrl, time.Since(start))
	if err != nil {
		return manifest.Manifest{}, "", remoteError(manifestUrl, err)
	}
	m, err := manifest.Resolve(desc.Manifest)
	if err != nil {
		return manifest.Manifest{}, "", err
	}
	return m, digest.Digest(desc.Digest.String()), nil
}

// remoteError sorts a go-containerregistry error into a RequestError when the
// request failed or the upstream answered with an error status, and a DecodeError
// otherwise, e.g. when the body doesn't match the requested digest.
func remoteError(manifestUrl string, err error) error {
	var te *transport.Error
	if errors.As(err, &te) {
		return &RequestError{Url: manifestUrl, StatusCode: te.StatusCode, Errors: diagnostics(te.Errors)}
	}
	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &RequestError{Url: manifestUrl, Err: err}
	}
	return &DecodeError{Url: manifestUrl, Err: err}
}

// diagnostics converts the registry errors parsed by go-containerregistry
func diagnostics(diags []transport.Diagnostic) manifest.RegistryErrors {
	if len(diags) == 0 {
		return nil
	}
	regErrs := make(manifest.RegistryErrors, len(diags))
	for i, d := range diags {
		regErrs[i] = manifest.RegistryError{Code: string(d.Code), Message: d.Message}
		if d.Detail != nil {
			if b, err := json.Marshal(d.Detail); err == nil {
				json.Unmarshal(b, &regErrs[i].Detail)
			}
		}
	}
	return regErrs
}

// get does a GET on the passed url and returns the body. Any failure to complete
// the request, and any non-2xx status, is a RequestError.
func (c *Client) get(ctx context.Context, getUrl string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getUrl, nil)
	if err != nil {
		return nil, &RequestError{Url: getUrl, Err: err}
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Url: getUrl, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Url: getUrl, Err: err}
	}
	log.Debugf("upstream GET %s status=%d latency=%s", getUrl, resp.StatusCode, time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Url: getUrl, StatusCode: resp.StatusCode, Errors: registryErrors(body)}
	}
	return body, nil
}

// registryErrors returns the errors from a registry error body, or nil if the body
// isn't one
func registryErrors(body []byte) manifest.RegistryErrors {
	var errBody struct {
		Errors []manifest.RegistryError `json:"errors"`
	}
	if json.Unmarshal(body, &errBody) != nil || len(errBody.Errors) == 0 {
		return nil
	}
	return errBody.Errors
}

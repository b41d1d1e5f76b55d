package globals

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/adotmob/regbrowse/impl/config"
)

// clientAuthTypes maps the configured clientAuth value to the handshake policy
var clientAuthTypes = map[string]tls.ClientAuthType{
	"":        tls.NoClientCert,
	"none":    tls.NoClientCert,
	"request": tls.RequestClientCert,
	"require": tls.RequireAnyClientCert,
	"verify":  tls.RequireAndVerifyClientCert,
}

// ParseTls builds the TLS configuration for the API server from the serverTlsConfig
// section of the configuration. A nil tls.Config and nil error means there is
// nothing configured and the server should serve plain HTTP.
//
// With "verify", client certs are checked against the configured CA, or the OS trust
// store if no CA is configured.
func ParseTls() (*tls.Config, error) {
	tlsCfg := config.GetServerTlsCfg()
	authType, ok := clientAuthTypes[strings.ToLower(tlsCfg.ClientAuth)]
	if !ok {
		return nil, fmt.Errorf("unsupported client auth value: %s", tlsCfg.ClientAuth)
	}
	if (tlsCfg.Cert == "") != (tlsCfg.Key == "") {
		return nil, fmt.Errorf("server TLS needs both a cert and a key")
	}
	if tlsCfg.Cert == "" && authType == tls.NoClientCert {
		return nil, nil
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ClientAuth: authType,
	}
	if tlsCfg.Cert != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if authType == tls.RequireAndVerifyClientCert && tlsCfg.CA != "" {
		pool, err := certPool(tlsCfg.CA)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
	}
	return cfg, nil
}

func certPool(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in client CA file: %s", caFile)
	}
	return pool, nil
}

package mock

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertSetup has a throwaway CA and a server certificate signed by it, so a test can
// run the mock registry over HTTPS and have a client trust it through the CA.
type CertSetup struct {
	// CaPEM is the CA certificate in PEM form
	CaPEM *bytes.Buffer
	// ServerCert is the server certificate for 127.0.0.1 and ::1
	ServerCert tls.Certificate
	// ServerCertPEM and ServerKeyPEM are ServerCert's certificate and key in PEM form
	ServerCertPEM *bytes.Buffer
	ServerKeyPEM  *bytes.Buffer
}

// CaToFile writes the CA certificate to 'fileName' under 'path' and returns the
// full path.
func (cs CertSetup) CaToFile(path, fileName string) (string, error) {
	p := filepath.Join(path, fileName)
	return p, os.WriteFile(p, cs.CaPEM.Bytes(), 0644)
}

// ServerCertToFile writes the server certificate to 'fileName' under 'path'
func (cs CertSetup) ServerCertToFile(path, fileName string) (string, error) {
	p := filepath.Join(path, fileName)
	return p, os.WriteFile(p, cs.ServerCertPEM.Bytes(), 0644)
}

// ServerCertPrivKeyToFile writes the server key to 'fileName' under 'path'
func (cs CertSetup) ServerCertPrivKeyToFile(path, fileName string) (string, error) {
	p := filepath.Join(path, fileName)
	return p, os.WriteFile(p, cs.ServerKeyPEM.Bytes(), 0600)
}

// ServerTlsConfig returns a TLS config presenting the server certificate
func (cs CertSetup) ServerTlsConfig() *tls.Config {
	return &tls.Config{Certificates: []tls.Certificate{cs.ServerCert}}
}

// NewCertSetup was adapted from https://gist.github.com/shaneutt/5e1995295cff6721c89a71d13a71c251
func NewCertSetup() (CertSetup, error) {
	ca := newX509("root", true)
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return CertSetup{}, err
	}
	caBytes, err := x509.CreateCertificate(rand.Reader, &ca, &ca, &caKey.PublicKey, caKey)
	if err != nil {
		return CertSetup{}, err
	}
	server := newX509("server", false)
	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return CertSetup{}, err
	}
	serverBytes, err := x509.CreateCertificate(rand.Reader, &server, &ca, &serverKey.PublicKey, caKey)
	if err != nil {
		return CertSetup{}, err
	}
	certPEM := pemOf("CERTIFICATE", serverBytes)
	keyPEM := pemOf("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(serverKey))
	serverCert, err := tls.X509KeyPair(certPEM.Bytes(), keyPEM.Bytes())
	if err != nil {
		return CertSetup{}, err
	}
	return CertSetup{
		CaPEM:         pemOf("CERTIFICATE", caBytes),
		ServerCert:    serverCert,
		ServerCertPEM: certPEM,
		ServerKeyPEM:  keyPEM,
	}, nil
}

func pemOf(blockType string, b []byte) *bytes.Buffer {
	buf := new(bytes.Buffer)
	pem.Encode(buf, &pem.Block{Type: blockType, Bytes: b})
	return buf
}

// newX509 returns a new x509 cert with the passed common name valid for the
// loopback addresses
func newX509(cn string, isCA bool) x509.Certificate {
	keyUsage := x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	if isCA {
		keyUsage |= x509.KeyUsageCertSign
	}
	return x509.Certificate{
		SerialNumber:          big.NewInt(2019),
		Subject:               pkix.Name{CommonName: cn},
		IsCA:                  isCA,
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		KeyUsage:              keyUsage,
	}
}

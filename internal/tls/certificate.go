// Package tls creates the self-signed certificate used when the schema
// server is started with TLS and no certificate was provided.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Validity is how long a generated certificate is valid for.
const Validity = 365 * 24 * time.Hour

// DefaultHosts are the names a generated certificate covers when the caller
// names none.
var DefaultHosts = []string{"localhost", "127.0.0.1", "::1"}

// EnsureCertificate generates a certificate and key for hosts unless both
// files already exist. Hosts may be DNS names or IP addresses.
func EnsureCertificate(certFile, keyFile string, hosts ...string) error {
	if exists(certFile) && exists(keyFile) {
		slog.Info("using existing certificate files", "cert", certFile, "key", keyFile)
		return nil
	}
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	return generate(certFile, keyFile, hosts, time.Now())
}

func generate(certFile, keyFile string, hosts []string, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	template, err := newTemplate(hosts, now)
	if err != nil {
		return err
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(certFile, 0644, "CERTIFICATE", der); err != nil {
		return err
	}
	if err := writePEM(keyFile, 0600, "PRIVATE KEY", keyDER); err != nil {
		return err
	}

	slog.Info("generated self-signed certificate",
		"cert", certFile,
		"key", keyFile,
		"hosts", hosts,
		"expires", template.NotAfter.Format(time.RFC3339),
	)
	return nil
}

// newTemplate describes a server certificate for hosts valid from now
func newTemplate(hosts []string, now time.Time) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Entity Schema Server"},
			CommonName:   hosts[0],
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}
	return template, nil
}

func writePEM(path string, perm os.FileMode, blockType string, der []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package etcdreg

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// tlsFromEnv builds a client TLS config from the CLUSTER_ETCD_* environment
// variables, or returns nil if TLS is not configured, adapted from the
// teacher SDK's tlsInfo helper (cert/key/CA triple, TLS 1.2 floor).
func tlsFromEnv() (*tls.Config, error) {
	certFile := os.Getenv("CLUSTER_ETCD_TLS_CERT")
	keyFile := os.Getenv("CLUSTER_ETCD_TLS_KEY")
	caFile := os.Getenv("CLUSTER_ETCD_TLS_CA")
	if certFile == "" && keyFile == "" && caFile == "" {
		return nil, nil
	}
	if certFile == "" || keyFile == "" || caFile == "" {
		return nil, fmt.Errorf("etcdreg: CLUSTER_ETCD_TLS_CERT, _KEY and _CA must all be set together")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("etcdreg: load client certificate: %w", err)
	}

	caData, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("etcdreg: read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caData) {
		return nil, fmt.Errorf("etcdreg: parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

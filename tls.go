package wsloop

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// loadTLSConfig builds the listener TLS configuration from a PEM
// bundle holding the certificate chain and the private key.
// Self-signed certificates work; peers are never verified.
//
// Passphrase-protected keys must use RFC 1423 PEM encryption, the
// only scheme an opaque passphrase string can address.
func loadTLSConfig(certFile, passphrase string) (*tls.Config, error) {
	if certFile == "" {
		return nil, errors.New("tls: certificate file is required for wss/tls addresses")
	}
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("tls: read %q: %w", certFile, err)
	}

	var certPEM, keyPEM []byte
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case strings.Contains(block.Type, "PRIVATE KEY"):
			//lint:ignore SA1019 RFC 1423 is what a cert file plus
			// passphrase means; callers wanting modern key storage
			// supply an unencrypted key.
			if x509.IsEncryptedPEMBlock(block) {
				der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
				if err != nil {
					return nil, fmt.Errorf("tls: decrypt private key: %w", err)
				}
				block = &pem.Block{Type: block.Type, Bytes: der}
			}
			keyPEM = append(keyPEM, pem.EncodeToMemory(block)...)
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, fmt.Errorf("tls: %q must contain both a certificate and a private key", certFile)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("tls: load key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

package wsloop

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wsloop/wsloop/wswire"
)

// Config holds the construction-time server settings. It is not
// consulted again after NewServer returns.
type Config struct {
	// Addr is the bind address in URL form, scheme://host:port.
	// Schemes ws and tcp bind a plain listener, wss and tls an
	// encrypted one. Scheme, host and port are all required.
	Addr string `yaml:"addr"`

	// CertFile points at a PEM bundle holding both the certificate
	// chain and the private key for wss/tls addresses. Ignored for
	// plain schemes.
	CertFile string `yaml:"cert_file"`

	// Passphrase decrypts the private key in CertFile when set.
	Passphrase string `yaml:"passphrase"`

	// FragmentSize is the chunk size outgoing messages are split
	// into. Zero means wswire.DefaultFragmentSize.
	FragmentSize int `yaml:"fragment_size"`
}

// LoadConfig reads a YAML config file into a Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := &Config{FragmentSize: wswire.DefaultFragmentSize}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

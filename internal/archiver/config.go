// Package archiver implements the HTTP front door to the archive store:
// the event processor POSTs event metadata and segment locations here, and
// this service is the only component that actually writes the archive.
package archiver

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

// StorageConfig names the archive store the archiver writes to and the
// independently configured event/segment encryption keys it writes under.
type StorageConfig struct {
	URL        string            `toml:"url"`
	Encryption encryption.Config `toml:"encryption"`
}

// Config is the archiver's configuration.
type Config struct {
	ListenAddr   string         `toml:"http_server_address"`
	Storage      StorageConfig  `toml:"storage"`
	FetchTimeout common.Seconds `toml:"fetch_timeout"`
}

// Load reads and parses a TOML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archiver: reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("archiver: parsing config %s: %w", path, err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8082"
	}
	if cfg.Storage.URL == "" {
		cfg.Storage.URL = "memory://"
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = common.Seconds(30 * time.Second)
	}
	return &cfg, nil
}

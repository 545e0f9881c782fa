package main

import (
	"context"
	"fmt"

	"github.com/satori-nvr/satori/internal/storage"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

// openProvider opens the archive store named by env, loading the event and
// segment encryption keys independently. For each, the private key (which
// can also encrypt) is preferred when configured so read commands work;
// otherwise it falls back to the public key for write-only commands.
func (e *cliEnv) openProvider(ctx context.Context) (*storage.Provider, error) {
	backend, err := storage.BackendFromURL(ctx, *e.storeURL)
	if err != nil {
		return nil, fmt.Errorf("opening archive store: %w", err)
	}

	eventKeyPaths := encryption.KeyPaths{PublicKeyPath: *e.eventPublicKeyPath, PrivateKeyPath: *e.eventPrivateKeyPath}
	if eventKeyPaths.PublicKeyPath == "" && eventKeyPaths.PrivateKeyPath == "" {
		return nil, fmt.Errorf("one of --event-private-key or --event-public-key is required")
	}
	eventKey, err := eventKeyPaths.Load()
	if err != nil {
		return nil, fmt.Errorf("loading event key: %w", err)
	}

	segmentKeyPaths := encryption.KeyPaths{PublicKeyPath: *e.segmentPublicKeyPath, PrivateKeyPath: *e.segmentPrivateKeyPath}
	if segmentKeyPaths.PublicKeyPath == "" && segmentKeyPaths.PrivateKeyPath == "" {
		return nil, fmt.Errorf("one of --segment-private-key or --segment-public-key is required")
	}
	segmentKey, err := segmentKeyPaths.Load()
	if err != nil {
		return nil, fmt.Errorf("loading segment key: %w", err)
	}

	return storage.NewProvider(backend, eventKey, segmentKey), nil
}

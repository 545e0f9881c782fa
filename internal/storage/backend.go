package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Backend is the uniform byte-oriented object store every Provider sits on
// top of. Paths are '/'-separated keys, never filesystem-absolute; a
// Backend owns the translation to its own storage medium.
type Backend interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	// List returns every key under prefix, in no particular order; callers
	// that need a stable order (directory listings) sort the result
	// themselves.
	List(ctx context.Context, prefix string) ([]string, error)
}

// BackendFromURL selects and constructs a Backend from a URL, dispatching
// on scheme exactly as Satori's three supported backends: "memory://"
// (ephemeral, process-local), "file://<path>" (a directory on local disk),
// and "s3://<bucket>/<prefix>" (an S3-compatible bucket, optionally with
// ?region=&endpoint= query parameters for non-AWS endpoints).
func BackendFromURL(ctx context.Context, rawURL string) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: invalid backend url %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return NewLocalBackend(path)
	case "s3":
		bucket := u.Host
		prefix := strings.TrimPrefix(u.Path, "/")
		region := u.Query().Get("region")
		endpoint := u.Query().Get("endpoint")
		return NewS3Backend(ctx, bucket, prefix, region, endpoint)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Package storage implements Satori's content-addressed archive store: a
// uniform Provider over pluggable Backends (in-memory, local disk, S3),
// with per-object hybrid encryption and the workflows (export, prune) that
// operate across the whole store.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/satori-nvr/satori/internal/common"
	"github.com/satori-nvr/satori/internal/storage/encryption"
)

const (
	eventsPrefix   = "events/"
	segmentsPrefix = "segments/"
)

// Provider is the archive store: JSON-encode, encrypt, and write; read,
// decrypt, and JSON-decode. Every object lives at an immutable key derived
// from its own filename, never from content hashing despite the
// "content-addressed" name — the address is the event/segment identity,
// not a digest of the bytes. Events and segments are sealed under
// independently configured keys, so a leaked segment key never exposes
// event metadata and vice versa.
type Provider struct {
	backend    Backend
	eventKey   *encryption.Key
	segmentKey *encryption.Key
}

// NewProvider wraps backend with eventKey and segmentKey. A Provider
// holding only a public half of either key can Put the corresponding
// object kind but not Get it back.
func NewProvider(backend Backend, eventKey, segmentKey *encryption.Key) *Provider {
	return &Provider{backend: backend, eventKey: eventKey, segmentKey: segmentKey}
}

func eventKey(filename string) string {
	return eventsPrefix + filename
}

func segmentKey(camera, filename string) string {
	return path.Join(segmentsPrefix, camera, filename)
}

// validPathComponent reports whether s is safe to use as a single path
// segment under the store's key layout: non-empty, not "." or "..", and
// free of path separators that could walk it out of its intended prefix.
func validPathComponent(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\")
}

// ValidCameraName reports whether name is safe to use as a camera name:
// callers taking a camera name from an untrusted source (an HTTP path
// parameter, say) should reject it before it ever reaches PutSegment et al.
func ValidCameraName(name string) bool {
	return validPathComponent(name)
}

// PutEvent serializes, encrypts, and stores an event under its own filename.
func (p *Provider) PutEvent(ctx context.Context, ev common.Event) error {
	filename := ev.Metadata.Filename()

	plain, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("storage: marshalling event %s: %w", filename, err)
	}

	sealed, err := p.eventKey.Encrypt(plain, encryption.EventInfo(filename))
	if err != nil {
		return fmt.Errorf("storage: encrypting event %s: %w", filename, err)
	}

	return p.backend.Put(ctx, eventKey(filename), sealed)
}

// GetEvent reads, decrypts, and deserializes the event stored at filename.
func (p *Provider) GetEvent(ctx context.Context, filename string) (common.Event, error) {
	var ev common.Event

	sealed, err := p.backend.Get(ctx, eventKey(filename))
	if err != nil {
		return ev, err
	}

	plain, err := p.eventKey.Decrypt(sealed, encryption.EventInfo(filename))
	if err != nil {
		return ev, fmt.Errorf("storage: decrypting event %s: %w", filename, err)
	}

	if err := json.Unmarshal(plain, &ev); err != nil {
		return ev, fmt.Errorf("storage: unmarshalling event %s: %w", filename, err)
	}
	return ev, nil
}

// DeleteEvent removes the event stored at filename.
func (p *Provider) DeleteEvent(ctx context.Context, filename string) error {
	return p.backend.Delete(ctx, eventKey(filename))
}

// ListEvents returns every stored event filename, sorted.
func (p *Provider) ListEvents(ctx context.Context) ([]string, error) {
	keys, err := p.backend.List(ctx, eventsPrefix)
	if err != nil {
		return nil, fmt.Errorf("storage: listing events: %w", err)
	}
	return filterAndTrim(keys, eventsPrefix, ".json"), nil
}

// PutSegment serializes, encrypts, and stores one camera's segment bytes.
func (p *Provider) PutSegment(ctx context.Context, camera, filename string, data []byte) error {
	if !validPathComponent(camera) || !validPathComponent(filename) {
		return fmt.Errorf("%w: camera=%q filename=%q", ErrInvalidCameraName, camera, filename)
	}

	sealed, err := p.segmentKey.Encrypt(data, encryption.SegmentInfo(camera, filename))
	if err != nil {
		return fmt.Errorf("storage: encrypting segment %s/%s: %w", camera, filename, err)
	}
	return p.backend.Put(ctx, segmentKey(camera, filename), sealed)
}

// GetSegment reads and decrypts the named segment's video bytes.
func (p *Provider) GetSegment(ctx context.Context, camera, filename string) ([]byte, error) {
	if !validPathComponent(camera) || !validPathComponent(filename) {
		return nil, fmt.Errorf("%w: camera=%q filename=%q", ErrInvalidCameraName, camera, filename)
	}

	sealed, err := p.backend.Get(ctx, segmentKey(camera, filename))
	if err != nil {
		return nil, err
	}

	plain, err := p.segmentKey.Decrypt(sealed, encryption.SegmentInfo(camera, filename))
	if err != nil {
		return nil, fmt.Errorf("storage: decrypting segment %s/%s: %w", camera, filename, err)
	}
	return plain, nil
}

// DeleteSegment removes one camera's segment.
func (p *Provider) DeleteSegment(ctx context.Context, camera, filename string) error {
	if !validPathComponent(camera) || !validPathComponent(filename) {
		return fmt.Errorf("%w: camera=%q filename=%q", ErrInvalidCameraName, camera, filename)
	}
	return p.backend.Delete(ctx, segmentKey(camera, filename))
}

// ListCameras returns the distinct camera names with at least one stored
// segment, sorted.
func (p *Provider) ListCameras(ctx context.Context) ([]string, error) {
	keys, err := p.backend.List(ctx, segmentsPrefix)
	if err != nil {
		return nil, fmt.Errorf("storage: listing cameras: %w", err)
	}

	seen := make(map[string]bool)
	for _, k := range keys {
		rel := strings.TrimPrefix(k, segmentsPrefix)
		parts := strings.SplitN(rel, "/", 2)
		if len(parts) == 2 && parts[0] != "" {
			seen[parts[0]] = true
		}
	}

	cameras := make([]string, 0, len(seen))
	for c := range seen {
		cameras = append(cameras, c)
	}
	sort.Strings(cameras)
	return cameras, nil
}

// ListSegments returns every stored segment filename for camera, sorted.
func (p *Provider) ListSegments(ctx context.Context, camera string) ([]string, error) {
	if !validPathComponent(camera) {
		return nil, fmt.Errorf("%w: camera=%q", ErrInvalidCameraName, camera)
	}
	prefix := segmentsPrefix + camera + "/"
	keys, err := p.backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("storage: listing segments for %s: %w", camera, err)
	}
	return filterAndTrim(keys, prefix, ".ts"), nil
}

// PutRaw stores data verbatim, unencrypted, at key. Used for operational
// state that is internal to one service (the archive retry queue) rather
// than a durable archive artifact.
func (p *Provider) PutRaw(ctx context.Context, key string, data []byte) error {
	return p.backend.Put(ctx, key, data)
}

// GetRaw reads back data stored with PutRaw.
func (p *Provider) GetRaw(ctx context.Context, key string) ([]byte, error) {
	return p.backend.Get(ctx, key)
}

func filterAndTrim(keys []string, prefix, suffix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, suffix) {
			continue
		}
		out = append(out, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(out)
	return out
}

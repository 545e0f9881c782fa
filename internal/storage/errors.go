package storage

import (
	"errors"

	"github.com/satori-nvr/satori/internal/storage/encryption"
)

var (
	// ErrNotFound indicates the requested key does not exist in the backend.
	ErrNotFound = errors.New("storage: object not found")
	// ErrNoSuchCamera indicates an export or prune operation named a camera
	// the event does not reference.
	ErrNoSuchCamera = errors.New("storage: no such camera on event")
	// ErrCameraMustBeSpecified indicates an export was requested against a
	// multi-camera event without naming which camera to export.
	ErrCameraMustBeSpecified = errors.New("storage: camera must be specified")
	// ErrUnsupportedScheme indicates a backend URL named a scheme other than
	// memory, file, or s3.
	ErrUnsupportedScheme = errors.New("storage: unsupported backend scheme")
	// ErrInvalidCameraName indicates a camera name is empty or would escape
	// the segments/ prefix (".", "..", or containing a path separator).
	ErrInvalidCameraName = errors.New("storage: invalid camera name")

	// ErrKeyMissing indicates a Decrypt call against an encryption key that
	// holds only a public half. Re-exported from the encryption package so
	// callers of Provider don't need to import it directly.
	ErrKeyMissing = encryption.ErrKeyMissing
	// ErrDecryption indicates a payload failed to authenticate, which is
	// indistinguishable between "wrong key" and "tampered ciphertext".
	ErrDecryption = encryption.ErrDecryption
)

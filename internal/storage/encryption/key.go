// Package encryption implements Satori's per-object hybrid AEAD scheme: an
// ephemeral X25519 key agreement, HKDF-SHA384 key derivation, and
// ChaCha20-Poly1305 sealing, wrapped in a small CBOR envelope. It plays the
// role the original implementation gave to HPKE (X25519HkdfSha256 KEM,
// HkdfSha384 KDF, ChaCha20Poly1305 AEAD); no single HPKE package exists in
// the available dependency set, so the three primitives are composed
// directly from golang.org/x/crypto.
package encryption

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/pem"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// kdfLabel is bound into every HKDF derivation as the "info" parameter,
// separating Satori's key schedule from any other use of the same shared
// secret. It is fixed protocol context, not a per-object secret.
const kdfLabel = "satori"

var (
	// ErrKeyMissing is returned by Decrypt when called on a public-only key.
	ErrKeyMissing = errors.New("encryption: key has no private half")
	// ErrDecryption is returned when a payload fails to authenticate.
	ErrDecryption = errors.New("encryption: decryption failed")
)

func newSHA384() hash.Hash {
	return sha512.New384()
}

const keySize = curve25519.ScalarSize // 32 bytes, for both public and private halves

// Key is an X25519 key pair used to seal and open archive objects. A key
// loaded from a public-only PEM block can Encrypt but not Decrypt.
type Key struct {
	Public  [keySize]byte
	private *[keySize]byte
}

// Generate creates a fresh key pair.
func Generate() (*Key, error) {
	var priv [keySize]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return nil, fmt.Errorf("encryption: generating private key: %w", err)
	}

	var pub [keySize]byte
	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("encryption: deriving public key: %w", err)
	}
	copy(pub[:], pubSlice)

	return &Key{Public: pub, private: &priv}, nil
}

// HasPrivate reports whether this key can Decrypt.
func (k *Key) HasPrivate() bool {
	return k.private != nil
}

const (
	pemPublicType  = "SATORI PUBLIC KEY"
	pemPrivateType = "SATORI PRIVATE KEY"
)

// EncodePublicPEM renders the public half as a PEM block, suitable for
// distributing to services that only ever encrypt.
func (k *Key) EncodePublicPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicType, Bytes: k.Public[:]})
}

// EncodePrivatePEM renders the full key pair as two concatenated PEM
// blocks. Returns an error if k holds no private half.
func (k *Key) EncodePrivatePEM() ([]byte, error) {
	if k.private == nil {
		return nil, fmt.Errorf("encryption: key has no private half to encode")
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: pemPublicType, Bytes: k.Public[:]})
	priv := pem.EncodeToMemory(&pem.Block{Type: pemPrivateType, Bytes: k.private[:]})
	return append(pub, priv...), nil
}

// ParsePEM decodes a key from one or two concatenated PEM blocks as written
// by EncodePublicPEM/EncodePrivatePEM.
func ParsePEM(data []byte) (*Key, error) {
	k := &Key{}
	found := false

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case pemPublicType:
			if len(block.Bytes) != keySize {
				return nil, fmt.Errorf("encryption: public key block has %d bytes, want %d", len(block.Bytes), keySize)
			}
			copy(k.Public[:], block.Bytes)
			found = true
		case pemPrivateType:
			if len(block.Bytes) != keySize {
				return nil, fmt.Errorf("encryption: private key block has %d bytes, want %d", len(block.Bytes), keySize)
			}
			var priv [keySize]byte
			copy(priv[:], block.Bytes)
			k.private = &priv
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("encryption: no recognised PEM blocks found")
	}
	return k, nil
}

// KeyPaths names the PEM files backing one Key, as configured in TOML.
// PrivateKeyPath may be left empty for a service that only ever encrypts.
type KeyPaths struct {
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// Load reads and parses the key named by p, preferring the private-key PEM
// (which also carries the public half) over the public-only one so the same
// config works for both read and write callers.
func (p KeyPaths) Load() (*Key, error) {
	path := p.PrivateKeyPath
	if path == "" {
		path = p.PublicKeyPath
	}
	if path == "" {
		return nil, fmt.Errorf("encryption: no key path configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("encryption: reading key %s: %w", path, err)
	}
	return ParsePEM(data)
}

// Config is the event/segment key pair configured independently for one
// archive store: Satori never uses a single key for both object kinds, so
// that compromising one key's private half cannot expose the other's
// contents.
type Config struct {
	Event   KeyPaths `toml:"event"`
	Segment KeyPaths `toml:"segment"`
}

// envelope is the CBOR-encoded wire payload stored alongside every
// encrypted object.
type envelope struct {
	EncappedKey []byte `cbor:"encapsulated_key"`
	Nonce       []byte `cbor:"nonce"`
	Ciphertext  []byte `cbor:"ciphertext"`
}

// Encrypt seals plaintext under this key's public half, binding info as
// additional authenticated data so the ciphertext cannot be relocated to a
// different object key and still decrypt. Returns the CBOR-encoded
// envelope ready to write to the backend.
func (k *Key) Encrypt(plaintext, info []byte) ([]byte, error) {
	var ephPriv [keySize]byte
	if _, err := io.ReadFull(rand.Reader, ephPriv[:]); err != nil {
		return nil, fmt.Errorf("encryption: generating ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(ephPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("encryption: deriving ephemeral public key: %w", err)
	}

	shared, err := curve25519.X25519(ephPriv[:], k.Public[:])
	if err != nil {
		return nil, fmt.Errorf("encryption: computing shared secret: %w", err)
	}

	symKey, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, fmt.Errorf("encryption: constructing aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encryption: generating nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, info)

	env := envelope{EncappedKey: ephPub, Nonce: nonce, Ciphertext: ciphertext}
	out, err := cbor.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encryption: encoding envelope: %w", err)
	}
	return out, nil
}

// Decrypt opens a payload produced by Encrypt, verifying info as additional
// authenticated data. Returns ErrKeyMissing if this key holds no private
// half, or ErrDecryption if authentication fails.
func (k *Key) Decrypt(payload, info []byte) ([]byte, error) {
	if k.private == nil {
		return nil, ErrKeyMissing
	}

	var env envelope
	if err := cbor.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("encryption: decoding envelope: %w", err)
	}
	if len(env.EncappedKey) != keySize {
		return nil, fmt.Errorf("encryption: bad encapsulated key length %d", len(env.EncappedKey))
	}

	shared, err := curve25519.X25519(k.private[:], env.EncappedKey)
	if err != nil {
		return nil, fmt.Errorf("encryption: computing shared secret: %w", err)
	}

	symKey, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(symKey)
	if err != nil {
		return nil, fmt.Errorf("encryption: constructing aead: %w", err)
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, info)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func deriveKey(shared []byte) ([]byte, error) {
	r := hkdf.New(newSHA384, shared, nil, []byte(kdfLabel))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("encryption: deriving symmetric key: %w", err)
	}
	return key, nil
}

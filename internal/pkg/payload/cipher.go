// internal/pkg/payload/cipher.go
package payload

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// Backend selects which AES-GCM implementation backs a Cipher. Both produce
// byte-identical wire output and reject tampered ciphertext identically; the
// split mirrors the two execution contexts the payload may be decoded in.
type Backend int

const (
	// BackendSealed uses the one-shot AEAD interface.
	BackendSealed Backend = iota
	// BackendPrimitive composes CTR and GHASH over the raw block cipher.
	BackendPrimitive
)

// Cipher encrypts coupon data into the three-part iv.ciphertext.tag wire
// format and decrypts it back. Implementations are deterministic on decrypt
// and safe for concurrent use with a shared immutable key.
type Cipher interface {
	Encrypt(data *coupon.Data) (string, error)
	Decrypt(payload string) (*coupon.Data, error)
}

// ParseKey decodes the 64-hex-character payload key. A missing or wrong-length
// key is a startup configuration error, never a per-request one.
func ParseKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("payload key not configured")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("payload key is not valid hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("payload key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// New builds a Cipher over a 256-bit key using the selected backend.
func New(key []byte, backend Backend) (Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", KeySize, len(key))
	}

	var a aead
	var err error
	switch backend {
	case BackendSealed:
		a, err = newSealedAEAD(key)
	case BackendPrimitive:
		a, err = newPrimitiveAEAD(key)
	default:
		return nil, fmt.Errorf("unknown cipher backend %d", backend)
	}
	if err != nil {
		return nil, err
	}

	return &gcmCipher{aead: a}, nil
}

// aead is the internal contract both backends satisfy. open must verify the
// tag before releasing any plaintext.
type aead interface {
	seal(nonce, plaintext []byte) (ciphertext, tag []byte, err error)
	open(nonce, ciphertext, tag []byte) ([]byte, error)
}

type gcmCipher struct {
	aead aead
}

func (c *gcmCipher) Encrypt(data *coupon.Data) (string, error) {
	plaintext, err := marshalPayload(data)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext, tag, err := c.aead.seal(nonce, plaintext)
	if err != nil {
		return "", err
	}

	return encodePart(nonce) + "." + encodePart(ciphertext) + "." + encodePart(tag), nil
}

func (c *gcmCipher) Decrypt(payload string) (*coupon.Data, error) {
	nonce, ciphertext, tag, err := splitPayload(payload)
	if err != nil {
		return nil, err
	}

	plaintext, err := c.aead.open(nonce, ciphertext, tag)
	if err != nil {
		// Fail closed: tampered payload or wrong key, no partial plaintext.
		return nil, xerrors.ErrPayloadAuth
	}

	return parsePayload(plaintext)
}

// splitPayload cuts the wire string into its three decoded segments.
func splitPayload(payload string) (nonce, ciphertext, tag []byte, err error) {
	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		return nil, nil, nil, xerrors.ErrPayloadFormat
	}

	segments := make([][]byte, 3)
	for i, p := range parts {
		decoded, err := decodePart(p)
		if err != nil || len(decoded) == 0 {
			return nil, nil, nil, xerrors.ErrPayloadFormat
		}
		segments[i] = decoded
	}

	if len(segments[0]) != NonceSize || len(segments[2]) != TagSize {
		return nil, nil, nil, xerrors.ErrPayloadFormat
	}

	return segments[0], segments[1], segments[2], nil
}

func encodePart(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodePart(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// internal/pkg/payload/backend_sealed.go
package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// sealedAEAD backs the cipher with the stdlib one-shot AEAD. The combined
// seal output is split so the tag travels as its own wire segment.
type sealedAEAD struct {
	gcm cipher.AEAD
}

func newSealedAEAD(key []byte) (*sealedAEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to build GCM: %w", err)
	}
	return &sealedAEAD{gcm: gcm}, nil
}

func (a *sealedAEAD) seal(nonce, plaintext []byte) ([]byte, []byte, error) {
	sealed := a.gcm.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize
	return sealed[:split], sealed[split:], nil
}

func (a *sealedAEAD) open(nonce, ciphertext, tag []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	return a.gcm.Open(nil, nonce, sealed, nil)
}

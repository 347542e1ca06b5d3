// internal/pkg/payload/backend_primitive.go
package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	xerrors "namy-service/internal/pkg/errors"
)

// primitiveAEAD composes GCM from the raw AES block cipher: CTR mode for
// confidentiality and GHASH for the authentication tag (NIST SP 800-38D).
// It is wire-compatible with sealedAEAD and exists so environments exposing
// only block-level primitives share one conformance-tested contract.
type primitiveAEAD struct {
	block cipher.Block
	h     [2]uint64 // GHASH subkey H = E_K(0^128)
}

func newPrimitiveAEAD(key []byte) (*primitiveAEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build AES cipher: %w", err)
	}

	var zeros, h [16]byte
	block.Encrypt(h[:], zeros[:])

	return &primitiveAEAD{
		block: block,
		h:     [2]uint64{binary.BigEndian.Uint64(h[:8]), binary.BigEndian.Uint64(h[8:])},
	}, nil
}

func (a *primitiveAEAD) seal(nonce, plaintext []byte) ([]byte, []byte, error) {
	if len(nonce) != NonceSize {
		return nil, nil, fmt.Errorf("nonce must be %d bytes", NonceSize)
	}

	j0 := a.counterBlock(nonce)
	ciphertext := make([]byte, len(plaintext))
	a.ctr(incCounter(j0), ciphertext, plaintext)

	tag := a.tag(j0, ciphertext)
	return ciphertext, tag[:], nil
}

func (a *primitiveAEAD) open(nonce, ciphertext, tag []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, xerrors.ErrPayloadAuth
	}

	j0 := a.counterBlock(nonce)
	expected := a.tag(j0, ciphertext)

	// Verify before decrypting anything.
	if subtle.ConstantTimeCompare(expected[:], tag) != 1 {
		return nil, xerrors.ErrPayloadAuth
	}

	plaintext := make([]byte, len(ciphertext))
	a.ctr(incCounter(j0), plaintext, ciphertext)
	return plaintext, nil
}

// counterBlock builds J0 = IV || 0^31 || 1 for a 96-bit IV.
func (a *primitiveAEAD) counterBlock(nonce []byte) [16]byte {
	var j0 [16]byte
	copy(j0[:], nonce)
	j0[15] = 1
	return j0
}

// ctr applies CTR-mode keystream starting at the given counter block.
func (a *primitiveAEAD) ctr(counter [16]byte, dst, src []byte) {
	var keystream [16]byte
	for i := 0; i < len(src); i += 16 {
		a.block.Encrypt(keystream[:], counter[:])
		n := len(src) - i
		if n > 16 {
			n = 16
		}
		for j := 0; j < n; j++ {
			dst[i+j] = src[i+j] ^ keystream[j]
		}
		counter = incCounter(counter)
	}
}

// tag computes T = E_K(J0) XOR GHASH_H(C || len64(A) || len64(C)); AAD is
// always empty on this wire format.
func (a *primitiveAEAD) tag(j0 [16]byte, ciphertext []byte) [16]byte {
	var y [2]uint64
	for i := 0; i < len(ciphertext); i += 16 {
		var blk [16]byte
		copy(blk[:], ciphertext[i:])
		y[0] ^= binary.BigEndian.Uint64(blk[:8])
		y[1] ^= binary.BigEndian.Uint64(blk[8:])
		y = gfMul(y, a.h)
	}

	// Length block: bit lengths of AAD (zero) and ciphertext.
	y[1] ^= uint64(len(ciphertext)) * 8
	y = gfMul(y, a.h)

	var ekj0 [16]byte
	a.block.Encrypt(ekj0[:], j0[:])

	var tag [16]byte
	binary.BigEndian.PutUint64(tag[:8], y[0]^binary.BigEndian.Uint64(ekj0[:8]))
	binary.BigEndian.PutUint64(tag[8:], y[1]^binary.BigEndian.Uint64(ekj0[8:]))
	return tag
}

// incCounter increments the rightmost 32 bits of the counter block.
func incCounter(c [16]byte) [16]byte {
	n := binary.BigEndian.Uint32(c[12:]) + 1
	binary.BigEndian.PutUint32(c[12:], n)
	return c
}

// gfMul multiplies x by y in GF(2^128) with the GCM reduction polynomial,
// MSB-first bit ordering per SP 800-38D §6.3.
func gfMul(x, y [2]uint64) [2]uint64 {
	var z [2]uint64
	v := y
	for i := 0; i < 128; i++ {
		if (x[i/64]>>(63-uint(i%64)))&1 == 1 {
			z[0] ^= v[0]
			z[1] ^= v[1]
		}
		carry := v[1] & 1
		v[1] = v[1]>>1 | v[0]<<63
		v[0] >>= 1
		if carry == 1 {
			v[0] ^= 0xe100000000000000
		}
	}
	return z
}

// Package cryptox holds the symmetric encryption and password hashing
// primitives used for the user document.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/datahub/internal/common"
)

// Sealer encrypts and authenticates opaque blobs with AES-GCM.
//
// The sealed form is nonce || ciphertext, where the nonce is freshly
// generated for every Seal call.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer for a 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aesgcm}, nil
}

// NewSealerFromString parses key material with ParseKey and builds a Sealer.
func NewSealerFromString(key string) (*Sealer, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return NewSealer(k)
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Any failure, including a wrong key or truncated
// input, wraps common.ErrDecodeFailure.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(data) < ns+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed data too short", common.ErrDecodeFailure)
	}

	plaintext, err := s.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecodeFailure, err)
	}
	return plaintext, nil
}

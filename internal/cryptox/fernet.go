package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/datahub/internal/common"
)

const (
	fernetVersion   = 0x80
	fernetHeaderLen = 1 + 8 + aes.BlockSize
	fernetMACLen    = sha256.Size
)

// Fernet opens tokens in the Fernet format (AES-128-CBC with an
// HMAC-SHA256 tag), which is how older documents were written. Token age is
// not checked.
type Fernet struct {
	signKey []byte
	encKey  []byte
}

// NewFernet splits a 32-byte Fernet key into its signing and encryption
// halves.
func NewFernet(key []byte) (*Fernet, error) {
	if len(key) != 32 {
		return nil, errors.New("fernet key must be 32 bytes")
	}
	return &Fernet{signKey: key[:16], encKey: key[16:]}, nil
}

// Open verifies and decrypts a base64url Fernet token. Any failure wraps
// common.ErrDecodeFailure.
func (f *Fernet) Open(token []byte) ([]byte, error) {
	token = bytes.TrimSpace(token)
	raw := make([]byte, base64.URLEncoding.DecodedLen(len(token)))
	n, err := base64.URLEncoding.Decode(raw, token)
	if err != nil {
		return nil, fmt.Errorf("%w: fernet token: %v", common.ErrDecodeFailure, err)
	}
	raw = raw[:n]

	if len(raw) < fernetHeaderLen+aes.BlockSize+fernetMACLen || raw[0] != fernetVersion {
		return nil, fmt.Errorf("%w: not a fernet token", common.ErrDecodeFailure)
	}

	body, tag := raw[:len(raw)-fernetMACLen], raw[len(raw)-fernetMACLen:]
	mac := hmac.New(sha256.New, f.signKey)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, fmt.Errorf("%w: fernet signature mismatch", common.ErrDecodeFailure)
	}

	iv := body[9:fernetHeaderLen]
	ciphertext := body[fernetHeaderLen:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: fernet ciphertext is not block aligned", common.ErrDecodeFailure)
	}

	block, err := aes.NewCipher(f.encKey)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpad(plaintext)
}

// unpad strips PKCS#7 padding.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty fernet payload", common.ErrDecodeFailure)
	}
	p := int(b[len(b)-1])
	if p == 0 || p > aes.BlockSize || p > len(b) {
		return nil, fmt.Errorf("%w: bad fernet padding", common.ErrDecodeFailure)
	}
	for _, c := range b[len(b)-p:] {
		if int(c) != p {
			return nil, fmt.Errorf("%w: bad fernet padding", common.ErrDecodeFailure)
		}
	}
	return b[:len(b)-p], nil
}

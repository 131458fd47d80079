package cryptox

import (
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// keySalt is fixed so the same passphrase always yields the same document
// key across processes and hosts.
var keySalt = []byte("datahub/document-key/v1")

// DeriveMasterKey stretches a passphrase into a 32-byte key with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// ParseKey turns configured key material into an AES key.
//
// A standard or URL-safe base64 string decoding to 16, 24 or 32 bytes is
// used as-is. A 32-byte key also opens Fernet tokens through NewFernet.
// Anything else is treated as a passphrase and run through DeriveMasterKey.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty key")
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		switch len(b) {
		case 16, 24, 32:
			return b, nil
		}
	}

	return DeriveMasterKey([]byte(s), keySalt), nil
}

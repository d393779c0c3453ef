package profile

import (
	"crypto/rsa"
	"crypto/x509"
	_ "embed"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
)

// sessionKeyDER is the public half of the key the session server signs
// profile properties with.
//
//go:embed yggdrasil_session_pubkey.der
var sessionKeyDER []byte

var sessionKey = sync.OnceValues(func() (*rsa.PublicKey, error) {
	return ParsePublicKey(sessionKeyDER)
})

// DefaultSessionKey returns the embedded session server key. It is parsed
// once; every caller shares the same key.
func DefaultSessionKey() (*rsa.PublicKey, error) {
	return sessionKey()
}

// ParsePublicKey reads an RSA public key in PKIX form, PEM armored or raw DER.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return key, nil
}

// LoadPublicKey reads a key file to use in place of DefaultSessionKey.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return ParsePublicKey(data)
}

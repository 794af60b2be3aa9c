package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealVersion byte = 1
	saltSize         = 16
)

var hkdfInfo = []byte("hrassist remember-me password v1")

// ErrOpen is returned for any ciphertext that does not authenticate
var ErrOpen = errors.New("unable to open sealed value")

// Binding ties a sealed value to its owner; opening with a different binding fails
type Binding struct {
	Username          string
	DeviceFingerprint string
}

func (b Binding) additionalData() []byte {
	// length prefix keeps ("ab","c") and ("a","bc") distinct
	return []byte(fmt.Sprintf("%d:%s|%s", len(b.Username), b.Username, b.DeviceFingerprint))
}

func deriveKey(rawToken string, salt []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(rawToken), salt, hkdfInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SealPassword encrypts password under a key derived from rawToken.
// Layout before base64: version | salt | nonce | ciphertext.
func SealPassword(password, rawToken string, binding Binding) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := deriveKey(rawToken, salt)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+saltSize+len(nonce)+len(password)+aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(password), binding.additionalData())
	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenPassword reverses SealPassword. Every failure returns ErrOpen.
func OpenPassword(sealed, rawToken string, binding Binding) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrOpen
	}
	headerSize := 1 + saltSize + chacha20poly1305.NonceSizeX
	if len(data) < headerSize+chacha20poly1305.Overhead || data[0] != sealVersion {
		return "", ErrOpen
	}
	salt := data[1 : 1+saltSize]
	nonce := data[1+saltSize : headerSize]

	key, err := deriveKey(rawToken, salt)
	if err != nil {
		return "", ErrOpen
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", ErrOpen
	}
	plain, err := aead.Open(nil, nonce, data[headerSize:], binding.additionalData())
	if err != nil {
		return "", ErrOpen
	}
	return string(plain), nil
}
